/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


// Package idgen derives remittance identifiers from the instance sequence counter.
package idgen

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"remittance-escrow-go/internal/models"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Generator maps a sequence number to a remittance identifier. Implementations
// must be deterministic: history lookups re-derive every ID from the counter.
type Generator interface {
	Derive(seq uint64) models.RemittanceID
}

// Hasher is a 256-bit hash primitive.
type Hasher func(data []byte) [32]byte

func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func Blake3(data []byte) [32]byte {
	return blake3.Sum256(data)
}

func Keccak256(data []byte) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out
}

// HasherByName resolves the ID_HASH setting.
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", "sha256":
		return SHA256, nil
	case "blake3":
		return Blake3, nil
	case "keccak256", "keccak":
		return Keccak256, nil
	default:
		return nil, fmt.Errorf("unsupported id hash: %q", name)
	}
}

// SequenceGenerator hashes the 8-byte big-endian encoding of the sequence.
type SequenceGenerator struct {
	hash Hasher
}

var _ Generator = (*SequenceGenerator)(nil)

func NewSequenceGenerator(hash Hasher) *SequenceGenerator {
	if hash == nil {
		hash = SHA256
	}
	return &SequenceGenerator{hash: hash}
}

func (g *SequenceGenerator) Derive(seq uint64) models.RemittanceID {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return models.RemittanceID(g.hash(buf[:]))
}
