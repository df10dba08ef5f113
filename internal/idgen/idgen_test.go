package idgen

import (
	"crypto/sha256"
	"testing"
)

func TestSequenceGenerator_DefaultIsSHA256OfBigEndianCounter(t *testing.T) {
	gen := NewSequenceGenerator(nil)

	id := gen.Derive(1)
	expected := sha256.Sum256([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	if [32]byte(id) != expected {
		t.Errorf("Expected %x, got %s", expected, id)
	}
}

func TestSequenceGenerator_Deterministic(t *testing.T) {
	for _, name := range []string{"sha256", "blake3", "keccak256"} {
		t.Run(name, func(t *testing.T) {
			hash, err := HasherByName(name)
			if err != nil {
				t.Fatalf("HasherByName failed: %v", err)
			}
			a := NewSequenceGenerator(hash)
			b := NewSequenceGenerator(hash)

			seen := make(map[string]uint64)
			for seq := uint64(1); seq <= 64; seq++ {
				id := a.Derive(seq)
				if id != b.Derive(seq) {
					t.Fatalf("Derive(%d) not deterministic", seq)
				}
				if prev, ok := seen[id.String()]; ok {
					t.Fatalf("Derive(%d) collides with Derive(%d)", seq, prev)
				}
				seen[id.String()] = seq
			}
		})
	}
}

func TestHashersDiffer(t *testing.T) {
	input := []byte{0, 0, 0, 0, 0, 0, 0, 7}
	if SHA256(input) == Blake3(input) || SHA256(input) == Keccak256(input) || Blake3(input) == Keccak256(input) {
		t.Error("Expected distinct digests across hash functions")
	}
}

func TestHasherByName_Unknown(t *testing.T) {
	if _, err := HasherByName("md5"); err == nil {
		t.Error("Expected error for unsupported hash")
	}
}
