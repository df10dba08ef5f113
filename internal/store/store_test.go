package store

import (
	"bytes"
	"testing"

	"remittance-escrow-go/internal/models"
)

func TestKeyFamiliesDoNotCollide(t *testing.T) {
	var id models.RemittanceID
	copy(id[:], bytes.Repeat([]byte{0xab}, 32))

	keys := [][]byte{InstanceKey(), RemittanceKey(id), UserStatsKey("instance")}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if bytes.Equal(keys[i], keys[j]) {
				t.Errorf("Key %d collides with key %d: %x", i, j, keys[i])
			}
		}
	}

	if len(RemittanceKey(id)) != 33 {
		t.Errorf("Expected 33-byte remittance key, got %d", len(RemittanceKey(id)))
	}
}

func TestBatch_CopiesBuffers(t *testing.T) {
	batch := NewBatch()
	key := []byte("k")
	value := []byte("v1")
	batch.Set(key, value)
	value[1] = '2'

	if batch.Len() != 1 {
		t.Fatalf("Expected 1 op, got %d", batch.Len())
	}
	if string(batch.Ops()[0].Value) != "v1" {
		t.Errorf("Expected batch to hold a copy, got %q", batch.Ops()[0].Value)
	}
}

func TestTransferParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  TransferParams
		wantErr bool
	}{
		{"valid", TransferParams{Reference: "r", Asset: "USDC", Source: "a", Destination: "b", Amount: 1}, false},
		{"zero amount", TransferParams{Asset: "USDC", Source: "a", Destination: "b"}, true},
		{"same account", TransferParams{Asset: "USDC", Source: "a", Destination: "a", Amount: 1}, true},
		{"missing asset", TransferParams{Source: "a", Destination: "b", Amount: 1}, true},
		{"missing source", TransferParams{Asset: "USDC", Destination: "b", Amount: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
