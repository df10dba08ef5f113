package main

import (
	"strings"
	"testing"
	"time"

	"remittance-escrow-go/internal/models"
)

func TestGroupByAccount(t *testing.T) {
	balances := []models.AccountBalance{
		{Account: "alice", Asset: "EURC", Balance: 1},
		{Account: "alice", Asset: "USDC", Balance: 2},
		{Account: "escrow:remittance", Asset: "USDC", Balance: 3},
		{Account: "world", Asset: "USDC", Balance: -5},
	}

	order, grouped := groupByAccount(balances)
	if len(order) != 3 || order[0] != "alice" || order[1] != "escrow:remittance" || order[2] != "world" {
		t.Fatalf("Unexpected account order %v", order)
	}
	if len(grouped["alice"]) != 2 {
		t.Errorf("Expected 2 balances for alice, got %d", len(grouped["alice"]))
	}
}

func TestDescribeTransaction(t *testing.T) {
	tx := models.LedgerTransaction{
		Asset:       "USDC",
		Source:      "alice",
		Destination: "escrow:remittance",
		Amount:      500_0000000,
		Kind:        "create",
		CreatedAt:   time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	out := describeTransaction("alice", tx)
	for _, want := range []string{"2025-03-04 05:06:07", "out", "500 USDC", "escrow:remittance", "create"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}

	in := describeTransaction("escrow:remittance", tx)
	if !strings.Contains(in, "in ") || !strings.Contains(in, "alice") {
		t.Errorf("Expected an incoming transfer from alice, got %q", in)
	}
}
