package models

import (
	"time"
)

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id                string    `db:"id"`
	Account           string    `db:"account"`
	Asset             string    `db:"asset"`
	Balance           int64     `db:"balance"`
	LastTransactionId string    `db:"last_transaction_id"`
	Version           int64     `db:"version"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// LedgerTransaction is an immutable transfer between two accounts (cold data)
type LedgerTransaction struct {
	Id          string    `db:"id"`
	Reference   string    `db:"reference"`
	Asset       string    `db:"asset"`
	Source      string    `db:"source"`
	Destination string    `db:"destination"`
	Amount      int64     `db:"amount"`
	Kind        string    `db:"kind"`
	CreatedAt   time.Time `db:"created_at"`
}
