package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("key not found")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientFunds      = errors.New("insufficient funds")
)

// Key prefixes. One byte namespaces the three record families so backends that
// iterate in byte order keep each family contiguous.
const (
	prefixInstance   byte = 0x00
	prefixRemittance byte = 0x01
	prefixUserStats  byte = 0x02
)

func InstanceKey() []byte {
	return append([]byte{prefixInstance}, "instance"...)
}

func RemittanceKey(id models.RemittanceID) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, prefixRemittance)
	return append(key, id[:]...)
}

func UserStatsKey(account string) []byte {
	key := make([]byte, 0, 1+len(account))
	key = append(key, prefixUserStats)
	return append(key, account...)
}

// Op is a single write inside a Batch.
type Op struct {
	Key   []byte
	Value []byte
}

// Guard is a precondition checked inside Commit: Key must still hold Value,
// or must not exist when Absent is set.
type Guard struct {
	Key    []byte
	Value  []byte
	Absent bool
}

func (g Guard) holds(current []byte, found bool) bool {
	if g.Absent {
		return !found
	}
	return found && bytes.Equal(current, g.Value)
}

// Batch collects writes that a KV applies all-or-nothing, provided every
// guard still holds at commit time.
type Batch struct {
	ops    []Op
	guards []Guard
}

func NewBatch() *Batch {
	return &Batch{}
}

// Set queues a write. Key and value are copied so callers may reuse buffers.
func (b *Batch) Set(key, value []byte) {
	b.ops = append(b.ops, Op{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
}

// Expect makes the commit conditional on key still holding value.
func (b *Batch) Expect(key, value []byte) {
	b.guards = append(b.guards, Guard{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
}

// ExpectAbsent makes the commit conditional on key not existing.
func (b *Batch) ExpectAbsent(key []byte) {
	b.guards = append(b.guards, Guard{
		Key:    append([]byte(nil), key...),
		Absent: true,
	})
}

func (b *Batch) Ops() []Op {
	return b.ops
}

func (b *Batch) Guards() []Guard {
	return b.guards
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// CheckGuards reads every guarded key through get, which must return
// ErrNotFound for a missing key. The caller holds whatever lock or
// transaction makes the read and the following write atomic.
func CheckGuards(guards []Guard, get func(key []byte) ([]byte, error)) error {
	for _, g := range guards {
		current, err := get(g.Key)
		found := true
		if errors.Is(err, ErrNotFound) {
			found = false
		} else if err != nil {
			return fmt.Errorf("reading guarded key %x: %w", g.Key, err)
		}
		if !g.holds(current, found) {
			return fmt.Errorf("%w: %x changed since it was read", ErrConcurrentModification, g.Key)
		}
	}
	return nil
}

// KV is the durable key-value store behind the remittance service.
type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key []byte) ([]byte, error)
	Has(ctx context.Context, key []byte) (bool, error)
	Set(ctx context.Context, key, value []byte) error
	// Commit applies every op of the batch atomically. It fails with
	// ErrConcurrentModification, writing nothing, when a guard does not hold.
	Commit(ctx context.Context, batch *Batch) error
	Close() error
}

// TransferParams describes one movement of funds between two ledger accounts.
type TransferParams struct {
	Reference   string // idempotency key, unique per movement
	Asset       string
	Source      string
	Destination string
	Amount      int64
	Kind        string // create, refund, compensate, faucet
}

func (p TransferParams) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", p.Amount)
	}
	if p.Source == "" || p.Destination == "" {
		return fmt.Errorf("transfer accounts cannot be empty")
	}
	if p.Source == p.Destination {
		return fmt.Errorf("transfer source and destination are the same account: %s", p.Source)
	}
	if p.Asset == "" {
		return fmt.Errorf("transfer asset cannot be empty")
	}
	return nil
}

// AssetLedger moves funds between accounts. Every backend (SQLite, Formance, ...)
// must apply a Transfer atomically and reject it with ErrInsufficientFunds when
// the source cannot cover the amount.
type AssetLedger interface {
	Transfer(ctx context.Context, params TransferParams) error
	// Credit mints funds into an account from the backend's issuing account.
	Credit(ctx context.Context, account, asset string, amount int64, reference string) error
	Balance(ctx context.Context, account, asset string) (int64, error)
	Close() error
}

// LedgerHistory is implemented by ledgers that can list the transfers that
// touched an account, newest first.
type LedgerHistory interface {
	GetTransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.LedgerTransaction, error)
}
