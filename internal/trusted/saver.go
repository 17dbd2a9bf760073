// Package trusted wires the auto-save path for merchants the user has
// confirmed often enough to skip manual review.
package trusted

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/scan"
)

// Store is the persistence surface the saver needs.
type Store interface {
	IsTrustedMerchant(ctx context.Context, userID, merchant string) (bool, error)
	InsertTransaction(ctx context.Context, userID string, tx *domain.Transaction) (string, error)
	RecordMerchantScan(ctx context.Context, userID, merchant string) error
}

// InsightSource produces a short observation about a saved transaction.
type InsightSource interface {
	GenerateInsight(ctx context.Context, tx *domain.Transaction) (string, error)
}

// Saver binds a store and an insight source to one user. It implements
// scan.TrustedSaver and keeps an in-memory batch of transactions saved during
// the current session.
type Saver struct {
	store    Store
	insights InsightSource
	userID   string

	mu    sync.Mutex
	batch []*domain.Transaction
}

// NewSaver creates a saver for the user. insights may be nil; GenerateInsight
// then reports an error, which callers already treat as non-fatal.
func NewSaver(store Store, insights InsightSource, userID string) *Saver {
	return &Saver{store: store, insights: insights, userID: userID}
}

func (s *Saver) CheckTrusted(ctx context.Context, merchant string) (bool, error) {
	return s.store.IsTrustedMerchant(ctx, s.userID, merchant)
}

func (s *Saver) SaveTransaction(ctx context.Context, tx *domain.Transaction) (string, error) {
	if !scan.IsValidTransaction(tx) {
		return "", fmt.Errorf("trusted: transaction failed validation, not saving")
	}
	return s.store.InsertTransaction(ctx, s.userID, tx)
}

func (s *Saver) GenerateInsight(ctx context.Context, tx *domain.Transaction) (string, error) {
	if s.insights == nil {
		return "", fmt.Errorf("trusted: no insight source configured")
	}
	return s.insights.GenerateInsight(ctx, tx)
}

func (s *Saver) AddToBatch(tx *domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = append(s.batch, tx)
}

func (s *Saver) RecordMerchantScan(ctx context.Context, merchant string) error {
	return s.store.RecordMerchantScan(ctx, s.userID, merchant)
}

// Batch returns a snapshot of the transactions auto-saved this session.
func (s *Saver) Batch() []*domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Transaction, len(s.batch))
	copy(out, s.batch)
	return out
}
