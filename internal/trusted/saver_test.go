package trusted

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

type mockStore struct {
	trustedFunc func(ctx context.Context, userID, merchant string) (bool, error)
	insertFunc  func(ctx context.Context, userID string, tx *domain.Transaction) (string, error)
	recordFunc  func(ctx context.Context, userID, merchant string) error
}

func (m *mockStore) IsTrustedMerchant(ctx context.Context, userID, merchant string) (bool, error) {
	return m.trustedFunc(ctx, userID, merchant)
}

func (m *mockStore) InsertTransaction(ctx context.Context, userID string, tx *domain.Transaction) (string, error) {
	return m.insertFunc(ctx, userID, tx)
}

func (m *mockStore) RecordMerchantScan(ctx context.Context, userID, merchant string) error {
	return m.recordFunc(ctx, userID, merchant)
}

func TestSaverBindsUser(t *testing.T) {
	var gotUser, gotMerchant string
	store := &mockStore{
		trustedFunc: func(ctx context.Context, userID, merchant string) (bool, error) {
			gotUser, gotMerchant = userID, merchant
			return true, nil
		},
	}

	s := NewSaver(store, nil, "user-42")
	ok, err := s.CheckTrusted(context.Background(), "Lidl")
	if err != nil || !ok {
		t.Fatalf("CheckTrusted = %v, %v", ok, err)
	}
	if gotUser != "user-42" || gotMerchant != "Lidl" {
		t.Errorf("store called with (%s, %s), want (user-42, Lidl)", gotUser, gotMerchant)
	}
}

func TestSaverSaveTransaction(t *testing.T) {
	store := &mockStore{
		insertFunc: func(ctx context.Context, userID string, tx *domain.Transaction) (string, error) {
			if userID != "user-42" {
				t.Errorf("userID = %s, want user-42", userID)
			}
			return "tx-1", nil
		},
	}

	s := NewSaver(store, nil, "user-42")
	id, err := s.SaveTransaction(context.Background(), validTransaction())
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}
	if id != "tx-1" {
		t.Errorf("id = %s, want tx-1", id)
	}
}

func validTransaction() *domain.Transaction {
	return &domain.Transaction{
		Merchant: "Lidl",
		Alias:    "Lidl",
		Date:     "2024-06-15",
		Total:    12.40,
		Items: []domain.TransactionItem{
			{Name: "Milk", Price: 1.20, Qty: 2},
			{Name: "Bread", Price: 10.00, Qty: 1},
		},
	}
}

func TestSaverRejectsMalformedTransactions(t *testing.T) {
	store := &mockStore{
		insertFunc: func(ctx context.Context, userID string, tx *domain.Transaction) (string, error) {
			t.Error("store must not be reached for a malformed transaction")
			return "", nil
		},
	}
	s := NewSaver(store, nil, "user-42")

	tests := []struct {
		name   string
		mutate func(tx *domain.Transaction)
	}{
		{"missing date", func(tx *domain.Transaction) { tx.Date = "" }},
		{"blank merchant", func(tx *domain.Transaction) { tx.Merchant = "  " }},
		{"negative total", func(tx *domain.Transaction) { tx.Total = -1 }},
		{"zero-qty item", func(tx *domain.Transaction) { tx.Items[0].Qty = 0 }},
		{"blank item name", func(tx *domain.Transaction) { tx.Items[1].Name = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(tx)
			if _, err := s.SaveTransaction(context.Background(), tx); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := s.SaveTransaction(context.Background(), nil); err == nil {
		t.Error("expected validation error for nil transaction")
	}
}

func TestSaverGenerateInsightWithoutSource(t *testing.T) {
	s := NewSaver(&mockStore{}, nil, "user-42")
	if _, err := s.GenerateInsight(context.Background(), &domain.Transaction{}); err == nil {
		t.Error("expected error when no insight source is configured")
	}
}

func TestSaverBatchSnapshot(t *testing.T) {
	s := NewSaver(&mockStore{}, nil, "user-42")

	s.AddToBatch(&domain.Transaction{Merchant: "A"})
	s.AddToBatch(&domain.Transaction{Merchant: "B"})

	batch := s.Batch()
	if len(batch) != 2 {
		t.Fatalf("Batch() len = %d, want 2", len(batch))
	}

	batch[0] = &domain.Transaction{Merchant: "mutated"}
	if s.Batch()[0].Merchant != "A" {
		t.Error("Batch() snapshot shares backing array with internal state")
	}
}

func TestSaverRecordScanError(t *testing.T) {
	store := &mockStore{
		recordFunc: func(ctx context.Context, userID, merchant string) error {
			return errors.New("write failed")
		},
	}
	s := NewSaver(store, nil, "user-42")
	if err := s.RecordMerchantScan(context.Background(), "Lidl"); err == nil {
		t.Error("expected error to propagate")
	}
}
