package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// TransactionItemRow is one receipt line item nested inside a transaction
// row.
type TransactionItemRow struct {
	Name        string  `bigquery:"name"`
	Price       float64 `bigquery:"price"`
	Qty         int64   `bigquery:"qty"`
	Category    string  `bigquery:"category"`
	Subcategory string  `bigquery:"subcategory"`
}

// TransactionRow is the transactions table schema.
type TransactionRow struct {
	TransactionID string     `bigquery:"transaction_id"`
	UserID        string     `bigquery:"user_id"`
	Merchant      string     `bigquery:"merchant"`
	Alias         string     `bigquery:"alias"`
	Date          civil.Date `bigquery:"date"`
	Total         float64    `bigquery:"total"`
	Category      string     `bigquery:"category"`

	Items []TransactionItemRow `bigquery:"items"`

	Country  string `bigquery:"country"`
	City     string `bigquery:"city"`
	Currency string `bigquery:"currency"`

	ReceiptType    string   `bigquery:"receipt_type"`
	PromptVersion  string   `bigquery:"prompt_version"`
	MerchantSource string   `bigquery:"merchant_source"`
	SharedGroupIDs []string `bigquery:"shared_group_ids"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// InsertTransaction persists one transaction and returns its generated id.
func (r *Repository) InsertTransaction(ctx context.Context, userID string, tx *domain.Transaction) (string, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return "", fmt.Errorf("bigquery: invalid transaction date %q: %w", tx.Date, err)
	}

	row := &TransactionRow{
		TransactionID:  uuid.NewString(),
		UserID:         userID,
		Merchant:       tx.Merchant,
		Alias:          tx.Alias,
		Date:           date,
		Total:          tx.Total,
		Category:       tx.Category,
		Country:        tx.Country,
		City:           tx.City,
		Currency:       tx.Currency,
		ReceiptType:    tx.ReceiptType,
		PromptVersion:  tx.PromptVersion,
		MerchantSource: tx.MerchantSource,
		SharedGroupIDs: tx.SharedGroupIDs,
		CreatedTS:      time.Now().UTC(),
	}
	for _, it := range tx.Items {
		row.Items = append(row.Items, TransactionItemRow{
			Name:        it.Name,
			Price:       it.Price,
			Qty:         int64(it.Qty),
			Category:    it.Category,
			Subcategory: it.Subcategory,
		})
	}

	inserter := r.client.Dataset(r.dataset).Table("transactions").Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("bigquery: insert transaction: %w", err)
	}
	return row.TransactionID, nil
}

// ListTransactions returns the user's most recent transactions, newest
// first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, limit int) ([]*TransactionRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE user_id = @user_id
		ORDER BY date DESC, created_ts DESC
		LIMIT @limit
	`, r.table("transactions")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list transactions: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iterate transactions: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
