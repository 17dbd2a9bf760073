package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/receipt-ledger/internal/scan"
)

// TrustedScanThreshold is the number of confirmed scans after which a
// merchant qualifies for auto-save.
const TrustedScanThreshold = 3

// IsTrustedMerchant reports whether the user has confirmed enough scans of
// the merchant for it to be auto-saved without review.
func (r *Repository) IsTrustedMerchant(ctx context.Context, userID, merchant string) (bool, error) {
	key := scan.NormalizeMerchant(merchant)
	if key == "" {
		return false, nil
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT scan_count
		FROM %s
		WHERE user_id = @user_id AND normalized_merchant = @merchant
	`, r.table("merchant_scans")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "merchant", Value: key},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("bigquery: read merchant scans: %w", err)
	}

	var row struct {
		ScanCount int64 `bigquery:"scan_count"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bigquery: read merchant scans: %w", err)
	}
	return row.ScanCount >= TrustedScanThreshold, nil
}

// RecordMerchantScan bumps the user's confirmed scan count for a merchant,
// creating the row on first sight.
func (r *Repository) RecordMerchantScan(ctx context.Context, userID, merchant string) error {
	key := scan.NormalizeMerchant(merchant)
	if key == "" {
		return nil
	}

	query := fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @user_id AS user_id, @merchant AS normalized_merchant) s
		ON t.user_id = s.user_id AND t.normalized_merchant = s.normalized_merchant
		WHEN MATCHED THEN
			UPDATE SET scan_count = t.scan_count + 1
		WHEN NOT MATCHED THEN
			INSERT (user_id, normalized_merchant, scan_count) VALUES (s.user_id, s.normalized_merchant, 1)
	`, r.table("merchant_scans"))
	_, err := r.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "merchant", Value: key},
	})
	if err != nil {
		return fmt.Errorf("bigquery: record merchant scan: %w", err)
	}
	return nil
}
