package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// CreditBalance returns the user's remaining scan credits. A user without a
// balance row has zero credits.
func (r *Repository) CreditBalance(ctx context.Context, userID string) (int, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT balance
		FROM %s
		WHERE user_id = @user_id
	`, r.table("credits")))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: read credit balance: %w", err)
	}

	var row struct {
		Balance int64 `bigquery:"balance"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bigquery: read credit balance: %w", err)
	}
	return int(row.Balance), nil
}

// DeductCredits atomically debits n credits from the user's balance. It
// returns false when the balance is insufficient; the update only matches a
// row whose balance still covers the debit.
func (r *Repository) DeductCredits(ctx context.Context, userID string, n int) (bool, error) {
	if n <= 0 {
		return false, fmt.Errorf("bigquery: deduct amount must be positive, got %d", n)
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET balance = balance - @n
		WHERE user_id = @user_id AND balance >= @n
	`, r.table("credits"))
	affected, err := r.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "n", Value: int64(n)},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return false, fmt.Errorf("bigquery: deduct credits: %w", err)
	}
	return affected > 0, nil
}

// AddCredits credits n back to the user's balance, creating the balance row
// if it does not exist yet.
func (r *Repository) AddCredits(ctx context.Context, userID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("bigquery: credit amount must be positive, got %d", n)
	}
	query := fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @user_id AS user_id, @n AS n) s
		ON t.user_id = s.user_id
		WHEN MATCHED THEN
			UPDATE SET balance = t.balance + s.n
		WHEN NOT MATCHED THEN
			INSERT (user_id, balance) VALUES (s.user_id, s.n)
	`, r.table("credits"))
	_, err := r.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "n", Value: int64(n)},
	})
	if err != nil {
		return fmt.Errorf("bigquery: add credits: %w", err)
	}
	return nil
}
