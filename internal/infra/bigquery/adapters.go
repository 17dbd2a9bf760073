package bigquery

import (
	"context"
)

// UserLedger binds a repository to one user so it can serve as a scan
// credit ledger.
type UserLedger struct {
	Repo   *Repository
	UserID string
}

func (l *UserLedger) DeductCredits(ctx context.Context, n int) (bool, error) {
	return l.Repo.DeductCredits(ctx, l.UserID, n)
}

func (l *UserLedger) AddCredits(ctx context.Context, n int) error {
	return l.Repo.AddCredits(ctx, l.UserID, n)
}
