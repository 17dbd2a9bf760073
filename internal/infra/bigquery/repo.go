// Package bigquery persists transactions, learned mappings, scan credits
// and trusted merchants in BigQuery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Repository is the BigQuery-backed store. One instance is shared across
// requests; the underlying client is safe for concurrent use.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository connects to BigQuery. projectID may be empty to use the
// client's default project detection.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	if dataset == "" {
		dataset = "receipts"
	}
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) table(name string) string {
	return fmt.Sprintf("%s.%s", r.dataset, name)
}

// runDML executes a parameterized DML statement and returns the number of
// affected rows.
func (r *Repository) runDML(ctx context.Context, query string, params []bigquery.QueryParameter) (int64, error) {
	q := r.client.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("bigquery: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("bigquery: job error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}
