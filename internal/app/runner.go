// Package app composes the scan pipeline from its production collaborators.
// Both the HTTP API and the background worker run scans through it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/scan"
	"github.com/dvloznov/receipt-ledger/internal/trusted"
)

// ScanRequest is one scan invocation on behalf of a user.
type ScanRequest struct {
	Images    []string
	Currency  string
	StoreType string

	DefaultCountry string
	DefaultCity    string

	ViewMode      string
	ActiveGroupID string

	BatchEditingIndex *int
	HasBatchReceipts  bool

	Language      string
	ReducedMotion bool
}

// ScanResponse pairs the pipeline result with the UI events it emitted.
type ScanResponse struct {
	Result domain.ProcessScanResult
	Events []scan.UIEvent
}

// InsightSource mirrors trusted.InsightSource so callers can pass any
// generator.
type InsightSource = trusted.InsightSource

// Runner loads the user's mappings and balance, wires a processor and runs
// the scan. It is safe for concurrent use.
type Runner struct {
	repo     *bigquery.Repository
	scanner  scan.ScanService
	insights InsightSource
	cities   scan.CityDirectory
	log      zerolog.Logger
}

// NewRunner composes a runner from the production collaborators. insights
// may be nil.
func NewRunner(repo *bigquery.Repository, scanner scan.ScanService, insights InsightSource, cities scan.CityDirectory, log zerolog.Logger) *Runner {
	return &Runner{
		repo:     repo,
		scanner:  scanner,
		insights: insights,
		cities:   cities,
		log:      log,
	}
}

// Run executes one scan for the user. The returned error covers only the
// preparatory reads; pipeline failures surface inside the result.
func (r *Runner) Run(ctx context.Context, userID string, req ScanRequest) (*ScanResponse, error) {
	balance, err := r.repo.CreditBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: read credit balance: %w", err)
	}

	merchantMaps, err := r.repo.ListMerchantMappings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: load merchant mappings: %w", err)
	}
	categoryMaps, err := r.repo.ListCategoryMappings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: load category mappings: %w", err)
	}
	subcategoryMaps, err := r.repo.ListSubcategoryMappings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: load subcategory mappings: %w", err)
	}
	itemNameMaps, err := r.repo.ListItemNameMappings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("app: load item name mappings: %w", err)
	}

	sink := scan.NewRecordingSink()
	processor := scan.NewProcessor(scan.Deps{
		Scanner: r.scanner,
		Credits: &bigquery.UserLedger{Repo: r.repo, UserID: userID},
		Cities:  r.cities,
		Usage:   r.repo,
		UI:      sink,
		Overlay: sink,
		Trusted: trusted.NewSaver(r.repo, r.insights, userID),
		Log:     r.log,
	})

	result := processor.Process(ctx, scan.Params{
		Images:    req.Images,
		Currency:  req.Currency,
		StoreType: req.StoreType,
		Defaults: scan.LocationDefaults{
			Country: req.DefaultCountry,
			City:    req.DefaultCity,
		},
		UserID:              userID,
		CreditsRemaining:    balance,
		ViewMode:            req.ViewMode,
		ActiveGroupID:       req.ActiveGroupID,
		MerchantMappings:    merchantMaps,
		CategoryMappings:    categoryMaps,
		SubcategoryMappings: subcategoryMaps,
		ItemNameMappings:    itemNameMaps,
		BatchEditingIndex:   req.BatchEditingIndex,
		HasBatchReceipts:    req.HasBatchReceipts,
		Language:            req.Language,
		ReducedMotion:       req.ReducedMotion,
	})

	return &ScanResponse{Result: result, Events: sink.Events()}, nil
}
