package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/app"
	"github.com/dvloznov/receipt-ledger/internal/gcs"
	"github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/jobs"
)

// ScansHandler handles receipt scanning endpoints.
type ScansHandler struct {
	runner    *app.Runner
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(runner *app.Runner, publisher jobs.Publisher, log zerolog.Logger) *ScansHandler {
	return &ScansHandler{
		runner:    runner,
		publisher: publisher,
		log:       log,
	}
}

type scanRequestBody struct {
	Images            []string `json:"images"`
	Currency          string   `json:"currency"`
	StoreType         string   `json:"store_type"`
	DefaultCountry    string   `json:"default_country"`
	DefaultCity       string   `json:"default_city"`
	ViewMode          string   `json:"view_mode"`
	ActiveGroupID     string   `json:"active_group_id"`
	BatchEditingIndex *int     `json:"batch_editing_index"`
	HasBatchReceipts  bool     `json:"has_batch_receipts"`
	Language          string   `json:"language"`
	ReducedMotion     bool     `json:"reduced_motion"`
	Async             bool     `json:"async"`
}

// CreateScan handles POST /api/scans.
// Synchronous requests run the full pipeline and return the result plus the
// UI events it emitted; async requests enqueue a background job.
func (h *ScansHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req scanRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Images) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "images is required")
		return
	}

	if req.Async {
		job := &jobs.ScanReceiptJob{
			UserID:    userID,
			ImageURIs: req.Images,
			Currency:  req.Currency,
			StoreType: req.StoreType,
		}
		if err := h.publisher.PublishScanReceipt(ctx, job); err != nil {
			h.log.Error().Err(err).Msg("Failed to enqueue scan job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scan job")
			return
		}

		h.log.Info().Str("job_id", job.JobID).Str("user_id", userID).Msg("Scan job enqueued")
		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
			"job_id": job.JobID,
			"status": string(job.Status),
		})
		return
	}

	resp, err := h.runner.Run(ctx, userID, app.ScanRequest{
		Images:            req.Images,
		Currency:          req.Currency,
		StoreType:         req.StoreType,
		DefaultCountry:    req.DefaultCountry,
		DefaultCity:       req.DefaultCity,
		ViewMode:          req.ViewMode,
		ActiveGroupID:     req.ActiveGroupID,
		BatchEditingIndex: req.BatchEditingIndex,
		HasBatchReceipts:  req.HasBatchReceipts,
		Language:          req.Language,
		ReducedMotion:     req.ReducedMotion,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Scan preparation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run scan")
		return
	}

	status := http.StatusOK
	if !resp.Result.Success {
		status = http.StatusUnprocessableEntity
	}
	middleware.WriteJSON(w, status, map[string]interface{}{
		"result": resp.Result,
		"events": resp.Events,
	})
}

// ImagesHandler handles receipt image uploads.
type ImagesHandler struct {
	store *gcs.ImageStore
	log   zerolog.Logger
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(store *gcs.ImageStore, log zerolog.Logger) *ImagesHandler {
	return &ImagesHandler{store: store, log: log}
}

// UploadImage handles POST /api/images.
// The request body is the raw image; the filename comes from a query
// parameter and the response carries the stored GCS URI.
func (h *ImagesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename is required")
		return
	}

	uri, err := h.store.UploadImage(ctx, userID, filename, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Image upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"gcs_uri": uri,
		"status":  "uploaded",
	})
}

// CreditsHandler handles scan credit endpoints.
type CreditsHandler struct {
	repo *bigquery.Repository
	log  zerolog.Logger
}

// NewCreditsHandler creates a new credits handler.
func NewCreditsHandler(repo *bigquery.Repository, log zerolog.Logger) *CreditsHandler {
	return &CreditsHandler{repo: repo, log: log}
}

// GetBalance handles GET /api/credits.
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	balance, err := h.repo.CreditBalance(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to read credit balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read credit balance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	repo *bigquery.Repository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo *bigquery.Repository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, log: log}
}

// ListTransactions handles GET /api/transactions.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	transactions, err := h.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []*bigquery.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// JobsHandler handles scan job endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != middleware.UserIDFromContext(ctx) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := jobs.JobFilter{
		UserID: middleware.UserIDFromContext(ctx),
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
