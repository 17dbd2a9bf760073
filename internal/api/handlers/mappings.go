package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/scan"
)

// Mapping kinds accepted in /api/mappings/{kind} paths.
const (
	KindMerchant    = "merchant"
	KindCategory    = "category"
	KindSubcategory = "subcategory"
	KindItemName    = "item-name"
)

var kindTables = map[string]string{
	KindMerchant:    "merchant_mappings",
	KindCategory:    "category_mappings",
	KindSubcategory: "subcategory_mappings",
	KindItemName:    "item_name_mappings",
}

// MappingStore is the persistence surface the mappings handler needs.
type MappingStore interface {
	ListMerchantMappings(ctx context.Context, userID string) ([]domain.MerchantMapping, error)
	ListCategoryMappings(ctx context.Context, userID string) ([]domain.CategoryMapping, error)
	ListSubcategoryMappings(ctx context.Context, userID string) ([]domain.SubcategoryMapping, error)
	ListItemNameMappings(ctx context.Context, userID string) ([]domain.ItemNameMapping, error)
	CreateMerchantMapping(ctx context.Context, userID string, m domain.MerchantMapping) (string, error)
	CreateCategoryMapping(ctx context.Context, userID string, m domain.CategoryMapping) (string, error)
	CreateSubcategoryMapping(ctx context.Context, userID string, m domain.SubcategoryMapping) (string, error)
	CreateItemNameMapping(ctx context.Context, userID string, m domain.ItemNameMapping) (string, error)
	DeleteMapping(ctx context.Context, table, userID, id string) error
}

// MappingsHandler handles learned mapping endpoints.
type MappingsHandler struct {
	store MappingStore
	log   zerolog.Logger
}

// NewMappingsHandler creates a new mappings handler.
func NewMappingsHandler(store MappingStore, log zerolog.Logger) *MappingsHandler {
	return &MappingsHandler{store: store, log: log}
}

// ListMappings handles GET /api/mappings/{kind}.
func (h *MappingsHandler) ListMappings(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var (
		payload interface{}
		err     error
	)
	switch kind {
	case KindMerchant:
		payload, err = h.store.ListMerchantMappings(ctx, userID)
	case KindCategory:
		payload, err = h.store.ListCategoryMappings(ctx, userID)
	case KindSubcategory:
		payload, err = h.store.ListSubcategoryMappings(ctx, userID)
	case KindItemName:
		payload, err = h.store.ListItemNameMappings(ctx, userID)
	default:
		middleware.WriteError(w, http.StatusNotFound, "Unknown mapping kind")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("Failed to list mappings")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list mappings")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"mappings": payload})
}

type createMappingBody struct {
	// Source is the raw scanned text; it is normalized before storage.
	Source string `json:"source"`
	// Target is the replacement the user chose. For merchant mappings an
	// empty target falls back to the display-formatted source.
	Target string `json:"target"`
	// StoreCategory only applies to merchant mappings.
	StoreCategory string `json:"store_category,omitempty"`
}

// CreateMapping handles POST /api/mappings/{kind}.
func (h *MappingsHandler) CreateMapping(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req createMappingBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}
	if req.Target == "" && kind != KindMerchant {
		middleware.WriteError(w, http.StatusBadRequest, "target is required")
		return
	}

	var (
		id  string
		err error
	)
	switch kind {
	case KindMerchant:
		target := req.Target
		if target == "" {
			target = scan.FormatMerchantName(req.Source)
		}
		id, err = h.store.CreateMerchantMapping(ctx, userID, domain.MerchantMapping{
			NormalizedMerchant: scan.NormalizeMerchant(req.Source),
			TargetMerchant:     target,
			StoreCategory:      req.StoreCategory,
		})
	case KindCategory:
		id, err = h.store.CreateCategoryMapping(ctx, userID, domain.CategoryMapping{
			NormalizedItemName: scan.NormalizeItemName(req.Source),
			TargetCategory:     req.Target,
		})
	case KindSubcategory:
		id, err = h.store.CreateSubcategoryMapping(ctx, userID, domain.SubcategoryMapping{
			NormalizedItemName: scan.NormalizeItemName(req.Source),
			TargetSubcategory:  req.Target,
		})
	case KindItemName:
		id, err = h.store.CreateItemNameMapping(ctx, userID, domain.ItemNameMapping{
			NormalizedItemName: scan.NormalizeItemName(req.Source),
			TargetName:         req.Target,
		})
	default:
		middleware.WriteError(w, http.StatusNotFound, "Unknown mapping kind")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("kind", kind).Msg("Failed to create mapping")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create mapping")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"mapping_id": id})
}

// DeleteMapping handles DELETE /api/mappings/{kind}/{id}.
func (h *MappingsHandler) DeleteMapping(w http.ResponseWriter, r *http.Request, kind, id string) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	table, ok := kindTables[kind]
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "Unknown mapping kind")
		return
	}

	if err := h.store.DeleteMapping(ctx, table, userID, id); err != nil {
		h.log.Error().Err(err).Str("kind", kind).Str("mapping_id", id).Msg("Failed to delete mapping")
		middleware.WriteError(w, http.StatusNotFound, "Mapping not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
