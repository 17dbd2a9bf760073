package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

type merchantMappingRow struct {
	MappingID          string `bigquery:"mapping_id"`
	UserID             string `bigquery:"user_id"`
	NormalizedMerchant string `bigquery:"normalized_merchant"`
	TargetMerchant     string `bigquery:"target_merchant"`
	StoreCategory      string `bigquery:"store_category"`
	UsageCount         int64  `bigquery:"usage_count"`
}

type itemMappingRow struct {
	MappingID      string `bigquery:"mapping_id"`
	UserID         string `bigquery:"user_id"`
	NormalizedName string `bigquery:"normalized_name"`
	Target         string `bigquery:"target"`
	UsageCount     int64  `bigquery:"usage_count"`
}

// ListMerchantMappings returns the user's learned merchant mappings.
func (r *Repository) ListMerchantMappings(ctx context.Context, userID string) ([]domain.MerchantMapping, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT mapping_id, user_id, normalized_merchant, target_merchant, store_category, usage_count
		FROM %s
		WHERE user_id = @user_id
	`, r.table("merchant_mappings")))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list merchant mappings: %w", err)
	}

	var out []domain.MerchantMapping
	for {
		var row merchantMappingRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iterate merchant mappings: %w", err)
		}
		out = append(out, domain.MerchantMapping{
			ID:                 row.MappingID,
			NormalizedMerchant: row.NormalizedMerchant,
			TargetMerchant:     row.TargetMerchant,
			StoreCategory:      row.StoreCategory,
			UsageCount:         int(row.UsageCount),
		})
	}
	return out, nil
}

func (r *Repository) listItemMappings(ctx context.Context, table, userID string) ([]itemMappingRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT mapping_id, user_id, normalized_name, target, usage_count
		FROM %s
		WHERE user_id = @user_id
	`, r.table(table)))
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: list %s: %w", table, err)
	}

	var rows []itemMappingRow
	for {
		var row itemMappingRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: iterate %s: %w", table, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (row itemMappingRow) toCategoryMapping() domain.CategoryMapping {
	return domain.CategoryMapping{
		ID:                 row.MappingID,
		NormalizedItemName: row.NormalizedName,
		TargetCategory:     row.Target,
		UsageCount:         int(row.UsageCount),
	}
}

func (row itemMappingRow) toSubcategoryMapping() domain.SubcategoryMapping {
	return domain.SubcategoryMapping{
		ID:                 row.MappingID,
		NormalizedItemName: row.NormalizedName,
		TargetSubcategory:  row.Target,
		UsageCount:         int(row.UsageCount),
	}
}

func (row itemMappingRow) toItemNameMapping() domain.ItemNameMapping {
	return domain.ItemNameMapping{
		ID:                 row.MappingID,
		NormalizedItemName: row.NormalizedName,
		TargetName:         row.Target,
		UsageCount:         int(row.UsageCount),
	}
}

// ListCategoryMappings returns the user's learned item-to-category mappings.
func (r *Repository) ListCategoryMappings(ctx context.Context, userID string) ([]domain.CategoryMapping, error) {
	rows, err := r.listItemMappings(ctx, "category_mappings", userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCategoryMapping())
	}
	return out, nil
}

// ListSubcategoryMappings returns the user's learned subcategory mappings.
func (r *Repository) ListSubcategoryMappings(ctx context.Context, userID string) ([]domain.SubcategoryMapping, error) {
	rows, err := r.listItemMappings(ctx, "subcategory_mappings", userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SubcategoryMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSubcategoryMapping())
	}
	return out, nil
}

// ListItemNameMappings returns the user's learned item rename mappings.
func (r *Repository) ListItemNameMappings(ctx context.Context, userID string) ([]domain.ItemNameMapping, error) {
	rows, err := r.listItemMappings(ctx, "item_name_mappings", userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ItemNameMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toItemNameMapping())
	}
	return out, nil
}

// CreateMerchantMapping stores a new learned merchant mapping and returns
// its id.
func (r *Repository) CreateMerchantMapping(ctx context.Context, userID string, m domain.MerchantMapping) (string, error) {
	row := &merchantMappingRow{
		MappingID:          uuid.NewString(),
		UserID:             userID,
		NormalizedMerchant: m.NormalizedMerchant,
		TargetMerchant:     m.TargetMerchant,
		StoreCategory:      m.StoreCategory,
	}
	inserter := r.client.Dataset(r.dataset).Table("merchant_mappings").Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("bigquery: create merchant mapping: %w", err)
	}
	return row.MappingID, nil
}

func (r *Repository) createItemMapping(ctx context.Context, table, userID, normalizedName, target string) (string, error) {
	row := &itemMappingRow{
		MappingID:      uuid.NewString(),
		UserID:         userID,
		NormalizedName: normalizedName,
		Target:         target,
	}
	inserter := r.client.Dataset(r.dataset).Table(table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("bigquery: create %s: %w", table, err)
	}
	return row.MappingID, nil
}

// CreateCategoryMapping stores a new item-to-category mapping.
func (r *Repository) CreateCategoryMapping(ctx context.Context, userID string, m domain.CategoryMapping) (string, error) {
	return r.createItemMapping(ctx, "category_mappings", userID, m.NormalizedItemName, m.TargetCategory)
}

// CreateSubcategoryMapping stores a new subcategory mapping.
func (r *Repository) CreateSubcategoryMapping(ctx context.Context, userID string, m domain.SubcategoryMapping) (string, error) {
	return r.createItemMapping(ctx, "subcategory_mappings", userID, m.NormalizedItemName, m.TargetSubcategory)
}

// CreateItemNameMapping stores a new item rename mapping.
func (r *Repository) CreateItemNameMapping(ctx context.Context, userID string, m domain.ItemNameMapping) (string, error) {
	return r.createItemMapping(ctx, "item_name_mappings", userID, m.NormalizedItemName, m.TargetName)
}

// DeleteMapping removes a mapping the user owns from the given mapping
// table.
func (r *Repository) DeleteMapping(ctx context.Context, table, userID, id string) error {
	switch table {
	case "merchant_mappings", "category_mappings", "subcategory_mappings", "item_name_mappings":
	default:
		return fmt.Errorf("bigquery: unknown mapping table %q", table)
	}
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE mapping_id = @id AND user_id = @user_id
	`, r.table(table))
	affected, err := r.runDML(ctx, query, []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("bigquery: delete mapping: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bigquery: mapping %s not found", id)
	}
	return nil
}

func (r *Repository) incrementUsage(ctx context.Context, table, id string) error {
	if id == "" {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET usage_count = usage_count + 1
		WHERE mapping_id = @id
	`, r.table(table))
	_, err := r.runDML(ctx, query, []bigquery.QueryParameter{{Name: "id", Value: id}})
	if err != nil {
		return fmt.Errorf("bigquery: increment usage on %s: %w", table, err)
	}
	return nil
}

// IncrementMerchantMappingUsage bumps the usage counter on a merchant
// mapping.
func (r *Repository) IncrementMerchantMappingUsage(ctx context.Context, id string) error {
	return r.incrementUsage(ctx, "merchant_mappings", id)
}

// IncrementCategoryMappingUsage bumps the usage counter on a category
// mapping.
func (r *Repository) IncrementCategoryMappingUsage(ctx context.Context, id string) error {
	return r.incrementUsage(ctx, "category_mappings", id)
}

// IncrementSubcategoryMappingUsage bumps the usage counter on a subcategory
// mapping.
func (r *Repository) IncrementSubcategoryMappingUsage(ctx context.Context, id string) error {
	return r.incrementUsage(ctx, "subcategory_mappings", id)
}

// IncrementItemNameMappingUsage bumps the usage counter on an item rename
// mapping.
func (r *Repository) IncrementItemNameMappingUsage(ctx context.Context, id string) error {
	return r.incrementUsage(ctx, "item_name_mappings", id)
}
