package gemini

import (
	"fmt"
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// DecodeScanResult maps the model's generic JSON object onto a ScanResult.
// Every field is optional; only structurally wrong values (a number where a
// string belongs) are errors.
func DecodeScanResult(raw map[string]interface{}) (*domain.ScanResult, error) {
	sr := &domain.ScanResult{}

	var err error
	if sr.Merchant, err = optionalString(raw, "merchant"); err != nil {
		return nil, err
	}
	if sr.Date, err = optionalString(raw, "date"); err != nil {
		return nil, err
	}
	if sr.Time, err = optionalString(raw, "time"); err != nil {
		return nil, err
	}
	if sr.Currency, err = optionalString(raw, "currency"); err != nil {
		return nil, err
	}
	if sr.Category, err = optionalString(raw, "category"); err != nil {
		return nil, err
	}
	if sr.Country, err = optionalString(raw, "country"); err != nil {
		return nil, err
	}
	if sr.City, err = optionalString(raw, "city"); err != nil {
		return nil, err
	}
	if sr.ReceiptType, err = optionalString(raw, "receiptType"); err != nil {
		return nil, err
	}
	if sr.Total, err = optionalNumber(raw, "total"); err != nil {
		return nil, err
	}

	itemsAny, ok := raw["items"]
	if !ok || itemsAny == nil {
		return sr, nil
	}
	itemsSlice, ok := itemsAny.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field \"items\" has type %T, want array", itemsAny)
	}

	sr.Items = make([]domain.RawItem, 0, len(itemsSlice))
	for i, el := range itemsSlice {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("item %d has type %T, want object", i, el)
		}
		item, err := decodeRawItem(obj)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		sr.Items = append(sr.Items, item)
	}
	return sr, nil
}

func decodeRawItem(obj map[string]interface{}) (domain.RawItem, error) {
	var item domain.RawItem
	var err error

	if item.Name, err = optionalString(obj, "name"); err != nil {
		return item, err
	}
	if item.Category, err = optionalString(obj, "category"); err != nil {
		return item, err
	}
	if item.Subcategory, err = optionalString(obj, "subcategory"); err != nil {
		return item, err
	}
	if item.Price, err = optionalNumber(obj, "price"); err != nil {
		return item, err
	}

	qty, err := optionalInt(obj, "quantity")
	if err != nil {
		return item, err
	}
	item.Quantity = qty

	alias, err := optionalInt(obj, "qty")
	if err != nil {
		return item, err
	}
	item.Qty = alias

	return item, nil
}

func optionalString(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
	return strings.TrimSpace(s), nil
}

func optionalNumber(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f, nil
	case int:
		f := float64(val)
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
}

func optionalInt(m map[string]interface{}, key string) (*int, error) {
	f, err := optionalNumber(m, key)
	if err != nil || f == nil {
		return nil, err
	}
	n := int(*f)
	return &n, nil
}
