package domain

// MerchantMapping is a learned alias for a merchant. A user accumulates many
// of these; the matcher compares a transaction's normalized merchant key
// against NormalizedMerchant and reports a confidence in [0,1].
type MerchantMapping struct {
	ID                 string `json:"id"`
	NormalizedMerchant string `json:"normalizedMerchant"`
	TargetMerchant     string `json:"targetMerchant"`
	StoreCategory      string `json:"storeCategory,omitempty"`
	UsageCount         int    `json:"usageCount"`
}

// CategoryMapping maps a normalized item name to a category.
type CategoryMapping struct {
	ID                 string `json:"id"`
	NormalizedItemName string `json:"normalizedItemName"`
	TargetCategory     string `json:"targetCategory"`
	UsageCount         int    `json:"usageCount"`
}

// ItemNameMapping maps a normalized item name to a display name.
type ItemNameMapping struct {
	ID                 string `json:"id"`
	NormalizedItemName string `json:"normalizedItemName"`
	TargetName         string `json:"targetName"`
	UsageCount         int    `json:"usageCount"`
}

// SubcategoryMapping maps a normalized item name to a subcategory.
type SubcategoryMapping struct {
	ID                 string `json:"id"`
	NormalizedItemName string `json:"normalizedItemName"`
	TargetSubcategory  string `json:"targetSubcategory"`
	UsageCount         int    `json:"usageCount"`
}
