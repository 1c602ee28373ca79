package domain

import "time"

// FoodItem is a persisted catalog row: one menu entry for one dining hall
// or restaurant. Dining-hall rows carry the extra menu metadata (station,
// meal types, menu date, source record id); restaurant rows leave those
// at their defaults.
type FoodItem struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	DiningHall    string     `json:"diningHall"`
	Station       string     `json:"station"`
	RecNumAndPort string     `json:"recNumAndPort"` // upstream menu record identifier
	ServingSize   string     `json:"servingSize"`
	MealTypes     string     `json:"mealTypes"` // pipe-delimited, e.g. "|Lunch|Dinner|"
	MenuDate      *time.Time `json:"menuDate,omitempty"`

	Calories int `json:"calories"`
	Protein  int `json:"protein"` // grams
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`

	SaturatedFat *int `json:"saturatedFat,omitempty"`
	TransFat     *int `json:"transFat,omitempty"`
	Cholesterol  *int `json:"cholesterol,omitempty"` // mg
	Sodium       *int `json:"sodium,omitempty"`      // mg
	Fiber        *int `json:"fiber,omitempty"`
	Sugars       *int `json:"sugars,omitempty"`

	Ingredients string    `json:"ingredients,omitempty"`
	Allergens   string    `json:"allergens,omitempty"` // JSON array of allergen names
	LastUpdated time.Time `json:"lastUpdated"`
}

// CatalogItem is a FoodItem prepared for matching: the source row plus the
// comparable forms derived from its name and serving size. Derivation is a
// pure function of the row; CatalogItems are built per matching session and
// never persisted.
type CatalogItem struct {
	Item       FoodItem `json:"item"`
	Normalized string   `json:"normalized"` // exact-normalized name
	Loose      string   `json:"loose"`      // loose-normalized name
	TokenKey   string   `json:"tokenKey"`   // sorted token-set signature
	Numbers    []int    `json:"numbers"`    // numeric tokens from name + serving size
}

// ExtractedNutrition is the output of one extraction pass over a raw
// source. Pointer fields distinguish "not present" from zero; a record is
// only usable once all four required macros are populated.
type ExtractedNutrition struct {
	Name        string `json:"name"`
	ServingSize string `json:"servingSize"`

	Calories *int `json:"calories"`
	Protein  *int `json:"protein"`
	Carbs    *int `json:"carbs"`
	Fat      *int `json:"fat"`

	SaturatedFat *int `json:"saturatedFat,omitempty"`
	TransFat     *int `json:"transFat,omitempty"`
	Cholesterol  *int `json:"cholesterol,omitempty"`
	Sodium       *int `json:"sodium,omitempty"`
	Fiber        *int `json:"fiber,omitempty"`
	Sugars       *int `json:"sugars,omitempty"`

	Ingredients string   `json:"ingredients,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	ItemID      string   `json:"itemId,omitempty"` // vendor item id when the source exposes one
}

// Usable reports whether the record carries all four required macros.
// Records missing any of them must be dropped or superseded by another
// extraction strategy, never inserted with fabricated zeros.
func (n *ExtractedNutrition) Usable() bool {
	if n == nil {
		return false
	}
	return n.Calories != nil && n.Protein != nil && n.Carbs != nil && n.Fat != nil
}

// ParsedOrderItem is one line item recovered from an order email or
// receipt. Name has passed the order-item normalizer (parentheticals and
// size words stripped) but not the food-name normalizer.
type ParsedOrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"` // always >= 1
}

// ParsedOrder is the result of parsing one order document. Items are
// already merged by normalized name with quantities summed.
type ParsedOrder struct {
	Restaurant    string            `json:"restaurant,omitempty"`
	OrderID       string            `json:"orderId,omitempty"`
	Items         []ParsedOrderItem `json:"items"`
	ReceiptPDFURL string            `json:"receiptPdfUrl,omitempty"`
}

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	Added int `json:"added"`
}

// BackfillResult reports the outcome of one nutrition backfill pass.
type BackfillResult struct {
	Updated int `json:"updated"`
	Scanned int `json:"scanned"`
}

// SyncResult reports how many parsed order lines resolved to catalog rows.
type SyncResult struct {
	Matched int `json:"matched"`
	Total   int `json:"total"`
}

// TrackedMeal is one logged consumption of a catalog item.
type TrackedMeal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FoodItemID  int64     `json:"foodItemId"`
	MealType    string    `json:"mealType"`
	Quantity    int       `json:"quantity"`
	TrackedDate time.Time `json:"trackedDate"`
}

// UnmatchedOrderItem records an order line that resolved to nothing, so it
// can be surfaced to the user for manual resolution later.
type UnmatchedOrderItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Restaurant string    `json:"restaurant,omitempty"`
	ItemName   string    `json:"itemName"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}
