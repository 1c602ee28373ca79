package domain

import (
	"context"
	"time"
)

// DiningMenuQuery identifies one dining-hall menu entry for dedup lookups.
// MealType matches against the row's pipe-delimited meal-type list;
// MenuDate nil matches rows with no menu date.
type DiningMenuQuery struct {
	RecNumAndPort string
	DiningHall    string
	Station       string
	MealType      string
	MenuDate      *time.Time
}

// FoodItemUpdate carries the mutable fields of a catalog row. Nil pointer
// fields are left untouched; this mirrors partial updates during menu
// refresh where only some columns change.
type FoodItemUpdate struct {
	Name         *string
	ServingSize  *string
	Station      *string
	MealTypes    *string
	MenuDate     *time.Time
	Calories     *int
	Protein      *int
	Carbs        *int
	Fat          *int
	SaturatedFat *int
	TransFat     *int
	Cholesterol  *int
	Sodium       *int
	Fiber        *int
	Sugars       *int
	Ingredients  *string
	Allergens    *string
}

// CatalogRepository is the persistence boundary for food items. The
// matcher only ever reads snapshots through it; ingestion is the sole
// writer.
type CatalogRepository interface {
	ListByHall(ctx context.Context, diningHall string) ([]FoodItem, error)
	ListAll(ctx context.Context) ([]FoodItem, error)
	ListHalls(ctx context.Context) ([]string, error)
	FindByNameAndHall(ctx context.Context, name, diningHall string) (*FoodItem, error)
	FindDiningEntry(ctx context.Context, q DiningMenuQuery) (*FoodItem, error)
	Insert(ctx context.Context, item *FoodItem) error
	Update(ctx context.Context, id int64, fields FoodItemUpdate) error
	// ListMissingNutrition returns rows inserted as zero-filled placeholders
	// (calories = 0) for the given halls, up to limit.
	ListMissingNutrition(ctx context.Context, diningHalls []string, limit int) ([]FoodItem, error)
}

// MealRepository records resolved and unresolved order lines.
type MealRepository interface {
	// AddTrackedMeal logs a consumed catalog item. Logging the same
	// (user, item, meal type, day) again increments quantity rather than
	// inserting a duplicate row.
	AddTrackedMeal(ctx context.Context, userID string, foodItemID int64, mealType string, date time.Time, quantity int) error
	AddUnmatchedItem(ctx context.Context, item UnmatchedOrderItem) error
}
