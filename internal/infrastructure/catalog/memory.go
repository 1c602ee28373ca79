package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platelog/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory catalog, used in tests and as
// the store for ephemeral runs without a database file.
type MemoryStore struct {
	mutex  sync.RWMutex
	items  []domain.FoodItem
	nextID int64
}

var (
	_ domain.CatalogRepository = (*MemoryStore)(nil)
	_ domain.MealRepository    = (*MemoryMealLog)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) ListByHall(ctx context.Context, diningHall string) ([]domain.FoodItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []domain.FoodItem
	for _, item := range s.items {
		if strings.EqualFold(item.DiningHall, diningHall) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]domain.FoodItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.FoodItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryStore) ListHalls(ctx context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	seen := make(map[string]bool)
	var halls []string
	for _, item := range s.items {
		key := strings.ToLower(item.DiningHall)
		if item.DiningHall != "" && !seen[key] {
			seen[key] = true
			halls = append(halls, item.DiningHall)
		}
	}
	return halls, nil
}

func (s *MemoryStore) FindByNameAndHall(ctx context.Context, name, diningHall string) (*domain.FoodItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for i := range s.items {
		if strings.EqualFold(s.items[i].Name, name) && strings.EqualFold(s.items[i].DiningHall, diningHall) {
			item := s.items[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindDiningEntry(ctx context.Context, q domain.DiningMenuQuery) (*domain.FoodItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for i := range s.items {
		item := &s.items[i]
		if item.RecNumAndPort != q.RecNumAndPort {
			continue
		}
		if !strings.EqualFold(item.DiningHall, q.DiningHall) {
			continue
		}
		if q.Station != "" && !strings.EqualFold(item.Station, q.Station) {
			continue
		}
		if q.MealType != "" && !strings.Contains(strings.ToLower(item.MealTypes), strings.ToLower("|"+q.MealType+"|")) {
			continue
		}
		if !sameMenuDate(item.MenuDate, q.MenuDate) {
			continue
		}
		found := *item
		return &found, nil
	}
	return nil, nil
}

func (s *MemoryStore) Insert(ctx context.Context, item *domain.FoodItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item.ID = s.nextID
	s.nextID++
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}
	s.items = append(s.items, *item)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, fields domain.FoodItemUpdate) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		applyUpdate(&s.items[i], fields)
		s.items[i].LastUpdated = time.Now().UTC()
		return nil
	}
	return domain.ErrItemNotFound
}

func (s *MemoryStore) ListMissingNutrition(ctx context.Context, diningHalls []string, limit int) ([]domain.FoodItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []domain.FoodItem
	for _, item := range s.items {
		if item.Calories != 0 {
			continue
		}
		if len(diningHalls) > 0 && !hallListed(diningHalls, item.DiningHall) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func applyUpdate(item *domain.FoodItem, fields domain.FoodItemUpdate) {
	if fields.Name != nil {
		item.Name = *fields.Name
	}
	if fields.ServingSize != nil {
		item.ServingSize = *fields.ServingSize
	}
	if fields.Station != nil {
		item.Station = *fields.Station
	}
	if fields.MealTypes != nil {
		item.MealTypes = *fields.MealTypes
	}
	if fields.MenuDate != nil {
		item.MenuDate = fields.MenuDate
	}
	if fields.Calories != nil {
		item.Calories = *fields.Calories
	}
	if fields.Protein != nil {
		item.Protein = *fields.Protein
	}
	if fields.Carbs != nil {
		item.Carbs = *fields.Carbs
	}
	if fields.Fat != nil {
		item.Fat = *fields.Fat
	}
	if fields.SaturatedFat != nil {
		item.SaturatedFat = fields.SaturatedFat
	}
	if fields.TransFat != nil {
		item.TransFat = fields.TransFat
	}
	if fields.Cholesterol != nil {
		item.Cholesterol = fields.Cholesterol
	}
	if fields.Sodium != nil {
		item.Sodium = fields.Sodium
	}
	if fields.Fiber != nil {
		item.Fiber = fields.Fiber
	}
	if fields.Sugars != nil {
		item.Sugars = fields.Sugars
	}
	if fields.Ingredients != nil {
		item.Ingredients = *fields.Ingredients
	}
	if fields.Allergens != nil {
		item.Allergens = *fields.Allergens
	}
}

func sameMenuDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func hallListed(halls []string, hall string) bool {
	for _, h := range halls {
		if strings.EqualFold(h, hall) {
			return true
		}
	}
	return false
}

// MemoryMealLog is the in-memory counterpart for tracked meals and
// unmatched order lines.
type MemoryMealLog struct {
	mutex     sync.Mutex
	meals     []domain.TrackedMeal
	unmatched []domain.UnmatchedOrderItem
}

func NewMemoryMealLog() *MemoryMealLog {
	return &MemoryMealLog{}
}

func (m *MemoryMealLog) AddTrackedMeal(ctx context.Context, userID string, foodItemID int64, mealType string, date time.Time, quantity int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := range m.meals {
		meal := &m.meals[i]
		if meal.UserID == userID && meal.FoodItemID == foodItemID &&
			strings.EqualFold(meal.MealType, mealType) && sameDay(meal.TrackedDate, date) {
			meal.Quantity += quantity
			return nil
		}
	}
	m.meals = append(m.meals, domain.TrackedMeal{
		ID:          uuid.New().String(),
		UserID:      userID,
		FoodItemID:  foodItemID,
		MealType:    mealType,
		Quantity:    quantity,
		TrackedDate: date,
	})
	return nil
}

func (m *MemoryMealLog) AddUnmatchedItem(ctx context.Context, item domain.UnmatchedOrderItem) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	m.unmatched = append(m.unmatched, item)
	return nil
}

// Meals returns a copy of the tracked meals, for tests and diagnostics.
func (m *MemoryMealLog) Meals() []domain.TrackedMeal {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]domain.TrackedMeal, len(m.meals))
	copy(out, m.meals)
	return out
}

// Unmatched returns a copy of the unmatched order lines.
func (m *MemoryMealLog) Unmatched() []domain.UnmatchedOrderItem {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]domain.UnmatchedOrderItem, len(m.unmatched))
	copy(out, m.unmatched)
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
