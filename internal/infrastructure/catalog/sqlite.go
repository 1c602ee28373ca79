package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/platelog/backend/internal/domain"
)

const dateFormat = "2006-01-02"
const timestampFormat = "2006-01-02T15:04:05.000Z"

const schema = `
CREATE TABLE IF NOT EXISTS food_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	dining_hall TEXT NOT NULL DEFAULT '',
	station TEXT NOT NULL DEFAULT '',
	rec_num_and_port TEXT NOT NULL DEFAULT '',
	serving_size TEXT NOT NULL DEFAULT '',
	meal_types TEXT NOT NULL DEFAULT '',
	menu_date TEXT,
	calories INTEGER NOT NULL DEFAULT 0,
	protein INTEGER NOT NULL DEFAULT 0,
	carbs INTEGER NOT NULL DEFAULT 0,
	fat INTEGER NOT NULL DEFAULT 0,
	saturated_fat INTEGER,
	trans_fat INTEGER,
	cholesterol INTEGER,
	sodium INTEGER,
	fiber INTEGER,
	sugars INTEGER,
	ingredients TEXT NOT NULL DEFAULT '',
	allergens TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_food_items_hall ON food_items(dining_hall);
CREATE INDEX IF NOT EXISTS idx_food_items_rec ON food_items(rec_num_and_port, dining_hall);

CREATE TABLE IF NOT EXISTS tracked_meals (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	food_item_id INTEGER NOT NULL REFERENCES food_items(id),
	meal_type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	tracked_date TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tracked_meals_slot
	ON tracked_meals(user_id, food_item_id, meal_type, tracked_date);

CREATE TABLE IF NOT EXISTS unmatched_order_items (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	restaurant TEXT NOT NULL DEFAULT '',
	item_name TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

const foodItemColumns = `id, name, dining_hall, station, rec_num_and_port, serving_size,
	meal_types, menu_date, calories, protein, carbs, fat,
	saturated_fat, trans_fat, cholesterol, sodium, fiber, sugars,
	ingredients, allergens, last_updated`

// SQLiteStore persists the catalog and the meal log in one SQLite file.
// It implements both domain.CatalogRepository and domain.MealRepository.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ domain.CatalogRepository = (*SQLiteStore)(nil)
	_ domain.MealRepository    = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}
	// database/sql pooling breaks :memory: databases; a single
	// connection also sidesteps SQLite writer contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListByHall(ctx context.Context, diningHall string) ([]domain.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items WHERE dining_hall = ? COLLATE NOCASE ORDER BY id`
	return s.queryItems(ctx, query, diningHall)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.FoodItem, error) {
	return s.queryItems(ctx, `SELECT `+foodItemColumns+` FROM food_items ORDER BY id`)
}

func (s *SQLiteStore) ListHalls(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT dining_hall FROM food_items WHERE dining_hall != '' ORDER BY dining_hall`)
	if err != nil {
		return nil, fmt.Errorf("listing halls: %w", err)
	}
	defer rows.Close()

	var halls []string
	for rows.Next() {
		var hall string
		if err := rows.Scan(&hall); err != nil {
			return nil, err
		}
		halls = append(halls, hall)
	}
	return halls, rows.Err()
}

func (s *SQLiteStore) FindByNameAndHall(ctx context.Context, name, diningHall string) (*domain.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items
		WHERE name = ? COLLATE NOCASE AND dining_hall = ? COLLATE NOCASE LIMIT 1`
	items, err := s.queryItems(ctx, query, name, diningHall)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *SQLiteStore) FindDiningEntry(ctx context.Context, q domain.DiningMenuQuery) (*domain.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items
		WHERE rec_num_and_port = ? AND dining_hall = ? COLLATE NOCASE`
	args := []interface{}{q.RecNumAndPort, q.DiningHall}

	if q.Station != "" {
		query += ` AND station = ? COLLATE NOCASE`
		args = append(args, q.Station)
	}
	if q.MealType != "" {
		query += ` AND meal_types LIKE ?`
		args = append(args, "%|"+q.MealType+"|%")
	}
	if q.MenuDate != nil {
		query += ` AND menu_date = ?`
		args = append(args, q.MenuDate.Format(dateFormat))
	} else {
		query += ` AND menu_date IS NULL`
	}
	query += ` LIMIT 1`

	items, err := s.queryItems(ctx, query, args...)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *SQLiteStore) Insert(ctx context.Context, item *domain.FoodItem) error {
	if item.LastUpdated.IsZero() {
		item.LastUpdated = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO food_items
		(name, dining_hall, station, rec_num_and_port, serving_size, meal_types, menu_date,
		 calories, protein, carbs, fat,
		 saturated_fat, trans_fat, cholesterol, sodium, fiber, sugars,
		 ingredients, allergens, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.DiningHall, item.Station, item.RecNumAndPort, item.ServingSize,
		item.MealTypes, dateOrNil(item.MenuDate),
		item.Calories, item.Protein, item.Carbs, item.Fat,
		intOrNil(item.SaturatedFat), intOrNil(item.TransFat), intOrNil(item.Cholesterol),
		intOrNil(item.Sodium), intOrNil(item.Fiber), intOrNil(item.Sugars),
		item.Ingredients, item.Allergens, item.LastUpdated.Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("inserting %q: %w", item.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = id
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, fields domain.FoodItemUpdate) error {
	set := []string{"last_updated = ?"}
	args := []interface{}{time.Now().UTC().Format(timestampFormat)}

	add := func(column string, value interface{}) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}
	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.ServingSize != nil {
		add("serving_size", *fields.ServingSize)
	}
	if fields.Station != nil {
		add("station", *fields.Station)
	}
	if fields.MealTypes != nil {
		add("meal_types", *fields.MealTypes)
	}
	if fields.MenuDate != nil {
		add("menu_date", fields.MenuDate.Format(dateFormat))
	}
	if fields.Calories != nil {
		add("calories", *fields.Calories)
	}
	if fields.Protein != nil {
		add("protein", *fields.Protein)
	}
	if fields.Carbs != nil {
		add("carbs", *fields.Carbs)
	}
	if fields.Fat != nil {
		add("fat", *fields.Fat)
	}
	if fields.SaturatedFat != nil {
		add("saturated_fat", *fields.SaturatedFat)
	}
	if fields.TransFat != nil {
		add("trans_fat", *fields.TransFat)
	}
	if fields.Cholesterol != nil {
		add("cholesterol", *fields.Cholesterol)
	}
	if fields.Sodium != nil {
		add("sodium", *fields.Sodium)
	}
	if fields.Fiber != nil {
		add("fiber", *fields.Fiber)
	}
	if fields.Sugars != nil {
		add("sugars", *fields.Sugars)
	}
	if fields.Ingredients != nil {
		add("ingredients", *fields.Ingredients)
	}
	if fields.Allergens != nil {
		add("allergens", *fields.Allergens)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE food_items SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *SQLiteStore) ListMissingNutrition(ctx context.Context, diningHalls []string, limit int) ([]domain.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items WHERE calories = 0`
	var args []interface{}
	if len(diningHalls) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(diningHalls)), ",")
		query += ` AND dining_hall COLLATE NOCASE IN (` + placeholders + `)`
		for _, hall := range diningHalls {
			args = append(args, hall)
		}
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryItems(ctx, query, args...)
}

func (s *SQLiteStore) AddTrackedMeal(ctx context.Context, userID string, foodItemID int64, mealType string, date time.Time, quantity int) error {
	day := date.Format(dateFormat)
	res, err := s.db.ExecContext(ctx, `UPDATE tracked_meals SET quantity = quantity + ?
		WHERE user_id = ? AND food_item_id = ? AND meal_type = ? COLLATE NOCASE AND tracked_date = ?`,
		quantity, userID, foodItemID, mealType, day)
	if err != nil {
		return fmt.Errorf("incrementing tracked meal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tracked_meals
		(id, user_id, food_item_id, meal_type, quantity, tracked_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, foodItemID, mealType, quantity, day)
	if err != nil {
		return fmt.Errorf("inserting tracked meal: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddUnmatchedItem(ctx context.Context, item domain.UnmatchedOrderItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO unmatched_order_items
		(id, user_id, restaurant, item_name, quantity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Restaurant, item.ItemName, item.Quantity,
		item.CreatedAt.Format(timestampFormat))
	if err != nil {
		return fmt.Errorf("inserting unmatched item %q: %w", item.ItemName, err)
	}
	return nil
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...interface{}) ([]domain.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying food items: %w", err)
	}
	defer rows.Close()

	var items []domain.FoodItem
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanFoodItem(rows *sql.Rows) (domain.FoodItem, error) {
	var item domain.FoodItem
	var menuDate, lastUpdated sql.NullString
	var satFat, transFat, chol, sodium, fiber, sugars sql.NullInt64

	err := rows.Scan(&item.ID, &item.Name, &item.DiningHall, &item.Station,
		&item.RecNumAndPort, &item.ServingSize, &item.MealTypes, &menuDate,
		&item.Calories, &item.Protein, &item.Carbs, &item.Fat,
		&satFat, &transFat, &chol, &sodium, &fiber, &sugars,
		&item.Ingredients, &item.Allergens, &lastUpdated)
	if err != nil {
		return item, fmt.Errorf("scanning food item: %w", err)
	}

	if menuDate.Valid {
		if d, err := time.Parse(dateFormat, menuDate.String); err == nil {
			item.MenuDate = &d
		}
	}
	if lastUpdated.Valid {
		if ts, err := time.Parse(timestampFormat, lastUpdated.String); err == nil {
			item.LastUpdated = ts
		}
	}
	item.SaturatedFat = nullableInt(satFat)
	item.TransFat = nullableInt(transFat)
	item.Cholesterol = nullableInt(chol)
	item.Sodium = nullableInt(sodium)
	item.Fiber = nullableInt(fiber)
	item.Sugars = nullableInt(sugars)
	return item, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func intOrNil(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func dateOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateFormat)
}
