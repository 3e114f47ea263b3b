package recipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"fridgechef/internal/logging"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store defines the interface for recipe data operations.
type Store interface {
	LoadSeed(ctx context.Context, seed *Seed) (bool, error)
	ListIngredientNames(ctx context.Context) (map[string]struct{}, error)
	ListRecipes(ctx context.Context) ([]*Recipe, error)
	IncrementIngredientCounter(ctx context.Context, name string) error
	SetLastRecommended(ctx context.Context, recipeName string, ts int64) error
	ListIngredientCounters(ctx context.Context) (map[string]int64, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store over SQLite or PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		seq INTEGER NOT NULL,
		recipe_name TEXT PRIMARY KEY,
		components TEXT NOT NULL,
		last_recommended BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS components (
		component TEXT PRIMARY KEY,
		total_encountered BIGINT NOT NULL DEFAULT 0
	)`,
}

// NewSQLStore connects to the database and creates the tables if needed.
func NewSQLStore(driver, dataSourceName string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		dir := filepath.Dir(dataSourceName)
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time, otherwise concurrent requests hit SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return &SQLStore{db: db}, nil
}

// LoadSeed fills an empty store from seed. It reports false and leaves the
// store untouched when data is already present.
func (s *SQLStore) LoadSeed(ctx context.Context, seed *Seed) (created bool, retErr error) {
	if err := seed.Validate(); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if retErr != nil || !created {
			_ = tx.Rollback()
		}
	}()

	var rows int64
	if err := tx.GetContext(ctx, &rows, `SELECT (SELECT COUNT(*) FROM recipes) + (SELECT COUNT(*) FROM components)`); err != nil {
		return false, fmt.Errorf("failed to count rows: %w", err)
	}
	if rows > 0 {
		logging.Debug().Int64("rows", rows).Msg("store already seeded")
		return false, nil
	}

	insertRecipe := tx.Rebind(`INSERT INTO recipes (seq, recipe_name, components, last_recommended) VALUES (?, ?, ?, 0)`)
	for i, r := range seed.Recipes {
		componentsJSON, err := json.Marshal(r.Components)
		if err != nil {
			return false, fmt.Errorf("failed to marshal components of %q: %w", r.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insertRecipe, i, r.Name, string(componentsJSON)); err != nil {
			return false, fmt.Errorf("failed to insert recipe %q: %w", r.Name, err)
		}
	}

	insertComponent := tx.Rebind(`INSERT INTO components (component, total_encountered) VALUES (?, 0)`)
	for _, name := range seed.Ingredients() {
		if _, err := tx.ExecContext(ctx, insertComponent, name); err != nil {
			return false, fmt.Errorf("failed to insert component %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	logging.Info().Int("recipes", len(seed.Recipes)).Msg("store seeded")
	return true, nil
}

// ListIngredientNames returns every known ingredient name.
func (s *SQLStore) ListIngredientNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT component FROM components`); err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	logging.Debug().Int("count", len(names)).Msg("listed ingredient names")

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

type recipeRow struct {
	Name            string `db:"recipe_name"`
	Components      string `db:"components"`
	LastRecommended int64  `db:"last_recommended"`
}

// ListRecipes returns all recipes in seed order.
func (s *SQLStore) ListRecipes(ctx context.Context) ([]*Recipe, error) {
	var rows []recipeRow
	err := s.db.SelectContext(ctx, &rows, `SELECT recipe_name, components, last_recommended FROM recipes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	logging.Debug().Int("count", len(rows)).Msg("listed recipes")

	recipes := make([]*Recipe, 0, len(rows))
	for _, row := range rows {
		r := &Recipe{Name: row.Name, LastRecommended: row.LastRecommended}
		if err := json.Unmarshal([]byte(row.Components), &r.Components); err != nil {
			return nil, fmt.Errorf("failed to unmarshal components of %q: %w", row.Name, err)
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// IncrementIngredientCounter adds one to the named ingredient's counter.
func (s *SQLStore) IncrementIngredientCounter(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE components SET total_encountered = total_encountered + 1 WHERE component = ?`),
		name,
	)
	if err != nil {
		return fmt.Errorf("failed to increment component %q: %w", name, err)
	}
	return requireRow(res, &NotFoundError{Kind: "ingredient", Name: name})
}

// SetLastRecommended stamps a recipe with the unix time ts.
func (s *SQLStore) SetLastRecommended(ctx context.Context, recipeName string, ts int64) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE recipes SET last_recommended = ? WHERE recipe_name = ?`),
		ts,
		recipeName,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe %q: %w", recipeName, err)
	}
	return requireRow(res, &NotFoundError{Kind: "recipe", Name: recipeName})
}

// ListIngredientCounters returns every ingredient with its counter.
func (s *SQLStore) ListIngredientCounters(ctx context.Context) (map[string]int64, error) {
	var rows []Ingredient
	if err := s.db.SelectContext(ctx, &rows, `SELECT component, total_encountered FROM components`); err != nil {
		return nil, fmt.Errorf("failed to list component counters: %w", err)
	}

	counters := make(map[string]int64, len(rows))
	for _, row := range rows {
		counters[row.Name] = row.TotalEncountered
	}
	return counters, nil
}

// Reset deletes every recipe and ingredient so the store can be reseeded.
func (s *SQLStore) Reset(ctx context.Context) (retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"recipes", "components"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	logging.Warn().Msg("store reset")
	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func requireRow(res interface{ RowsAffected() (int64, error) }, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
