// Package recommend matches fridge contents against the recipe catalogue and
// keeps the popularity and recency bookkeeping.
package recommend

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"fridgechef/internal/logging"
	"fridgechef/internal/metrics"
	"fridgechef/internal/recipe"
)

// Defaults for the auxiliary queries.
const (
	DefaultWindow       = time.Hour
	DefaultPopularCount = 10
)

// Store is the subset of recipe.Store the engine needs.
type Store interface {
	ListIngredientNames(ctx context.Context) (map[string]struct{}, error)
	ListRecipes(ctx context.Context) ([]*recipe.Recipe, error)
	IncrementIngredientCounter(ctx context.Context, name string) error
	SetLastRecommended(ctx context.Context, recipeName string, ts int64) error
	ListIngredientCounters(ctx context.Context) (map[string]int64, error)
}

// Fridge maps ingredient names to the quantity available.
type Fridge map[string]int64

// Recommendation is a coverable recipe and how many batches can be made.
type Recommendation struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// LastRecommended lists recipes recommended inside a time window.
type LastRecommended struct {
	Recipes []string `json:"last_recommended_recipes"`
}

// Popular lists the most frequently submitted ingredients, each as a
// single-entry map of name to count.
type Popular struct {
	Components []map[string]int64 `json:"most_popular_components"`
}

// Engine answers recommendation queries against a Store.
type Engine struct {
	store Store
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateFridgePayload parses raw as a JSON object of known ingredient
// names to positive integer quantities.
func (e *Engine) ValidateFridgePayload(ctx context.Context, raw []byte) (Fridge, error) {
	if !json.Valid(raw) {
		metrics.FridgeSubmissions.WithLabelValues(metrics.OutcomeDecodeFailure).Inc()
		return nil, recipe.NewDecodeError()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		metrics.FridgeSubmissions.WithLabelValues(metrics.OutcomeDecodeFailure).Inc()
		return nil, recipe.NewDecodeError()
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalidData("payload is not an object")
	}

	known, err := e.store.ListIngredientNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredient names: %w", err)
	}

	fridge := make(Fridge, len(obj))
	for name, value := range obj {
		if _, ok := known[name]; !ok {
			return nil, invalidData("unknown ingredient " + strconv.Quote(name))
		}
		num, ok := value.(json.Number)
		if !ok {
			return nil, invalidData("quantity of " + strconv.Quote(name) + " is not a number")
		}
		q, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil || q < 1 {
			return nil, invalidData("quantity of " + strconv.Quote(name) + " is not a positive integer")
		}
		fridge[name] = q
	}

	metrics.FridgeSubmissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	return fridge, nil
}

func invalidData(reason string) error {
	metrics.FridgeSubmissions.WithLabelValues(metrics.OutcomeInvalidData).Inc()
	logging.Debug().Str("reason", reason).Msg("rejected fridge payload")
	return recipe.NewInvalidDataError()
}

// Recommend counts every fridge ingredient once, then returns each recipe
// whose ingredients are all in the fridge with the number of batches the
// fridge covers, and stamps those recipes as recommended now.
func (e *Engine) Recommend(ctx context.Context, fridge Fridge) ([]Recommendation, error) {
	names := make([]string, 0, len(fridge))
	for name := range fridge {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.store.IncrementIngredientCounter(ctx, name); err != nil {
			return nil, fmt.Errorf("count ingredient: %w", err)
		}
		metrics.IngredientEncounters.WithLabelValues(name).Inc()
	}

	recipes, err := e.store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	ts := e.now().Unix()
	result := make([]Recommendation, 0)
	for _, r := range recipes {
		quantity, ok := BatchQuantity(r, fridge)
		if !ok {
			continue
		}
		if err := e.store.SetLastRecommended(ctx, r.Name, ts); err != nil {
			return nil, fmt.Errorf("stamp recipe: %w", err)
		}
		result = append(result, Recommendation{Name: r.Name, Quantity: quantity})
	}

	metrics.RecipesRecommended.Add(float64(len(result)))
	logging.Debug().
		Strs("ingredients", names).
		Int("recipes", len(result)).
		Msg("recommended recipes")
	return result, nil
}

// BatchQuantity returns how many batches of r the fridge covers, or false if
// some component is missing from the fridge.
func BatchQuantity(r *recipe.Recipe, fridge Fridge) (float64, bool) {
	if len(r.Components) == 0 {
		return 0, false
	}

	minimum := math.Inf(1)
	for _, c := range r.Components {
		available, ok := fridge[c.Item]
		if !ok {
			return 0, false
		}
		minimum = math.Min(minimum, float64(available)/c.Q)
	}
	return minimum, true
}

// LastRecommended returns the names of recipes stamped within window of now,
// in ascending order. A non-positive window means DefaultWindow.
func (e *Engine) LastRecommended(ctx context.Context, window time.Duration) (*LastRecommended, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := e.now().Add(-window).Unix()

	recipes, err := e.store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	names := make([]string, 0)
	for _, r := range recipes {
		if r.LastRecommended > cutoff {
			names = append(names, r.Name)
		}
	}
	sort.Strings(names)

	return &LastRecommended{Recipes: names}, nil
}

// MostPopular returns the count ingredients with the highest counters, ties
// broken by descending name. A non-positive count means DefaultPopularCount.
func (e *Engine) MostPopular(ctx context.Context, count int) (*Popular, error) {
	if count <= 0 {
		count = DefaultPopularCount
	}

	counters, err := e.store.ListIngredientCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}

	ingredients := make([]recipe.Ingredient, 0, len(counters))
	for name, total := range counters {
		ingredients = append(ingredients, recipe.Ingredient{Name: name, TotalEncountered: total})
	}
	sort.Slice(ingredients, func(i, j int) bool {
		if ingredients[i].TotalEncountered != ingredients[j].TotalEncountered {
			return ingredients[i].TotalEncountered > ingredients[j].TotalEncountered
		}
		return ingredients[i].Name > ingredients[j].Name
	})
	if len(ingredients) > count {
		ingredients = ingredients[:count]
	}

	components := make([]map[string]int64, 0, len(ingredients))
	for _, in := range ingredients {
		components = append(components, map[string]int64{in.Name: in.TotalEncountered})
	}
	return &Popular{Components: components}, nil
}
