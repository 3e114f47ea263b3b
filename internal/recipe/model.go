package recipe

import (
	"strings"

	"github.com/goccy/go-json"
)

// Component is a single ingredient requirement of a recipe.
type Component struct {
	Item string  `json:"item" validate:"required"`
	Q    float64 `json:"q" validate:"gt=0"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Component.
func (c *Component) UnmarshalJSON(data []byte) error {
	type Alias Component // Create an alias to avoid infinite recursion
	aux := (*Alias)(c)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	c.Item = strings.TrimSpace(c.Item)

	return nil
}

// Recipe represents a recipe and the components it needs for one batch.
type Recipe struct {
	Name            string      `json:"name" db:"recipe_name" validate:"required"`
	Components      []Component `json:"components" validate:"required,min=1,dive"`
	LastRecommended int64       `json:"last_recommended" db:"last_recommended"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Recipe.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type Alias Recipe
	aux := (*Alias)(r)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	r.Name = strings.TrimSpace(r.Name)

	return nil
}

// Items returns the set of ingredient names the recipe requires.
func (r *Recipe) Items() map[string]struct{} {
	items := make(map[string]struct{}, len(r.Components))
	for _, c := range r.Components {
		items[c.Item] = struct{}{}
	}
	return items
}

// Ingredient is a known ingredient and the number of fridges it appeared in.
type Ingredient struct {
	Name             string `json:"name" db:"component"`
	TotalEncountered int64  `json:"total_encountered" db:"total_encountered"`
}
