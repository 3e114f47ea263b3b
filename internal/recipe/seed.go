package recipe

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

//go:embed seed/default.json
var defaultSeed []byte

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func seedValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Seed is the document the store is populated from on first start.
type Seed struct {
	Recipes []Recipe `json:"recipes" validate:"required,min=1,unique=Name,dive"`
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &LoadError{Reason: "decode seed", Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadSeedFile parses the seed document at path.
func ReadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Reason: "read " + path, Err: err}
	}
	return ParseSeed(data)
}

// DefaultSeed returns the seed document compiled into the binary.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}

// Validate checks the seed has the expected shape.
func (s *Seed) Validate() error {
	err := seedValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &LoadError{Reason: "invalid seed", Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return &LoadError{Reason: "invalid seed: " + strings.Join(fields, ", ")}
}

// Ingredients returns the distinct ingredient names of all recipes in the
// order they first appear.
func (s *Seed) Ingredients() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range s.Recipes {
		for _, c := range r.Components {
			if _, ok := seen[c.Item]; ok {
				continue
			}
			seen[c.Item] = struct{}{}
			names = append(names, c.Item)
		}
	}
	return names
}
