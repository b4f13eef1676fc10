// Package schema provides the data structures persisted by haven: recipes,
// the date-keyed meal plan and water intake, plus the recipe file format
// used by the inbox and backups.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Difficulty grades how much effort a recipe takes.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Kind distinguishes home-cooked recipes from eating out.
type Kind string

const (
	KindRegular Kind = "Regular"
	KindEatOut  Kind = "EatOut"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindRegular || k == KindEatOut
}

// Provenance records where a record's last known state came from.
type Provenance string

const (
	// ProvenanceLocal marks a record authored locally and not yet confirmed
	// by the remote store.
	ProvenanceLocal Provenance = "local"
	// ProvenanceCloud marks a record whose state was confirmed by the last
	// reconciliation pass.
	ProvenanceCloud Provenance = "cloud"
)

// DefaultStore is the store name used for ingredients that don't name one.
const DefaultStore = "General"

// Ingredient is one line of a recipe's shopping requirements.
type Ingredient struct {
	Item      string  `json:"item" yaml:"item"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	Unit      string  `json:"unit" yaml:"unit"`
	StoreName string  `json:"storeName,omitempty" yaml:"store,omitempty"`
}

// Store returns the ingredient's store, falling back to DefaultStore.
func (i Ingredient) Store() string {
	if strings.TrimSpace(i.StoreName) == "" {
		return DefaultStore
	}
	return i.StoreName
}

// PrepTask is free-text advance preparation, e.g. "Soak chickpeas" / "8 hrs".
type PrepTask struct {
	Task     string `json:"task" yaml:"task"`
	Duration string `json:"duration" yaml:"duration"`
}

// Macros summarises a recipe's nutrition per serving.
type Macros struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
	Fiber    float64 `json:"fiber" yaml:"fiber"`
}

// Add returns the field-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
	}
}

func (m Macros) validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"calories", m.Calories}, {"protein", m.Protein}, {"carbs", m.Carbs},
		{"fat", m.Fat}, {"fiber", m.Fiber},
	}
	for _, f := range fields {
		if f.v < 0 {
			return fmt.Errorf("macros.%s must be non-negative (got %g)", f.name, f.v)
		}
	}
	return nil
}

// Recipe is the unit of the recipe catalog. Saving a recipe always replaces
// the whole record; there are no partial updates.
type Recipe struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Difficulty  Difficulty   `json:"difficulty" yaml:"difficulty"`
	Kind        Kind         `json:"type" yaml:"type"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	PrepTasks   []PrepTask   `json:"prepTasks" yaml:"prep_tasks"`
	Macros      Macros       `json:"macros" yaml:"macros"`
	Provenance  Provenance   `json:"provenance,omitempty" yaml:"-"`
}

// Validate checks if the Recipe has valid field values.
func (r *Recipe) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !r.Difficulty.Valid() {
		return fmt.Errorf("difficulty must be Easy, Medium or Hard (got %q)", r.Difficulty)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("type must be Regular or EatOut (got %q)", r.Kind)
	}
	for i, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Item) == "" {
			return fmt.Errorf("ingredient %d: item is required", i+1)
		}
		if ing.Quantity < 0 {
			return fmt.Errorf("ingredient %q: quantity must be non-negative (got %g)", ing.Item, ing.Quantity)
		}
	}
	return r.Macros.validate()
}

// SetDefaults applies default values for optional fields.
func (r *Recipe) SetDefaults() {
	if r.Difficulty == "" {
		r.Difficulty = DifficultyEasy
	}
	if r.Kind == "" {
		r.Kind = KindRegular
	}
	if r.Ingredients == nil {
		r.Ingredients = []Ingredient{}
	}
	if r.PrepTasks == nil {
		r.PrepTasks = []PrepTask{}
	}
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	out.PrepTasks = append([]PrepTask(nil), r.PrepTasks...)
	if out.Ingredients == nil {
		out.Ingredients = []Ingredient{}
	}
	if out.PrepTasks == nil {
		out.PrepTasks = []PrepTask{}
	}
	return out
}

// Filename returns the canonical filename for this recipe: {id}.json
func (r *Recipe) Filename() string {
	return fmt.Sprintf("%s.json", r.ID)
}

// RecipesByID indexes a recipe collection by id. Later duplicates win.
func RecipesByID(recipes []Recipe) map[string]Recipe {
	byID := make(map[string]Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	return byID
}

// ReadRecipeFile reads and parses a recipe JSON file from the given path.
// Defaults are applied; the id may be empty for recipes that have not been
// saved yet.
func ReadRecipeFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file %s: %w", path, err)
	}

	var rec Recipe
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file %s: %w", path, err)
	}
	rec.SetDefaults()
	rec.Provenance = ""

	return &rec, nil
}

// WriteRecipeFile writes a Recipe to dir/{id}.json with pretty-printed formatting.
func WriteRecipeFile(dir string, rec *Recipe) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid recipe: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create recipe directory: %w", err)
	}

	out := rec.Clone()
	out.Provenance = ""
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipe %s: %w", rec.ID, err)
	}

	path := filepath.Join(dir, rec.Filename())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write recipe file %s: %w", path, err)
	}

	return nil
}

// ReadAllRecipeFiles reads all recipe files from the given directory.
// Invalid files are skipped with a warning to stderr.
func ReadAllRecipeFiles(dir string) ([]*Recipe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Recipe{}, nil
		}
		return nil, fmt.Errorf("failed to read recipe directory: %w", err)
	}

	var recipes []*Recipe
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		rec, err := ReadRecipeFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid recipe file %s: %v\n", entry.Name(), err)
			continue
		}
		recipes = append(recipes, rec)
	}

	return recipes, nil
}
