package migrate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/haven-app/haven/internal/schema"
)

// RecordKind tags a JSONL line.
type RecordKind string

const (
	KindRecipe RecordKind = "recipe"
	KindMeal   RecordKind = "meal"
	KindWater  RecordKind = "water"
)

// Record is one JSONL line. Exactly one of Recipe, Meal or Water is set,
// matching Kind.
type Record struct {
	Kind   RecordKind     `json:"kind"`
	Recipe *schema.Recipe `json:"recipe,omitempty"`
	Meal   *PlanEntry     `json:"meal,omitempty"`
	Water  *WaterEntry    `json:"water,omitempty"`
}

// WriteJSONL writes recipes, then meals, then water, one record per line.
func WriteJSONL(w io.Writer, b Backup) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for i := range b.Recipes {
		r := b.Recipes[i].Clone()
		r.Provenance = ""
		if err := enc.Encode(Record{Kind: KindRecipe, Recipe: &r}); err != nil {
			return fmt.Errorf("failed to write recipe %s: %w", r.ID, err)
		}
	}
	for i := range b.Plan {
		if err := enc.Encode(Record{Kind: KindMeal, Meal: &b.Plan[i]}); err != nil {
			return fmt.Errorf("failed to write meal: %w", err)
		}
	}
	for i := range b.Water {
		if err := enc.Encode(Record{Kind: KindWater, Water: &b.Water[i]}); err != nil {
			return fmt.Errorf("failed to write water: %w", err)
		}
	}
	return bw.Flush()
}

// ReadJSONL parses a JSONL backup. Blank lines are skipped; anything else
// that isn't a valid record fails with its line number.
func ReadJSONL(r io.Reader) (Backup, error) {
	b := Backup{Recipes: []schema.Recipe{}, Plan: []PlanEntry{}, Water: []WaterEntry{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return Backup{}, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}

		switch {
		case rec.Kind == KindRecipe && rec.Recipe != nil:
			rec.Recipe.SetDefaults()
			rec.Recipe.Provenance = ""
			b.Recipes = append(b.Recipes, *rec.Recipe)
		case rec.Kind == KindMeal && rec.Meal != nil:
			b.Plan = append(b.Plan, *rec.Meal)
		case rec.Kind == KindWater && rec.Water != nil:
			b.Water = append(b.Water, *rec.Water)
		default:
			return Backup{}, fmt.Errorf("invalid record at line %d: kind %q", lineNum, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return Backup{}, fmt.Errorf("failed to read JSONL: %w", err)
	}
	return b, nil
}
