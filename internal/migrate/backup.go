// Package migrate exports haven data to portable backup files and imports
// them back through the core, so restored data is persisted and mirrored
// like any local edit.
package migrate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/schema"
)

// Format is a backup file encoding.
type Format string

const (
	// FormatJSONL writes one tagged record per line.
	FormatJSONL Format = "jsonl"
	// FormatYAML writes a single document.
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "jsonl" or "yaml"/"yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown backup format %q (want jsonl or yaml)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// PlanEntry is one planned meal.
type PlanEntry struct {
	Date     string         `json:"date" yaml:"date"`
	Slot     schema.Slot    `json:"slot" yaml:"slot"`
	RecipeID string         `json:"recipeId" yaml:"recipe_id"`
	Profile  schema.Profile `json:"profile" yaml:"profile"`
}

// WaterEntry is one water counter.
type WaterEntry struct {
	Date    string         `json:"date" yaml:"date"`
	Profile schema.Profile `json:"profile" yaml:"profile"`
	Amount  int            `json:"amount" yaml:"amount"`
}

// Backup is the portable form of all three collections.
type Backup struct {
	Recipes []schema.Recipe `yaml:"recipes"`
	Plan    []PlanEntry     `yaml:"plan"`
	Water   []WaterEntry    `yaml:"water"`
}

// FromSnapshot flattens a snapshot in a stable order: recipes as stored,
// plan by date and slot order, water by date and profile.
func FromSnapshot(s schema.Snapshot) Backup {
	b := Backup{
		Recipes: make([]schema.Recipe, 0, len(s.Recipes)),
		Plan:    []PlanEntry{},
		Water:   []WaterEntry{},
	}
	for _, r := range s.Recipes {
		r = r.Clone()
		r.Provenance = ""
		b.Recipes = append(b.Recipes, r)
	}

	for _, row := range mealplan.Rows(s.Plan) {
		for _, m := range row.Meals {
			b.Plan = append(b.Plan, PlanEntry{
				Date:     row.Key.Date,
				Slot:     row.Key.Slot,
				RecipeID: m.RecipeID,
				Profile:  m.Profile,
			})
		}
	}

	dates := make([]string, 0, len(s.Water))
	for date := range s.Water {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		for _, p := range schema.Profiles {
			if amount, ok := s.Water[date][p]; ok {
				b.Water = append(b.Water, WaterEntry{Date: date, Profile: p, Amount: amount})
			}
		}
	}
	return b
}

// Encode writes b in format f.
func Encode(w io.Writer, b Backup, f Format) error {
	switch f {
	case FormatJSONL:
		return WriteJSONL(w, b)
	case FormatYAML:
		return WriteYAML(w, b)
	}
	return fmt.Errorf("unknown backup format %q", f)
}

// Decode reads a backup in format f.
func Decode(r io.Reader, f Format) (Backup, error) {
	switch f {
	case FormatJSONL:
		return ReadJSONL(r)
	case FormatYAML:
		return ReadYAML(r)
	}
	return Backup{}, fmt.Errorf("unknown backup format %q", f)
}

// ExportFile writes s to path, inferring the format from the extension.
// The file is written to a temp file first and renamed into place.
func ExportFile(path string, s schema.Snapshot) (Backup, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Backup{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Backup{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	b := FromSnapshot(s)
	tmpPath := path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return Backup{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := Encode(out, b, f); err != nil {
		out.Close()
		_ = os.Remove(tmpPath)
		return Backup{}, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return Backup{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return Backup{}, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return b, nil
}

// ReadFile reads a backup file, inferring the format from the extension.
func ReadFile(path string) (Backup, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Backup{}, err
	}
	// #nosec G304 - controlled path from CLI
	in, err := os.Open(path)
	if err != nil {
		return Backup{}, fmt.Errorf("failed to open backup: %w", err)
	}
	defer in.Close()
	return Decode(in, f)
}

// Target is what Apply writes through.
type Target interface {
	SaveRecipe(ctx context.Context, r schema.Recipe) (schema.Recipe, error)
	AssignMeal(ctx context.Context, date string, slot schema.Slot, recipeID string, profile schema.Profile) (bool, error)
	AdjustWater(ctx context.Context, date string, profile schema.Profile, delta int) (int, error)
	Water(date string) map[schema.Profile]int
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	DryRun bool // count what would be written
}

// Result contains statistics about an import.
type Result struct {
	Recipes int
	Meals   int
	Water   int
	Errors  []string
}

// Apply merges b into t: recipes are saved (replacing same ids), meals are
// assigned (already planned ones are no-ops) and water counters are set to
// the backed-up amounts. Entry failures are collected in Result.Errors;
// only a cancelled context stops the import early.
func Apply(ctx context.Context, t Target, b Backup, opts ApplyOptions) (*Result, error) {
	result := &Result{}

	for _, r := range b.Recipes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.DryRun {
			rc := r.Clone()
			rc.SetDefaults()
			if err := rc.Validate(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("recipe %q: %v", r.ID, err))
				continue
			}
			result.Recipes++
			continue
		}
		if _, err := t.SaveRecipe(ctx, r); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("recipe %q: %v", r.ID, err))
			continue
		}
		result.Recipes++
	}

	for _, e := range b.Plan {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.DryRun {
			result.Meals++
			continue
		}
		changed, err := t.AssignMeal(ctx, e.Date, e.Slot, e.RecipeID, e.Profile)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("meal %s %s %s: %v", e.Date, e.Slot, e.RecipeID, err))
			continue
		}
		if changed {
			result.Meals++
		}
	}

	for _, e := range b.Water {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.Amount < 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("water %s %s: negative amount %d", e.Date, e.Profile, e.Amount))
			continue
		}
		if opts.DryRun {
			result.Water++
			continue
		}
		delta := e.Amount - t.Water(e.Date)[e.Profile]
		if delta == 0 {
			continue
		}
		if _, err := t.AdjustWater(ctx, e.Date, e.Profile, delta); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("water %s %s: %v", e.Date, e.Profile, err))
			continue
		}
		result.Water++
	}

	return result, nil
}
