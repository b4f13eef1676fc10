package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
)

// WaterKey identifies one water intake counter.
type WaterKey struct {
	Date    string
	Profile schema.Profile
}

// RecipeToRow converts a recipe to its remote row.
func RecipeToRow(r schema.Recipe, owner string) (remote.Row, error) {
	ingredients, err := json.Marshal(nonNil(r.Ingredients))
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingredients of %s: %w", r.ID, err)
	}
	prep, err := json.Marshal(nonNil(r.PrepTasks))
	if err != nil {
		return nil, fmt.Errorf("failed to encode prep tasks of %s: %w", r.ID, err)
	}
	macros, err := json.Marshal(r.Macros)
	if err != nil {
		return nil, fmt.Errorf("failed to encode macros of %s: %w", r.ID, err)
	}

	return remote.Row{
		"id":          r.ID,
		"owner":       owner,
		"name":        r.Name,
		"type":        string(r.Kind),
		"difficulty":  string(r.Difficulty),
		"ingredients": string(ingredients),
		"prep_tasks":  string(prep),
		"macros":      string(macros),
	}, nil
}

// RecipeFromRow converts a remote row to a recipe.
func RecipeFromRow(row remote.Row) (schema.Recipe, error) {
	r := schema.Recipe{
		ID:         row.String("id"),
		Name:       row.String("name"),
		Kind:       schema.Kind(row.String("type")),
		Difficulty: schema.Difficulty(row.String("difficulty")),
	}
	if r.ID == "" {
		return schema.Recipe{}, fmt.Errorf("recipe row has no id")
	}
	if err := decodeColumn(row, "ingredients", &r.Ingredients); err != nil {
		return schema.Recipe{}, fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	if err := decodeColumn(row, "prep_tasks", &r.PrepTasks); err != nil {
		return schema.Recipe{}, fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	if err := decodeColumn(row, "macros", &r.Macros); err != nil {
		return schema.Recipe{}, fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	r.SetDefaults()
	return r, nil
}

// PlanRowToRemote converts one plan cell to its remote row.
func PlanRowToRemote(row mealplan.Row, owner string) (remote.Row, error) {
	meals, err := json.Marshal(nonNil(row.Meals))
	if err != nil {
		return nil, fmt.Errorf("failed to encode meals for %s %s: %w", row.Key.Date, row.Key.Slot, err)
	}
	return remote.Row{
		"owner":        owner,
		"planned_date": row.Key.Date,
		"slot":         string(row.Key.Slot),
		"meals":        string(meals),
	}, nil
}

// PlanRowFromRemote converts a remote row to a plan cell.
func PlanRowFromRemote(row remote.Row) (mealplan.Row, error) {
	date := row.String("planned_date")
	if _, err := schema.ParseDate(date); err != nil {
		return mealplan.Row{}, err
	}
	slot := schema.Slot(row.String("slot"))
	if !slot.Valid() {
		return mealplan.Row{}, fmt.Errorf("meal plan row %s has unknown slot %q", date, slot)
	}

	out := mealplan.Row{Key: mealplan.SlotKey{Date: date, Slot: slot}}
	if err := decodeColumn(row, "meals", &out.Meals); err != nil {
		return mealplan.Row{}, fmt.Errorf("meal plan row %s %s: %w", date, slot, err)
	}
	if out.Meals == nil {
		out.Meals = []schema.PlannedMeal{}
	}
	return out, nil
}

// WaterToRow converts one water counter to its remote row.
func WaterToRow(key WaterKey, amount int, owner string) remote.Row {
	return remote.Row{
		"owner":        owner,
		"planned_date": key.Date,
		"profile":      string(key.Profile),
		"amount":       int64(amount),
	}
}

// WaterFromRow converts a remote row to a water counter.
func WaterFromRow(row remote.Row) (WaterKey, int, error) {
	date := row.String("planned_date")
	if _, err := schema.ParseDate(date); err != nil {
		return WaterKey{}, 0, err
	}
	profile := schema.Profile(row.String("profile"))
	if !profile.Valid() {
		return WaterKey{}, 0, fmt.Errorf("water row %s has unknown profile %q", date, profile)
	}
	amount := int(row.Int("amount"))
	if amount < 0 {
		amount = 0
	}
	return WaterKey{Date: date, Profile: profile}, amount, nil
}

func decodeColumn(row remote.Row, col string, v any) error {
	s := row.String(col)
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", col, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
