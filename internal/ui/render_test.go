package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/haven-app/haven/internal/grocery"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/status"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestRenderGrocery(t *testing.T) {
	list := grocery.List{
		Days: []string{"2024-06-01", "2024-06-03"},
		Groups: []grocery.Group{{
			Store: "Costco",
			Items: []grocery.Item{
				{Key: "rice|cup|costco", Item: "Rice", Unit: "cup", Quantity: 1.5},
				{Key: "salt||costco", Item: "Salt", Quantity: 1, Checked: true},
			},
		}},
		Total: 2,
	}

	got := RenderGrocery(list)
	for _, want := range []string{"Costco", "[ ] Rice (1.50 cup)", "[x] Salt (1)", "2 items"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderGrocery_Empty(t *testing.T) {
	got := RenderGrocery(grocery.List{Days: []string{"2024-06-01"}})
	if !strings.Contains(got, "Nothing to buy") {
		t.Errorf("got %q", got)
	}
}

func TestRenderStatus(t *testing.T) {
	got := RenderStatus(status.Snapshot{State: status.StateError, Err: "connection refused"})
	if !strings.Contains(got, "error") || !strings.Contains(got, "connection refused") {
		t.Errorf("got %q", got)
	}
}

func TestRenderDay(t *testing.T) {
	recipes := map[string]schema.Recipe{
		"r1": {ID: "r1", Name: "Feast", Macros: schema.Macros{Calories: 2500}},
	}
	plan := schema.MealPlan{"2024-06-01": {schema.SlotDinner: {{RecipeID: "r1", Profile: schema.ProfileV}}}}

	got := RenderDay("2024-06-01", plan, recipes, map[schema.Profile]int{schema.ProfileV: 4})
	if !strings.Contains(got, "Feast (V)") {
		t.Errorf("missing meal:\n%s", got)
	}
	if !strings.Contains(got, "over: calories") {
		t.Errorf("missing over-target warning:\n%s", got)
	}
	if !strings.Contains(got, "4 water") {
		t.Errorf("missing water:\n%s", got)
	}
}

func TestRenderRecipes(t *testing.T) {
	got := RenderRecipes([]schema.Recipe{
		{ID: "a", Name: "Soup", Difficulty: schema.DifficultyEasy, Provenance: schema.ProvenanceCloud},
	})
	if !strings.Contains(got, "Soup") || !strings.Contains(got, "cloud") {
		t.Errorf("got %q", got)
	}
}
