package mealplan

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haven-app/haven/internal/schema"
)

const day = "2024-06-01"

func TestAssign_Idempotent(t *testing.T) {
	x := New(nil)
	if !x.Assign(day, schema.SlotLunch, "r1", schema.ProfileV) {
		t.Fatal("first Assign should report a change")
	}
	if x.Assign(day, schema.SlotLunch, "r1", schema.ProfileV) {
		t.Error("repeat Assign should be a no-op")
	}
	if !x.Assign(day, schema.SlotLunch, "r1", schema.ProfileM) {
		t.Error("same recipe for the other profile is a distinct meal")
	}

	want := []schema.PlannedMeal{
		{RecipeID: "r1", Profile: schema.ProfileV},
		{RecipeID: "r1", Profile: schema.ProfileM},
	}
	if diff := cmp.Diff(want, x.Meals(day, schema.SlotLunch)); diff != "" {
		t.Errorf("Meals() mismatch (-want +got):\n%s", diff)
	}
}

func TestUnassign(t *testing.T) {
	x := New(nil)
	x.Assign(day, schema.SlotDinner, "r1", schema.ProfileV)

	if x.Unassign(day, schema.SlotDinner, "r1", schema.ProfileM) {
		t.Error("Unassign of absent pair reported a change")
	}
	if !x.Unassign(day, schema.SlotDinner, "r1", schema.ProfileV) {
		t.Fatal("Unassign of present pair reported no change")
	}
	if x.Unassign("2030-01-01", schema.SlotDinner, "r1", schema.ProfileV) {
		t.Error("Unassign on an unplanned date reported a change")
	}

	meals := x.Meals(day, schema.SlotDinner)
	if meals == nil || len(meals) != 0 {
		t.Errorf("Meals() = %#v, want empty non-nil slice", meals)
	}
	if _, ok := x.Plan()[day][schema.SlotDinner]; !ok {
		t.Error("emptied slot should be kept so it can be mirrored")
	}
}

func TestMeals_NeverNil(t *testing.T) {
	x := New(nil)
	if got := x.Meals("1999-12-31", schema.SlotSnacks); got == nil {
		t.Error("Meals() returned nil for an empty slot")
	}
}

func TestMeals_ReturnsCopy(t *testing.T) {
	x := New(nil)
	x.Assign(day, schema.SlotLunch, "r1", schema.ProfileV)
	got := x.Meals(day, schema.SlotLunch)
	got[0].RecipeID = "hacked"
	if x.Meals(day, schema.SlotLunch)[0].RecipeID != "r1" {
		t.Error("mutating Meals() result changed the index")
	}
}

// Random assign/unassign sequences never leave a duplicate pair in a slot.
func TestNoDuplicatePairs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	recipes := []string{"a", "b", "c"}
	dates := []string{"2024-06-01", "2024-06-02"}
	x := New(nil)

	for i := 0; i < 2000; i++ {
		date := dates[rng.Intn(len(dates))]
		slot := schema.Slots[rng.Intn(len(schema.Slots))]
		recipe := recipes[rng.Intn(len(recipes))]
		profile := schema.Profiles[rng.Intn(len(schema.Profiles))]
		if rng.Intn(3) == 0 {
			x.Unassign(date, slot, recipe, profile)
		} else {
			x.Assign(date, slot, recipe, profile)
		}
	}

	for date, dayPlan := range x.Plan() {
		for slot, meals := range dayPlan {
			seen := map[schema.PlannedMeal]bool{}
			for _, m := range meals {
				if seen[m] {
					t.Fatalf("duplicate %+v in %s/%s", m, date, slot)
				}
				seen[m] = true
			}
		}
	}
}

func TestCascadeDeleteRecipe(t *testing.T) {
	x := New(nil)
	x.Assign("2024-06-01", schema.SlotLunch, "gone", schema.ProfileV)
	x.Assign("2024-06-01", schema.SlotLunch, "kept", schema.ProfileV)
	x.Assign("2024-06-03", schema.SlotDinner, "gone", schema.ProfileM)
	x.Assign("2024-06-02", schema.SlotBreakfast, "kept", schema.ProfileM)

	changed := x.CascadeDeleteRecipe("gone")

	want := []SlotKey{
		{Date: "2024-06-01", Slot: schema.SlotLunch},
		{Date: "2024-06-03", Slot: schema.SlotDinner},
	}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Errorf("changed cells mismatch (-want +got):\n%s", diff)
	}

	for _, r := range Rows(x.Plan()) {
		for _, m := range r.Meals {
			if m.RecipeID == "gone" {
				t.Errorf("assignment of deleted recipe survives in %+v", r.Key)
			}
		}
	}
	if len(x.Meals("2024-06-01", schema.SlotLunch)) != 1 {
		t.Error("unrelated assignment in the same slot was removed")
	}
	if len(x.CascadeDeleteRecipe("gone")) != 0 {
		t.Error("second cascade should change nothing")
	}
}

func TestRowsRoundTrip(t *testing.T) {
	plan := schema.MealPlan{
		"2024-06-02": {schema.SlotDinner: {{RecipeID: "b", Profile: schema.ProfileM}}},
		"2024-06-01": {
			schema.SlotLunch:        {{RecipeID: "a", Profile: schema.ProfileV}},
			schema.SlotPreBreakfast: {},
		},
	}

	rows := Rows(plan)
	keys := make([]SlotKey, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	wantKeys := []SlotKey{
		{"2024-06-01", schema.SlotPreBreakfast},
		{"2024-06-01", schema.SlotLunch},
		{"2024-06-02", schema.SlotDinner},
	}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Errorf("Rows() order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(plan, FromRows(rows)); diff != "" {
		t.Errorf("FromRows(Rows()) mismatch (-want +got):\n%s", diff)
	}
}
