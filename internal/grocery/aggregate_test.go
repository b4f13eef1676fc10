package grocery

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/haven-app/haven/internal/schema"
)

var today = time.Date(2024, 6, 1, 15, 30, 0, 0, time.Local)

func meal(id string, p schema.Profile) schema.PlannedMeal {
	return schema.PlannedMeal{RecipeID: id, Profile: p}
}

func TestBuild_MergesCaseInsensitively(t *testing.T) {
	recipes := []schema.Recipe{
		{ID: "A", Name: "Rice Bowl", Ingredients: []schema.Ingredient{
			{Item: "Rice", Quantity: 1, Unit: "cup", StoreName: "Costco"},
		}},
		{ID: "B", Name: "Fried Rice", Ingredients: []schema.Ingredient{
			{Item: "rice", Quantity: 0.5, Unit: "cup", StoreName: "costco"},
		}},
	}
	plan := schema.MealPlan{
		"2024-06-01": {schema.SlotLunch: {meal("A", schema.ProfileV)}},
		"2024-06-02": {schema.SlotDinner: {meal("B", schema.ProfileM)}},
	}

	list, err := Build(recipes, plan, 7, today, nil)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	want := []Group{{
		Store: "Costco",
		Items: []Item{{Key: "rice|cup|costco", Item: "Rice", Unit: "cup", Store: "Costco", Quantity: 1.5}},
	}}
	if diff := cmp.Diff(want, list.Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if list.Total != 1 {
		t.Errorf("Total = %d, want 1", list.Total)
	}
}

func TestBuild_WindowExcludesLaterMeals(t *testing.T) {
	recipes := []schema.Recipe{{ID: "A", Name: "Soup", Ingredients: []schema.Ingredient{
		{Item: "Leeks", Quantity: 2, Unit: "pc"},
	}}}
	plan := schema.MealPlan{
		"2024-06-06": {schema.SlotDinner: {meal("A", schema.ProfileV)}}, // today + 5
	}

	list, err := Build(recipes, plan, 3, today, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 0 || len(list.Groups) != 0 {
		t.Errorf("window=3 should be empty, got %+v", list)
	}
	if diff := cmp.Diff([]string{"2024-06-01", "2024-06-02", "2024-06-03"}, list.Days); diff != "" {
		t.Errorf("Days mismatch (-want +got):\n%s", diff)
	}

	list, err = Build(recipes, plan, 7, today, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 {
		t.Errorf("window=7 should include day+5, got %d items", list.Total)
	}
}

func TestBuild_UnsupportedWindow(t *testing.T) {
	_, err := Build(nil, nil, 5, today, nil)
	if !errors.Is(err, ErrUnsupportedWindow) {
		t.Errorf("Build(days=5) error = %v, want ErrUnsupportedWindow", err)
	}
	for _, w := range SupportedWindows {
		if err := ValidateWindow(w); err != nil {
			t.Errorf("ValidateWindow(%d) = %v", w, err)
		}
	}
}

func TestBuild_SkipsDanglingAndDefaultsStore(t *testing.T) {
	recipes := []schema.Recipe{{ID: "A", Name: "Toast", Ingredients: []schema.Ingredient{
		{Item: "Bread", Quantity: 2, Unit: "slice"},
		{Item: "butter", Quantity: 1, Unit: "tbsp", StoreName: "Aldi"},
	}}}
	plan := schema.MealPlan{"2024-06-01": {
		schema.SlotBreakfast: {meal("deleted", schema.ProfileV), meal("A", schema.ProfileV)},
	}}

	list, err := Build(recipes, plan, 3, today, nil)
	if err != nil {
		t.Fatal(err)
	}

	var stores []string
	for _, g := range list.Groups {
		stores = append(stores, g.Store)
	}
	if diff := cmp.Diff([]string{"Aldi", schema.DefaultStore}, stores); diff != "" {
		t.Errorf("store order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SortsItemsCaseInsensitively(t *testing.T) {
	recipes := []schema.Recipe{{ID: "A", Name: "Salad", Ingredients: []schema.Ingredient{
		{Item: "tomato", Quantity: 2, Unit: "pc"},
		{Item: "Basil", Quantity: 1, Unit: "bunch"},
		{Item: "arugula", Quantity: 1, Unit: "bag"},
	}}}
	plan := schema.MealPlan{"2024-06-02": {schema.SlotLunch: {meal("A", schema.ProfileM)}}}

	list, err := Build(recipes, plan, 3, today, nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, it := range list.Groups[0].Items {
		names = append(names, it.Item)
	}
	if diff := cmp.Diff([]string{"arugula", "Basil", "tomato"}, names); diff != "" {
		t.Errorf("item order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DeterministicAndPure(t *testing.T) {
	recipes := []schema.Recipe{
		{ID: "A", Name: "A", Ingredients: []schema.Ingredient{{Item: "Eggs", Quantity: 2, Unit: "pc"}}},
		{ID: "B", Name: "B", Ingredients: []schema.Ingredient{{Item: "Milk", Quantity: 1, Unit: "l", StoreName: "Aldi"}}},
	}
	plan := schema.MealPlan{
		"2024-06-01": {schema.SlotBreakfast: {meal("A", schema.ProfileV), meal("B", schema.ProfileM)}},
		"2024-06-03": {schema.SlotSnacks: {meal("A", schema.ProfileM)}},
	}
	recipesBefore := append([]schema.Recipe(nil), recipes...)
	planBefore := plan.Clone()

	first, err := Build(recipes, plan, 7, today, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Build(recipes, plan, 7, today, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build() not deterministic (-first +second):\n%s", diff)
	}
	if !reflect.DeepEqual(recipes, recipesBefore) || !reflect.DeepEqual(plan, planBefore) {
		t.Error("Build() mutated its inputs")
	}
}

// Reordering recipes or ingredients changes neither the set of keys nor the
// summed quantities.
func TestBuild_OrderIndependent(t *testing.T) {
	a := schema.Recipe{ID: "A", Name: "A", Ingredients: []schema.Ingredient{
		{Item: "Onion", Quantity: 1, Unit: "pc"},
		{Item: "Garlic", Quantity: 0.5, Unit: "head"},
	}}
	b := schema.Recipe{ID: "B", Name: "B", Ingredients: []schema.Ingredient{
		{Item: "onion", Quantity: 2, Unit: "PC"},
		{Item: "Ginger", Quantity: 0.25, Unit: "root", StoreName: "Aldi"},
	}}
	plan := schema.MealPlan{"2024-06-01": {
		schema.SlotLunch:  {meal("A", schema.ProfileV)},
		schema.SlotDinner: {meal("B", schema.ProfileV)},
	}}

	totals := func(l List) map[string]float64 {
		m := map[string]float64{}
		for _, g := range l.Groups {
			for _, it := range g.Items {
				m[it.Key] = it.Quantity
			}
		}
		return m
	}

	l1, err := Build([]schema.Recipe{a, b}, plan, 3, today, nil)
	if err != nil {
		t.Fatal(err)
	}

	reversed := func(r schema.Recipe) schema.Recipe {
		r = r.Clone()
		for i, j := 0, len(r.Ingredients)-1; i < j; i, j = i+1, j-1 {
			r.Ingredients[i], r.Ingredients[j] = r.Ingredients[j], r.Ingredients[i]
		}
		return r
	}
	l2, err := Build([]schema.Recipe{reversed(b), reversed(a)}, plan, 3, today, nil)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(totals(l1), totals(l2)); diff != "" {
		t.Errorf("totals differ after reordering (-want +got):\n%s", diff)
	}
	if totals(l1)["onion|pc|general"] != 3 {
		t.Errorf("onion total = %v, want 3", totals(l1)["onion|pc|general"])
	}
}

func TestBuild_CheckedSurvivesRecompute(t *testing.T) {
	recipes := []schema.Recipe{{ID: "A", Name: "A", Ingredients: []schema.Ingredient{
		{Item: "Eggs", Quantity: 6, Unit: "pc"},
	}}}
	plan := schema.MealPlan{"2024-06-01": {schema.SlotBreakfast: {meal("A", schema.ProfileV)}}}

	checked := NewCheckedSet()
	checked.Toggle("eggs|pc|general")
	checked.Toggle("stale|key|general")

	list, err := Build(recipes, plan, 3, today, checked)
	if err != nil {
		t.Fatal(err)
	}
	if !list.Groups[0].Items[0].Checked {
		t.Error("checked flag lost")
	}

	// The plan shrinking to nothing doesn't prune the set.
	if _, err := Build(recipes, schema.MealPlan{}, 3, today, checked); err != nil {
		t.Fatal(err)
	}
	if checked.Len() != 2 {
		t.Errorf("CheckedSet.Len() = %d, want 2", checked.Len())
	}
}

func TestWindowDates_CrossesMonth(t *testing.T) {
	got := WindowDates(time.Date(2024, 2, 28, 23, 59, 0, 0, time.Local), 3)
	if diff := cmp.Diff([]string{"2024-02-28", "2024-02-29", "2024-03-01"}, got); diff != "" {
		t.Errorf("WindowDates mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := map[float64]string{
		2:     "2",
		1.5:   "1.50",
		0.333: "0.33",
		0:     "0",
	}
	for in, want := range tests {
		if got := FormatQuantity(in); got != want {
			t.Errorf("FormatQuantity(%v) = %q, want %q", in, got, want)
		}
	}
}
