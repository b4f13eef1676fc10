package migrate

import (
	"bytes"
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haven-app/haven/internal/haven"
	"github.com/haven-app/haven/internal/schema"
)

func testSnapshot() schema.Snapshot {
	return schema.Snapshot{
		Recipes: []schema.Recipe{
			{
				ID: "r-2", Name: "Chana Masala", Difficulty: schema.DifficultyMedium, Kind: schema.KindRegular,
				Ingredients: []schema.Ingredient{{Item: "Chickpeas", Quantity: 2, Unit: "cup", StoreName: "Costco"}},
				PrepTasks:   []schema.PrepTask{{Task: "Soak chickpeas", Duration: "8 hrs"}},
				Macros:      schema.Macros{Calories: 450, Protein: 18},
				Provenance:  schema.ProvenanceCloud,
			},
			{
				ID: "r-1", Name: "Toast", Difficulty: schema.DifficultyEasy, Kind: schema.KindRegular,
				Ingredients: []schema.Ingredient{}, PrepTasks: []schema.PrepTask{},
				Provenance: schema.ProvenanceLocal,
			},
		},
		Plan: schema.MealPlan{
			"2024-06-02": {schema.SlotDinner: {{RecipeID: "r-2", Profile: schema.ProfileM}}},
			"2024-06-01": {
				schema.SlotDinner:    {{RecipeID: "r-2", Profile: schema.ProfileV}},
				schema.SlotBreakfast: {{RecipeID: "r-1", Profile: schema.ProfileV}, {RecipeID: "r-1", Profile: schema.ProfileM}},
			},
		},
		Water: schema.WaterIntake{
			"2024-06-01": {schema.ProfileM: 3, schema.ProfileV: 5},
		},
	}
}

func TestFromSnapshot_Order(t *testing.T) {
	b := FromSnapshot(testSnapshot())

	if b.Recipes[0].ID != "r-2" || b.Recipes[0].Provenance != "" {
		t.Errorf("recipes = %+v", b.Recipes)
	}
	want := []PlanEntry{
		{Date: "2024-06-01", Slot: schema.SlotBreakfast, RecipeID: "r-1", Profile: schema.ProfileV},
		{Date: "2024-06-01", Slot: schema.SlotBreakfast, RecipeID: "r-1", Profile: schema.ProfileM},
		{Date: "2024-06-01", Slot: schema.SlotDinner, RecipeID: "r-2", Profile: schema.ProfileV},
		{Date: "2024-06-02", Slot: schema.SlotDinner, RecipeID: "r-2", Profile: schema.ProfileM},
	}
	if diff := cmp.Diff(want, b.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	wantWater := []WaterEntry{
		{Date: "2024-06-01", Profile: schema.ProfileV, Amount: 5},
		{Date: "2024-06-01", Profile: schema.ProfileM, Amount: 3},
	}
	if diff := cmp.Diff(wantWater, b.Water); diff != "" {
		t.Errorf("water mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecode(t *testing.T) {
	want := FromSnapshot(testSnapshot())

	for _, f := range []Format{FormatJSONL, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, want, f); err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			got, err := Decode(&buf, f)
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"bad json", `{"kind":"recipe","recipe":{"id":"a","name":"A"}}` + "\n{oops\n", "line 2"},
		{"unknown kind", `{"kind":"travel"}`, `kind "travel"`},
		{"kind without payload", `{"kind":"meal"}`, "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONL(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadJSONL() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	b, err := ReadJSONL(strings.NewReader("\n\n"))
	if err != nil || len(b.Recipes) != 0 {
		t.Errorf("blank input = %+v, %v", b, err)
	}
}

func TestReadYAML_RejectsUnknownKeys(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("recipes: []\ntravel: []\n"))
	if err == nil {
		t.Error("expected unknown key error")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"jsonl": FormatJSONL, "YAML": FormatYAML, "yml": FormatYAML, "ndjson": FormatJSONL} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := FormatFromPath("backup.csv"); err == nil {
		t.Error("csv should be rejected")
	}
}

func newCore(t *testing.T) *haven.Core {
	t.Helper()
	core := haven.New(haven.Options{Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(func() { _ = core.Close() })
	if err := core.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return core
}

func TestExportImport_ThroughCore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "backup", "haven.jsonl")

	if _, err := ExportFile(path, testSnapshot()); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}
	b, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}

	core := newCore(t)
	if _, err := core.AdjustWater(ctx, "2024-06-01", schema.ProfileV, 9); err != nil {
		t.Fatal(err)
	}

	res, err := Apply(ctx, core, b, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if res.Recipes != 2 || res.Meals != 4 || res.Water != 2 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}

	water := core.Water("2024-06-01")
	if water[schema.ProfileV] != 5 || water[schema.ProfileM] != 3 {
		t.Errorf("water = %v, want V=5 M=3", water)
	}
	if got := FromSnapshot(core.Snapshot()); !cmp.Equal(got.Plan, b.Plan) {
		t.Errorf("plan after import:\n%s", cmp.Diff(b.Plan, got.Plan))
	}

	// A second import changes nothing.
	again, err := Apply(ctx, core, b, ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if again.Meals != 0 || again.Water != 0 {
		t.Errorf("re-import result = %+v", again)
	}
}

func TestApply_CollectsErrors(t *testing.T) {
	core := newCore(t)
	b := Backup{
		Recipes: []schema.Recipe{{ID: "ok", Name: "Ok"}, {ID: "bad"}},
		Plan: []PlanEntry{
			{Date: "2024-06-01", Slot: schema.SlotLunch, RecipeID: "ok", Profile: schema.ProfileV},
			{Date: "2024-06-01", Slot: schema.SlotLunch, RecipeID: "ghost", Profile: schema.ProfileV},
		},
		Water: []WaterEntry{{Date: "2024-06-01", Profile: schema.ProfileV, Amount: -1}},
	}

	res, err := Apply(context.Background(), core, b, ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Recipes != 1 || res.Meals != 2 || len(res.Errors) != 2 {
		t.Errorf("result = %+v", res)
	}
}

// A backup whose plan names a recipe that is gone from the catalog restores
// exactly, dangling entry included.
func TestApply_RestoresDanglingPlanEntry(t *testing.T) {
	snap := schema.Snapshot{
		Recipes: []schema.Recipe{{ID: "soup", Name: "Soup", Difficulty: schema.DifficultyEasy}},
		Plan: schema.MealPlan{
			"2024-06-01": schema.DayPlan{
				schema.SlotDinner: {
					{RecipeID: "soup", Profile: schema.ProfileV},
					{RecipeID: "gone", Profile: schema.ProfileM},
				},
			},
		},
		Water: schema.WaterIntake{},
	}

	core := newCore(t)
	res, err := Apply(context.Background(), core, FromSnapshot(snap), ApplyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 || res.Meals != 2 {
		t.Fatalf("result = %+v", res)
	}
	if diff := cmp.Diff(snap.Plan["2024-06-01"][schema.SlotDinner], core.Meals("2024-06-01", schema.SlotDinner)); diff != "" {
		t.Errorf("restored meals mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_DryRun(t *testing.T) {
	core := newCore(t)
	res, err := Apply(context.Background(), core, FromSnapshot(testSnapshot()), ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Recipes != 2 || res.Meals != 4 || res.Water != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(core.Recipes()) != 0 {
		t.Error("dry run wrote recipes")
	}
}
