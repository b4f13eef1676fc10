package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/haven-app/haven/internal/local"
	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/status"
)

// ErrSuperseded is returned by a pass whose result was discarded because a
// later-started pass committed first.
var ErrSuperseded = errors.New("superseded by a newer reconciliation pass")

// Source is the read side of the remote adapter.
type Source interface {
	FetchAll(ctx context.Context, t remote.Table) ([]remote.Row, error)
}

// State is the owner of the in-memory collections.
type State interface {
	// Commit calls fn with the current snapshot while holding the owner's
	// writer lock. When fn succeeds its result becomes the new state.
	Commit(fn func(current schema.Snapshot) (schema.Snapshot, error)) error
}

// Remote is a fetched and translated remote snapshot.
type Remote struct {
	Recipes []Record[string, schema.Recipe]
	Plan    []Record[mealplan.SlotKey, []schema.PlannedMeal]
	Water   []Record[WaterKey, int]
}

// Stats summarises a merged snapshot by provenance.
type Stats struct {
	Recipes Count `json:"recipes"`
	Plan    Count `json:"plan"`
	Water   Count `json:"water"`
}

// Result describes a committed pass.
type Result struct {
	Seq   uint64
	Stats Stats
}

// Engine runs reconciliation passes. Safe for concurrent use.
type Engine struct {
	store   local.Store
	tracker *status.Tracker
	logger  *log.Logger

	seq       atomic.Uint64
	mu        sync.Mutex
	committed uint64
}

// NewEngine creates an engine writing merged snapshots to store and
// reporting progress on tracker. A nil logger logs to stderr.
func NewEngine(store local.Store, tracker *status.Tracker, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &Engine{store: store, tracker: tracker, logger: logger}
}

// Pass runs one reconciliation pass against src and commits the merged
// result into state. Fetch failures leave state and the Local Store untouched
// and move the tracker to error.
func (e *Engine) Pass(ctx context.Context, src Source, state State) (Result, error) {
	seq := e.seq.Add(1)
	e.transition(e.tracker.BeginSync())

	fetched, err := Fetch(ctx, src, e.logger)
	if err != nil {
		e.logger.Printf("Pass %d aborted: %v", seq, err)
		e.transition(e.tracker.Fail(err))
		return Result{}, err
	}

	var stats Stats
	err = state.Commit(func(current schema.Snapshot) (schema.Snapshot, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if seq < e.committed {
			return schema.Snapshot{}, fmt.Errorf("%w: pass %d < committed %d", ErrSuperseded, seq, e.committed)
		}

		var merged schema.Snapshot
		merged, stats = Apply(current, fetched)

		if err := local.SaveAllJSON(ctx, e.store, map[string]any{
			local.KeyRecipes:     merged.Recipes,
			local.KeyMealPlan:    merged.Plan,
			local.KeyWaterIntake: merged.Water,
		}); err != nil {
			return schema.Snapshot{}, fmt.Errorf("failed to write merged state: %w", err)
		}

		e.committed = seq
		return merged, nil
	})
	if errors.Is(err, ErrSuperseded) {
		e.logger.Printf("Pass %d discarded: a newer pass already committed", seq)
		return Result{}, err
	}
	if err != nil {
		e.logger.Printf("Pass %d failed: %v", seq, err)
		e.transition(e.tracker.Fail(err))
		return Result{}, err
	}

	e.transition(e.tracker.Synced())
	e.logger.Printf("Pass %d committed: recipes %d cloud/%d local, plan %d/%d, water %d/%d",
		seq, stats.Recipes.Cloud, stats.Recipes.Local, stats.Plan.Cloud, stats.Plan.Local,
		stats.Water.Cloud, stats.Water.Local)
	return Result{Seq: seq, Stats: stats}, nil
}

func (e *Engine) transition(err error) {
	if err != nil {
		e.logger.Printf("Warning: %v", err)
	}
}

// Fetch reads the three remote tables concurrently and translates them.
// Any fetch error aborts the whole fetch. Rows that can't be translated are
// logged and skipped.
func Fetch(ctx context.Context, src Source, logger *log.Logger) (Remote, error) {
	var recipeRows, planRows, waterRows []remote.Row

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(t remote.Table, dst *[]remote.Row) {
		g.Go(func() error {
			rows, err := src.FetchAll(gctx, t)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", t, err)
			}
			*dst = rows
			return nil
		})
	}
	fetch(remote.TableRecipes, &recipeRows)
	fetch(remote.TableMealPlans, &planRows)
	fetch(remote.TableWaterIntake, &waterRows)
	if err := g.Wait(); err != nil {
		return Remote{}, err
	}

	var out Remote
	for _, row := range recipeRows {
		r, err := RecipeFromRow(row)
		if err != nil {
			logger.Printf("Warning: skipping remote recipe: %v", err)
			continue
		}
		out.Recipes = append(out.Recipes, Record[string, schema.Recipe]{Key: r.ID, Value: r})
	}
	for _, row := range planRows {
		p, err := PlanRowFromRemote(row)
		if err != nil {
			logger.Printf("Warning: skipping remote meal plan row: %v", err)
			continue
		}
		out.Plan = append(out.Plan, Record[mealplan.SlotKey, []schema.PlannedMeal]{Key: p.Key, Value: p.Meals})
	}
	for _, row := range waterRows {
		k, amount, err := WaterFromRow(row)
		if err != nil {
			logger.Printf("Warning: skipping remote water row: %v", err)
			continue
		}
		out.Water = append(out.Water, Record[WaterKey, int]{Key: k, Value: amount})
	}
	return out, nil
}

// Apply merges r into current and returns the new snapshot. current is not
// modified.
func Apply(current schema.Snapshot, r Remote) (schema.Snapshot, Stats) {
	var stats Stats

	recipes := Merge(Records(current.Recipes, func(v schema.Recipe) string { return v.ID }), r.Recipes)
	stats.Recipes = count(recipes)
	outRecipes := make([]schema.Recipe, len(recipes))
	for i, rec := range recipes {
		v := rec.Value.Clone()
		v.Provenance = rec.Provenance
		outRecipes[i] = v
	}

	localPlan := make([]Record[mealplan.SlotKey, []schema.PlannedMeal], 0)
	for _, row := range mealplan.Rows(current.Plan) {
		localPlan = append(localPlan, Record[mealplan.SlotKey, []schema.PlannedMeal]{Key: row.Key, Value: row.Meals})
	}
	plan := Merge(localPlan, r.Plan)
	stats.Plan = count(plan)
	planRows := make([]mealplan.Row, len(plan))
	for i, rec := range plan {
		planRows[i] = mealplan.Row{Key: rec.Key, Meals: rec.Value}
	}

	water := Merge(waterRecords(current.Water), r.Water)
	stats.Water = count(water)
	outWater := schema.WaterIntake{}
	for _, rec := range water {
		amounts, ok := outWater[rec.Key.Date]
		if !ok {
			amounts = make(map[schema.Profile]int)
			outWater[rec.Key.Date] = amounts
		}
		amounts[rec.Key.Profile] = rec.Value
	}

	return schema.Snapshot{
		Recipes: outRecipes,
		Plan:    mealplan.FromRows(planRows),
		Water:   outWater,
	}, stats
}

// waterRecords flattens w in (date, profile) order.
func waterRecords(w schema.WaterIntake) []Record[WaterKey, int] {
	var out []Record[WaterKey, int]
	dates := make([]string, 0, len(w))
	for d := range w {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		profiles := make([]string, 0, len(w[d]))
		for p := range w[d] {
			profiles = append(profiles, string(p))
		}
		sort.Strings(profiles)
		for _, p := range profiles {
			key := WaterKey{Date: d, Profile: schema.Profile(p)}
			out = append(out, Record[WaterKey, int]{Key: key, Value: w[d][key.Profile]})
		}
	}
	return out
}
