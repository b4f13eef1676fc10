// Package haven is the local-first core: it owns the in-memory collections,
// persists every mutation to the Local Store before acknowledging it, mirrors
// mutations to the optional remote, and runs reconciliation passes when the
// auth state changes.
package haven

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haven-app/haven/internal/grocery"
	"github.com/haven-app/haven/internal/local"
	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/reconcile"
	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/status"
)

// Options configures a Core. Only Store is required.
type Options struct {
	Store   local.Store
	Tracker *status.Tracker
	Logger  *log.Logger

	// Owner scopes remote rows when the remote config doesn't name one.
	Owner string

	// GroceryWindow is the default window for GroceryList(0).
	GroceryWindow int

	// Offline loads the remote config but never connects.
	Offline bool

	// Connect builds the adapter for a remote config. Defaults to remote.New.
	Connect func(cfg remote.Config) (remote.Adapter, error)

	Now   func() time.Time
	NewID func() string
}

// Core is the single writer for recipes, the meal plan and water intake.
// All methods are safe for concurrent use.
type Core struct {
	mu      sync.Mutex
	recipes []schema.Recipe
	plan    *mealplan.Index
	water   schema.WaterIntake
	checked *grocery.CheckedSet

	store   local.Store
	tracker *status.Tracker
	logger  *log.Logger
	engine  *reconcile.Engine
	// degraded is set once a write to store fails; from then on changes
	// live in memory (and on the remote) only.
	degraded atomic.Bool

	owner   string
	window  int
	offline bool
	connect func(remote.Config) (remote.Adapter, error)
	now     func() time.Time
	newID   func() string

	remoteMu  sync.Mutex
	remoteCfg *remote.Config
	adapter   remote.Adapter

	mirrors   mirrorQueue
	inflight  pending
	done      chan struct{}
	closeOnce sync.Once

	events eventHub
}

var _ reconcile.State = (*Core)(nil)

// New creates a Core with empty collections. Call Start (or Load) before use.
func New(opts Options) *Core {
	if opts.Store == nil {
		opts.Store = local.Ephemeral{}
	}
	if opts.Tracker == nil {
		opts.Tracker = status.NewTracker()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[core] ", log.LstdFlags)
	}
	if opts.Owner == "" {
		opts.Owner = remote.PublicOwner
	}
	if opts.GroceryWindow == 0 {
		opts.GroceryWindow = grocery.DefaultWindow
	}
	if opts.Connect == nil {
		logger := opts.Logger
		opts.Connect = func(cfg remote.Config) (remote.Adapter, error) {
			return remote.New(cfg, logger)
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	c := &Core{
		recipes: []schema.Recipe{},
		plan:    mealplan.New(nil),
		water:   schema.WaterIntake{},
		checked: grocery.NewCheckedSet(),
		store:   opts.Store,
		tracker: opts.Tracker,
		logger:  opts.Logger,
		engine:  reconcile.NewEngine(opts.Store, opts.Tracker, opts.Logger),
		owner:   opts.Owner,
		window:  opts.GroceryWindow,
		offline: opts.Offline,
		connect: opts.Connect,
		now:     opts.Now,
		newID:   opts.NewID,
		done:    make(chan struct{}),
	}
	c.mirrors.init()
	go c.mirrorLoop()
	return c
}

// Tracker returns the sync status tracker.
func (c *Core) Tracker() *status.Tracker { return c.tracker }

// Durable reports whether changes survive a restart. It turns false when
// the store is ephemeral or a write to it has failed.
func (c *Core) Durable() bool { return c.store.Durable() && !c.degraded.Load() }

// persist writes values to the Local Store. A failure never fails the
// mutation: it is logged and the core continues in memory.
func (c *Core) persist(ctx context.Context, values map[string]any) {
	if err := local.SaveAllJSON(ctx, c.store, values); err != nil {
		if c.degraded.CompareAndSwap(false, true) {
			c.logger.Printf("WARNING: local storage failed, changes are kept in memory only: %v", err)
			return
		}
		c.logger.Printf("Warning: local write failed: %v", err)
	}
}

// Load reads the collections and remote config from the Local Store.
func (c *Core) Load(ctx context.Context) error {
	var recipes []schema.Recipe
	if _, err := local.LoadJSON(ctx, c.store, local.KeyRecipes, &recipes); err != nil {
		return err
	}
	plan := schema.MealPlan{}
	if _, err := local.LoadJSON(ctx, c.store, local.KeyMealPlan, &plan); err != nil {
		return err
	}
	water := schema.WaterIntake{}
	if _, err := local.LoadJSON(ctx, c.store, local.KeyWaterIntake, &water); err != nil {
		return err
	}
	if recipes == nil {
		recipes = []schema.Recipe{}
	}

	c.mu.Lock()
	c.recipes = recipes
	c.plan = mealplan.New(plan)
	c.water = water
	c.mu.Unlock()

	var cfg remote.Config
	ok, err := local.LoadJSON(ctx, c.store, local.KeyRemoteConfig, &cfg)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		c.logger.Printf("Warning: ignoring stored remote config: %v", err)
		return nil
	}
	return c.attach(cfg)
}

// Start loads local state and establishes the initial auth state: local-only
// without a remote, otherwise a reconciliation pass. A failed pass is logged
// and reflected in the sync status; Start only fails when local state can't
// be read.
func (c *Core) Start(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	if err := c.AuthChanged(ctx); err != nil {
		c.logger.Printf("Warning: initial reconciliation failed: %v", err)
	}
	return nil
}

// Close flushes pending mirrors and releases the adapter and store.
func (c *Core) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.Flush()
		close(c.done)

		c.remoteMu.Lock()
		if c.adapter != nil {
			err = c.adapter.Close()
			c.adapter = nil
		}
		c.remoteMu.Unlock()

		if cerr := c.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// Commit implements reconcile.State.
func (c *Core) Commit(fn func(current schema.Snapshot) (schema.Snapshot, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.snapshotLocked())
	if err != nil {
		return err
	}
	c.recipes = next.Recipes
	c.plan = mealplan.New(next.Plan)
	c.water = next.Water
	return nil
}

// Snapshot returns a deep copy of all three collections.
func (c *Core) Snapshot() schema.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Core) snapshotLocked() schema.Snapshot {
	return schema.Snapshot{
		Recipes: c.recipes,
		Plan:    c.plan.Plan(),
		Water:   c.water,
	}.Clone()
}

// SaveRecipe validates r, assigns an id when it has none, and replaces any
// recipe with the same id (or appends it). The saved recipe is returned.
func (c *Core) SaveRecipe(ctx context.Context, r schema.Recipe) (schema.Recipe, error) {
	r = r.Clone()
	r.SetDefaults()
	if r.ID == "" {
		r.ID = c.newID()
	}
	r.Provenance = schema.ProvenanceLocal
	if err := r.Validate(); err != nil {
		return schema.Recipe{}, fmt.Errorf("invalid recipe: %w", err)
	}

	c.mu.Lock()
	next := make([]schema.Recipe, 0, len(c.recipes)+1)
	replaced := false
	for _, existing := range c.recipes {
		if existing.ID == r.ID {
			next = append(next, r)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, r)
	}

	c.persist(ctx, map[string]any{local.KeyRecipes: next})
	c.recipes = next
	c.mirrorRecipe(r)
	c.mu.Unlock()

	c.events.emit(Event{Kind: EventRecipeSaved, ID: r.ID})
	return r.Clone(), nil
}

// DeleteRecipe removes the recipe and every meal-plan assignment that
// references it. Deleting an unknown id is not an error.
func (c *Core) DeleteRecipe(ctx context.Context, id string) error {
	c.mu.Lock()

	next := make([]schema.Recipe, 0, len(c.recipes))
	for _, r := range c.recipes {
		if r.ID != id {
			next = append(next, r)
		}
	}
	plan := mealplan.New(c.plan.Plan())
	changed := plan.CascadeDeleteRecipe(id)

	if len(next) == len(c.recipes) && len(changed) == 0 {
		c.mu.Unlock()
		return nil
	}

	c.persist(ctx, map[string]any{
		local.KeyRecipes:  next,
		local.KeyMealPlan: plan.Plan(),
	})
	c.recipes = next
	c.plan = plan
	for _, key := range changed {
		c.mirrorPlanCell(key, plan.Meals(key.Date, key.Slot))
	}
	c.mirrorRecipeDelete(id)
	c.mu.Unlock()

	c.events.emit(Event{Kind: EventRecipeDeleted, ID: id})
	if len(changed) > 0 {
		c.events.emit(Event{Kind: EventPlanChanged})
	}
	return nil
}

func validateCell(date string, slot schema.Slot, profile schema.Profile) error {
	if _, err := schema.ParseDate(date); err != nil {
		return err
	}
	if !slot.Valid() {
		return fmt.Errorf("unknown slot %q", slot)
	}
	if !profile.Valid() {
		return fmt.Errorf("unknown profile %q", profile)
	}
	return nil
}

// AssignMeal plans recipeID for profile in the slot. It reports false when
// the pair was already planned there. recipeID is not checked against the
// catalog; readers skip ids that don't resolve.
func (c *Core) AssignMeal(ctx context.Context, date string, slot schema.Slot, recipeID string, profile schema.Profile) (bool, error) {
	if err := validateCell(date, slot, profile); err != nil {
		return false, err
	}
	if recipeID == "" {
		return false, fmt.Errorf("recipe id is required")
	}
	return c.updatePlan(ctx, date, slot, func(x *mealplan.Index) bool {
		return x.Assign(date, slot, recipeID, profile)
	})
}

// UnassignMeal removes recipeID/profile from the slot and reports whether it
// was planned there.
func (c *Core) UnassignMeal(ctx context.Context, date string, slot schema.Slot, recipeID string, profile schema.Profile) (bool, error) {
	if err := validateCell(date, slot, profile); err != nil {
		return false, err
	}
	return c.updatePlan(ctx, date, slot, func(x *mealplan.Index) bool {
		return x.Unassign(date, slot, recipeID, profile)
	})
}

func (c *Core) updatePlan(ctx context.Context, date string, slot schema.Slot, fn func(*mealplan.Index) bool) (bool, error) {
	c.mu.Lock()
	plan := mealplan.New(c.plan.Plan())
	if !fn(plan) {
		c.mu.Unlock()
		return false, nil
	}

	c.persist(ctx, map[string]any{local.KeyMealPlan: plan.Plan()})
	c.plan = plan
	c.mirrorPlanCell(mealplan.SlotKey{Date: date, Slot: slot}, plan.Meals(date, slot))
	c.mu.Unlock()

	c.events.emit(Event{Kind: EventPlanChanged, Date: date})
	return true, nil
}

// AdjustWater adds delta (which may be negative) to the profile's water
// count for date, clamping at zero, and returns the new amount.
func (c *Core) AdjustWater(ctx context.Context, date string, profile schema.Profile, delta int) (int, error) {
	if _, err := schema.ParseDate(date); err != nil {
		return 0, err
	}
	if !profile.Valid() {
		return 0, fmt.Errorf("unknown profile %q", profile)
	}

	c.mu.Lock()
	water := c.water.Clone()
	amount := water.Adjust(date, profile, delta)

	c.persist(ctx, map[string]any{local.KeyWaterIntake: water})
	c.water = water
	c.mirrorWater(reconcile.WaterKey{Date: date, Profile: profile}, amount)
	c.mu.Unlock()

	c.events.emit(Event{Kind: EventWaterChanged, Date: date})
	return amount, nil
}

// GroceryList aggregates the window starting today. days == 0 uses the
// configured default window.
func (c *Core) GroceryList(days int) (grocery.List, error) {
	if days == 0 {
		days = c.window
	}
	c.mu.Lock()
	recipes := c.recipes
	plan := c.plan.Plan()
	c.mu.Unlock()

	return grocery.Build(recipes, plan, days, c.now(), c.checked)
}

// ToggleGrocery flips the checked state of a list item key.
func (c *Core) ToggleGrocery(key string) bool {
	checked := c.checked.Toggle(key)
	c.events.emit(Event{Kind: EventGroceryChecked, ID: key})
	return checked
}

// ResetGrocery unchecks every item.
func (c *Core) ResetGrocery() {
	c.checked.Clear()
	c.events.emit(Event{Kind: EventGroceryChecked})
}

// SyncStatus returns the current sync status.
func (c *Core) SyncStatus() status.Snapshot {
	return c.tracker.Current()
}

// Recipes returns a copy of the recipe collection in stored order.
func (c *Core) Recipes() []schema.Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.Recipe, len(c.recipes))
	for i, r := range c.recipes {
		out[i] = r.Clone()
	}
	return out
}

// Recipe looks up one recipe by id.
func (c *Core) Recipe(id string) (schema.Recipe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.recipes {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return schema.Recipe{}, false
}

// Plan returns a copy of the meal plan.
func (c *Core) Plan() schema.MealPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan.Plan()
}

// Meals returns the meals planned in one slot.
func (c *Core) Meals(date string, slot schema.Slot) []schema.PlannedMeal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan.Meals(date, slot)
}

// Water returns the per-profile water counts for date.
func (c *Core) Water(date string) map[schema.Profile]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[schema.Profile]int, len(schema.Profiles))
	for _, p := range schema.Profiles {
		out[p] = c.water.Amount(date, p)
	}
	return out
}

// DailyMacros totals each profile's planned macros for date.
func (c *Core) DailyMacros(date string) map[schema.Profile]schema.Macros {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mealplan.DailyMacros(c.plan.Plan(), date, schema.RecipesByID(c.recipes))
}

// PrepTasks lists the advance prep for the recipes planned on date.
func (c *Core) PrepTasks(date string) []mealplan.PrepTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mealplan.PrepTasksFor(c.plan.Plan(), date, schema.RecipesByID(c.recipes))
}
