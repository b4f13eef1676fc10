// Package mealplan maintains the date-keyed meal plan: which recipes are
// planned for which profile in each slot of each day.
package mealplan

import (
	"sort"

	"github.com/haven-app/haven/internal/schema"
)

// SlotKey identifies one (date, slot) cell of the plan.
type SlotKey struct {
	Date string
	Slot schema.Slot
}

// Index wraps a MealPlan with the mutation rules the app relies on. It is not
// safe for concurrent use; the owner serialises access.
type Index struct {
	plan schema.MealPlan
}

// New wraps plan. The Index takes ownership; pass a clone to keep yours.
func New(plan schema.MealPlan) *Index {
	if plan == nil {
		plan = schema.MealPlan{}
	}
	return &Index{plan: plan}
}

// Plan returns a deep copy of the current plan.
func (x *Index) Plan() schema.MealPlan {
	return x.plan.Clone()
}

// Assign adds {recipeID, profile} to the slot. It reports false, leaving the
// plan unchanged, when that pair is already present.
func (x *Index) Assign(date string, slot schema.Slot, recipeID string, profile schema.Profile) bool {
	meals := x.plan[date][slot]
	for _, m := range meals {
		if m.RecipeID == recipeID && m.Profile == profile {
			return false
		}
	}

	day, ok := x.plan[date]
	if !ok {
		day = schema.DayPlan{}
		x.plan[date] = day
	}
	day[slot] = append(append([]schema.PlannedMeal{}, meals...), schema.PlannedMeal{
		RecipeID: recipeID,
		Profile:  profile,
	})
	return true
}

// Unassign removes {recipeID, profile} from the slot and reports whether it
// was present. An emptied slot is kept as an empty list so the change can be
// mirrored.
func (x *Index) Unassign(date string, slot schema.Slot, recipeID string, profile schema.Profile) bool {
	meals := x.plan[date][slot]
	kept := make([]schema.PlannedMeal, 0, len(meals))
	for _, m := range meals {
		if m.RecipeID == recipeID && m.Profile == profile {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == len(meals) {
		return false
	}
	x.plan[date][slot] = kept
	return true
}

// Meals returns a copy of the slot's meals. Never nil.
func (x *Index) Meals(date string, slot schema.Slot) []schema.PlannedMeal {
	return append([]schema.PlannedMeal{}, x.plan[date][slot]...)
}

// SetMeals replaces a slot wholesale.
func (x *Index) SetMeals(date string, slot schema.Slot, meals []schema.PlannedMeal) {
	day, ok := x.plan[date]
	if !ok {
		day = schema.DayPlan{}
		x.plan[date] = day
	}
	day[slot] = append([]schema.PlannedMeal{}, meals...)
}

// CascadeDeleteRecipe removes every assignment of recipeID across all dates
// and slots and returns the cells that changed, in date then slot order.
func (x *Index) CascadeDeleteRecipe(recipeID string) []SlotKey {
	var changed []SlotKey
	for _, date := range x.plan.Dates() {
		day := x.plan[date]
		for _, slot := range slotsOf(day) {
			meals := day[slot]
			kept := make([]schema.PlannedMeal, 0, len(meals))
			for _, m := range meals {
				if m.RecipeID != recipeID {
					kept = append(kept, m)
				}
			}
			if len(kept) != len(meals) {
				day[slot] = kept
				changed = append(changed, SlotKey{Date: date, Slot: slot})
			}
		}
	}
	return changed
}

// Days returns the planned dates in ascending order.
func (x *Index) Days() []string {
	return x.plan.Dates()
}

// slotsOf returns the slots present in day in display order, followed by any
// unknown slots sorted by name.
func slotsOf(day schema.DayPlan) []schema.Slot {
	slots := make([]schema.Slot, 0, len(day))
	for slot := range day {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i].Index(), slots[j].Index()
		if a < 0 {
			a = len(schema.Slots)
		}
		if b < 0 {
			b = len(schema.Slots)
		}
		if a != b {
			return a < b
		}
		return slots[i] < slots[j]
	})
	return slots
}
