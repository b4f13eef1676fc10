package mealplan

import (
	"github.com/haven-app/haven/internal/schema"
)

var targets = map[schema.Profile]schema.Macros{
	schema.ProfileV: {Calories: 2200, Protein: 75, Carbs: 300, Fat: 50, Fiber: 25},
	schema.ProfileM: {Calories: 2600, Protein: 100, Carbs: 300, Fat: 60, Fiber: 34},
}

// Targets returns the daily macro targets for profile.
func Targets(profile schema.Profile) schema.Macros {
	return targets[profile]
}

// Over lists the macro names in m that exceed target, in a fixed order.
func Over(m, target schema.Macros) []string {
	var over []string
	check := func(name string, v, limit float64) {
		if limit > 0 && v > limit {
			over = append(over, name)
		}
	}
	check("calories", m.Calories, target.Calories)
	check("protein", m.Protein, target.Protein)
	check("carbs", m.Carbs, target.Carbs)
	check("fat", m.Fat, target.Fat)
	check("fiber", m.Fiber, target.Fiber)
	return over
}

// DailyMacros totals the macros planned for each profile on date. Meals
// whose recipe no longer exists are skipped. Both profiles are always present.
func DailyMacros(plan schema.MealPlan, date string, recipes map[string]schema.Recipe) map[schema.Profile]schema.Macros {
	totals := make(map[schema.Profile]schema.Macros, len(schema.Profiles))
	for _, p := range schema.Profiles {
		totals[p] = schema.Macros{}
	}

	for _, meals := range plan[date] {
		for _, m := range meals {
			r, ok := recipes[m.RecipeID]
			if !ok {
				continue
			}
			totals[m.Profile] = totals[m.Profile].Add(r.Macros)
		}
	}
	return totals
}

// PrepTask is a prep step together with the recipe it belongs to.
type PrepTask struct {
	RecipeID   string
	RecipeName string
	schema.PrepTask
}

// PrepTasksFor lists the prep tasks of every distinct recipe planned on
// date, in slot order. Each recipe contributes its tasks once even when it is
// planned for both profiles or several slots.
func PrepTasksFor(plan schema.MealPlan, date string, recipes map[string]schema.Recipe) []PrepTask {
	day := plan[date]
	seen := make(map[string]bool)
	var tasks []PrepTask
	for _, slot := range slotsOf(day) {
		for _, m := range day[slot] {
			if seen[m.RecipeID] {
				continue
			}
			seen[m.RecipeID] = true

			r, ok := recipes[m.RecipeID]
			if !ok {
				continue
			}
			for _, t := range r.PrepTasks {
				tasks = append(tasks, PrepTask{RecipeID: r.ID, RecipeName: r.Name, PrepTask: t})
			}
		}
	}
	return tasks
}
