package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haven-app/haven/internal/grocery"
	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/status"
)

// StatusIcon is the marker shown next to a sync state.
func StatusIcon(s status.State) string {
	switch s {
	case status.StateSynced:
		return RenderPass("✓")
	case status.StateSyncing:
		return RenderAccent("↻")
	case status.StateError:
		return RenderFail("✗")
	case status.StateLocalOnly:
		return RenderWarn("●")
	default:
		return RenderMuted("○")
	}
}

// RenderStatus formats a sync status line.
func RenderStatus(s status.Snapshot) string {
	line := fmt.Sprintf("%s %s", StatusIcon(s.State), s.State)
	if s.Err != "" {
		line += " " + RenderFail(s.Err)
	}
	if !s.Since.IsZero() {
		line += " " + RenderMuted("since "+s.Since.Format("15:04:05"))
	}
	return line
}

// RenderGrocery formats a list grouped by store.
func RenderGrocery(list grocery.List) string {
	var b strings.Builder
	if len(list.Days) > 0 {
		fmt.Fprintf(&b, "%s %s → %s (%d days)\n", RenderAccent("🛒"),
			list.Days[0], list.Days[len(list.Days)-1], len(list.Days))
	}
	if list.Total == 0 {
		b.WriteString(RenderMuted("   Nothing to buy.\n"))
		return b.String()
	}

	for _, g := range list.Groups {
		fmt.Fprintf(&b, "\n%s\n", RenderHeader(g.Store))
		for _, it := range g.Items {
			box := "[ ]"
			name := it.Item
			if it.Checked {
				box = RenderPass("[x]")
				name = RenderMuted(name)
			}
			qty := strings.TrimSpace(grocery.FormatQuantity(it.Quantity) + " " + it.Unit)
			fmt.Fprintf(&b, "  %s %s %s\n", box, name, RenderMuted("("+qty+")"))
		}
	}
	fmt.Fprintf(&b, "\n%d items\n", list.Total)
	return b.String()
}

// RenderDay formats one day of the plan with per-profile macro totals.
func RenderDay(date string, plan schema.MealPlan, recipes map[string]schema.Recipe, water map[schema.Profile]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", RenderAccent("📅"), date)

	day := plan[date]
	for _, slot := range schema.Slots {
		meals := day[slot]
		if len(meals) == 0 {
			continue
		}
		names := make([]string, 0, len(meals))
		for _, m := range meals {
			name := m.RecipeID
			if r, ok := recipes[m.RecipeID]; ok {
				name = r.Name
			}
			names = append(names, fmt.Sprintf("%s (%s)", name, m.Profile))
		}
		fmt.Fprintf(&b, "  %-18s %s\n", slot, strings.Join(names, ", "))
	}

	totals := mealplan.DailyMacros(plan, date, recipes)
	for _, p := range schema.Profiles {
		m := totals[p]
		line := fmt.Sprintf("  %s: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat, %.0fg fiber, %d water",
			p, m.Calories, m.Protein, m.Carbs, m.Fat, m.Fiber, water[p])
		if over := mealplan.Over(m, mealplan.Targets(p)); len(over) > 0 {
			line += " " + RenderWarn("over: "+strings.Join(over, ", "))
		}
		b.WriteString(line + "\n")
	}

	if tasks := mealplan.PrepTasksFor(plan, date, recipes); len(tasks) > 0 {
		b.WriteString(RenderMuted("  prep:") + "\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "    - %s: %s (%s)\n", t.RecipeName, t.Task, t.Duration)
		}
	}
	return b.String()
}

// RenderRecipes formats a compact recipe table.
func RenderRecipes(recipes []schema.Recipe) string {
	if len(recipes) == 0 {
		return RenderMuted("No recipes.") + "\n"
	}
	idWidth := 0
	for _, r := range recipes {
		idWidth = max(idWidth, lipgloss.Width(r.ID))
	}
	idStyle := lipgloss.NewStyle().Width(idWidth)

	var b strings.Builder
	for _, r := range recipes {
		marker := RenderMuted("local")
		if r.Provenance == schema.ProvenanceCloud {
			marker = RenderAccent("cloud")
		}
		fmt.Fprintf(&b, "%s  %-6s %s %s\n", idStyle.Render(r.ID), r.Difficulty, r.Name, marker)
	}
	return b.String()
}
