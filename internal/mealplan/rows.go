package mealplan

import (
	"github.com/haven-app/haven/internal/schema"
)

// Row is one flattened (date, slot) cell.
type Row struct {
	Key   SlotKey
	Meals []schema.PlannedMeal
}

// Rows flattens plan into cells ordered by date then slot.
func Rows(plan schema.MealPlan) []Row {
	var rows []Row
	for _, date := range plan.Dates() {
		day := plan[date]
		for _, slot := range slotsOf(day) {
			rows = append(rows, Row{
				Key:   SlotKey{Date: date, Slot: slot},
				Meals: append([]schema.PlannedMeal{}, day[slot]...),
			})
		}
	}
	return rows
}

// FromRows rebuilds a plan from cells. Later rows for the same cell win.
func FromRows(rows []Row) schema.MealPlan {
	plan := schema.MealPlan{}
	for _, r := range rows {
		day, ok := plan[r.Key.Date]
		if !ok {
			day = schema.DayPlan{}
			plan[r.Key.Date] = day
		}
		day[r.Key.Slot] = append([]schema.PlannedMeal{}, r.Meals...)
	}
	return plan
}
