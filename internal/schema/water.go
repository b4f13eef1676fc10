package schema

// WaterIntake maps a date key to the per-profile amount drunk that day.
type WaterIntake map[string]map[Profile]int

// Clone returns a deep copy of w. A nil value clones to an empty one.
func (w WaterIntake) Clone() WaterIntake {
	out := make(WaterIntake, len(w))
	for date, amounts := range w {
		a := make(map[Profile]int, len(amounts))
		for p, v := range amounts {
			a[p] = v
		}
		out[date] = a
	}
	return out
}

// Amount returns the recorded amount, zero when absent.
func (w WaterIntake) Amount(date string, profile Profile) int {
	return w[date][profile]
}

// Adjust adds delta to the amount for date/profile, clamping at zero, and
// returns the new amount. w must be non-nil.
func (w WaterIntake) Adjust(date string, profile Profile, delta int) int {
	amounts, ok := w[date]
	if !ok {
		amounts = make(map[Profile]int)
		w[date] = amounts
	}
	next := amounts[profile] + delta
	if next < 0 {
		next = 0
	}
	amounts[profile] = next
	return next
}

// Snapshot is one consistent view of all three persisted collections.
type Snapshot struct {
	Recipes []Recipe    `json:"recipes" yaml:"recipes"`
	Plan    MealPlan    `json:"mealplan" yaml:"mealplan"`
	Water   WaterIntake `json:"water_intake" yaml:"water_intake"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	recipes := make([]Recipe, len(s.Recipes))
	for i, r := range s.Recipes {
		recipes[i] = r.Clone()
	}
	return Snapshot{
		Recipes: recipes,
		Plan:    s.Plan.Clone(),
		Water:   s.Water.Clone(),
	}
}
