package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for every date key.
const DateLayout = "2006-01-02"

// DateKey formats t as a date key in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO date key in the local calendar.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Slot is a time-of-day bucket in the meal plan.
type Slot string

const (
	SlotPreBreakfast Slot = "Pre-Breakfast"
	SlotBreakfast    Slot = "Breakfast"
	SlotLunch        Slot = "Lunch"
	SlotSnacks       Slot = "Snacks"
	SlotDinner       Slot = "Dinner"
	SlotPostDinner   Slot = "Post-Dinner"
)

// Slots lists every slot in display order.
var Slots = []Slot{
	SlotPreBreakfast,
	SlotBreakfast,
	SlotLunch,
	SlotSnacks,
	SlotDinner,
	SlotPostDinner,
}

// Valid reports whether s is one of the fixed slots.
func (s Slot) Valid() bool {
	return s.Index() >= 0
}

// Index returns the display position of s, or -1 if unknown.
func (s Slot) Index() int {
	for i, slot := range Slots {
		if slot == s {
			return i
		}
	}
	return -1
}

// ParseSlot matches s against the known slots, ignoring case, spaces and
// dashes ("post dinner", "postdinner" and "Post-Dinner" are equivalent).
func ParseSlot(s string) (Slot, error) {
	norm := func(v string) string {
		v = strings.ToLower(v)
		v = strings.ReplaceAll(v, "-", "")
		return strings.ReplaceAll(v, " ", "")
	}
	want := norm(s)
	for _, slot := range Slots {
		if norm(string(slot)) == want {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

// Profile tags the household member a meal is planned for.
type Profile string

const (
	ProfileV Profile = "V"
	ProfileM Profile = "M"
)

// Profiles lists both household profiles.
var Profiles = []Profile{ProfileV, ProfileM}

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	return p == ProfileV || p == ProfileM
}

// ParseProfile accepts "v"/"V"/"m"/"M".
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown profile %q (want V or M)", s)
	}
	return p, nil
}

// PlannedMeal assigns a recipe to a profile. RecipeID may dangle if the
// recipe was deleted; readers skip such entries.
type PlannedMeal struct {
	RecipeID string  `json:"recipeId" yaml:"recipe_id"`
	Profile  Profile `json:"profile" yaml:"profile"`
}

// DayPlan maps each slot of one day to its planned meals.
type DayPlan map[Slot][]PlannedMeal

// MealPlan maps a date key to that day's plan.
type MealPlan map[string]DayPlan

// Clone returns a deep copy of p. A nil plan clones to an empty one.
func (p MealPlan) Clone() MealPlan {
	out := make(MealPlan, len(p))
	for date, day := range p {
		d := make(DayPlan, len(day))
		for slot, meals := range day {
			d[slot] = append([]PlannedMeal{}, meals...)
		}
		out[date] = d
	}
	return out
}

// Dates returns the plan's date keys in ascending order.
func (p MealPlan) Dates() []string {
	dates := make([]string, 0, len(p))
	for date := range p {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
