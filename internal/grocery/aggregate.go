// Package grocery derives the store-grouped shopping list from the recipe
// catalog and the meal plan over a rolling window of days.
//
// Build is pure: the same inputs always produce the same list, and nothing
// passed in is modified. The only session state is the CheckedSet, which the
// caller owns.
package grocery

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/haven-app/haven/internal/schema"
)

// DefaultWindow is the number of days covered when none is requested.
const DefaultWindow = 7

// SupportedWindows lists the accepted window sizes in days.
var SupportedWindows = []int{3, 7, 14}

// ErrUnsupportedWindow is returned for window sizes outside SupportedWindows.
var ErrUnsupportedWindow = errors.New("unsupported grocery window")

// ValidateWindow reports whether days is a supported window size.
func ValidateWindow(days int) error {
	for _, w := range SupportedWindows {
		if w == days {
			return nil
		}
	}
	return fmt.Errorf("%w: %d days (want one of %v)", ErrUnsupportedWindow, days, SupportedWindows)
}

// Item is one aggregated line of the list.
type Item struct {
	Key      string  `json:"key"`
	Item     string  `json:"item"`
	Unit     string  `json:"unit"`
	Store    string  `json:"store"`
	Quantity float64 `json:"quantity"`
	Checked  bool    `json:"checked"`
}

// Group holds the items bought at one store.
type Group struct {
	Store string `json:"store"`
	Items []Item `json:"items"`
}

// List is the result of Build.
type List struct {
	Days   []string `json:"days"`
	Groups []Group  `json:"groups"`
	Total  int      `json:"total"`
}

// Key builds the aggregation key for an ingredient: lower-cased item, unit
// and store joined with '|'. Ingredients without a store use DefaultStore.
func Key(ing schema.Ingredient) string {
	return strings.ToLower(strings.TrimSpace(ing.Item)) + "|" +
		strings.ToLower(strings.TrimSpace(ing.Unit)) + "|" +
		strings.ToLower(strings.TrimSpace(ing.Store()))
}

// WindowDates returns the date keys of [today, today+days-1] in today's
// location.
func WindowDates(today time.Time, days int) []string {
	y, m, d := today.Date()
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, schema.DateKey(time.Date(y, m, d+i, 0, 0, 0, 0, today.Location())))
	}
	return dates
}

// Build aggregates the ingredients of every meal planned in the window
// starting today. Meals referencing unknown recipes are skipped. Items with
// the same key are summed; the first-seen casing of item, unit and store is
// kept. checked may be nil.
func Build(recipes []schema.Recipe, plan schema.MealPlan, days int, today time.Time, checked *CheckedSet) (List, error) {
	if err := ValidateWindow(days); err != nil {
		return List{}, err
	}

	byID := schema.RecipesByID(recipes)
	dates := WindowDates(today, days)

	entries := make(map[string]*Item)
	var order []string
	for _, date := range dates {
		day := plan[date]
		for _, slot := range schema.Slots {
			for _, meal := range day[slot] {
				r, ok := byID[meal.RecipeID]
				if !ok {
					continue
				}
				for _, ing := range r.Ingredients {
					key := Key(ing)
					if e, ok := entries[key]; ok {
						e.Quantity += ing.Quantity
						continue
					}
					entries[key] = &Item{
						Key:      key,
						Item:     strings.TrimSpace(ing.Item),
						Unit:     strings.TrimSpace(ing.Unit),
						Store:    strings.TrimSpace(ing.Store()),
						Quantity: ing.Quantity,
					}
					order = append(order, key)
				}
			}
		}
	}

	groups := make(map[string]*Group)
	var storeKeys []string
	for _, key := range order {
		e := entries[key]
		e.Checked = checked.Has(key)

		sk := strings.ToLower(e.Store)
		g, ok := groups[sk]
		if !ok {
			g = &Group{Store: e.Store}
			groups[sk] = g
			storeKeys = append(storeKeys, sk)
		}
		g.Items = append(g.Items, *e)
	}
	sort.Strings(storeKeys)

	list := List{Days: dates, Groups: make([]Group, 0, len(groups))}
	for _, sk := range storeKeys {
		g := groups[sk]
		sort.SliceStable(g.Items, func(i, j int) bool {
			a, b := strings.ToLower(g.Items[i].Item), strings.ToLower(g.Items[j].Item)
			if a != b {
				return a < b
			}
			return g.Items[i].Key < g.Items[j].Key
		})
		list.Groups = append(list.Groups, *g)
		list.Total += len(g.Items)
	}
	return list, nil
}

// FormatQuantity renders whole numbers without decimals and everything else
// with two.
func FormatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return strconv.FormatInt(int64(q), 10)
	}
	return strconv.FormatFloat(q, 'f', 2, 64)
}
