package mapper

import (
	"sort"

	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// Location names. Each must be provisioned in the inventory service.
const (
	LocationFridge   = "Fridge"
	LocationFreezer  = "Freezer"
	LocationPantry   = "Pantry"
	LocationKitchen  = "Kitchen"
	LocationBathroom = "Bathroom"
	LocationLaundry  = "Laundry"
)

// Category is where products of one store category are kept and grouped.
type Category struct {
	Location     string `json:"location"`
	ProductGroup string `json:"productGroup"`
}

// CategoryTable maps a store's closed category set to categories.
type CategoryTable map[string]Category

// foodstuffsCategories is shared by PAK'nSAVE and New World.
var foodstuffsCategories = CategoryTable{
	"Fruit & Vegetables":          {LocationFridge, "Fruit & Vegetables"},
	"Meat & Seafood":              {LocationFridge, "Meat & Seafood"},
	"Chilled, Dairy & Eggs":       {LocationFridge, "Dairy & Eggs"},
	"Bakery":                      {LocationPantry, "Bakery"},
	"Frozen":                      {LocationFreezer, "Frozen"},
	"Pantry":                      {LocationPantry, "Pantry"},
	"Hot & Cold Drinks":           {LocationPantry, "Drinks"},
	"Beer, Cider & Wine":          {LocationPantry, "Alcohol"},
	"Personal Care":               {LocationBathroom, "Personal Care"},
	"Baby & Toddler":              {LocationPantry, "Baby"},
	"Pets":                        {LocationLaundry, "Pets"},
	"Kitchen, Dining & Household": {LocationKitchen, "Household"},
	"Cleaning & Laundry":          {LocationLaundry, "Cleaning"},
}

// Categories is the category table of every store with a client. Countdown
// and Grocer products only appear in metadata written by earlier tools.
var Categories = map[store.Code]CategoryTable{
	store.CodePaknsave: foodstuffsCategories,
	store.CodeNewWorld: foodstuffsCategories,
}

// Lookup returns the category for a store category name.
func (t CategoryTable) Lookup(name string) (Category, bool) {
	c, ok := t[name]
	return c, ok
}

// Locations lists the distinct location names the table refers to, sorted.
func (t CategoryTable) Locations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t {
		if !seen[c.Location] {
			seen[c.Location] = true
			out = append(out, c.Location)
		}
	}
	sort.Strings(out)
	return out
}
