// Package ledger implements the append-only request store. Requests are kept
// as one JSON file each under a directory per category.
package ledger

import "fmt"

// Category is the outcome of classifying a submitted message.
type Category string

// The closed set of categories. The string values double as partition
// directory names on disk.
const (
	CategoryPersonal  Category = "personal"
	CategoryOffers    Category = "offers"
	CategoryGibberish Category = "gibberish"
)

// Categories lists every category in its canonical order.
var Categories = []Category{CategoryGibberish, CategoryOffers, CategoryPersonal}

// Valid reports whether c belongs to the fixed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryOffers, CategoryGibberish:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory converts s into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
