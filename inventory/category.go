package inventory

import (
	"fmt"
	"strings"
)

// =============================================================================
// CATEGORY - Closed set of item categories
// =============================================================================

// Category is the item category of a product. The empty value means the
// product has no recorded category and is reported in the "unknown" bucket.
type Category string

const (
	CategoryEarring  Category = "Earring"
	CategoryRing     Category = "Ring"
	CategoryNecklace Category = "Necklace"
	CategoryBracelet Category = "Bracelet"
	CategoryOther    Category = "Other"
)

// Categories lists every category in receiving order.
var Categories = []Category{
	CategoryEarring,
	CategoryRing,
	CategoryNecklace,
	CategoryBracelet,
	CategoryOther,
}

// CountOrder lists categories in the order a count sheet presents them.
var CountOrder = []Category{
	CategoryBracelet,
	CategoryRing,
	CategoryEarring,
	CategoryNecklace,
	CategoryOther,
}

var categoryCodes = map[Category]string{
	CategoryEarring:  "E",
	CategoryRing:     "R",
	CategoryNecklace: "N",
	CategoryBracelet: "B",
	CategoryOther:    "O",
}

func (c Category) Valid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// Code returns the one-letter item code used on activity sheets.
// Unknown categories report as Other.
func (c Category) Code() string {
	if code, ok := categoryCodes[c]; ok {
		return code
	}
	return categoryCodes[CategoryOther]
}

// Plural is the label used for count keys ("earrings", "other").
func (c Category) Plural() string {
	if c == CategoryOther {
		return "other"
	}
	return strings.ToLower(string(c)) + "s"
}

// ParseCategory accepts a category name, its plural or its one-letter code,
// case-insensitively.
func ParseCategory(s string) (Category, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if in == strings.ToLower(string(c)) || in == c.Plural() || in == strings.ToLower(c.Code()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// =============================================================================
// CATEGORY COUNTS
// =============================================================================

// CategoryCounts maps a category to a quantity. Missing keys mean zero.
type CategoryCounts map[Category]int

// Sum returns the total over all categories.
func (c CategoryCounts) Sum() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Validate rejects unknown categories and negative values.
func (c CategoryCounts) Validate() error {
	for cat, n := range c {
		if !cat.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, cat)
		}
		if n < 0 {
			return fmt.Errorf("%w: %s is %d", ErrInvalidCount, cat.Plural(), n)
		}
	}
	return nil
}

// Add returns a new map holding the per-category sum of c and other.
func (c CategoryCounts) Add(other CategoryCounts) CategoryCounts {
	out := make(CategoryCounts, len(Categories))
	for _, cat := range Categories {
		if n := c[cat] + other[cat]; n != 0 {
			out[cat] = n
		}
	}
	return out
}
