package inventory

import (
	"strings"
	"time"
)

// Product is catalog identity for a UPC.
type Product struct {
	UPC         UPC
	Description string
	Category    Category
	CreatedAt   time.Time
}

// Merge applies the first-write-wins rule field by field: a field is set
// from in only when it is currently unset. Invalid categories in the input
// are ignored. The second result reports whether anything changed.
func (p Product) Merge(in Product) (Product, bool) {
	changed := false
	if p.Description == "" {
		if d := strings.TrimSpace(in.Description); d != "" {
			p.Description = d
			changed = true
		}
	}
	if p.Category == "" && in.Category.Valid() {
		p.Category = in.Category
		changed = true
	}
	return p, changed
}
