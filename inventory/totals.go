package inventory

// Totals is the quantity and distinct-product count of a set of rows.
type Totals struct {
	Quantity     int
	DistinctUPCs int
}

// CategoryTotals groups quantity by category. Rows whose product has no
// recorded category land in Unknown.
type CategoryTotals struct {
	ByCategory CategoryCounts
	Unknown    int
}

// Total returns the quantity over every category and the unknown bucket.
func (c CategoryTotals) Total() int {
	return c.ByCategory.Sum() + c.Unknown
}

// SumRows computes totals for rows. A UPC held in both sub-locations counts
// once toward DistinctUPCs.
func SumRows(rows []InventoryRow) Totals {
	var t Totals
	seen := make(map[UPC]struct{}, len(rows))
	for _, r := range rows {
		if r.Qty <= 0 {
			continue
		}
		t.Quantity += r.Qty
		if _, ok := seen[r.Key.UPC]; !ok {
			seen[r.Key.UPC] = struct{}{}
			t.DistinctUPCs++
		}
	}
	return t
}

// GroupByCategory computes per-category totals for rows.
func GroupByCategory(rows []InventoryRow) CategoryTotals {
	out := CategoryTotals{ByCategory: make(CategoryCounts, len(Categories))}
	for _, r := range rows {
		if r.Qty <= 0 {
			continue
		}
		if r.Category.Valid() {
			out.ByCategory[r.Category] += r.Qty
		} else {
			out.Unknown += r.Qty
		}
	}
	return out
}

// caseFilter scopes a row listing to one case and an optional sub-location.
// A nil sub means the combined view over both sub-locations.
func caseFilter(ref CaseRef, sub *SubLocation) RowFilter {
	f := RowFilter{Case: &ref}
	if sub != nil {
		f.Sub = *sub
	}
	return f
}
