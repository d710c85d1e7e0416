package report

import (
	"context"

	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// COUNT SHEET
// =============================================================================

// CountSheet is the read-only projection of a case's physical counts for a
// date. Current is the latest count on or before the date; Previous is the
// latest count strictly before Current's date.
type CountSheet struct {
	Case     inventory.Case
	Date     inventory.LocalDate
	Current  *inventory.CountSnapshot
	Previous *inventory.CountSnapshot

	CaseCounts    inventory.CategoryCounts
	ReserveCounts inventory.CategoryCounts
	Combined      inventory.CategoryCounts
	DeclaredTotal int

	PreviousTotal int
	PreviousDate  inventory.LocalDate

	Activity DailyTotals

	// Set only when Previous is the day before Current and Current is on
	// Date: Previous total plus the day's net, and the declared total minus
	// that expectation.
	ExpectedTotal *int
	Discrepancy   *int
}

// HasCount reports whether any count exists on or before the date.
func (s CountSheet) HasCount() bool { return s.Current != nil }

// CountSheetView assembles the count sheet of a case for a store-local date.
func (d *Deriver) CountSheetView(ctx context.Context, ref inventory.CaseRef, date inventory.LocalDate) (CountSheet, error) {
	if date.IsZero() {
		return CountSheet{}, inventory.ErrInvalidDate
	}
	c, err := d.src.GetCase(ctx, ref)
	if err != nil {
		return CountSheet{}, err
	}
	sheet := CountSheet{
		Case:          c,
		Date:          date,
		CaseCounts:    inventory.CategoryCounts{},
		ReserveCounts: inventory.CategoryCounts{},
		Combined:      inventory.CategoryCounts{},
	}

	if sheet.Activity, err = d.DailyActivityTotals(ctx, ref, date); err != nil {
		return CountSheet{}, err
	}

	current, ok, err := d.src.LatestCount(ctx, ref, date, false)
	if err != nil || !ok {
		return sheet, err
	}
	sheet.Current = &current
	sheet.CaseCounts = current.CaseCounts
	sheet.ReserveCounts = current.ReserveCounts
	sheet.Combined = current.Combined()
	sheet.DeclaredTotal = current.DeclaredTotal

	previous, ok, err := d.src.LatestCount(ctx, ref, current.LocalDate, true)
	if err != nil || !ok {
		return sheet, err
	}
	sheet.Previous = &previous
	sheet.PreviousTotal = previous.DeclaredTotal
	sheet.PreviousDate = previous.LocalDate

	if current.LocalDate.Equal(date) && previous.LocalDate.Equal(date.AddDays(-1)) {
		expected := previous.DeclaredTotal + sheet.Activity.Net()
		diff := current.DeclaredTotal - expected
		sheet.ExpectedTotal = &expected
		sheet.Discrepancy = &diff
	}
	return sheet, nil
}

// =============================================================================
// COUNT VARIANCE
// =============================================================================

// CategoryVariance compares one category of a count with the ledger.
type CategoryVariance struct {
	Category inventory.Category
	Counted  int
	System   int
}

func (v CategoryVariance) Diff() int { return v.Counted - v.System }

// Variance is a count compared against live ledger totals. Unknown is the
// ledger quantity whose products have no category; it has no counted side.
type Variance struct {
	Case       inventory.CaseRef
	Count      inventory.CountSnapshot
	Categories []CategoryVariance
	Unknown    int
}

// CountedTotal is the sum of the counted column.
func (v Variance) CountedTotal() int {
	n := 0
	for _, c := range v.Categories {
		n += c.Counted
	}
	return n
}

// SystemTotal is the ledger quantity, unknown bucket included.
func (v Variance) SystemTotal() int {
	n := v.Unknown
	for _, c := range v.Categories {
		n += c.System
	}
	return n
}

// CountVariance compares the latest count on or before the date with the
// current combined ledger totals of the case. It reports false when the
// case has no count.
func (d *Deriver) CountVariance(ctx context.Context, ref inventory.CaseRef, date inventory.LocalDate) (Variance, bool, error) {
	if _, err := d.src.GetCase(ctx, ref); err != nil {
		return Variance{}, false, err
	}
	count, ok, err := d.src.LatestCount(ctx, ref, date, false)
	if err != nil || !ok {
		return Variance{}, false, err
	}
	rows, err := d.src.Rows(ctx, inventory.RowFilter{Case: &ref})
	if err != nil {
		return Variance{}, false, err
	}
	system := inventory.GroupByCategory(rows)
	counted := count.Combined()

	v := Variance{Case: ref, Count: count, Unknown: system.Unknown}
	for _, cat := range inventory.CountOrder {
		v.Categories = append(v.Categories, CategoryVariance{
			Category: cat,
			Counted:  counted[cat],
			System:   system.ByCategory[cat],
		})
	}
	return v, true, nil
}
