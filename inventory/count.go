package inventory

import (
	"time"
)

// =============================================================================
// COUNT SNAPSHOT - Human physical count, never derived from the ledger
// =============================================================================

// CountSnapshot is one physical count of a case on a store-local date.
// Several snapshots may exist per case and date; the highest ID wins.
type CountSnapshot struct {
	ID            int64
	Case          CaseRef
	LocalDate     LocalDate
	RecordedAt    time.Time
	Actor         Actor
	CaseCounts    CategoryCounts
	ReserveCounts CategoryCounts
	DeclaredTotal int
	Notes         string
}

// Combined returns case and reserve counts summed per category.
func (c CountSnapshot) Combined() CategoryCounts {
	return c.CaseCounts.Add(c.ReserveCounts)
}

// CountedTotal is the sum of every category in both sub-locations.
func (c CountSnapshot) CountedTotal() int {
	return c.CaseCounts.Sum() + c.ReserveCounts.Sum()
}

// CountInput is what a counter submits. A nil DeclaredTotal means the sum
// of the counts.
type CountInput struct {
	Case          CaseRef
	LocalDate     LocalDate
	CaseCounts    CategoryCounts
	ReserveCounts CategoryCounts
	DeclaredTotal *int
	Notes         string
}

func (in CountInput) validate() error {
	if in.LocalDate.IsZero() {
		return ErrInvalidDate
	}
	if err := in.CaseCounts.Validate(); err != nil {
		return err
	}
	if err := in.ReserveCounts.Validate(); err != nil {
		return err
	}
	if in.DeclaredTotal != nil && *in.DeclaredTotal < 0 {
		return ErrInvalidCount
	}
	return nil
}

// CountFilter selects snapshots, newest first. Dates are inclusive.
type CountFilter struct {
	Location LocationID
	Case     *CaseRef
	From     LocalDate
	To       LocalDate
	Limit    int
}

// Matches applies the filter to a single snapshot.
func (f CountFilter) Matches(c CountSnapshot) bool {
	if f.Location != 0 && c.Case.Location != f.Location {
		return false
	}
	if f.Case != nil && c.Case != *f.Case {
		return false
	}
	if !f.From.IsZero() && c.LocalDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.LocalDate.After(f.To) {
		return false
	}
	return true
}
