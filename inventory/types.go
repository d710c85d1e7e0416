/*
types.go - Core identifiers and value types for the case ledger

PURPOSE:
  Defines the vocabulary shared by every other package: locations, cases,
  sub-locations, inventory rows and the totals derived from them.

KEY CONCEPTS:
  Location:    A store. Never hard-deleted, only deactivated.
  Case:        A container scoped to exactly one location. The same case
               code may exist at several locations as distinct cases.
  Virtual:     System-managed cases created per location (NEW-RECEIPTS,
               RETURNS). They behave like any other case for the ledger.
  SubLocation: CASE or RESERVE, a second dimension inside a case.
  RowKey:      (case, location, upc, sub-location). Absence means zero.

SEE ALSO:
  - category.go: Closed item category enum
  - ledger.go:   Operations that mutate rows
  - totals.go:   Totals derived from rows
*/
package inventory

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LocationID int64

type CaseCode string

// UPC is the global product identity. It is not scoped to a location.
type UPC string

// NormalizeUPC trims surrounding whitespace and rejects empty codes.
func NormalizeUPC(s string) (UPC, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidUPC
	}
	return UPC(s), nil
}

// NormalizeCaseCode trims and upper-cases a case code.
func NormalizeCaseCode(s string) (CaseCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", ErrInvalidCaseCode
	}
	return CaseCode(s), nil
}

// Actor is the resolved identity performing an operation. It is always
// supplied by the caller; the ledger never looks up a "current user".
type Actor struct {
	ID   string
	Name string
}

func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrMissingActor
	}
	return nil
}

// =============================================================================
// LOCATIONS AND CASES
// =============================================================================

const (
	CodeNewReceipts CaseCode = "NEW-RECEIPTS"
	CodeReturns     CaseCode = "RETURNS"

	NameNewReceipts = "New Receipts"
	NameReturns     = "Returns"
)

// IsReservedCode reports whether the code belongs to a virtual case.
func IsReservedCode(code CaseCode) bool {
	return code == CodeNewReceipts || code == CodeReturns
}

type Location struct {
	ID        LocationID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// CaseRef is the composite identity of a case.
type CaseRef struct {
	Location LocationID
	Code     CaseCode
}

func (r CaseRef) IsZero() bool { return r.Location == 0 && r.Code == "" }

func (r CaseRef) String() string {
	return fmt.Sprintf("%s@%d", r.Code, r.Location)
}

// NewReceipts returns the intake case of a location.
func NewReceipts(loc LocationID) CaseRef { return CaseRef{Location: loc, Code: CodeNewReceipts} }

// Returns returns the returns case of a location.
func Returns(loc LocationID) CaseRef { return CaseRef{Location: loc, Code: CodeReturns} }

type Case struct {
	Ref       CaseRef
	Name      string
	Virtual   bool
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// SUB-LOCATIONS
// =============================================================================

type SubLocation string

const (
	SubCase    SubLocation = "CASE"
	SubReserve SubLocation = "RESERVE"
)

var SubLocations = []SubLocation{SubCase, SubReserve}

func (s SubLocation) Valid() bool { return s == SubCase || s == SubReserve }

// ParseSubLocation accepts either sub-location name, case-insensitively.
// An empty string defaults to CASE.
func ParseSubLocation(s string) (SubLocation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(SubCase):
		return SubCase, nil
	case string(SubReserve):
		return SubReserve, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSubLocation, s)
}

// orCase defaults an unset sub-location to CASE.
func (s SubLocation) orCase() SubLocation {
	if s == "" {
		return SubCase
	}
	return s
}

// =============================================================================
// INVENTORY ROWS
// =============================================================================

type RowKey struct {
	Case CaseRef
	UPC  UPC
	Sub  SubLocation
}

func (k RowKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Case, k.UPC, k.Sub)
}

// InventoryRow is one stored quantity. Stores never return rows with Qty 0.
// Category and Description are joined from the catalog for reporting.
type InventoryRow struct {
	Key         RowKey
	Qty         int
	Category    Category
	Description string
}

// RowFilter narrows a row listing. Zero fields are ignored.
type RowFilter struct {
	Location LocationID
	Case     *CaseRef
	Sub      SubLocation
	UPC      UPC
}

// Matches reports whether a row falls inside the filter.
func (f RowFilter) Matches(k RowKey) bool {
	if f.Location != 0 && k.Case.Location != f.Location {
		return false
	}
	if f.Case != nil && k.Case != *f.Case {
		return false
	}
	if f.Sub != "" && k.Sub != f.Sub {
		return false
	}
	if f.UPC != "" && k.UPC != f.UPC {
		return false
	}
	return true
}
