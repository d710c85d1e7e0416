/*
store.go - Persistence interfaces for the case ledger

PURPOSE:
  Defines the boundary between ledger logic and the database. The ledger
  never writes outside a transaction; every write method lives on Tx,
  which is only reachable through Store.WithTx.

KEY INTERFACES:
  Reader: Registry, catalog and row reads (usable inside and outside a tx)
  Tx:     Reader plus writes; obtained through Store.WithTx
  Store:  Reader plus audit/count queries and WithTx

ROW WRITES:
  AddQuantity and SubtractQuantity apply deltas, never overwrites.
  SubtractQuantity must check and decrement under the same lock scope
  (conditional update) and delete the row when it reaches zero.

IMPLEMENTATIONS:
  - store/sqlite:            SQLite via sqlx, migrations via golang-migrate
  - inventory/store/memory:  In-memory, snapshot + rollback transactions

SEE ALSO:
  - ledger.go:  Uses Store
  - session.go: Uses Tx
*/
package inventory

import (
	"context"
	"time"
)

// =============================================================================
// READER - Reads available inside and outside transactions
// =============================================================================

type Reader interface {
	// GetLocation returns ErrUnknownLocation when absent.
	GetLocation(ctx context.Context, id LocationID) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)

	// GetCase returns an *UnknownCaseError when absent.
	GetCase(ctx context.Context, ref CaseRef) (Case, error)
	ListCases(ctx context.Context, loc LocationID) ([]Case, error)

	// GetProduct reports false when the UPC is not in the catalog.
	GetProduct(ctx context.Context, upc UPC) (Product, bool, error)

	// Quantity returns 0 for absent rows.
	Quantity(ctx context.Context, key RowKey) (int, error)

	// Rows lists non-zero rows joined with catalog fields.
	Rows(ctx context.Context, filter RowFilter) ([]InventoryRow, error)
}

// =============================================================================
// TX - Writes, only inside Store.WithTx
// =============================================================================

type Tx interface {
	Reader

	InsertLocation(ctx context.Context, name string, at time.Time) (Location, error)
	SetLocationActive(ctx context.Context, id LocationID, active bool) error

	// InsertCase returns ErrDuplicateCase when the code exists at the location.
	InsertCase(ctx context.Context, c Case) error
	UpdateCase(ctx context.Context, c Case) error

	// PutProduct inserts or replaces the catalog entry.
	PutProduct(ctx context.Context, p Product) error

	// AddQuantity upserts the row, adding qty. Returns ErrQuantityOverflow
	// when the sum does not fit in an int.
	AddQuantity(ctx context.Context, key RowKey, qty int) error

	// SubtractQuantity decrements the row and returns the remaining quantity.
	// Returns *InsufficientQuantityError without mutating when short.
	SubtractQuantity(ctx context.Context, key RowKey, qty int) (int, error)

	// AppendEvent inserts the event and assigns its ID.
	AppendEvent(ctx context.Context, e *HistoryEvent) error

	// InsertCount inserts the snapshot and assigns its ID.
	InsertCount(ctx context.Context, c *CountSnapshot) error
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	Reader

	// QueryEvents returns matching events newest-first, bounded by
	// MaxHistoryPage.
	QueryEvents(ctx context.Context, filter HistoryFilter) ([]HistoryEvent, error)

	// CaseEvents returns every event touching the case with TS in
	// [from, to), oldest-first by ID.
	CaseEvents(ctx context.Context, ref CaseRef, from, to time.Time) ([]HistoryEvent, error)

	// LatestCount returns the highest-ID snapshot for the case with
	// LocalDate <= on (or < on when strict). Reports false when none.
	LatestCount(ctx context.Context, ref CaseRef, on LocalDate, strict bool) (CountSnapshot, bool, error)

	// ListCounts returns matching snapshots, newest first.
	ListCounts(ctx context.Context, filter CountFilter) ([]CountSnapshot, error)

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
