package sqlite_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var clerk = inventory.Actor{ID: "u-1", Name: "Dana Smith"}

func newTestLedger(t *testing.T) (*inventory.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock, err := inventory.NewStoreClock(inventory.DefaultStoreZone)
	require.NoError(t, err)
	now := time.Date(2025, time.March, 10, 17, 30, 0, 0, time.UTC)
	clock = clock.WithNow(func() time.Time { return now })

	return inventory.NewLedger(store, inventory.WithClock(clock)), store
}

func setupCase(t *testing.T, l *inventory.Ledger, code string) (inventory.Location, inventory.CaseRef) {
	ctx := context.Background()
	loc, err := l.CreateLocation(ctx, clerk, "Mesa")
	require.NoError(t, err)
	c, err := l.CreateCase(ctx, clerk, loc.ID, code, "Case "+code)
	require.NoError(t, err)
	return loc, c.Ref
}

func receive(t *testing.T, l *inventory.Ledger, loc inventory.LocationID, upc string, qty int) {
	_, err := l.Receive(context.Background(), clerk, inventory.ReceiveRequest{
		Location: loc,
		Lines:    []inventory.Line{{UPC: inventory.UPC(upc), Qty: qty}},
		Category: inventory.CategoryRing,
	})
	require.NoError(t, err)
}

// =============================================================================
// MIGRATIONS
// =============================================================================

func TestNew_ReopenFileDatabase_MigrationsIdempotent(t *testing.T) {
	// GIVEN: A database file that has already been migrated
	path := t.TempDir() + "/ledger.db"
	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// WHEN: Opening it again
	store, err = sqlite.New(path)

	// THEN: No migration error, store usable
	require.NoError(t, err)
	defer store.Close()
	locs, err := store.ListLocations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestNew_PathWithQuery_ParamsAppended(t *testing.T) {
	// GIVEN: A file URI that already carries a query string
	path := "file:" + t.TempDir() + "/ledger.db?cache=shared"

	// WHEN: Opening it
	store, err := sqlite.New(path)

	// THEN: The connection parameters are joined onto the existing query
	require.NoError(t, err)
	defer store.Close()
	var mode string
	require.NoError(t, store.DB().Get(&mode, `PRAGMA journal_mode`))
	assert.Equal(t, "wal", mode)
	var fk int
	require.NoError(t, store.DB().Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}

// =============================================================================
// LEDGER ROUND TRIP
// =============================================================================

func TestSQLite_ReceiveMoveSell_RowsAndHistory(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, c1 := setupCase(t, l, "1")

	// GIVEN: 5 rings received and 3 moved into case 1
	receive(t, l, loc.ID, "A", 5)
	_, err := l.Move(ctx, clerk, inventory.MoveRequest{
		From: inventory.NewReceipts(loc.ID), To: c1,
		Lines: []inventory.Line{{UPC: "A", Qty: 3}},
	})
	require.NoError(t, err)

	// WHEN: Selling all 3 from case 1
	_, err = l.Sell(ctx, clerk, inventory.SellRequest{
		From:  c1,
		Lines: []inventory.Line{{UPC: "A", Qty: 3}},
		Sale: inventory.SaleDetails{
			TransReg: "T-100", DeptNo: "12", BriefDesc: "ring",
			TicketPrice: decimal.RequireFromString("1299.99"), DiamondTest: inventory.DiamondYes,
		},
	})
	require.NoError(t, err)

	// THEN: Case 1 row is deleted, not stored as zero
	qty, err := store.Quantity(ctx, inventory.RowKey{Case: c1, UPC: "A", Sub: inventory.SubCase})
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
	rows, err := store.Rows(ctx, inventory.RowFilter{Case: &c1})
	require.NoError(t, err)
	assert.Empty(t, rows)

	// AND: New Receipts keeps 2 with catalog fields joined
	nr := inventory.NewReceipts(loc.ID)
	rows, err = store.Rows(ctx, inventory.RowFilter{Case: &nr})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Qty)
	assert.Equal(t, inventory.CategoryRing, rows[0].Category)

	// AND: History is newest first with sale fields preserved
	events, err := store.QueryEvents(ctx, inventory.HistoryFilter{Case: &c1})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, inventory.ActionSold, events[0].Action)
	assert.Equal(t, inventory.ActionMove, events[1].Action)
	assert.Equal(t, inventory.ActionCaseCreate, events[2].Action)
	require.NotNil(t, events[0].Sale)
	assert.True(t, events[0].Sale.TicketPrice.Equal(decimal.RequireFromString("1299.99")))
	assert.Equal(t, inventory.DiamondYes, events[0].Sale.DiamondTest)
	assert.Equal(t, "Dana Smith", events[0].Actor.Name)
	assert.Nil(t, events[1].Sale)
}

func TestSQLite_BatchShortfall_NothingCommitted(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, c1 := setupCase(t, l, "1")
	receive(t, l, loc.ID, "A", 5)
	receive(t, l, loc.ID, "B", 1)
	before, err := store.QueryEvents(ctx, inventory.HistoryFilter{})
	require.NoError(t, err)

	// WHEN: Moving A x2 and B x3 (B is short)
	_, err = l.Move(ctx, clerk, inventory.MoveRequest{
		From: inventory.NewReceipts(loc.ID), To: c1,
		Lines: []inventory.Line{{UPC: "A", Qty: 2}, {UPC: "B", Qty: 3}},
	})

	// THEN: One shortfall reported, no row and no event changed
	var batch *inventory.BatchError
	require.True(t, errors.As(err, &batch))
	require.Len(t, batch.Shortfalls, 1)
	assert.Equal(t, inventory.UPC("B"), batch.Shortfalls[0].UPC)
	assert.Equal(t, 1, batch.Shortfalls[0].Have)

	qty, err := store.Quantity(ctx, inventory.RowKey{Case: inventory.NewReceipts(loc.ID), UPC: "A", Sub: inventory.SubCase})
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
	after, err := store.QueryEvents(ctx, inventory.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestSQLite_DuplicateCase_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)
	loc, _ := setupCase(t, l, "7")

	_, err := l.CreateCase(context.Background(), clerk, loc.ID, "7", "Again")

	assert.ErrorIs(t, err, inventory.ErrDuplicateCase)
}

func TestSQLite_SameCodeAtTwoLocations_Distinct(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	locA, _ := setupCase(t, l, "1")
	locB, err := l.CreateLocation(ctx, clerk, "Tempe")
	require.NoError(t, err)
	_, err = l.CreateCase(ctx, clerk, locB.ID, "1", "Case 1")
	require.NoError(t, err)

	cases, err := store.ListCases(ctx, locB.ID)
	require.NoError(t, err)
	assert.Len(t, cases, 3)
	assert.NotEqual(t, locA.ID, locB.ID)
}

// =============================================================================
// AUDIT LOG CONSTRAINTS
// =============================================================================

func TestSQLite_History_AppendOnly(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, _ := setupCase(t, l, "1")
	receive(t, l, loc.ID, "A", 1)

	_, err := store.DB().ExecContext(ctx, `UPDATE history SET qty = 99`)
	assert.Error(t, err, "history rows must not be updatable")

	_, err = store.DB().ExecContext(ctx, `DELETE FROM history`)
	assert.Error(t, err, "history rows must not be deletable")
}

func TestSQLite_Inventory_RejectsNonPositiveRows(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, _ := setupCase(t, l, "1")
	receive(t, l, loc.ID, "A", 1)

	_, err := store.DB().ExecContext(ctx, `UPDATE inventory SET qty = 0`)

	assert.Error(t, err)
}

func TestSQLite_Receive_OverflowRejected_RowReadable(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, _ := setupCase(t, l, "1")
	receipts := inventory.NewReceipts(loc.ID)

	// GIVEN: A row already holding the largest int
	receive(t, l, loc.ID, "A", math.MaxInt)

	// WHEN: Receiving one more of the same UPC
	_, err := l.Receive(ctx, clerk, inventory.ReceiveRequest{
		Location: loc.ID,
		Lines:    []inventory.Line{{UPC: "A", Qty: 1}},
		Category: inventory.CategoryRing,
	})

	// THEN: Rejected, and the row still scans as an integer
	require.ErrorIs(t, err, inventory.ErrQuantityOverflow)
	qty, err := store.Quantity(ctx, inventory.RowKey{Case: receipts, UPC: "A", Sub: inventory.SubCase})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, qty)
	totals, err := l.Totals(ctx, receipts, nil)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, totals.Quantity)

	events, err := l.History(ctx, inventory.HistoryFilter{Case: &receipts})
	require.NoError(t, err)
	assert.Len(t, events, 1, "the rejected receive leaves no event")
}

func TestSQLite_AddQuantity_Overflow(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, _ := setupCase(t, l, "1")
	receive(t, l, loc.ID, "A", math.MaxInt-1)
	key := inventory.RowKey{Case: inventory.NewReceipts(loc.ID), UPC: "A", Sub: inventory.SubCase}

	err := store.WithTx(ctx, func(tx inventory.Tx) error {
		return tx.AddQuantity(ctx, key, 2)
	})

	require.ErrorIs(t, err, inventory.ErrQuantityOverflow)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestSQLite_SubtractQuantity_Short_NoMutation(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	loc, _ := setupCase(t, l, "1")
	receive(t, l, loc.ID, "A", 2)
	key := inventory.RowKey{Case: inventory.NewReceipts(loc.ID), UPC: "A", Sub: inventory.SubCase}

	err := store.WithTx(ctx, func(tx inventory.Tx) error {
		_, err := tx.SubtractQuantity(ctx, key, 3)
		return err
	})

	var short *inventory.InsufficientQuantityError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 2, short.Have)
	assert.Equal(t, 3, short.Need)
	qty, err := store.Quantity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}

func TestSQLite_ConcurrentSells_NeverNegative(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/race.db"
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	l := inventory.NewLedger(store)

	loc, err := l.CreateLocation(ctx, clerk, "Mesa")
	require.NoError(t, err)
	receive(t, l, loc.ID, "A", 5)

	// WHEN: Ten concurrent sells of one unit each against 5 on hand
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := l.MarkMissing(ctx, clerk, inventory.MissingRequest{
				From:  inventory.NewReceipts(loc.ID),
				Lines: []inventory.Line{{UPC: "A", Qty: 1}},
			})
			results <- err
		}()
	}
	ok := 0
	for i := 0; i < 10; i++ {
		if err := <-results; err == nil {
			ok++
		} else {
			assert.True(t, errors.Is(err, inventory.ErrInsufficientQuantity) || inventory.IsRetryable(err), err.Error())
		}
	}

	// THEN: Exactly the stock on hand was removed
	assert.Equal(t, 5, ok)
	qty, err := store.Quantity(ctx, inventory.RowKey{Case: inventory.NewReceipts(loc.ID), UPC: "A", Sub: inventory.SubCase})
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

// =============================================================================
// COUNTS
// =============================================================================

func TestSQLite_Counts_LatestWinsPerDate(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t)
	_, c1 := setupCase(t, l, "1")
	day := inventory.NewLocalDate(2025, time.March, 10)

	_, err := l.RecordCount(ctx, clerk, inventory.CountInput{
		Case: c1, LocalDate: day,
		CaseCounts: inventory.CategoryCounts{inventory.CategoryRing: 3},
	})
	require.NoError(t, err)
	second, err := l.RecordCount(ctx, clerk, inventory.CountInput{
		Case: c1, LocalDate: day,
		CaseCounts:    inventory.CategoryCounts{inventory.CategoryRing: 4},
		ReserveCounts: inventory.CategoryCounts{inventory.CategoryEarring: 2},
		Notes:         "recount",
	})
	require.NoError(t, err)

	latest, ok, err := store.LatestCount(ctx, c1, day, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 4, latest.CaseCounts[inventory.CategoryRing])
	assert.Equal(t, 2, latest.ReserveCounts[inventory.CategoryEarring])
	assert.Equal(t, 6, latest.DeclaredTotal)
	assert.Equal(t, "recount", latest.Notes)
	assert.True(t, latest.LocalDate.Equal(day))

	_, ok, err = store.LatestCount(ctx, c1, day, true)
	require.NoError(t, err)
	assert.False(t, ok, "strict lookup excludes the date itself")

	list, err := store.ListCounts(ctx, inventory.CountFilter{Case: &c1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}
