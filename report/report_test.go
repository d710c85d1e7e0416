package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/inventory"
	memstore "github.com/warp/caseledger/inventory/store"
	"github.com/warp/caseledger/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var clerk = inventory.Actor{ID: "u-1", Name: "Dana Smith"}

type env struct {
	ctx     context.Context
	ledger  *inventory.Ledger
	deriver *report.Deriver
	loc     inventory.Location
	c01     inventory.CaseRef
	now     time.Time
}

// newEnv starts the clock at 10:30 store time on March 10, 2025.
func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{ctx: context.Background(), now: time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)}
	clock, err := inventory.NewStoreClock("America/Phoenix")
	require.NoError(t, err)
	clock = clock.WithNow(func() time.Time { return e.now })

	st := memstore.NewMemory()
	e.ledger = inventory.NewLedger(st, inventory.WithClock(clock))
	e.deriver = report.NewDeriver(st, clock)

	e.loc, err = e.ledger.CreateLocation(e.ctx, clerk, "Mesa")
	require.NoError(t, err)
	c, err := e.ledger.CreateCase(e.ctx, clerk, e.loc.ID, "01", "Front window")
	require.NoError(t, err)
	e.c01 = c.Ref
	return e
}

func (e *env) nr() inventory.CaseRef { return inventory.NewReceipts(e.loc.ID) }

func march(day int) inventory.LocalDate { return inventory.NewLocalDate(2025, time.March, day) }

func line(upc string, qty int) []inventory.Line {
	return []inventory.Line{{UPC: inventory.UPC(upc), Qty: qty}}
}

func (e *env) scenario(t *testing.T) {
	t.Helper()
	_, err := e.ledger.Receive(e.ctx, clerk, inventory.ReceiveRequest{
		Location: e.loc.ID, Lines: line("111", 2), Category: inventory.CategoryRing, Description: "14k band",
	})
	require.NoError(t, err)
	_, err = e.ledger.Move(e.ctx, clerk, inventory.MoveRequest{From: e.nr(), To: e.c01, Lines: line("111", 1)})
	require.NoError(t, err)
	_, err = e.ledger.Sell(e.ctx, clerk, inventory.SellRequest{
		From: e.c01, Lines: line("111", 1),
		Sale: inventory.SaleDetails{
			TransReg: "0412-07", DeptNo: "31", BriefDesc: "band",
			TicketPrice: decimal.RequireFromString("249.99"), DiamondTest: inventory.DiamondYes,
		},
	})
	require.NoError(t, err)
}

// =============================================================================
// DAILY ACTIVITY TOTALS
// =============================================================================

func TestDailyActivityTotals_MoveInSaleOut(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)

	totals, err := e.deriver.DailyActivityTotals(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	assert.Equal(t, report.DailyTotals{In: 1, Out: 1}, totals)
	assert.Equal(t, 0, totals.Net())
}

func TestDailyActivityTotals_NewReceipts(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)

	totals, err := e.deriver.DailyActivityTotals(e.ctx, e.nr(), march(10))

	require.NoError(t, err)
	assert.Equal(t, report.DailyTotals{In: 2, Out: 1}, totals)
}

func TestDailyActivityTotals_Idempotent(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)

	first, err := e.deriver.DailyActivityTotals(e.ctx, e.c01, march(10))
	require.NoError(t, err)
	second, err := e.deriver.DailyActivityTotals(e.ctx, e.c01, march(10))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDailyActivityTotals_StoreLocalDayBoundary(t *testing.T) {
	e := newEnv(t)

	// GIVEN: A receipt at 03:00 UTC on March 11, which is 20:00 March 10 in Phoenix
	e.now = time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC)
	_, err := e.ledger.Receive(e.ctx, clerk, inventory.ReceiveRequest{
		Location: e.loc.ID, Lines: line("A", 4), Category: inventory.CategoryRing,
	})
	require.NoError(t, err)

	// THEN: It belongs to March 10, not March 11
	d10, err := e.deriver.DailyActivityTotals(e.ctx, e.nr(), march(10))
	require.NoError(t, err)
	d11, err := e.deriver.DailyActivityTotals(e.ctx, e.nr(), march(11))
	require.NoError(t, err)
	assert.Equal(t, 4, d10.In)
	assert.Equal(t, 0, d11.In)
}

func TestDailyActivityTotals_RelocateExcluded(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Receive(e.ctx, clerk, inventory.ReceiveRequest{Location: e.loc.ID, Lines: line("A", 3), Category: inventory.CategoryRing})
	require.NoError(t, err)
	_, err = e.ledger.Relocate(e.ctx, clerk, inventory.RelocateRequest{
		Case: e.nr(), FromSub: inventory.SubCase, ToSub: inventory.SubReserve, Lines: line("A", 2),
	})
	require.NoError(t, err)

	totals, err := e.deriver.DailyActivityTotals(e.ctx, e.nr(), march(10))

	require.NoError(t, err)
	assert.Equal(t, report.DailyTotals{In: 3}, totals)
}

func TestDailyActivityTotals_ReturnAndMissing(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Return(e.ctx, clerk, inventory.ReturnRequest{
		Location: e.loc.ID, Lines: line("R", 2),
		Sale: inventory.SaleDetails{TransReg: "9", DeptNo: "1", BriefDesc: "x"},
	})
	require.NoError(t, err)
	returns := inventory.Returns(e.loc.ID)
	_, err = e.ledger.MarkMissing(e.ctx, clerk, inventory.MissingRequest{From: returns, Lines: line("R", 1)})
	require.NoError(t, err)

	totals, err := e.deriver.DailyActivityTotals(e.ctx, returns, march(10))

	require.NoError(t, err)
	assert.Equal(t, report.DailyTotals{In: 2, Out: 1}, totals)
}

func TestClassify(t *testing.T) {
	a := inventory.CaseRef{Location: 1, Code: "A"}
	b := inventory.CaseRef{Location: 1, Code: "B"}
	other := inventory.CaseRef{Location: 2, Code: "A"}

	tests := []struct {
		name    string
		event   inventory.HistoryEvent
		in, out int
	}{
		{"receive into", inventory.HistoryEvent{Action: inventory.ActionReceive, Qty: 2, To: a}, 2, 0},
		{"move in", inventory.HistoryEvent{Action: inventory.ActionMove, Qty: 3, From: b, To: a}, 3, 0},
		{"move out", inventory.HistoryEvent{Action: inventory.ActionMove, Qty: 3, From: a, To: b}, 0, 3},
		{"same code other location", inventory.HistoryEvent{Action: inventory.ActionMove, Qty: 3, From: b, To: other}, 0, 0},
		{"sold", inventory.HistoryEvent{Action: inventory.ActionSold, Qty: 1, From: a}, 0, 1},
		{"missing", inventory.HistoryEvent{Action: inventory.ActionMissing, Qty: 1, From: a}, 0, 1},
		{"return", inventory.HistoryEvent{Action: inventory.ActionReturn, Qty: 1, To: a}, 1, 0},
		{"relocate", inventory.HistoryEvent{Action: inventory.ActionRelocate, Qty: 1, From: a, To: a}, 0, 0},
		{"case edit", inventory.HistoryEvent{Action: inventory.ActionCaseEdit, To: a}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := report.Classify(tt.event, a)
			assert.Equal(t, tt.in, in)
			assert.Equal(t, tt.out, out)
		})
	}
}

// =============================================================================
// ACTIVITY LINES
// =============================================================================

func TestActivityLines(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)

	log, err := e.deriver.ActivityLines(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	assert.Equal(t, "Front window", log.Case.Name)
	require.Len(t, log.Lines, 2)

	move := log.Lines[0]
	assert.Equal(t, "FROM NEW-RECEIPTS - 14k band", move.Description)
	assert.Equal(t, "M", move.ReasonCode)
	assert.Equal(t, "R", move.ItemCode)
	assert.Equal(t, 1, move.In)
	assert.False(t, move.TicketPrice.Valid)
	assert.Equal(t, "DS", move.Initials)
	assert.Contains(t, move.DocNo, "SYS-")

	sold := log.Lines[1]
	assert.Equal(t, "0412-07", sold.DocNo)
	assert.Equal(t, "31 - band", sold.Description)
	assert.Equal(t, "S", sold.ReasonCode)
	assert.Equal(t, "Y", sold.DiamondTest)
	assert.True(t, sold.TicketPrice.Valid)
	assert.Equal(t, "249.99", sold.TicketPrice.Decimal.StringFixed(2))
	assert.Equal(t, 1, sold.Out)

	assert.Equal(t, report.DailyTotals{In: 1, Out: 1}, log.Totals())
}

func TestActivityLines_ReceiveShowsNRT(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)

	log, err := e.deriver.ActivityLines(e.ctx, e.nr(), march(10))

	require.NoError(t, err)
	require.Len(t, log.Lines, 2)
	assert.Equal(t, "NRT", log.Lines[0].DiamondTest)
	assert.Equal(t, "NRT", log.Lines[0].ReasonCode)
	assert.Equal(t, "TO 01 - 14k band", log.Lines[1].Description)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "DS", report.Initials("dana smith"))
	assert.Equal(t, "KI", report.Initials("kim"))
	assert.Equal(t, "K1", report.Initials("k.1x"))
	assert.Equal(t, "", report.Initials(""))
}

// =============================================================================
// COUNT SHEET
// =============================================================================

func recordCount(t *testing.T, e *env, day int, rings, reserveRings int) inventory.CountSnapshot {
	t.Helper()
	snap, err := e.ledger.RecordCount(e.ctx, clerk, inventory.CountInput{
		Case: e.c01, LocalDate: march(day),
		CaseCounts:    inventory.CategoryCounts{inventory.CategoryRing: rings},
		ReserveCounts: inventory.CategoryCounts{inventory.CategoryRing: reserveRings},
	})
	require.NoError(t, err)
	return snap
}

func TestCountSheetView_ConsecutiveDays_Reconciles(t *testing.T) {
	e := newEnv(t)
	recordCount(t, e, 9, 0, 0)
	e.scenario(t)
	_, err := e.ledger.Move(e.ctx, clerk, inventory.MoveRequest{From: e.nr(), To: e.c01, Lines: line("111", 1)})
	require.NoError(t, err)
	recordCount(t, e, 10, 1, 0)

	sheet, err := e.deriver.CountSheetView(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	require.True(t, sheet.HasCount())
	require.NotNil(t, sheet.Previous)
	assert.True(t, sheet.PreviousDate.Equal(march(9)))
	assert.Equal(t, 0, sheet.PreviousTotal)
	assert.Equal(t, 1, sheet.DeclaredTotal)
	assert.Equal(t, report.DailyTotals{In: 2, Out: 1}, sheet.Activity)
	require.NotNil(t, sheet.ExpectedTotal)
	assert.Equal(t, 1, *sheet.ExpectedTotal)
	assert.Equal(t, 0, *sheet.Discrepancy)
}

func TestCountSheetView_GapInCounts_NoExpectation(t *testing.T) {
	e := newEnv(t)
	recordCount(t, e, 6, 2, 0)
	recordCount(t, e, 10, 3, 1)

	sheet, err := e.deriver.CountSheetView(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	assert.True(t, sheet.PreviousDate.Equal(march(6)))
	assert.Equal(t, 4, sheet.Combined[inventory.CategoryRing])
	assert.Equal(t, 1, sheet.ReserveCounts[inventory.CategoryRing])
	assert.Nil(t, sheet.ExpectedTotal)
}

func TestCountSheetView_LatestSnapshotOfDayWins(t *testing.T) {
	e := newEnv(t)
	recordCount(t, e, 10, 2, 0)
	second := recordCount(t, e, 10, 5, 0)

	sheet, err := e.deriver.CountSheetView(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	require.NotNil(t, sheet.Current)
	assert.Equal(t, second.ID, sheet.Current.ID)
	assert.Nil(t, sheet.Previous, "a same-day recount is not a previous count")
}

func TestCountSheetView_NoCounts(t *testing.T) {
	e := newEnv(t)

	sheet, err := e.deriver.CountSheetView(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	assert.False(t, sheet.HasCount())
	assert.Nil(t, sheet.Previous)
}

func TestCountSheetView_NeverWrites(t *testing.T) {
	e := newEnv(t)
	e.scenario(t)
	recordCount(t, e, 10, 0, 0)
	before, err := e.ledger.History(e.ctx, inventory.HistoryFilter{})
	require.NoError(t, err)
	counts, err := e.ledger.ListCounts(e.ctx, inventory.CountFilter{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := e.deriver.CountSheetView(e.ctx, e.c01, march(10))
		require.NoError(t, err)
	}

	after, err := e.ledger.History(e.ctx, inventory.HistoryFilter{})
	require.NoError(t, err)
	countsAfter, err := e.ledger.ListCounts(e.ctx, inventory.CountFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, counts, countsAfter)
}

// =============================================================================
// COUNT VARIANCE
// =============================================================================

func TestCountVariance(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Receive(e.ctx, clerk, inventory.ReceiveRequest{Location: e.loc.ID, Lines: line("R1", 3), Category: inventory.CategoryRing})
	require.NoError(t, err)
	_, err = e.ledger.Return(e.ctx, clerk, inventory.ReturnRequest{
		Location: e.loc.ID, Lines: line("U1", 1),
		Sale: inventory.SaleDetails{TransReg: "9", DeptNo: "1", BriefDesc: "x"},
	})
	require.NoError(t, err)
	_, err = e.ledger.Move(e.ctx, clerk, inventory.MoveRequest{From: e.nr(), To: e.c01, Lines: line("R1", 3)})
	require.NoError(t, err)
	_, err = e.ledger.Move(e.ctx, clerk, inventory.MoveRequest{From: inventory.Returns(e.loc.ID), To: e.c01, Lines: line("U1", 1)})
	require.NoError(t, err)
	recordCount(t, e, 10, 2, 0)

	v, ok, err := e.deriver.CountVariance(e.ctx, e.c01, march(10))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v.Unknown, "returned product without category")
	var ring report.CategoryVariance
	for _, c := range v.Categories {
		if c.Category == inventory.CategoryRing {
			ring = c
		}
	}
	assert.Equal(t, 2, ring.Counted)
	assert.Equal(t, 3, ring.System)
	assert.Equal(t, -1, ring.Diff())
	assert.Equal(t, 2, v.CountedTotal())
	assert.Equal(t, 4, v.SystemTotal())
}
