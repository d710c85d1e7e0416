package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/inventory"
	memstore "github.com/warp/caseledger/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	clerk   = inventory.Actor{ID: "u-1", Name: "Dana Smith"}
	testNow = time.Date(2025, time.March, 10, 17, 30, 0, 0, time.UTC) // 10:30 in Phoenix
)

type fixture struct {
	ctx    context.Context
	ledger *inventory.Ledger
	store  *memstore.Memory
	loc    inventory.Location
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memstore.NewMemory()}
	now := testNow
	f.clock = &now

	clock, err := inventory.NewStoreClock(inventory.DefaultStoreZone)
	require.NoError(t, err)
	clock = clock.WithNow(func() time.Time { return *f.clock })

	f.ledger = inventory.NewLedger(f.store, inventory.WithClock(clock))
	f.loc, err = f.ledger.CreateLocation(f.ctx, clerk, "Mesa")
	require.NoError(t, err)
	return f
}

func (f *fixture) newReceipts() inventory.CaseRef { return inventory.NewReceipts(f.loc.ID) }

func (f *fixture) createCase(t *testing.T, code string) inventory.CaseRef {
	t.Helper()
	c, err := f.ledger.CreateCase(f.ctx, clerk, f.loc.ID, code, "Case "+code)
	require.NoError(t, err)
	return c.Ref
}

func (f *fixture) receive(t *testing.T, upc string, qty int) {
	t.Helper()
	_, err := f.ledger.Receive(f.ctx, clerk, inventory.ReceiveRequest{
		Location: f.loc.ID,
		Lines:    []inventory.Line{{UPC: inventory.UPC(upc), Qty: qty}},
		Category: inventory.CategoryRing,
	})
	require.NoError(t, err)
}

func (f *fixture) move(t *testing.T, from, to inventory.CaseRef, upc string, qty int) {
	t.Helper()
	_, err := f.ledger.Move(f.ctx, clerk, inventory.MoveRequest{
		From: from, To: to, Lines: []inventory.Line{{UPC: inventory.UPC(upc), Qty: qty}},
	})
	require.NoError(t, err)
}

func (f *fixture) qty(t *testing.T, ref inventory.CaseRef, upc string, sub inventory.SubLocation) int {
	t.Helper()
	n, err := f.store.Quantity(f.ctx, inventory.RowKey{Case: ref, UPC: inventory.UPC(upc), Sub: sub})
	require.NoError(t, err)
	return n
}

func (f *fixture) events(t *testing.T, filter inventory.HistoryFilter) []inventory.HistoryEvent {
	t.Helper()
	events, err := f.ledger.History(f.ctx, filter)
	require.NoError(t, err)
	return events
}

func sale() inventory.SaleDetails {
	return inventory.SaleDetails{
		TransReg:    "0412-07",
		DeptNo:      "31",
		BriefDesc:   "14k band",
		TicketPrice: decimal.RequireFromString("249.00"),
		DiamondTest: inventory.DiamondNo,
	}
}

func lines(pairs ...any) []inventory.Line {
	var out []inventory.Line
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, inventory.Line{UPC: inventory.UPC(pairs[i].(string)), Qty: pairs[i+1].(int)})
	}
	return out
}
