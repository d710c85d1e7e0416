// Package store provides in-memory implementations of the inventory store.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements inventory.Store with maps. Transactions are simulated
// with a snapshot taken under the write lock and restored on error.
type Memory struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	locations    map[inventory.LocationID]inventory.Location
	nextLocation inventory.LocationID
	cases        map[inventory.CaseRef]inventory.Case
	products     map[inventory.UPC]inventory.Product
	rows         map[inventory.RowKey]int
	events       []inventory.HistoryEvent
	counts       []inventory.CountSnapshot
}

func newState() *state {
	return &state{
		locations: make(map[inventory.LocationID]inventory.Location),
		cases:     make(map[inventory.CaseRef]inventory.Case),
		products:  make(map[inventory.UPC]inventory.Product),
		rows:      make(map[inventory.RowKey]int),
	}
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// =============================================================================
// READS (shared by Memory and the transactional view)
// =============================================================================

func (s *state) getLocation(id inventory.LocationID) (inventory.Location, error) {
	loc, ok := s.locations[id]
	if !ok {
		return inventory.Location{}, fmt.Errorf("%w: %d", inventory.ErrUnknownLocation, id)
	}
	return loc, nil
}

func (s *state) listLocations() []inventory.Location {
	out := make([]inventory.Location, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) getCase(ref inventory.CaseRef) (inventory.Case, error) {
	c, ok := s.cases[ref]
	if !ok {
		return inventory.Case{}, &inventory.UnknownCaseError{Case: ref}
	}
	return c, nil
}

func (s *state) listCases(loc inventory.LocationID) []inventory.Case {
	var out []inventory.Case
	for _, c := range s.cases {
		if c.Ref.Location == loc {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Code < out[j].Ref.Code })
	return out
}

func (s *state) listRows(f inventory.RowFilter) []inventory.InventoryRow {
	var out []inventory.InventoryRow
	for k, qty := range s.rows {
		if qty == 0 || !f.Matches(k) {
			continue
		}
		p := s.products[k.UPC]
		out = append(out, inventory.InventoryRow{Key: k, Qty: qty, Category: p.Category, Description: p.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

func (s *state) queryEvents(f inventory.HistoryFilter) []inventory.HistoryEvent {
	limit := f.PageSize(inventory.MaxHistoryPage)
	var out []inventory.HistoryEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Matches(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	return out
}

func (s *state) caseEvents(ref inventory.CaseRef, from, to time.Time) []inventory.HistoryEvent {
	f := inventory.HistoryFilter{Case: &ref, From: from, To: to}
	var out []inventory.HistoryEvent
	for _, e := range s.events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *state) latestCount(ref inventory.CaseRef, on inventory.LocalDate, strict bool) (inventory.CountSnapshot, bool) {
	var best inventory.CountSnapshot
	found := false
	for _, c := range s.counts {
		if c.Case != ref {
			continue
		}
		if c.LocalDate.After(on) || (strict && c.LocalDate.Equal(on)) {
			continue
		}
		if !found || c.LocalDate.After(best.LocalDate) ||
			(c.LocalDate.Equal(best.LocalDate) && c.ID > best.ID) {
			best, found = c, true
		}
	}
	return best, found
}

func (s *state) listCounts(f inventory.CountFilter) []inventory.CountSnapshot {
	var out []inventory.CountSnapshot
	for _, c := range s.counts {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LocalDate.Equal(out[j].LocalDate) {
			return out[i].LocalDate.After(out[j].LocalDate)
		}
		return out[i].ID > out[j].ID
	})
	limit := f.Limit
	if limit <= 0 || limit > inventory.MaxHistoryPage {
		limit = inventory.MaxHistoryPage
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// =============================================================================
// STORE METHODS
// =============================================================================

func (m *Memory) GetLocation(_ context.Context, id inventory.LocationID) (inventory.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getLocation(id)
}

func (m *Memory) ListLocations(_ context.Context) ([]inventory.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listLocations(), nil
}

func (m *Memory) GetCase(_ context.Context, ref inventory.CaseRef) (inventory.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getCase(ref)
}

func (m *Memory) ListCases(_ context.Context, loc inventory.LocationID) ([]inventory.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listCases(loc), nil
}

func (m *Memory) GetProduct(_ context.Context, upc inventory.UPC) (inventory.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.st.products[upc]
	return p, ok, nil
}

func (m *Memory) Quantity(_ context.Context, key inventory.RowKey) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.rows[key], nil
}

func (m *Memory) Rows(_ context.Context, f inventory.RowFilter) ([]inventory.InventoryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listRows(f), nil
}

func (m *Memory) QueryEvents(_ context.Context, f inventory.HistoryFilter) ([]inventory.HistoryEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.queryEvents(f), nil
}

func (m *Memory) CaseEvents(_ context.Context, ref inventory.CaseRef, from, to time.Time) ([]inventory.HistoryEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.caseEvents(ref, from, to), nil
}

func (m *Memory) LatestCount(_ context.Context, ref inventory.CaseRef, on inventory.LocalDate, strict bool) (inventory.CountSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.st.latestCount(ref, on, strict)
	return c, ok, nil
}

func (m *Memory) ListCounts(_ context.Context, f inventory.CountFilter) ([]inventory.CountSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listCounts(f), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.locations {
		c.locations[k] = v
	}
	c.nextLocation = s.nextLocation
	for k, v := range s.cases {
		c.cases[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.rows {
		c.rows[k] = v
	}
	c.events = append([]inventory.HistoryEvent{}, s.events...)
	c.counts = append([]inventory.CountSnapshot{}, s.counts...)
	return c
}

// txView operates directly on the locked state.
type txView struct {
	st *state
}

func (tv *txView) GetLocation(_ context.Context, id inventory.LocationID) (inventory.Location, error) {
	return tv.st.getLocation(id)
}

func (tv *txView) ListLocations(_ context.Context) ([]inventory.Location, error) {
	return tv.st.listLocations(), nil
}

func (tv *txView) GetCase(_ context.Context, ref inventory.CaseRef) (inventory.Case, error) {
	return tv.st.getCase(ref)
}

func (tv *txView) ListCases(_ context.Context, loc inventory.LocationID) ([]inventory.Case, error) {
	return tv.st.listCases(loc), nil
}

func (tv *txView) GetProduct(_ context.Context, upc inventory.UPC) (inventory.Product, bool, error) {
	p, ok := tv.st.products[upc]
	return p, ok, nil
}

func (tv *txView) Quantity(_ context.Context, key inventory.RowKey) (int, error) {
	return tv.st.rows[key], nil
}

func (tv *txView) Rows(_ context.Context, f inventory.RowFilter) ([]inventory.InventoryRow, error) {
	return tv.st.listRows(f), nil
}

func (tv *txView) InsertLocation(_ context.Context, name string, at time.Time) (inventory.Location, error) {
	tv.st.nextLocation++
	loc := inventory.Location{ID: tv.st.nextLocation, Name: name, Active: true, CreatedAt: at}
	tv.st.locations[loc.ID] = loc
	return loc, nil
}

func (tv *txView) SetLocationActive(_ context.Context, id inventory.LocationID, active bool) error {
	loc, err := tv.st.getLocation(id)
	if err != nil {
		return err
	}
	loc.Active = active
	tv.st.locations[id] = loc
	return nil
}

func (tv *txView) InsertCase(_ context.Context, c inventory.Case) error {
	if _, ok := tv.st.locations[c.Ref.Location]; !ok {
		return fmt.Errorf("%w: %d", inventory.ErrUnknownLocation, c.Ref.Location)
	}
	if _, ok := tv.st.cases[c.Ref]; ok {
		return fmt.Errorf("%w: %s", inventory.ErrDuplicateCase, c.Ref)
	}
	tv.st.cases[c.Ref] = c
	return nil
}

func (tv *txView) UpdateCase(_ context.Context, c inventory.Case) error {
	if _, ok := tv.st.cases[c.Ref]; !ok {
		return &inventory.UnknownCaseError{Case: c.Ref}
	}
	tv.st.cases[c.Ref] = c
	return nil
}

func (tv *txView) PutProduct(_ context.Context, p inventory.Product) error {
	tv.st.products[p.UPC] = p
	return nil
}

func (tv *txView) AddQuantity(_ context.Context, key inventory.RowKey, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	if _, ok := tv.st.cases[key.Case]; !ok {
		return &inventory.UnknownCaseError{Case: key.Case}
	}
	if _, ok := tv.st.products[key.UPC]; !ok {
		return fmt.Errorf("%w: %s not in catalog", inventory.ErrInvalidUPC, key.UPC)
	}
	if tv.st.rows[key] > math.MaxInt-qty {
		return inventory.ErrQuantityOverflow
	}
	tv.st.rows[key] += qty
	return nil
}

func (tv *txView) SubtractQuantity(_ context.Context, key inventory.RowKey, qty int) (int, error) {
	if qty <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	have := tv.st.rows[key]
	if have < qty {
		return have, &inventory.InsufficientQuantityError{
			Case: key.Case, UPC: key.UPC, Sub: key.Sub, Have: have, Need: qty,
		}
	}
	remaining := have - qty
	if remaining == 0 {
		delete(tv.st.rows, key)
	} else {
		tv.st.rows[key] = remaining
	}
	return remaining, nil
}

func (tv *txView) AppendEvent(_ context.Context, e *inventory.HistoryEvent) error {
	e.ID = int64(len(tv.st.events) + 1)
	tv.st.events = append(tv.st.events, *e)
	return nil
}

func (tv *txView) InsertCount(_ context.Context, c *inventory.CountSnapshot) error {
	c.ID = int64(len(tv.st.counts) + 1)
	tv.st.counts = append(tv.st.counts, *c)
	return nil
}
