/*
ledger.go - Ledger service: atomic sessions and read views

PURPOSE:
  The Ledger owns the inventory quantity table and the audit log. All
  mutations run through Do, which opens one store transaction, hands the
  caller a Session, and commits only when every row delta is documented
  by an audit event.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: a decrease never takes a row below zero.
  2. SPARSE: a row that reaches zero is deleted.
  3. DOCUMENTED: every committed delta has exactly one matching event.
  4. ATOMIC: a batch commits entirely or not at all.

EXPLICIT CONTEXT:
  Actor and location are always parameters. The ledger never resolves a
  current user or current location on its own.

SEE ALSO:
  - session.go:    Unit of work
  - operations.go: Receive, Move, Sell, MarkMissing, Return, Relocate
  - registry.go:   Locations and cases
*/
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store      Store
	clock      *StoreClock
	logger     *zap.Logger
	newBatchID func() uuid.UUID
}

type Option func(*Ledger)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock sets the store clock used for timestamps and local dates.
func WithClock(clock *StoreClock) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithBatchIDs overrides batch id generation.
func WithBatchIDs(fn func() uuid.UUID) Option {
	return func(l *Ledger) { l.newBatchID = fn }
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		logger:     zap.NewNop(),
		newBatchID: uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.clock == nil {
		l.clock = defaultClock()
	}
	return l
}

func defaultClock() *StoreClock {
	clock, err := NewStoreClock(DefaultStoreZone)
	if err != nil {
		return &StoreClock{loc: time.UTC, now: time.Now}
	}
	return clock
}

func (l *Ledger) Store() Store        { return l.store }
func (l *Ledger) Clock() *StoreClock  { return l.clock }
func (l *Ledger) Logger() *zap.Logger { return l.logger }

// Receipt describes a committed session.
type Receipt struct {
	BatchID uuid.UUID
	Events  []HistoryEvent
}

// Units sums the quantity of every movement event in the receipt.
func (r Receipt) Units() int {
	n := 0
	for _, e := range r.Events {
		if e.Action.IsMovement() {
			n += e.Qty
		}
	}
	return n
}

// Do runs fn inside one transaction. When fn fails, or when a row delta is
// left without a matching audit event, nothing is committed.
func (l *Ledger) Do(ctx context.Context, actor Actor, fn func(*Session) error) (Receipt, error) {
	if err := actor.Validate(); err != nil {
		return Receipt{}, err
	}
	var s *Session
	err := l.store.WithTx(ctx, func(tx Tx) error {
		s = newSession(ctx, tx, actor, l.newBatchID(), l.clock.Now())
		if err := fn(s); err != nil {
			return err
		}
		return s.verify()
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{BatchID: s.batchID, Events: s.events}, nil
}

// logResult writes one line per business operation.
func (l *Ledger) logResult(op string, actor Actor, r Receipt, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.String("actor_id", actor.ID))
	if err != nil {
		fields = append(fields, zap.Error(err))
		switch {
		case IsClientError(err) || IsNotFound(err):
			l.logger.Info("ledger operation rejected", fields...)
		case IsRetryable(err):
			l.logger.Warn("ledger operation failed, retryable", fields...)
		default:
			l.logger.Error("ledger operation failed", fields...)
		}
		return
	}
	fields = append(fields,
		zap.String("batch_id", r.BatchID.String()),
		zap.Int("events", len(r.Events)),
		zap.Int("units", r.Units()),
	)
	l.logger.Info("ledger operation committed", fields...)
}

// =============================================================================
// READ VIEWS
// =============================================================================

// Totals returns quantity and distinct UPCs for a case. A nil sub returns
// the combined view over CASE and RESERVE.
func (l *Ledger) Totals(ctx context.Context, ref CaseRef, sub *SubLocation) (Totals, error) {
	rows, err := l.caseRows(ctx, ref, sub)
	if err != nil {
		return Totals{}, err
	}
	return SumRows(rows), nil
}

// TotalsByCategory groups a case's quantity by product category.
func (l *Ledger) TotalsByCategory(ctx context.Context, ref CaseRef, sub *SubLocation) (CategoryTotals, error) {
	rows, err := l.caseRows(ctx, ref, sub)
	if err != nil {
		return CategoryTotals{}, err
	}
	return GroupByCategory(rows), nil
}

// CaseRows lists the non-zero rows of a case.
func (l *Ledger) CaseRows(ctx context.Context, ref CaseRef, sub *SubLocation) ([]InventoryRow, error) {
	return l.caseRows(ctx, ref, sub)
}

func (l *Ledger) caseRows(ctx context.Context, ref CaseRef, sub *SubLocation) ([]InventoryRow, error) {
	if sub != nil && !sub.Valid() {
		return nil, ErrInvalidSubLocation
	}
	if _, err := l.store.GetCase(ctx, ref); err != nil {
		return nil, err
	}
	return l.store.Rows(ctx, caseFilter(ref, sub))
}

// Rows lists non-zero rows matching the filter.
func (l *Ledger) Rows(ctx context.Context, filter RowFilter) ([]InventoryRow, error) {
	return l.store.Rows(ctx, filter)
}

// History returns audit events newest-first, bounded by MaxHistoryPage.
func (l *Ledger) History(ctx context.Context, filter HistoryFilter) ([]HistoryEvent, error) {
	filter.Limit = filter.PageSize(MaxHistoryPage)
	return l.store.QueryEvents(ctx, filter)
}

// Product returns the catalog entry for a UPC.
func (l *Ledger) Product(ctx context.Context, upc UPC) (Product, bool, error) {
	return l.store.GetProduct(ctx, upc)
}
