/*
session.go - Unit of work for ledger mutations

PURPOSE:
  A Session wraps one store transaction. Every row delta it applies is
  journaled, and every movement event appended through it must consume the
  deltas it documents. On commit the journal must be empty: a delta with
  no event, or an event with no delta, aborts the transaction with an
  InvariantViolationError.

OPERATIONS:
  Increase / Decrease: single-row deltas
  Transfer:            Decrease then Increase, same sub-location
  Relocate:            CASE <-> RESERVE within one case
  ValidateBatch:       Sufficiency check of every line before any mutation
  Append:              Audit log append, matched against the journal

ISOLATION:
  Decrease relies on Tx.SubtractQuantity, which checks and decrements in
  one conditional statement inside the (immediate) transaction, so a
  concurrent decrease of the same row cannot slip between check and write.

SEE ALSO:
  - ledger.go:     Ledger.Do opens sessions
  - operations.go: Business operations built on sessions
*/
package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ctx     context.Context
	tx      Tx
	actor   Actor
	batchID uuid.UUID
	now     time.Time

	journal map[RowKey]int
	events  []HistoryEvent
}

func newSession(ctx context.Context, tx Tx, actor Actor, batchID uuid.UUID, now time.Time) *Session {
	return &Session{
		ctx:     ctx,
		tx:      tx,
		actor:   actor,
		batchID: batchID,
		now:     now,
		journal: make(map[RowKey]int),
	}
}

// BatchID is shared by every event appended in this session.
func (s *Session) BatchID() uuid.UUID { return s.batchID }

// Actor is the identity the session acts for.
func (s *Session) Actor() Actor { return s.actor }

// =============================================================================
// ROW DELTAS
// =============================================================================

// Increase adds qty to the row, creating it when absent. An increase that
// would overflow the row is rejected with ErrQuantityOverflow.
func (s *Session) Increase(ref CaseRef, upc UPC, sub SubLocation, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	key := RowKey{Case: ref, UPC: upc, Sub: sub.orCase()}
	have, err := s.tx.Quantity(s.ctx, key)
	if err != nil {
		return err
	}
	if have > math.MaxInt-qty {
		return fmt.Errorf("%w: %s holds %d of %s", ErrQuantityOverflow, ref, have, upc)
	}
	if err := s.tx.AddQuantity(s.ctx, key, qty); err != nil {
		return err
	}
	s.journal[key] += qty
	return nil
}

// Decrease subtracts qty from the row and returns what remains. A row that
// reaches zero is removed. When stock is short nothing is mutated and an
// *InsufficientQuantityError is returned.
func (s *Session) Decrease(ref CaseRef, upc UPC, sub SubLocation, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	key := RowKey{Case: ref, UPC: upc, Sub: sub.orCase()}
	remaining, err := s.tx.SubtractQuantity(s.ctx, key, qty)
	if err != nil {
		return 0, err
	}
	if remaining < 0 {
		return 0, &InvariantViolationError{Key: key, Delta: -qty, Reason: "row went negative"}
	}
	s.journal[key] -= qty
	return remaining, nil
}

// Transfer moves qty between two cases in the same sub-location. The
// increase never runs when the decrease fails.
func (s *Session) Transfer(from, to CaseRef, upc UPC, sub SubLocation, qty int) error {
	if from == to {
		return ErrSameCase
	}
	if _, err := s.Decrease(from, upc, sub, qty); err != nil {
		return err
	}
	return s.Increase(to, upc, sub, qty)
}

// Relocate moves qty between the sub-locations of one case.
func (s *Session) Relocate(ref CaseRef, upc UPC, fromSub, toSub SubLocation, qty int) error {
	if fromSub.orCase() == toSub.orCase() {
		return ErrSameCase
	}
	if _, err := s.Decrease(ref, upc, fromSub, qty); err != nil {
		return err
	}
	return s.Increase(ref, upc, toSub, qty)
}

// =============================================================================
// READS
// =============================================================================

// Quantity returns the current quantity of a row as seen by this session.
func (s *Session) Quantity(ref CaseRef, upc UPC, sub SubLocation) (int, error) {
	return s.tx.Quantity(s.ctx, RowKey{Case: ref, UPC: upc, Sub: sub.orCase()})
}

// Totals returns quantity and distinct UPCs for a case; nil sub is combined.
func (s *Session) Totals(ref CaseRef, sub *SubLocation) (Totals, error) {
	rows, err := s.tx.Rows(s.ctx, caseFilter(ref, sub))
	if err != nil {
		return Totals{}, err
	}
	return SumRows(rows), nil
}

// ValidateBatch checks every line against current stock before anything is
// mutated. All shortfalls are reported together in a *BatchError.
func (s *Session) ValidateBatch(ref CaseRef, sub SubLocation, lines []Line) error {
	batch := &BatchError{Case: ref}
	for _, l := range lines {
		have, err := s.Quantity(ref, l.UPC, sub)
		if err != nil {
			return err
		}
		if have < l.Qty {
			batch.Shortfalls = append(batch.Shortfalls, InsufficientQuantityError{
				Case: ref, UPC: l.UPC, Sub: sub.orCase(), Have: have, Need: l.Qty,
			})
		}
	}
	if len(batch.Shortfalls) > 0 {
		return batch
	}
	return nil
}

// activeCase resolves a case and its location, rejecting inactive ones.
func (s *Session) activeCase(ref CaseRef) (Case, error) {
	return requireActiveCase(s.ctx, s.tx, ref)
}

func requireActiveCase(ctx context.Context, r Reader, ref CaseRef) (Case, error) {
	loc, err := r.GetLocation(ctx, ref.Location)
	if err != nil {
		return Case{}, err
	}
	if !loc.Active {
		return Case{}, &UnknownCaseError{Case: ref, Inactive: true}
	}
	c, err := r.GetCase(ctx, ref)
	if err != nil {
		return Case{}, err
	}
	if !c.Active {
		return Case{}, &UnknownCaseError{Case: ref, Inactive: true}
	}
	return c, nil
}

// mergeProduct applies first-write-wins to the catalog entry, creating it
// when the UPC is new.
func (s *Session) mergeProduct(upc UPC, description string, category Category) error {
	existing, ok, err := s.tx.GetProduct(s.ctx, upc)
	if err != nil {
		return err
	}
	if !ok {
		existing = Product{UPC: upc, CreatedAt: s.now}
		merged, _ := existing.Merge(Product{Description: description, Category: category})
		return s.tx.PutProduct(s.ctx, merged)
	}
	merged, changed := existing.Merge(Product{Description: description, Category: category})
	if !changed {
		return nil
	}
	return s.tx.PutProduct(s.ctx, merged)
}

// =============================================================================
// AUDIT APPEND
// =============================================================================

// Append writes an audit event in the session's transaction. Movement
// events must document deltas already applied in this session.
func (s *Session) Append(e HistoryEvent) (HistoryEvent, error) {
	if e.TS.IsZero() {
		e.TS = s.now
	}
	e.TS = e.TS.UTC()
	e.BatchID = s.batchID
	if e.Actor == (Actor{}) {
		e.Actor = s.actor
	}

	if e.Action.IsMovement() {
		if e.Qty <= 0 {
			return HistoryEvent{}, &InvariantViolationError{
				Key: RowKey{Case: e.From, UPC: e.UPC}, Delta: e.Qty, Reason: "movement event without quantity",
			}
		}
		if err := s.consume(e.deltas()); err != nil {
			return HistoryEvent{}, err
		}
	}

	if err := s.tx.AppendEvent(s.ctx, &e); err != nil {
		return HistoryEvent{}, err
	}
	s.events = append(s.events, e)
	return e, nil
}

func (s *Session) consume(ds []delta) error {
	for _, d := range ds {
		pending := s.journal[d.key]
		if (d.qty > 0 && pending < d.qty) || (d.qty < 0 && pending > d.qty) {
			return &InvariantViolationError{
				Key: d.key, Delta: d.qty, Reason: "event documents a delta that was not applied",
			}
		}
		pending -= d.qty
		if pending == 0 {
			delete(s.journal, d.key)
		} else {
			s.journal[d.key] = pending
		}
	}
	return nil
}

// verify fails when a row delta has no matching event.
func (s *Session) verify() error {
	if len(s.journal) == 0 {
		return nil
	}
	keys := make([]RowKey, 0, len(s.journal))
	for k := range s.journal {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return &InvariantViolationError{
		Key: keys[0], Delta: s.journal[keys[0]], Reason: "ledger delta without audit event",
	}
}
