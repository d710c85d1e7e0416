/*
operations.go - Business operations over the ledger

PURPOSE:
  Each operation is one transaction: validate the whole request, check
  sufficiency of every line, then apply row deltas and append one audit
  event per line. A rejected request leaves no trace.

OPERATIONS:
  Receive:     Into the location's NEW-RECEIPTS case (category required)
  Move:        Case to case, possibly across locations
  Sell:        Out of a case with register fields
  MarkMissing: Out of a case, no sale fields
  Return:      Into the location's RETURNS case with register fields
  Relocate:    CASE <-> RESERVE inside one case

BATCH RULE:
  Sufficiency is validated for every line before any line is mutated,
  inside the same transaction that applies the mutations. A short batch
  fails with a *BatchError naming every short line.

SEE ALSO:
  - session.go: Row deltas and audit matching
  - parse.go:   Scanner input parsing
*/
package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// RECEIVE
// =============================================================================

type ReceiveRequest struct {
	Location    LocationID
	Lines       []Line
	Category    Category
	Description string
	Notes       string
}

// Receive adds stock to the location's intake case.
func (l *Ledger) Receive(ctx context.Context, actor Actor, req ReceiveRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("receive", actor, r, err, zap.Int64("location_id", int64(req.Location)))
	}()

	lines, err := validateLines(req.Lines)
	if err != nil {
		return Receipt{}, err
	}
	if !req.Category.Valid() {
		return Receipt{}, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	ref := NewReceipts(req.Location)
	notes := orDefault(req.Notes, fmt.Sprintf("Received into %s (%s)", NameNewReceipts, req.Category))

	return l.Do(ctx, actor, func(s *Session) error {
		if _, err := s.activeCase(ref); err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.mergeProduct(line.UPC, req.Description, req.Category); err != nil {
				return err
			}
			if err := s.Increase(ref, line.UPC, SubCase, line.Qty); err != nil {
				return err
			}
			if _, err := s.Append(HistoryEvent{
				Action: ActionReceive, UPC: line.UPC, Qty: line.Qty,
				To: ref, ToSub: SubCase, Notes: notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// MOVE
// =============================================================================

type MoveRequest struct {
	From        CaseRef
	To          CaseRef
	Sub         SubLocation
	Lines       []Line
	Description string
	Notes       string
}

// Move transfers every line from one case to another.
func (l *Ledger) Move(ctx context.Context, actor Actor, req MoveRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("move", actor, r, err, zap.Stringer("from", req.From), zap.Stringer("to", req.To))
	}()

	lines, err := validateLines(req.Lines)
	if err != nil {
		return Receipt{}, err
	}
	if req.From == req.To {
		return Receipt{}, ErrSameCase
	}
	sub := req.Sub.orCase()
	if !sub.Valid() {
		return Receipt{}, ErrInvalidSubLocation
	}
	notes := orDefault(req.Notes, fmt.Sprintf("Moved from %s to %s", req.From.Code, req.To.Code))

	return l.Do(ctx, actor, func(s *Session) error {
		if _, err := s.activeCase(req.From); err != nil {
			return err
		}
		if _, err := s.activeCase(req.To); err != nil {
			return err
		}
		if err := s.ValidateBatch(req.From, sub, lines); err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.mergeProduct(line.UPC, req.Description, ""); err != nil {
				return err
			}
			if err := s.Transfer(req.From, req.To, line.UPC, sub, line.Qty); err != nil {
				return err
			}
			if _, err := s.Append(HistoryEvent{
				Action: ActionMove, UPC: line.UPC, Qty: line.Qty,
				From: req.From, FromSub: sub, To: req.To, ToSub: sub, Notes: notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// SELL / MISSING
// =============================================================================

type SellRequest struct {
	From  CaseRef
	Sub   SubLocation
	Lines []Line
	Sale  SaleDetails
	Notes string
}

// Sell removes every line from a case and records the register fields.
func (l *Ledger) Sell(ctx context.Context, actor Actor, req SellRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("sell", actor, r, err, zap.Stringer("case", req.From), zap.String("trans_reg", req.Sale.TransReg))
	}()

	if err := req.Sale.Validate(true); err != nil {
		return Receipt{}, err
	}
	sale := req.Sale
	return l.removeLines(ctx, actor, ActionSold, req.From, req.Sub, req.Lines, &sale, orDefault(req.Notes, "Sold"))
}

type MissingRequest struct {
	From  CaseRef
	Sub   SubLocation
	Lines []Line
	Notes string
}

// MarkMissing removes every line from a case as missing stock.
func (l *Ledger) MarkMissing(ctx context.Context, actor Actor, req MissingRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("missing", actor, r, err, zap.Stringer("case", req.From))
	}()

	return l.removeLines(ctx, actor, ActionMissing, req.From, req.Sub, req.Lines, nil, orDefault(req.Notes, "Marked missing"))
}

func (l *Ledger) removeLines(ctx context.Context, actor Actor, action Action, from CaseRef, sub SubLocation, raw []Line, sale *SaleDetails, notes string) (Receipt, error) {
	lines, err := validateLines(raw)
	if err != nil {
		return Receipt{}, err
	}
	sub = sub.orCase()
	if !sub.Valid() {
		return Receipt{}, ErrInvalidSubLocation
	}

	return l.Do(ctx, actor, func(s *Session) error {
		if _, err := s.activeCase(from); err != nil {
			return err
		}
		if err := s.ValidateBatch(from, sub, lines); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := s.Decrease(from, line.UPC, sub, line.Qty); err != nil {
				return err
			}
			if _, err := s.Append(HistoryEvent{
				Action: action, UPC: line.UPC, Qty: line.Qty,
				From: from, FromSub: sub, Notes: notes, Sale: sale,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// RETURN
// =============================================================================

type ReturnRequest struct {
	Location    LocationID
	Lines       []Line
	Sale        SaleDetails
	Category    Category
	Description string
	Notes       string
}

// Return takes customer returns into the location's RETURNS case. The
// register fields of the original sale are required; the diamond test
// is optional.
func (l *Ledger) Return(ctx context.Context, actor Actor, req ReturnRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("return", actor, r, err, zap.Int64("location_id", int64(req.Location)))
	}()

	lines, err := validateLines(req.Lines)
	if err != nil {
		return Receipt{}, err
	}
	if err := req.Sale.Validate(false); err != nil {
		return Receipt{}, err
	}
	if req.Category != "" && !req.Category.Valid() {
		return Receipt{}, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	ref := Returns(req.Location)
	sale := req.Sale
	notes := orDefault(req.Notes, "Customer return")

	return l.Do(ctx, actor, func(s *Session) error {
		if _, err := s.activeCase(ref); err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.mergeProduct(line.UPC, req.Description, req.Category); err != nil {
				return err
			}
			if err := s.Increase(ref, line.UPC, SubCase, line.Qty); err != nil {
				return err
			}
			if _, err := s.Append(HistoryEvent{
				Action: ActionReturn, UPC: line.UPC, Qty: line.Qty,
				To: ref, ToSub: SubCase, Notes: notes, Sale: &sale,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// RELOCATE
// =============================================================================

type RelocateRequest struct {
	Case    CaseRef
	FromSub SubLocation
	ToSub   SubLocation
	Lines   []Line
	Notes   string
}

// Relocate moves stock between the CASE and RESERVE sub-locations of a case.
// The combined total of the case is unchanged.
func (l *Ledger) Relocate(ctx context.Context, actor Actor, req RelocateRequest) (r Receipt, err error) {
	defer func() {
		l.logResult("relocate", actor, r, err, zap.Stringer("case", req.Case),
			zap.String("from_sub", string(req.FromSub)), zap.String("to_sub", string(req.ToSub)))
	}()

	lines, err := validateLines(req.Lines)
	if err != nil {
		return Receipt{}, err
	}
	if !req.FromSub.Valid() || !req.ToSub.Valid() {
		return Receipt{}, ErrInvalidSubLocation
	}
	if req.FromSub == req.ToSub {
		return Receipt{}, ErrSameCase
	}
	notes := orDefault(req.Notes, fmt.Sprintf("Relocated %s to %s", req.FromSub, req.ToSub))

	return l.Do(ctx, actor, func(s *Session) error {
		if _, err := s.activeCase(req.Case); err != nil {
			return err
		}
		if err := s.ValidateBatch(req.Case, req.FromSub, lines); err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.Relocate(req.Case, line.UPC, req.FromSub, req.ToSub, line.Qty); err != nil {
				return err
			}
			if _, err := s.Append(HistoryEvent{
				Action: ActionRelocate, UPC: line.UPC, Qty: line.Qty,
				From: req.Case, FromSub: req.FromSub, To: req.Case, ToSub: req.ToSub, Notes: notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
