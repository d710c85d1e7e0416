/*
history.go - Append-only audit log of quantity-changing actions

PURPOSE:
  Every ledger mutation is documented by exactly one HistoryEvent written
  in the same transaction. The log is the sole source for reconstructing
  movement history and for the report deriver.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: events are never updated or deleted.
  2. ORDERED BY ID: ties in timestamp are broken by insertion id.
  3. SAME TRANSACTION: an event and the row delta it documents commit or
     roll back together (see session.go).

LIFECYCLE (inferred, never stored):
  RECEIVE -> (MOVE | RELOCATE)* -> (SOLD | MISSING)
  RETURN  -> (MOVE | RELOCATE)* -> (SOLD | MISSING)

SEE ALSO:
  - session.go: Matches events against journaled row deltas
  - report/:    Derives daily totals from events
*/
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionReceive  Action = "RECEIVE"
	ActionMove     Action = "MOVE"
	ActionSold     Action = "SOLD"
	ActionMissing  Action = "MISSING"
	ActionReturn   Action = "RETURN"
	ActionRelocate Action = "RELOCATE"

	ActionCaseCreate         Action = "CASE_CREATE"
	ActionCaseEdit           Action = "CASE_EDIT"
	ActionCaseDelete         Action = "CASE_DELETE"
	ActionLocationCreate     Action = "LOCATION_CREATE"
	ActionLocationDeactivate Action = "LOCATION_DEACTIVATE"
	ActionUserCreate         Action = "USER_CREATE"
	ActionUserDisable        Action = "USER_DISABLE"
)

// MovementActions are the actions that change quantities.
var MovementActions = []Action{
	ActionReceive, ActionMove, ActionSold, ActionMissing, ActionReturn, ActionRelocate,
}

// IsMovement reports whether the action documents a ledger delta.
func (a Action) IsMovement() bool {
	for _, m := range MovementActions {
		if a == m {
			return true
		}
	}
	return false
}

// ReasonCode is the short code printed on the activity log.
func (a Action) ReasonCode() string {
	switch a {
	case ActionReceive:
		return "NRT"
	case ActionMove:
		return "M"
	case ActionSold:
		return "S"
	case ActionMissing:
		return "D"
	case ActionReturn:
		return "RET"
	case ActionRelocate:
		return "REL"
	}
	if len(a) > 3 {
		return string(a[:3])
	}
	return string(a)
}

// =============================================================================
// HISTORY EVENT
// =============================================================================

// HistoryEvent is one immutable audit record. From/To are zero when the
// action has no source or destination.
type HistoryEvent struct {
	ID      int64
	TS      time.Time // UTC
	BatchID uuid.UUID
	Actor   Actor
	Action  Action
	UPC     UPC
	Qty     int
	From    CaseRef
	FromSub SubLocation
	To      CaseRef
	ToSub   SubLocation
	Notes   string
	Sale    *SaleDetails
}

// Touches reports whether the event names the case as source or destination.
func (e HistoryEvent) Touches(ref CaseRef) bool {
	return e.From == ref || e.To == ref
}

// delta is one row change an event documents.
type delta struct {
	key RowKey
	qty int
}

// deltas returns the row changes a movement event claims to document.
func (e HistoryEvent) deltas() []delta {
	switch e.Action {
	case ActionReceive, ActionReturn:
		return []delta{{RowKey{e.To, e.UPC, e.ToSub}, e.Qty}}
	case ActionMove, ActionRelocate:
		return []delta{
			{RowKey{e.From, e.UPC, e.FromSub}, -e.Qty},
			{RowKey{e.To, e.UPC, e.ToSub}, e.Qty},
		}
	case ActionSold, ActionMissing:
		return []delta{{RowKey{e.From, e.UPC, e.FromSub}, -e.Qty}}
	}
	return nil
}

// =============================================================================
// QUERY
// =============================================================================

// MaxHistoryPage bounds every history query.
const MaxHistoryPage = 500

// HistoryFilter selects events. Zero fields are ignored. Case matches
// either the source or the destination. From is inclusive, To exclusive.
type HistoryFilter struct {
	Location LocationID
	Case     *CaseRef
	UPC      UPC
	Actions  []Action
	From     time.Time
	To       time.Time
	Limit    int
}

// PageSize clamps the requested limit to [1, max].
func (f HistoryFilter) PageSize(max int) int {
	if f.Limit <= 0 || f.Limit > max {
		return max
	}
	return f.Limit
}

// Matches applies the filter to a single event.
func (f HistoryFilter) Matches(e HistoryEvent) bool {
	if f.Location != 0 && e.From.Location != f.Location && e.To.Location != f.Location {
		return false
	}
	if f.Case != nil && !e.Touches(*f.Case) {
		return false
	}
	if f.UPC != "" && e.UPC != f.UPC {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.TS.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.TS.Before(f.To) {
		return false
	}
	return true
}
