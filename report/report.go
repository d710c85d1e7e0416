/*
Package report derives read-only views from the audit log and count
snapshots.

PURPOSE:
  Everything here is a pure function of the stored events and counts at
  call time. Nothing writes back to the ledger or to count snapshots, so
  calling a derivation twice with no new events returns the same result.

DERIVATIONS:
  DailyActivityTotals: in/out/net of one case over one store-local day
  ActivityLines:       the same events as printable activity-log lines
  CountSheetView:      latest count, the count before it, and the day's net
  CountVariance:       latest count against live ledger totals per category

CLASSIFICATION (relative to the case):
  RECEIVE:        in when the case is the destination, otherwise out
  MOVE, RETURN:   in when destination, out when source
  SOLD, MISSING:  out from the source
  RELOCATE:       neither (stays inside the case)

SEE ALSO:
  - inventory/history.go: Event model
  - export/:              Spreadsheet and CSV rendering of these views
*/
package report

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/warp/caseledger/inventory"
)

// Source is the read surface the deriver needs. inventory.Store satisfies it.
type Source interface {
	GetCase(ctx context.Context, ref inventory.CaseRef) (inventory.Case, error)
	GetProduct(ctx context.Context, upc inventory.UPC) (inventory.Product, bool, error)
	Rows(ctx context.Context, filter inventory.RowFilter) ([]inventory.InventoryRow, error)
	CaseEvents(ctx context.Context, ref inventory.CaseRef, from, to time.Time) ([]inventory.HistoryEvent, error)
	LatestCount(ctx context.Context, ref inventory.CaseRef, on inventory.LocalDate, strict bool) (inventory.CountSnapshot, bool, error)
}

// Deriver computes report views for cases.
type Deriver struct {
	src   Source
	clock *inventory.StoreClock
}

func NewDeriver(src Source, clock *inventory.StoreClock) *Deriver {
	return &Deriver{src: src, clock: clock}
}

// =============================================================================
// DAILY TOTALS
// =============================================================================

type DailyTotals struct {
	In  int
	Out int
}

func (t DailyTotals) Net() int { return t.In - t.Out }

// Classify returns the quantity an event moves into and out of a case.
func Classify(e inventory.HistoryEvent, ref inventory.CaseRef) (in, out int) {
	switch e.Action {
	case inventory.ActionReceive:
		if e.To == ref {
			return e.Qty, 0
		}
		if e.From == ref {
			return 0, e.Qty
		}
	case inventory.ActionMove, inventory.ActionReturn:
		if e.To == ref {
			return e.Qty, 0
		}
		if e.From == ref {
			return 0, e.Qty
		}
	case inventory.ActionSold, inventory.ActionMissing:
		if e.From == ref {
			return 0, e.Qty
		}
	}
	return 0, 0
}

// dayEvents returns the movement events touching the case whose timestamp
// falls on the store-local date, oldest first.
func (d *Deriver) dayEvents(ctx context.Context, ref inventory.CaseRef, date inventory.LocalDate) ([]inventory.HistoryEvent, error) {
	if date.IsZero() {
		return nil, inventory.ErrInvalidDate
	}
	start, end := d.clock.DayBounds(date)
	events, err := d.src.CaseEvents(ctx, ref, start, end)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", ref, err)
	}
	var out []inventory.HistoryEvent
	for _, e := range events {
		if !e.Action.IsMovement() || !d.clock.DateOf(e.TS).Equal(date) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DailyActivityTotals sums the quantity into and out of a case on a
// store-local date.
func (d *Deriver) DailyActivityTotals(ctx context.Context, ref inventory.CaseRef, date inventory.LocalDate) (DailyTotals, error) {
	events, err := d.dayEvents(ctx, ref, date)
	if err != nil {
		return DailyTotals{}, err
	}
	var t DailyTotals
	for _, e := range events {
		in, out := Classify(e, ref)
		t.In += in
		t.Out += out
	}
	return t, nil
}

// =============================================================================
// ACTIVITY LINES
// =============================================================================

// ActivityLine is one printed row of the daily activity log.
type ActivityLine struct {
	EventID     int64
	LocalDate   inventory.LocalDate
	Action      inventory.Action
	DocNo       string
	Description string
	UPC         inventory.UPC
	TicketPrice decimal.NullDecimal
	DiamondTest string
	ItemCode    string
	ReasonCode  string
	In          int
	Out         int
	Initials    string
}

// ActivityLog is the header and lines of one case's day.
type ActivityLog struct {
	Case  inventory.Case
	Date  inventory.LocalDate
	Lines []ActivityLine
}

// Totals sums the in and out columns.
func (a ActivityLog) Totals() DailyTotals {
	var t DailyTotals
	for _, l := range a.Lines {
		t.In += l.In
		t.Out += l.Out
	}
	return t
}

// ActivityLines builds the activity log of a case for a store-local date.
// RELOCATE events move nothing in or out and are left off.
func (d *Deriver) ActivityLines(ctx context.Context, ref inventory.CaseRef, date inventory.LocalDate) (ActivityLog, error) {
	c, err := d.src.GetCase(ctx, ref)
	if err != nil {
		return ActivityLog{}, err
	}
	events, err := d.dayEvents(ctx, ref, date)
	if err != nil {
		return ActivityLog{}, err
	}

	log := ActivityLog{Case: c, Date: date}
	products := make(map[inventory.UPC]inventory.Product)
	for _, e := range events {
		in, out := Classify(e, ref)
		if in == 0 && out == 0 {
			continue
		}
		p, ok := products[e.UPC]
		if !ok {
			if p, _, err = d.src.GetProduct(ctx, e.UPC); err != nil {
				return ActivityLog{}, err
			}
			products[e.UPC] = p
		}
		log.Lines = append(log.Lines, activityLine(e, ref, p, d.clock.DateOf(e.TS), in, out))
	}
	return log, nil
}

func activityLine(e inventory.HistoryEvent, ref inventory.CaseRef, p inventory.Product, date inventory.LocalDate, in, out int) ActivityLine {
	line := ActivityLine{
		EventID:    e.ID,
		LocalDate:  date,
		Action:     e.Action,
		DocNo:      fmt.Sprintf("SYS-%d", e.ID),
		UPC:        e.UPC,
		ItemCode:   p.Category.Code(),
		ReasonCode: e.Action.ReasonCode(),
		In:         in,
		Out:        out,
		Initials:   Initials(e.Actor.Name),
	}
	if line.Initials == "" {
		line.Initials = Initials(e.Actor.ID)
	}

	if e.Action == inventory.ActionSold && e.Sale != nil {
		if reg := strings.TrimSpace(e.Sale.TransReg); reg != "" {
			line.DocNo = reg
		}
		line.Description = strings.Trim(fmt.Sprintf("%s - %s", e.Sale.DeptNo, e.Sale.BriefDesc), " -")
		line.TicketPrice = decimal.NullDecimal{Decimal: e.Sale.TicketPrice, Valid: true}
		line.DiamondTest = strings.ToUpper(string(e.Sale.DiamondTest))
		return line
	}

	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = strings.ToUpper(string(p.Category))
	}
	if desc == "" {
		desc = "ITEM"
	}
	if e.Action == inventory.ActionMove {
		switch {
		case e.To == ref:
			desc = fmt.Sprintf("FROM %s - %s", e.From.Code, desc)
		case e.From == ref:
			desc = fmt.Sprintf("TO %s - %s", e.To.Code, desc)
		}
	}
	line.Description = desc

	switch e.Action {
	case inventory.ActionReceive:
		line.DiamondTest = string(inventory.DiamondNotRead)
	case inventory.ActionReturn:
		if e.Sale != nil {
			line.DiamondTest = strings.ToUpper(string(e.Sale.DiamondTest))
		}
	}
	return line
}

// Initials returns the first letters of the first two words of a name, or
// the first two letters/digits when the name is one word.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) >= 2 {
		a, _ := firstRune(words[0])
		b, _ := firstRune(words[1])
		return strings.ToUpper(string([]rune{a, b}))
	}
	var out []rune
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
			if len(out) == 2 {
				break
			}
		}
	}
	return strings.ToUpper(string(out))
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
