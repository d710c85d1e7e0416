package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// LOCATIONS
// =============================================================================

// CreateLocation creates a location together with its virtual cases.
func (l *Ledger) CreateLocation(ctx context.Context, actor Actor, name string) (loc Location, err error) {
	var r Receipt
	defer func() {
		l.logResult("create_location", actor, r, err, zap.String("name", name))
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return Location{}, ErrInvalidName
	}

	r, err = l.Do(ctx, actor, func(s *Session) error {
		created, err := s.tx.InsertLocation(ctx, name, s.now)
		if err != nil {
			return err
		}
		for _, c := range []Case{
			{Ref: NewReceipts(created.ID), Name: NameNewReceipts},
			{Ref: Returns(created.ID), Name: NameReturns},
		} {
			c.Virtual, c.Active, c.CreatedAt = true, true, s.now
			if err := s.tx.InsertCase(ctx, c); err != nil {
				return err
			}
		}
		if _, err := s.Append(HistoryEvent{
			Action: ActionLocationCreate,
			To:     CaseRef{Location: created.ID},
			Notes:  fmt.Sprintf("Created location %d (%s)", created.ID, name),
		}); err != nil {
			return err
		}
		loc = created
		return nil
	})
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

// DeactivateLocation marks an empty location inactive.
func (l *Ledger) DeactivateLocation(ctx context.Context, actor Actor, id LocationID) (err error) {
	var r Receipt
	defer func() {
		l.logResult("deactivate_location", actor, r, err, zap.Int64("location_id", int64(id)))
	}()

	r, err = l.Do(ctx, actor, func(s *Session) error {
		loc, err := s.tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if !loc.Active {
			return fmt.Errorf("%w: %d is already inactive", ErrUnknownLocation, id)
		}
		rows, err := s.tx.Rows(ctx, RowFilter{Location: id})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return ErrLocationNotEmpty
		}
		if err := s.tx.SetLocationActive(ctx, id, false); err != nil {
			return err
		}
		_, err = s.Append(HistoryEvent{
			Action: ActionLocationDeactivate,
			From:   CaseRef{Location: id},
			Notes:  fmt.Sprintf("Deactivated location %d (%s)", id, loc.Name),
		})
		return err
	})
	return err
}

// Locations lists every location.
func (l *Ledger) Locations(ctx context.Context) ([]Location, error) {
	return l.store.ListLocations(ctx)
}

// =============================================================================
// CASES
// =============================================================================

// CreateCase adds a physical case to an active location.
func (l *Ledger) CreateCase(ctx context.Context, actor Actor, loc LocationID, code, name string) (c Case, err error) {
	var r Receipt
	defer func() {
		l.logResult("create_case", actor, r, err, zap.Int64("location_id", int64(loc)), zap.String("code", code))
	}()

	cc, err := NormalizeCaseCode(code)
	if err != nil {
		return Case{}, err
	}
	if IsReservedCode(cc) {
		return Case{}, fmt.Errorf("%w: %s", ErrReservedCase, cc)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Case{}, ErrInvalidName
	}

	r, err = l.Do(ctx, actor, func(s *Session) error {
		location, err := s.tx.GetLocation(ctx, loc)
		if err != nil {
			return err
		}
		if !location.Active {
			return fmt.Errorf("%w: %d is inactive", ErrUnknownLocation, loc)
		}
		c = Case{Ref: CaseRef{Location: loc, Code: cc}, Name: name, Active: true, CreatedAt: s.now}
		if err := s.tx.InsertCase(ctx, c); err != nil {
			return err
		}
		_, err = s.Append(HistoryEvent{
			Action: ActionCaseCreate, To: c.Ref,
			Notes: fmt.Sprintf("Created case %s (%s)", cc, name),
		})
		return err
	})
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// RenameCase changes the display name of an active case.
func (l *Ledger) RenameCase(ctx context.Context, actor Actor, ref CaseRef, name string) (err error) {
	var r Receipt
	defer func() {
		l.logResult("rename_case", actor, r, err, zap.Stringer("case", ref))
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	r, err = l.Do(ctx, actor, func(s *Session) error {
		c, err := s.activeCase(ref)
		if err != nil {
			return err
		}
		if c.Name == name {
			return ErrNoChange
		}
		old := c.Name
		c.Name = name
		if err := s.tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		_, err = s.Append(HistoryEvent{
			Action: ActionCaseEdit, To: ref,
			Notes: fmt.Sprintf("Renamed case %s: '%s' -> '%s'", ref.Code, old, name),
		})
		return err
	})
	return err
}

// ArchiveCase deactivates a physical case that holds nothing in any
// sub-location.
func (l *Ledger) ArchiveCase(ctx context.Context, actor Actor, ref CaseRef) (err error) {
	var r Receipt
	defer func() {
		l.logResult("archive_case", actor, r, err, zap.Stringer("case", ref))
	}()

	if IsReservedCode(ref.Code) {
		return fmt.Errorf("%w: %s", ErrReservedCase, ref.Code)
	}

	r, err = l.Do(ctx, actor, func(s *Session) error {
		c, err := s.activeCase(ref)
		if err != nil {
			return err
		}
		if c.Virtual {
			return fmt.Errorf("%w: %s", ErrReservedCase, ref.Code)
		}
		t, err := s.Totals(ref, nil)
		if err != nil {
			return err
		}
		if t.Quantity > 0 {
			return fmt.Errorf("%w: %s holds %d unit(s)", ErrCaseNotEmpty, ref.Code, t.Quantity)
		}
		c.Active = false
		if err := s.tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		_, err = s.Append(HistoryEvent{
			Action: ActionCaseDelete, From: ref,
			Notes: fmt.Sprintf("Archived case %s", ref.Code),
		})
		return err
	})
	return err
}

// CaseSummary is a case with its combined totals.
type CaseSummary struct {
	Case
	Totals
}

// ListCases returns the active cases of a location with their totals,
// virtual cases first, then numeric codes in numeric order, then the rest.
func (l *Ledger) ListCases(ctx context.Context, loc LocationID) ([]CaseSummary, error) {
	cases, err := l.store.ListCases(ctx, loc)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.Rows(ctx, RowFilter{Location: loc})
	if err != nil {
		return nil, err
	}
	byCase := make(map[CaseRef][]InventoryRow)
	for _, r := range rows {
		byCase[r.Key.Case] = append(byCase[r.Key.Case], r)
	}

	var out []CaseSummary
	for _, c := range cases {
		if !c.Active {
			continue
		}
		out = append(out, CaseSummary{Case: c, Totals: SumRows(byCase[c.Ref])})
	}
	sort.SliceStable(out, func(i, j int) bool { return caseLess(out[i].Case, out[j].Case) })
	return out, nil
}

// GetCase returns one case, active or not.
func (l *Ledger) GetCase(ctx context.Context, ref CaseRef) (Case, error) {
	return l.store.GetCase(ctx, ref)
}

func caseLess(a, b Case) bool {
	if a.Virtual != b.Virtual {
		return a.Virtual
	}
	an, bn := numericRank(a.Ref.Code), numericRank(b.Ref.Code)
	if an != bn {
		return an < bn
	}
	return a.Ref.Code < b.Ref.Code
}

// numericRank orders codes that start with a digit by their leading number.
func numericRank(code CaseCode) int {
	s := string(code)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 999999
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 999999
	}
	return n
}

// =============================================================================
// ADMIN EVENTS
// =============================================================================

// RecordAdmin appends a user-administration event emitted by the external
// user management layer.
func (l *Ledger) RecordAdmin(ctx context.Context, actor Actor, action Action, notes string) (e HistoryEvent, err error) {
	var r Receipt
	defer func() {
		l.logResult("record_admin", actor, r, err, zap.String("action", string(action)))
	}()

	if action != ActionUserCreate && action != ActionUserDisable {
		return HistoryEvent{}, fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
	r, err = l.Do(ctx, actor, func(s *Session) error {
		var err error
		e, err = s.Append(HistoryEvent{Action: action, Notes: strings.TrimSpace(notes)})
		return err
	})
	if err != nil {
		return HistoryEvent{}, err
	}
	return e, nil
}

// =============================================================================
// COUNTS
// =============================================================================

// RecordCount stores a physical count. It never touches the ledger.
func (l *Ledger) RecordCount(ctx context.Context, actor Actor, in CountInput) (snap CountSnapshot, err error) {
	defer func() {
		fields := []zap.Field{zap.String("op", "record_count"), zap.String("actor_id", actor.ID), zap.Stringer("case", in.Case)}
		if err != nil {
			l.logger.Info("count rejected", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("count recorded", append(fields, zap.Int64("count_id", snap.ID), zap.Int("total", snap.DeclaredTotal))...)
	}()

	if err := actor.Validate(); err != nil {
		return CountSnapshot{}, err
	}
	if err := in.validate(); err != nil {
		return CountSnapshot{}, err
	}

	snap = CountSnapshot{
		Case:          in.Case,
		LocalDate:     in.LocalDate,
		RecordedAt:    l.clock.Now(),
		Actor:         actor,
		CaseCounts:    copyCounts(in.CaseCounts),
		ReserveCounts: copyCounts(in.ReserveCounts),
		Notes:         strings.TrimSpace(in.Notes),
	}
	snap.DeclaredTotal = snap.CountedTotal()
	if in.DeclaredTotal != nil {
		snap.DeclaredTotal = *in.DeclaredTotal
	}

	err = l.store.WithTx(ctx, func(tx Tx) error {
		if _, err := requireActiveCase(ctx, tx, in.Case); err != nil {
			return err
		}
		return tx.InsertCount(ctx, &snap)
	})
	if err != nil {
		return CountSnapshot{}, err
	}
	return snap, nil
}

// LatestCount returns the authoritative count for a case on or before a date.
func (l *Ledger) LatestCount(ctx context.Context, ref CaseRef, on LocalDate) (CountSnapshot, bool, error) {
	return l.store.LatestCount(ctx, ref, on, false)
}

// ListCounts returns counts newest first.
func (l *Ledger) ListCounts(ctx context.Context, filter CountFilter) ([]CountSnapshot, error) {
	return l.store.ListCounts(ctx, filter)
}

func copyCounts(in CategoryCounts) CategoryCounts {
	out := make(CategoryCounts, len(Categories))
	for _, c := range Categories {
		if n := in[c]; n > 0 {
			out[c] = n
		}
	}
	return out
}

// LatestCountBefore returns the latest count strictly before a date.
func (l *Ledger) LatestCountBefore(ctx context.Context, ref CaseRef, before LocalDate) (CountSnapshot, bool, error) {
	return l.store.LatestCount(ctx, ref, before, true)
}
