package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// AUDIT LOG
// =============================================================================

type historyRow struct {
	ID          int64               `db:"id"`
	TS          string              `db:"ts"`
	BatchID     string              `db:"batch_id"`
	ActorID     string              `db:"actor_id"`
	ActorName   sql.NullString      `db:"actor_name"`
	Action      string              `db:"action"`
	UPC         sql.NullString      `db:"upc"`
	Qty         sql.NullInt64       `db:"qty"`
	FromLoc     sql.NullInt64       `db:"from_location_id"`
	FromCode    sql.NullString      `db:"from_case_code"`
	FromSub     sql.NullString      `db:"from_sub"`
	ToLoc       sql.NullInt64       `db:"to_location_id"`
	ToCode      sql.NullString      `db:"to_case_code"`
	ToSub       sql.NullString      `db:"to_sub"`
	Notes       sql.NullString      `db:"notes"`
	TransReg    sql.NullString      `db:"trans_reg"`
	DeptNo      sql.NullString      `db:"dept_no"`
	BriefDesc   sql.NullString      `db:"brief_desc"`
	TicketPrice decimal.NullDecimal `db:"ticket_price"`
	DiamondTest sql.NullString      `db:"diamond_test"`
}

const historyColumns = `id, ts, batch_id, actor_id, actor_name, action, upc, qty,
	from_location_id, from_case_code, from_sub, to_location_id, to_case_code, to_sub,
	notes, trans_reg, dept_no, brief_desc, ticket_price, diamond_test`

func (r historyRow) toEvent() (inventory.HistoryEvent, error) {
	ts, err := parseTS(r.TS)
	if err != nil {
		return inventory.HistoryEvent{}, fmt.Errorf("history %d ts: %w", r.ID, err)
	}
	batch, err := uuid.Parse(r.BatchID)
	if err != nil {
		return inventory.HistoryEvent{}, fmt.Errorf("history %d batch_id: %w", r.ID, err)
	}
	e := inventory.HistoryEvent{
		ID:      r.ID,
		TS:      ts,
		BatchID: batch,
		Actor:   inventory.Actor{ID: r.ActorID, Name: r.ActorName.String},
		Action:  inventory.Action(r.Action),
		UPC:     inventory.UPC(r.UPC.String),
		Qty:     int(r.Qty.Int64),
		From:    refOf(r.FromLoc, r.FromCode),
		FromSub: inventory.SubLocation(r.FromSub.String),
		To:      refOf(r.ToLoc, r.ToCode),
		ToSub:   inventory.SubLocation(r.ToSub.String),
		Notes:   r.Notes.String,
	}
	if r.TransReg.Valid || r.DeptNo.Valid || r.BriefDesc.Valid || r.TicketPrice.Valid || r.DiamondTest.Valid {
		e.Sale = &inventory.SaleDetails{
			TransReg:    r.TransReg.String,
			DeptNo:      r.DeptNo.String,
			BriefDesc:   r.BriefDesc.String,
			TicketPrice: r.TicketPrice.Decimal,
			DiamondTest: inventory.DiamondTest(r.DiamondTest.String),
		}
	}
	return e, nil
}

func refOf(loc sql.NullInt64, code sql.NullString) inventory.CaseRef {
	return inventory.CaseRef{Location: inventory.LocationID(loc.Int64), Code: inventory.CaseCode(code.String)}
}

func nullLocation(id inventory.LocationID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func (t *txStore) AppendEvent(ctx context.Context, e *inventory.HistoryEvent) error {
	var (
		transReg, deptNo, brief, diamond sql.NullString
		price                            decimal.NullDecimal
	)
	if e.Sale != nil {
		transReg = nullString(e.Sale.TransReg)
		deptNo = nullString(e.Sale.DeptNo)
		brief = nullString(e.Sale.BriefDesc)
		diamond = nullString(string(e.Sale.DiamondTest))
		price = decimal.NullDecimal{Decimal: e.Sale.TicketPrice, Valid: true}
	}
	var qty sql.NullInt64
	if e.Action.IsMovement() || e.Qty != 0 {
		qty = sql.NullInt64{Int64: int64(e.Qty), Valid: true}
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO history (ts, batch_id, actor_id, actor_name, action, upc, qty,
			from_location_id, from_case_code, from_sub, to_location_id, to_case_code, to_sub,
			notes, trans_reg, dept_no, brief_desc, ticket_price, diamond_test)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTS(e.TS), e.BatchID.String(), e.Actor.ID, nullString(e.Actor.Name), string(e.Action),
		nullString(string(e.UPC)), qty,
		nullLocation(e.From.Location), nullString(string(e.From.Code)), nullString(string(e.FromSub)),
		nullLocation(e.To.Location), nullString(string(e.To.Code)), nullString(string(e.ToSub)),
		nullString(e.Notes), transReg, deptNo, brief, price, diamond)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// queryEvents returns matching events newest first.
func (r *reader) queryEvents(ctx context.Context, f inventory.HistoryFilter) ([]inventory.HistoryEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.Location != 0 {
		where = append(where, "(from_location_id = ? OR to_location_id = ?)")
		args = append(args, int64(f.Location), int64(f.Location))
	}
	if f.Case != nil {
		w, a := touches(*f.Case)
		where = append(where, w)
		args = append(args, a...)
	}
	if f.UPC != "" {
		where = append(where, "upc = ?")
		args = append(args, string(f.UPC))
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}
	if !f.From.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, formatTS(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "ts < ?")
		args = append(args, formatTS(f.To))
	}

	query := `SELECT ` + historyColumns + ` FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, f.PageSize(inventory.MaxHistoryPage))
	return r.selectEvents(ctx, query, args...)
}

// caseEvents returns every event touching the case in [from, to), oldest first.
func (r *reader) caseEvents(ctx context.Context, ref inventory.CaseRef, from, to time.Time) ([]inventory.HistoryEvent, error) {
	w, args := touches(ref)
	query := `SELECT ` + historyColumns + ` FROM history WHERE ` + w
	if !from.IsZero() {
		query += " AND ts >= ?"
		args = append(args, formatTS(from))
	}
	if !to.IsZero() {
		query += " AND ts < ?"
		args = append(args, formatTS(to))
	}
	query += " ORDER BY id"
	return r.selectEvents(ctx, query, args...)
}

func touches(ref inventory.CaseRef) (string, []any) {
	return "((from_location_id = ? AND from_case_code = ?) OR (to_location_id = ? AND to_case_code = ?))",
		[]any{int64(ref.Location), string(ref.Code), int64(ref.Location), string(ref.Code)}
}

func (r *reader) selectEvents(ctx context.Context, query string, args ...any) ([]inventory.HistoryEvent, error) {
	var rows []historyRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]inventory.HistoryEvent, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
