package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// COUNT SNAPSHOTS
// =============================================================================

type countRow struct {
	ID            int64          `db:"id"`
	LocationID    int64          `db:"location_id"`
	Code          string         `db:"case_code"`
	LocalDate     string         `db:"local_date"`
	RecordedAt    string         `db:"recorded_at"`
	ActorID       string         `db:"actor_id"`
	ActorName     sql.NullString `db:"actor_name"`
	DeclaredTotal int            `db:"declared_total"`
	Notes         sql.NullString `db:"notes"`
}

type countLineRow struct {
	CountID  int64  `db:"count_id"`
	Sub      string `db:"sub_location"`
	Category string `db:"item_type"`
	Qty      int    `db:"qty"`
}

const countColumns = `id, location_id, case_code, local_date, recorded_at, actor_id, actor_name, declared_total, notes`

func (t *txStore) InsertCount(ctx context.Context, c *inventory.CountSnapshot) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO count_snapshots (location_id, case_code, local_date, recorded_at, actor_id, actor_name, declared_total, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(c.Case.Location), string(c.Case.Code), c.LocalDate.String(), formatTS(c.RecordedAt),
		c.Actor.ID, nullString(c.Actor.Name), c.DeclaredTotal, nullString(c.Notes))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, part := range []struct {
		sub    inventory.SubLocation
		counts inventory.CategoryCounts
	}{
		{inventory.SubCase, c.CaseCounts},
		{inventory.SubReserve, c.ReserveCounts},
	} {
		for _, cat := range inventory.Categories {
			n, ok := part.counts[cat]
			if !ok {
				continue
			}
			if _, err := t.tx.ExecContext(ctx,
				`INSERT INTO count_lines (count_id, sub_location, item_type, qty) VALUES (?, ?, ?, ?)`,
				id, string(part.sub), string(cat), n); err != nil {
				return mapErr(err)
			}
		}
	}
	c.ID = id
	return nil
}

func (r *reader) latestCount(ctx context.Context, ref inventory.CaseRef, on inventory.LocalDate, strict bool) (inventory.CountSnapshot, bool, error) {
	op := "<="
	if strict {
		op = "<"
	}
	var row countRow
	err := sqlx.GetContext(ctx, r.q, &row, `
		SELECT `+countColumns+` FROM count_snapshots
		WHERE location_id = ? AND case_code = ? AND local_date `+op+` ?
		ORDER BY local_date DESC, id DESC LIMIT 1`,
		int64(ref.Location), string(ref.Code), on.String())
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.CountSnapshot{}, false, nil
	}
	if err != nil {
		return inventory.CountSnapshot{}, false, err
	}
	snaps, err := r.withLines(ctx, []countRow{row})
	if err != nil {
		return inventory.CountSnapshot{}, false, err
	}
	return snaps[0], true, nil
}

func (r *reader) listCounts(ctx context.Context, f inventory.CountFilter) ([]inventory.CountSnapshot, error) {
	var (
		where []string
		args  []any
	)
	if f.Location != 0 {
		where = append(where, "location_id = ?")
		args = append(args, int64(f.Location))
	}
	if f.Case != nil {
		where = append(where, "location_id = ? AND case_code = ?")
		args = append(args, int64(f.Case.Location), string(f.Case.Code))
	}
	if !f.From.IsZero() {
		where = append(where, "local_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "local_date <= ?")
		args = append(args, f.To.String())
	}
	limit := f.Limit
	if limit <= 0 || limit > inventory.MaxHistoryPage {
		limit = inventory.MaxHistoryPage
	}

	query := `SELECT ` + countColumns + ` FROM count_snapshots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY local_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var rows []countRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	return r.withLines(ctx, rows)
}

// withLines loads the per-category lines of each snapshot.
func (r *reader) withLines(ctx context.Context, rows []countRow) ([]inventory.CountSnapshot, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`SELECT count_id, sub_location, item_type, qty FROM count_lines WHERE count_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var lines []countLineRow
	if err := sqlx.SelectContext(ctx, r.q, &lines, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}

	byID := make(map[int64][]countLineRow, len(rows))
	for _, l := range lines {
		byID[l.CountID] = append(byID[l.CountID], l)
	}

	out := make([]inventory.CountSnapshot, 0, len(rows))
	for _, row := range rows {
		date, err := inventory.ParseLocalDate(row.LocalDate)
		if err != nil {
			return nil, fmt.Errorf("count %d: %w", row.ID, err)
		}
		at, err := parseTS(row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("count %d recorded_at: %w", row.ID, err)
		}
		snap := inventory.CountSnapshot{
			ID:            row.ID,
			Case:          inventory.CaseRef{Location: inventory.LocationID(row.LocationID), Code: inventory.CaseCode(row.Code)},
			LocalDate:     date,
			RecordedAt:    at,
			Actor:         inventory.Actor{ID: row.ActorID, Name: row.ActorName.String},
			CaseCounts:    inventory.CategoryCounts{},
			ReserveCounts: inventory.CategoryCounts{},
			DeclaredTotal: row.DeclaredTotal,
			Notes:         row.Notes.String,
		}
		for _, l := range byID[row.ID] {
			cat := inventory.Category(l.Category)
			if inventory.SubLocation(l.Sub) == inventory.SubReserve {
				snap.ReserveCounts[cat] += l.Qty
			} else {
				snap.CaseCounts[cat] += l.Qty
			}
		}
		out = append(out, snap)
	}
	return out, nil
}
