package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// LEDGER ROWS
// =============================================================================

type inventoryRow struct {
	LocationID  int64          `db:"location_id"`
	Code        string         `db:"case_code"`
	UPC         string         `db:"upc"`
	Sub         string         `db:"sub_location"`
	Qty         int            `db:"qty"`
	Category    sql.NullString `db:"item_type"`
	Description sql.NullString `db:"description"`
}

func (r *reader) Quantity(ctx context.Context, key inventory.RowKey) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.q, &qty, `
		SELECT qty FROM inventory
		WHERE location_id = ? AND case_code = ? AND upc = ? AND sub_location = ?`,
		int64(key.Case.Location), string(key.Case.Code), string(key.UPC), string(key.Sub))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (r *reader) Rows(ctx context.Context, f inventory.RowFilter) ([]inventory.InventoryRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Location != 0 {
		where = append(where, "i.location_id = ?")
		args = append(args, int64(f.Location))
	}
	if f.Case != nil {
		where = append(where, "i.location_id = ? AND i.case_code = ?")
		args = append(args, int64(f.Case.Location), string(f.Case.Code))
	}
	if f.Sub != "" {
		where = append(where, "i.sub_location = ?")
		args = append(args, string(f.Sub))
	}
	if f.UPC != "" {
		where = append(where, "i.upc = ?")
		args = append(args, string(f.UPC))
	}

	query := `
		SELECT i.location_id, i.case_code, i.upc, i.sub_location, i.qty, p.item_type, p.description
		FROM inventory i
		LEFT JOIN products p ON p.upc = i.upc
		WHERE i.qty > 0`
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.location_id, i.case_code, i.upc, i.sub_location"

	var rows []inventoryRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]inventory.InventoryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, inventory.InventoryRow{
			Key: inventory.RowKey{
				Case: inventory.CaseRef{Location: inventory.LocationID(row.LocationID), Code: inventory.CaseCode(row.Code)},
				UPC:  inventory.UPC(row.UPC),
				Sub:  inventory.SubLocation(row.Sub),
			},
			Qty:         row.Qty,
			Category:    inventory.Category(row.Category.String),
			Description: row.Description.String,
		})
	}
	return out, nil
}

// AddQuantity upserts the row, adding qty to any existing quantity. SQLite
// promotes an overflowing INTEGER sum to REAL, so the sum is checked first.
func (t *txStore) AddQuantity(ctx context.Context, key inventory.RowKey, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	have, err := t.Quantity(ctx, key)
	if err != nil {
		return err
	}
	if have > math.MaxInt-qty {
		return inventory.ErrQuantityOverflow
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO inventory (location_id, case_code, upc, sub_location, qty) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(location_id, case_code, upc, sub_location) DO UPDATE SET qty = qty + excluded.qty`,
		int64(key.Case.Location), string(key.Case.Code), string(key.UPC), string(key.Sub), qty)
	return mapErr(err)
}

// SubtractQuantity checks and decrements in conditional statements; the
// row is deleted when it reaches zero.
func (t *txStore) SubtractQuantity(ctx context.Context, key inventory.RowKey, qty int) (int, error) {
	if qty <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	have, err := t.Quantity(ctx, key)
	if err != nil {
		return 0, err
	}
	if have < qty {
		return have, &inventory.InsufficientQuantityError{
			Case: key.Case, UPC: key.UPC, Sub: key.Sub, Have: have, Need: qty,
		}
	}

	args := []any{int64(key.Case.Location), string(key.Case.Code), string(key.UPC), string(key.Sub)}
	var res sql.Result
	if have == qty {
		res, err = t.tx.ExecContext(ctx, `
			DELETE FROM inventory
			WHERE location_id = ? AND case_code = ? AND upc = ? AND sub_location = ? AND qty = ?`,
			append(args, qty)...)
	} else {
		res, err = t.tx.ExecContext(ctx, `
			UPDATE inventory SET qty = qty - ?
			WHERE location_id = ? AND case_code = ? AND upc = ? AND sub_location = ? AND qty >= ?`,
			append(append([]any{qty}, args...), qty)...)
	}
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, inventory.ErrConcurrentModification
	}
	return have - qty, nil
}
