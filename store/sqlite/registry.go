package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// LOCATIONS
// =============================================================================

type locationRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Active    bool   `db:"is_active"`
	CreatedAt string `db:"created_at"`
}

func (r locationRow) toLocation() (inventory.Location, error) {
	at, err := parseTS(r.CreatedAt)
	if err != nil {
		return inventory.Location{}, fmt.Errorf("location %d created_at: %w", r.ID, err)
	}
	return inventory.Location{ID: inventory.LocationID(r.ID), Name: r.Name, Active: r.Active, CreatedAt: at}, nil
}

func (r *reader) GetLocation(ctx context.Context, id inventory.LocationID) (inventory.Location, error) {
	var row locationRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT id, name, is_active, created_at FROM locations WHERE id = ?`, int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Location{}, fmt.Errorf("%w: %d", inventory.ErrUnknownLocation, id)
	}
	if err != nil {
		return inventory.Location{}, err
	}
	return row.toLocation()
}

func (r *reader) ListLocations(ctx context.Context) ([]inventory.Location, error) {
	var rows []locationRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT id, name, is_active, created_at FROM locations ORDER BY id`); err != nil {
		return nil, err
	}
	out := make([]inventory.Location, 0, len(rows))
	for _, row := range rows {
		loc, err := row.toLocation()
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (t *txStore) InsertLocation(ctx context.Context, name string, at time.Time) (inventory.Location, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO locations (name, is_active, created_at) VALUES (?, 1, ?)`, name, formatTS(at))
	if err != nil {
		return inventory.Location{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return inventory.Location{}, err
	}
	return inventory.Location{ID: inventory.LocationID(id), Name: name, Active: true, CreatedAt: at.UTC()}, nil
}

func (t *txStore) SetLocationActive(ctx context.Context, id inventory.LocationID, active bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE locations SET is_active = ? WHERE id = ?`, boolInt(active), int64(id))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", inventory.ErrUnknownLocation, id)
	}
	return nil
}

// =============================================================================
// CASES
// =============================================================================

type caseRow struct {
	LocationID int64  `db:"location_id"`
	Code       string `db:"case_code"`
	Name       string `db:"case_name"`
	Virtual    bool   `db:"is_virtual"`
	Active     bool   `db:"is_active"`
	CreatedAt  string `db:"created_at"`
}

func (r caseRow) toCase() (inventory.Case, error) {
	ref := inventory.CaseRef{Location: inventory.LocationID(r.LocationID), Code: inventory.CaseCode(r.Code)}
	at, err := parseTS(r.CreatedAt)
	if err != nil {
		return inventory.Case{}, fmt.Errorf("case %s created_at: %w", ref, err)
	}
	return inventory.Case{Ref: ref, Name: r.Name, Virtual: r.Virtual, Active: r.Active, CreatedAt: at}, nil
}

const caseColumns = `location_id, case_code, case_name, is_virtual, is_active, created_at`

func (r *reader) GetCase(ctx context.Context, ref inventory.CaseRef) (inventory.Case, error) {
	var row caseRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+caseColumns+` FROM cases WHERE location_id = ? AND case_code = ?`,
		int64(ref.Location), string(ref.Code))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Case{}, &inventory.UnknownCaseError{Case: ref}
	}
	if err != nil {
		return inventory.Case{}, err
	}
	return row.toCase()
}

func (r *reader) ListCases(ctx context.Context, loc inventory.LocationID) ([]inventory.Case, error) {
	var rows []caseRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT `+caseColumns+` FROM cases WHERE location_id = ? ORDER BY case_code`, int64(loc)); err != nil {
		return nil, err
	}
	out := make([]inventory.Case, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCase()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (t *txStore) InsertCase(ctx context.Context, c inventory.Case) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO cases (`+caseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(c.Ref.Location), string(c.Ref.Code), c.Name, boolInt(c.Virtual), boolInt(c.Active), formatTS(c.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", inventory.ErrDuplicateCase, c.Ref)
	}
	if err != nil {
		return mapErr(err)
	}
	return nil
}

func (t *txStore) UpdateCase(ctx context.Context, c inventory.Case) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE cases SET case_name = ?, is_active = ? WHERE location_id = ? AND case_code = ?`,
		c.Name, boolInt(c.Active), int64(c.Ref.Location), string(c.Ref.Code))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &inventory.UnknownCaseError{Case: c.Ref}
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

type productRow struct {
	UPC         string         `db:"upc"`
	Description sql.NullString `db:"description"`
	Category    sql.NullString `db:"item_type"`
	CreatedAt   string         `db:"created_at"`
}

func (r *reader) GetProduct(ctx context.Context, upc inventory.UPC) (inventory.Product, bool, error) {
	var row productRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT upc, description, item_type, created_at FROM products WHERE upc = ?`, string(upc))
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Product{}, false, nil
	}
	if err != nil {
		return inventory.Product{}, false, err
	}
	at, err := parseTS(row.CreatedAt)
	if err != nil {
		return inventory.Product{}, false, fmt.Errorf("product %s created_at: %w", upc, err)
	}
	return inventory.Product{
		UPC:         upc,
		Description: row.Description.String,
		Category:    inventory.Category(row.Category.String),
		CreatedAt:   at,
	}, true, nil
}

func (t *txStore) PutProduct(ctx context.Context, p inventory.Product) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO products (upc, description, item_type, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(upc) DO UPDATE SET description = excluded.description, item_type = excluded.item_type`,
		string(p.UPC), nullString(p.Description), nullString(string(p.Category)), formatTS(p.CreatedAt))
	return mapErr(err)
}
