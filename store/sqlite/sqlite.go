/*
Package sqlite provides a SQLite-backed implementation of inventory.Store.

PURPOSE:
  Persists locations, cases, the catalog, ledger rows, the audit log and
  count snapshots in one SQLite database, accessed through sqlx.

KEY TABLES:
  locations, cases:  Registry (case key is location_id + case_code)
  products:          Catalog, first-write-wins enforced by the ledger
  inventory:         Ledger rows, CHECK(qty > 0) keeps the table sparse
  history:           Append-only audit log, UPDATE/DELETE blocked by triggers
  count_snapshots:   Physical counts, with count_lines per category

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded and applied on New()
  with golang-migrate (iofs source, sqlite3 database driver).

CONCURRENCY:
  Transactions are opened BEGIN IMMEDIATE (_txlock=immediate) so the write
  lock is taken before the first read of a session. Decrements are
  conditional updates (qty >= need). A sync.RWMutex additionally serialises
  writers inside the process.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/caseledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := inventory.NewLedger(store)

SEE ALSO:
  - inventory/store.go:        Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/caseledger/inventory"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements inventory.Store using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
	r  *reader
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsnFor(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, r: &reader{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

const connParams = "_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000"

// dsnFor appends the connection parameters, keeping any query the path
// already carries (file:x.db?cache=shared).
func dsnFor(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connParams
	}
	return dbPath + "?" + connParams
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance tasks.
func (s *Store) DB() *sqlx.DB { return s.db }

// migrate applies every pending embedded migration.
func (s *Store) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	// m.Close would close s.db through the driver; only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// If fn returns error, transaction is rolled back.
// If fn returns nil, transaction is committed.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(&txStore{reader: &reader{q: tx}, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// txStore wraps a sql transaction for use within WithTx. Reads go through
// the transaction, never through s.db.
type txStore struct {
	*reader
	tx *sqlx.Tx
}

// =============================================================================
// STORE READS (locked)
// =============================================================================

func (s *Store) GetLocation(ctx context.Context, id inventory.LocationID) (inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.GetLocation(ctx, id)
}

func (s *Store) ListLocations(ctx context.Context) ([]inventory.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.ListLocations(ctx)
}

func (s *Store) GetCase(ctx context.Context, ref inventory.CaseRef) (inventory.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.GetCase(ctx, ref)
}

func (s *Store) ListCases(ctx context.Context, loc inventory.LocationID) ([]inventory.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.ListCases(ctx, loc)
}

func (s *Store) GetProduct(ctx context.Context, upc inventory.UPC) (inventory.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.GetProduct(ctx, upc)
}

func (s *Store) Quantity(ctx context.Context, key inventory.RowKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Quantity(ctx, key)
}

func (s *Store) Rows(ctx context.Context, f inventory.RowFilter) ([]inventory.InventoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Rows(ctx, f)
}

func (s *Store) QueryEvents(ctx context.Context, f inventory.HistoryFilter) ([]inventory.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.queryEvents(ctx, f)
}

func (s *Store) CaseEvents(ctx context.Context, ref inventory.CaseRef, from, to time.Time) ([]inventory.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.caseEvents(ctx, ref, from, to)
}

func (s *Store) LatestCount(ctx context.Context, ref inventory.CaseRef, on inventory.LocalDate, strict bool) (inventory.CountSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.latestCount(ctx, ref, on, strict)
}

func (s *Store) ListCounts(ctx context.Context, f inventory.CountFilter) ([]inventory.CountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.listCounts(ctx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

// reader runs queries against either the database or a transaction.
type reader struct {
	q sqlx.ExtContext
}

// Fixed-width so that lexical order equals chronological order.
const tsLayout = "2006-01-02T15:04:05.000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	if t, err := time.Parse(tsLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mapErr turns driver-level contention and constraint failures into the
// inventory's transient error.
func mapErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %v", inventory.ErrTransient, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
