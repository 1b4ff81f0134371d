/*
Package sqlite provides a SQLite-backed implementation of the rebate storage interfaces.

PURPOSE:
  Persists rebates, products and calculation results. In production the same
  patterns apply to PostgreSQL with only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  rebate.RebateStore:      Rebate lookup + calculation result persistence
  rebate.ProductStore:     Product lookup
  rebate.CalculationStore: Calculation history per rebate

KEY TABLES:
  rebates:      Rebate definitions (incentive kind, amount, percentage)
  products:     Products with price, uom and the supported incentive bitmask
  calculations: Append-only record of every successful calculation

DECIMALS:
  Money and percentages are stored as TEXT and parsed with shopspring/decimal
  so no precision is lost to REAL columns.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/rebates.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := rebate.NewService(store, store, selector)

SEE ALSO:
  - rebate/store.go: Interface definitions
  - rebate/store/memory.go: In-memory implementation for testing
  - store/cache: Read-through cache in front of this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/rebate"
)

// Store implements the rebate storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Each :memory: connection is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rebates (
		identifier TEXT PRIMARY KEY,
		incentive TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		percentage TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		identifier TEXT PRIMARY KEY,
		price TEXT NOT NULL DEFAULT '0',
		uom TEXT NOT NULL DEFAULT '',
		supported_incentives INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Calculations (append-only)
	CREATE TABLE IF NOT EXISTS calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rebate_identifier TEXT NOT NULL,
		incentive TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_rebate
		ON calculations(rebate_identifier);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REBATE STORE (rebate.RebateStore interface)
// =============================================================================

// SaveRebate inserts or replaces a rebate definition.
func (s *Store) SaveRebate(ctx context.Context, r rebate.Rebate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rebates (identifier, incentive, amount, percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			incentive = excluded.incentive,
			amount = excluded.amount,
			percentage = excluded.percentage,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		r.Identifier, string(r.Incentive), r.Amount.String(), r.Percentage.String(), now, now,
	)
	return errors.Wrapf(err, "failed to save rebate %q", r.Identifier)
}

// GetRebate retrieves a rebate. Unknown identifiers yield rebate.ErrRebateNotFound.
func (s *Store) GetRebate(ctx context.Context, identifier string) (*rebate.Rebate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT identifier, incentive, amount, percentage FROM rebates WHERE identifier = ?",
		identifier,
	)
	r, err := scanRebate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rebate.ErrRebateNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rebate %q", identifier)
	}
	return &r, nil
}

// ListRebates returns all rebates ordered by identifier.
func (s *Store) ListRebates(ctx context.Context) ([]rebate.Rebate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT identifier, incentive, amount, percentage FROM rebates ORDER BY identifier",
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query rebates")
	}
	defer rows.Close()

	var rebates []rebate.Rebate
	for rows.Next() {
		r, err := scanRebate(rows)
		if err != nil {
			return nil, err
		}
		rebates = append(rebates, r)
	}
	return rebates, rows.Err()
}

// StoreCalculationResult appends a calculation row for the rebate.
func (s *Store) StoreCalculationResult(ctx context.Context, r rebate.Rebate, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calculations (rebate_identifier, incentive, amount, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.Identifier,
		string(r.Incentive),
		amount.String(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrapf(err, "failed to store calculation for rebate %q", r.Identifier)
}

// =============================================================================
// CALCULATION STORE (rebate.CalculationStore interface)
// =============================================================================

// ListCalculations returns the calculation history of a rebate, oldest first.
func (s *Store) ListCalculations(ctx context.Context, rebateIdentifier string) ([]rebate.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rebate_identifier, incentive, amount, created_at
		FROM calculations
		WHERE rebate_identifier = ?
		ORDER BY id ASC
	`, rebateIdentifier)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query calculations")
	}
	defer rows.Close()

	var calcs []rebate.Calculation
	for rows.Next() {
		var (
			c                 rebate.Calculation
			id                int64
			incentive, amount string
			createdAt         string
		)
		if err := rows.Scan(&id, &c.RebateIdentifier, &incentive, &amount, &createdAt); err != nil {
			return nil, err
		}
		c.ID = fmt.Sprintf("calc-%d", id)
		c.Incentive = rebate.IncentiveType(incentive)
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Wrapf(err, "calculation %d: bad amount", id)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrapf(err, "calculation %d: bad created_at", id)
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}

// =============================================================================
// PRODUCT STORE (rebate.ProductStore interface)
// =============================================================================

// SaveProduct inserts or replaces a product.
func (s *Store) SaveProduct(ctx context.Context, p rebate.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (identifier, price, uom, supported_incentives, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			price = excluded.price,
			uom = excluded.uom,
			supported_incentives = excluded.supported_incentives,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		p.Identifier, p.Price.String(), p.Uom, int(p.SupportedIncentives), now, now,
	)
	return errors.Wrapf(err, "failed to save product %q", p.Identifier)
}

// GetProduct retrieves a product. Unknown identifiers yield rebate.ErrProductNotFound.
func (s *Store) GetProduct(ctx context.Context, identifier string) (*rebate.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT identifier, price, uom, supported_incentives FROM products WHERE identifier = ?",
		identifier,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rebate.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get product %q", identifier)
	}
	return &p, nil
}

// ListProducts returns all products ordered by identifier.
func (s *Store) ListProducts(ctx context.Context) ([]rebate.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT identifier, price, uom, supported_incentives FROM products ORDER BY identifier",
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	defer rows.Close()

	var products []rebate.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"calculations", "products", "rebates"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "failed to reset %s", table)
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRebate(row scanner) (rebate.Rebate, error) {
	var (
		r                          rebate.Rebate
		incentive, amount, percent string
	)
	if err := row.Scan(&r.Identifier, &incentive, &amount, &percent); err != nil {
		return rebate.Rebate{}, err
	}
	r.Incentive = rebate.IncentiveType(incentive)

	var err error
	if r.Amount, err = parseDecimal(amount); err != nil {
		return rebate.Rebate{}, errors.Wrapf(err, "rebate %q: bad amount", r.Identifier)
	}
	if r.Percentage, err = parseDecimal(percent); err != nil {
		return rebate.Rebate{}, errors.Wrapf(err, "rebate %q: bad percentage", r.Identifier)
	}
	return r, nil
}

func scanProduct(row scanner) (rebate.Product, error) {
	var (
		p         rebate.Product
		price     string
		supported int
	)
	if err := row.Scan(&p.Identifier, &price, &p.Uom, &supported); err != nil {
		return rebate.Product{}, err
	}
	var err error
	if p.Price, err = parseDecimal(price); err != nil {
		return rebate.Product{}, errors.Wrapf(err, "product %q: bad price", p.Identifier)
	}
	p.SupportedIncentives = rebate.SupportedIncentives(supported) & rebate.SupportsAll
	return p, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

var (
	_ rebate.RebateStore      = (*Store)(nil)
	_ rebate.ProductStore     = (*Store)(nil)
	_ rebate.CalculationStore = (*Store)(nil)
)
