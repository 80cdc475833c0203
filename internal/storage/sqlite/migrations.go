package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/barcode"
	"github.com/mmynk/scanbill/internal/storage"
)

// schema is the current two-table ledger layout.
// bills must be created before bill_items due to the foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS bills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_date TEXT NOT NULL,
    total_amount REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS bill_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bill_id INTEGER NOT NULL,
    product_id TEXT NOT NULL,
    psu_code TEXT NOT NULL,
    weight TEXT NOT NULL,
    price REAL NOT NULL,
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_bill_items_bill_id ON bill_items(bill_id);
CREATE INDEX IF NOT EXISTS idx_bills_bill_date ON bills(bill_date);
`

const dropTables = `
DROP TABLE IF EXISTS bill_items;
DROP TABLE IF EXISTS bills;
`

var (
	billColumns = []string{"id", "bill_date", "total_amount"}
	itemColumns = []string{"id", "bill_id", "product_id", "psu_code", "weight", "price"}
)

// execer is satisfied by both *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// migrate brings the loaded database to the current schema, detecting the
// layout by column presence. It reports whether anything changed. Failures
// wrap storage.ErrMigration.
func (s *SQLiteStore) migrate(ctx context.Context) (bool, error) {
	bills, err := tableColumns(ctx, s.conn, "bills")
	if err != nil {
		return false, fmt.Errorf("%w: %v", storage.ErrMigration, err)
	}
	items, err := tableColumns(ctx, s.conn, "bill_items")
	if err != nil {
		return false, fmt.Errorf("%w: %v", storage.ErrMigration, err)
	}

	switch {
	case len(bills) == 0:
		if err := recreate(ctx, s.conn); err != nil {
			return false, fmt.Errorf("%w: %v", storage.ErrMigration, err)
		}
		return true, nil

	case slices.Contains(bills, "items"):
		slog.Info("Migrating legacy single-table ledger")
		if err := s.migrateLegacy(ctx, bills); err != nil {
			return false, fmt.Errorf("%w: %v", storage.ErrMigration, err)
		}
		return true, nil

	case !hasColumns(bills, billColumns):
		return false, fmt.Errorf("%w: bills table has columns %v", storage.ErrMigration, bills)

	case len(items) == 0:
		slog.Info("Creating bill_items table")
		if _, err := s.conn.ExecContext(ctx, schema); err != nil {
			return false, fmt.Errorf("%w: failed to create bill_items: %v", storage.ErrMigration, err)
		}
		return true, nil

	case !hasColumns(items, itemColumns):
		return false, fmt.Errorf("%w: bill_items table has columns %v", storage.ErrMigration, items)
	}

	// Current layout; make sure indexes exist without reporting a change.
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return false, fmt.Errorf("%w: %v", storage.ErrMigration, err)
	}
	return false, nil
}

// recreate discards all data and creates an empty current schema.
func recreate(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, dropTables+schema); err != nil {
		return fmt.Errorf("failed to recreate tables: %w", err)
	}
	return nil
}

// legacyBill is a row of the old single-table layout, where each bill kept
// its lines as a JSON array in an items column.
type legacyBill struct {
	id       int64
	billDate string
	items    []legacyItem
}

type legacyItem struct {
	ProductID string          `json:"productId"`
	PSUCode   string          `json:"psuCode"`
	Weight    string          `json:"weight"`
	Price     decimal.Decimal `json:"price"`
}

// migrateLegacy converts the single-table layout into bills + bill_items,
// keeping bill ids and recomputing totals from the recovered lines. Any
// unreadable row aborts the whole conversion.
func (s *SQLiteStore) migrateLegacy(ctx context.Context, columns []string) error {
	if !slices.Contains(columns, "bill_date") {
		return fmt.Errorf("legacy bills table has no bill_date column")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	legacy, err := readLegacyBills(ctx, tx)
	if err != nil {
		return err
	}

	if err := recreate(ctx, tx); err != nil {
		return err
	}

	kept, lines := 0, 0
	for _, b := range legacy {
		if len(b.items) == 0 {
			continue
		}
		sum := decimal.Zero
		for _, it := range b.items {
			sum = sum.Add(it.Price)
		}
		total, err := amount(sum)
		if err != nil {
			return fmt.Errorf("bill %d: %w", b.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bills (id, bill_date, total_amount) VALUES (?, ?, ?)",
			b.id, b.billDate, total,
		); err != nil {
			return fmt.Errorf("failed to insert bill %d: %w", b.id, err)
		}
		for _, it := range b.items {
			price, err := amount(it.Price)
			if err != nil {
				return fmt.Errorf("item of bill %d: %w", b.id, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO bill_items (bill_id, product_id, psu_code, weight, price) VALUES (?, ?, ?, ?, ?)",
				b.id, it.ProductID, it.PSUCode, it.Weight, price,
			); err != nil {
				return fmt.Errorf("failed to insert item of bill %d: %w", b.id, err)
			}
			lines++
		}
		kept++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	slog.Info("Legacy ledger migrated", "bills", kept, "items", lines, "dropped_empty", len(legacy)-kept)
	return nil
}

func readLegacyBills(ctx context.Context, tx *sql.Tx) ([]legacyBill, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id, bill_date, items FROM bills ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy bills: %w", err)
	}
	defer rows.Close()

	var out []legacyBill
	for rows.Next() {
		var (
			b   legacyBill
			raw sql.NullString
		)
		if err := rows.Scan(&b.id, &b.billDate, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan legacy bill: %w", err)
		}
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &b.items); err != nil {
				return nil, fmt.Errorf("failed to decode items of legacy bill %d: %w", b.id, err)
			}
		}
		for i := range b.items {
			it := &b.items[i]
			if it.ProductID == "" {
				return nil, fmt.Errorf("legacy bill %d has an item without productId", b.id)
			}
			code := barcode.Parse(it.ProductID)
			if it.PSUCode == "" {
				it.PSUCode = code.PSUCode
			}
			if it.Weight == "" {
				it.Weight = code.Weight
			}
			if it.Price.IsNegative() {
				it.Price = decimal.Zero
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate legacy bills: %w", err)
	}
	return out, nil
}

// tableColumns returns the column names of table, or nil if it does not exist.
func tableColumns(ctx context.Context, db execer, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}
	return cols, nil
}

func hasColumns(have, want []string) bool {
	for _, c := range want {
		if !slices.Contains(have, c) {
			return false
		}
	}
	return true
}
