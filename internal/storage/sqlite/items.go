package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/models"
	"github.com/mmynk/scanbill/internal/storage"
)

const joinedItemsQuery = `
SELECT bi.id, b.id, b.bill_date, b.total_amount, bi.product_id, bi.psu_code, bi.weight, bi.price
FROM bill_items bi
JOIN bills b ON bi.bill_id = b.id`

// AllItemsJoined returns every item with its bill, newest bill first.
func (s *SQLiteStore) AllItemsJoined(ctx context.Context) ([]models.JoinedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx, joinedItemsQuery+" ORDER BY b.bill_date DESC, b.id, bi.id")
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []models.JoinedItem
	for rows.Next() {
		item, err := scanJoinedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// GetItem returns the joined row for itemID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID int64) (*models.JoinedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := scanJoinedItem(s.conn.QueryRowContext(ctx, joinedItemsQuery+" WHERE bi.id = ?", itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %d", storage.ErrNotFound, itemID)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem overwrites psu code, weight and price of an item, recomputes
// the owning bill's total and persists.
func (s *SQLiteStore) UpdateItem(ctx context.Context, itemID int64, upd models.ItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, err := amount(upd.Price)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(tx *sql.Tx) error {
		billID, err := owningBill(ctx, tx, itemID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE bill_items SET psu_code = ?, weight = ?, price = ? WHERE id = ?",
			upd.PSUCode, upd.Weight, price, itemID,
		); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		total, err := recomputeTotal(ctx, tx, billID)
		if err != nil {
			return err
		}
		slog.Info("Bill item updated", "item_id", itemID, "bill_id", billID, "total", total.StringFixed(2))
		return nil
	})
}

// DeleteItem removes an item, deleting its bill too when no items remain.
func (s *SQLiteStore) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var billDeleted bool
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		billID, err := owningBill(ctx, tx, itemID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bill_items WHERE id = ?", itemID); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}

		var remaining int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM bill_items WHERE bill_id = ?", billID,
		).Scan(&remaining); err != nil {
			return fmt.Errorf("failed to count remaining items: %w", err)
		}

		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", billID); err != nil {
				return fmt.Errorf("failed to delete bill: %w", err)
			}
			billDeleted = true
			slog.Info("Bill deleted with its last item", "item_id", itemID, "bill_id", billID)
			return nil
		}

		total, err := recomputeTotal(ctx, tx, billID)
		if err != nil {
			return err
		}
		slog.Info("Bill item deleted", "item_id", itemID, "bill_id", billID, "remaining", remaining, "total", total.StringFixed(2))
		return nil
	})
	if err != nil {
		return false, err
	}
	return billDeleted, nil
}

// ResetAll drops and recreates the schema, then persists the empty ledger.
func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(ctx, func(tx *sql.Tx) error {
		return recreate(ctx, tx)
	})
}

func owningBill(ctx context.Context, tx *sql.Tx, itemID int64) (int64, error) {
	var billID int64
	err := tx.QueryRowContext(ctx, "SELECT bill_id FROM bill_items WHERE id = ?", itemID).Scan(&billID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: item %d", storage.ErrNotFound, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get item: %w", err)
	}
	return billID, nil
}

// recomputeTotal sets a bill's total to the exact sum of its item prices.
func recomputeTotal(ctx context.Context, tx *sql.Tx, billID int64) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, "SELECT price FROM bill_items WHERE bill_id = ?", billID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get item prices: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var price float64
		if err := rows.Scan(&price); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan item price: %w", err)
		}
		p, err := money(price)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate item prices: %w", err)
	}
	rows.Close()

	stored, err := amount(total)
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE bills SET total_amount = ? WHERE id = ?", stored, billID,
	); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update bill total: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJoinedItem(row rowScanner) (*models.JoinedItem, error) {
	var (
		item         models.JoinedItem
		total, price float64
	)
	err := row.Scan(&item.ItemID, &item.BillID, &item.BillDate, &total,
		&item.ProductID, &item.PSUCode, &item.Weight, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	if item.TotalAmount, err = money(total); err != nil {
		return nil, err
	}
	if item.Price, err = money(price); err != nil {
		return nil, err
	}
	return &item, nil
}
