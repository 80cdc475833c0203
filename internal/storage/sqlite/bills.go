package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/models"
	"github.com/mmynk/scanbill/internal/storage"
)

const dayLayout = "2006-01-02"

// CreateBill inserts the bill and its items, then persists the ledger.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.BillItem, len(bill.Items))
	copy(items, bill.Items)

	total, err := amount(bill.TotalAmount)
	if err != nil {
		return err
	}
	prices := make([]float64, len(items))
	for i, item := range items {
		if prices[i], err = amount(item.Price); err != nil {
			return err
		}
	}

	var billID int64
	err = s.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO bills (bill_date, total_amount) VALUES (?, ?)",
			bill.BillDate, total,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}
		billID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read bill id: %w", err)
		}

		for i := range items {
			item := &items[i]
			res, err := tx.ExecContext(ctx,
				"INSERT INTO bill_items (bill_id, product_id, psu_code, weight, price) VALUES (?, ?, ?, ?, ?)",
				billID, item.ProductID, item.PSUCode, item.Weight, prices[i],
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read item id: %w", err)
			}
			item.BillID = billID
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Only publish ids once the bill is durable.
	bill.ID = billID
	bill.Items = items
	return nil
}

// DailyStats counts items, revenue and bills dated on day's calendar date.
// The comparison uses the date portion of the stored timestamp.
func (s *SQLiteStore) DailyStats(ctx context.Context, day time.Time) (models.DailyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.DailyStats{Date: day.Format(dayLayout)}

	var revenue float64
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM bills WHERE DATE(bill_date) = DATE(?)",
		stats.Date,
	).Scan(&stats.BillCount, &revenue)
	if err != nil {
		return stats, fmt.Errorf("failed to get daily revenue: %w", err)
	}
	if stats.Revenue, err = money(revenue); err != nil {
		return stats, err
	}

	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bill_items bi
		 JOIN bills b ON bi.bill_id = b.id
		 WHERE DATE(b.bill_date) = DATE(?)`,
		stats.Date,
	).Scan(&stats.ItemCount)
	if err != nil {
		return stats, fmt.Errorf("failed to get daily item count: %w", err)
	}

	return stats, nil
}

// LifetimeRevenue sums the totals of every bill.
func (s *SQLiteStore) LifetimeRevenue(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	if err := s.conn.QueryRowContext(ctx, "SELECT COALESCE(SUM(total_amount), 0) FROM bills").Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get lifetime revenue: %w", err)
	}
	return money(total)
}

// RecentBills lists up to limit bills, newest first, with their item counts.
func (s *SQLiteStore) RecentBills(ctx context.Context, limit int) ([]models.BillSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT b.id, b.bill_date, b.total_amount, COUNT(bi.id)
		 FROM bills b
		 LEFT JOIN bill_items bi ON b.id = bi.bill_id
		 GROUP BY b.id, b.bill_date, b.total_amount
		 ORDER BY b.bill_date DESC, b.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bills: %w", err)
	}
	defer rows.Close()

	var bills []models.BillSummary
	for rows.Next() {
		var (
			b     models.BillSummary
			total float64
		)
		if err := rows.Scan(&b.ID, &b.BillDate, &total, &b.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		if b.TotalAmount, err = money(total); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return bills, nil
}
