// Package billing turns drafts into committed bills and gates admin access
// to the ledger.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/draft"
	"github.com/mmynk/scanbill/internal/models"
	"github.com/mmynk/scanbill/internal/storage"
)

// Recorder receives business events for instrumentation.
type Recorder interface {
	ObserveBill(total decimal.Decimal)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBill(decimal.Decimal) {}

// Service implements bill commit, the dashboard and admin ledger edits.
type Service struct {
	ledger   storage.Ledger
	recorder Recorder
}

// NewService creates a billing service over ledger. recorder may be nil.
func NewService(ledger storage.Ledger, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{ledger: ledger, recorder: recorder}
}

// Commit writes d to the ledger as a bill dated now and returns its ID.
// It fails with an InvalidDraftError, leaving the ledger untouched, unless
// d is non-empty, has a positive total and payment is confirmed.
// The draft itself is never modified.
func (s *Service) Commit(ctx context.Context, d *draft.Draft, paymentConfirmed bool, now time.Time) (int64, error) {
	if reason := d.Reason(paymentConfirmed); reason != "" {
		return 0, &InvalidDraftError{Reason: reason}
	}

	lines := d.Lines()
	bill := &models.Bill{
		BillDate:    models.FormatBillDate(now),
		TotalAmount: d.Total(),
		Items:       make([]models.BillItem, 0, len(lines)),
	}
	for _, l := range lines {
		bill.Items = append(bill.Items, models.BillItem{
			ProductID: l.ProductID,
			PSUCode:   l.PSUCode,
			Weight:    l.Weight,
			Price:     l.Price,
		})
	}

	if err := s.ledger.CreateBill(ctx, bill); err != nil {
		slog.Error("CreateBill failed", "items", len(bill.Items), "error", err)
		return 0, fmt.Errorf("failed to commit bill: %w", err)
	}

	s.recorder.ObserveBill(bill.TotalAmount)
	slog.Info("Bill committed",
		"bill_id", bill.ID,
		"items", len(bill.Items),
		"total", bill.TotalAmount.StringFixed(2),
	)
	return bill.ID, nil
}

// Dashboard summarizes today's activity and the most recent bills.
type Dashboard struct {
	Today           models.DailyStats
	LifetimeRevenue decimal.Decimal
	RecentBills     []models.BillSummary
}

// Dashboard builds the dashboard for the calendar day of now.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	today, err := s.ledger.DailyStats(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	lifetime, err := s.ledger.LifetimeRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lifetime revenue: %w", err)
	}
	recent, err := s.ledger.RecentBills(ctx, storage.DefaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent bills: %w", err)
	}

	return &Dashboard{
		Today:           today,
		LifetimeRevenue: lifetime,
		RecentBills:     recent,
	}, nil
}
