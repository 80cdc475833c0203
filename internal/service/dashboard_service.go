package service

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/scanbill/internal/billing"
)

// DashboardService reports today's totals and recent bills.
type DashboardService struct {
	svc *billing.Service
	now func() time.Time
}

// NewDashboardService creates a DashboardService. Days are UTC calendar
// days, matching how bill dates are stored.
func NewDashboardService(svc *billing.Service) *DashboardService {
	return &DashboardService{svc: svc, now: func() time.Time { return time.Now().UTC() }}
}

// GetDashboard returns today's stats, lifetime revenue and the most recent bills.
func (s *DashboardService) GetDashboard(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[DashboardResponse], error) {
	dash, err := s.svc.Dashboard(ctx, s.now())
	if err != nil {
		return nil, toConnectError(err)
	}

	recent := make([]BillSummary, len(dash.RecentBills))
	for i, b := range dash.RecentBills {
		recent[i] = BillSummary{
			ID:          b.ID,
			BillDate:    b.BillDate,
			TotalAmount: amount(b.TotalAmount),
			ItemCount:   b.ItemCount,
		}
	}

	return connect.NewResponse(&DashboardResponse{
		Today: DailyStats{
			Date:      dash.Today.Date,
			ItemCount: dash.Today.ItemCount,
			Revenue:   amount(dash.Today.Revenue),
			BillCount: dash.Today.BillCount,
		},
		LifetimeRevenue: amount(dash.LifetimeRevenue),
		RecentBills:     recent,
	}), nil
}
