package service

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/scanbill/internal/auth"
	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/metrics"
	"github.com/mmynk/scanbill/internal/middleware"
)

// Deps are the components the HTTP surface is built from.
type Deps struct {
	Session *billing.Session
	Billing *billing.Service
	Gate    auth.Gate
	Tokens  *auth.TokenManager
	// Metrics is optional; /metrics is only mounted when set.
	Metrics *metrics.Collector
}

// NewMux mounts every RPC service, the export downloads, /metrics and /healthz.
func NewMux(d Deps) *http.ServeMux {
	var recorder middleware.RPCRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}
	logging := connect.WithInterceptors(middleware.LoggingInterceptor(recorder))
	admin := connect.WithInterceptors(
		middleware.LoggingInterceptor(recorder),
		middleware.RequireAdmin(d.Tokens, AdminServiceLoginProcedure),
	)

	mux := http.NewServeMux()

	billingPath, billingHandler := NewBillingServiceHandler(NewBillingService(d.Session), logging)
	mux.Handle(billingPath, billingHandler)

	dashboardPath, dashboardHandler := NewDashboardServiceHandler(NewDashboardService(d.Billing), logging)
	mux.Handle(dashboardPath, dashboardHandler)

	adminPath, adminHandler := NewAdminServiceHandler(NewAdminService(d.Billing, d.Gate, d.Tokens), admin)
	mux.Handle(adminPath, adminHandler)

	mux.Handle(ExportPattern, middleware.RequireAdminHTTP(d.Tokens, NewExportHandler(d.Billing)))

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	return mux
}
