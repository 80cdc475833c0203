package service

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	BillingServiceName   = "scanbill.v1.BillingService"
	DashboardServiceName = "scanbill.v1.DashboardService"
	AdminServiceName     = "scanbill.v1.AdminService"
)

// Fully-qualified procedure names.
const (
	BillingServiceStartScannerProcedure   = "/scanbill.v1.BillingService/StartScanner"
	BillingServiceStopScannerProcedure    = "/scanbill.v1.BillingService/StopScanner"
	BillingServiceScanProcedure           = "/scanbill.v1.BillingService/Scan"
	BillingServiceSetPriceProcedure       = "/scanbill.v1.BillingService/SetPrice"
	BillingServiceRemoveItemProcedure     = "/scanbill.v1.BillingService/RemoveItem"
	BillingServiceConfirmPaymentProcedure = "/scanbill.v1.BillingService/ConfirmPayment"
	BillingServiceGetDraftProcedure       = "/scanbill.v1.BillingService/GetDraft"
	BillingServiceGenerateBillProcedure   = "/scanbill.v1.BillingService/GenerateBill"

	DashboardServiceGetDashboardProcedure = "/scanbill.v1.DashboardService/GetDashboard"

	AdminServiceLoginProcedure       = "/scanbill.v1.AdminService/Login"
	AdminServiceLogoutProcedure      = "/scanbill.v1.AdminService/Logout"
	AdminServiceListItemsProcedure   = "/scanbill.v1.AdminService/ListItems"
	AdminServiceGetItemProcedure     = "/scanbill.v1.AdminService/GetItem"
	AdminServiceUpdateItemProcedure  = "/scanbill.v1.AdminService/UpdateItem"
	AdminServiceDeleteItemProcedure  = "/scanbill.v1.AdminService/DeleteItem"
	AdminServiceResetLedgerProcedure = "/scanbill.v1.AdminService/ResetLedger"
)

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

// NewBillingServiceHandler builds an HTTP handler for every BillingService
// procedure and returns the path to mount it on.
func NewBillingServiceHandler(svc *BillingService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(BillingServiceStartScannerProcedure, connect.NewUnaryHandler(BillingServiceStartScannerProcedure, svc.StartScanner, opts...))
	mux.Handle(BillingServiceStopScannerProcedure, connect.NewUnaryHandler(BillingServiceStopScannerProcedure, svc.StopScanner, opts...))
	mux.Handle(BillingServiceScanProcedure, connect.NewUnaryHandler(BillingServiceScanProcedure, svc.Scan, opts...))
	mux.Handle(BillingServiceSetPriceProcedure, connect.NewUnaryHandler(BillingServiceSetPriceProcedure, svc.SetPrice, opts...))
	mux.Handle(BillingServiceRemoveItemProcedure, connect.NewUnaryHandler(BillingServiceRemoveItemProcedure, svc.RemoveItem, opts...))
	mux.Handle(BillingServiceConfirmPaymentProcedure, connect.NewUnaryHandler(BillingServiceConfirmPaymentProcedure, svc.ConfirmPayment, opts...))
	mux.Handle(BillingServiceGetDraftProcedure, connect.NewUnaryHandler(BillingServiceGetDraftProcedure, svc.GetDraft, opts...))
	mux.Handle(BillingServiceGenerateBillProcedure, connect.NewUnaryHandler(BillingServiceGenerateBillProcedure, svc.GenerateBill, opts...))
	return "/" + BillingServiceName + "/", mux
}

// NewDashboardServiceHandler builds an HTTP handler for DashboardService.
func NewDashboardServiceHandler(svc *DashboardService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(DashboardServiceGetDashboardProcedure, connect.NewUnaryHandler(DashboardServiceGetDashboardProcedure, svc.GetDashboard, opts...))
	return "/" + DashboardServiceName + "/", mux
}

// NewAdminServiceHandler builds an HTTP handler for AdminService. Callers
// are expected to pass a middleware.RequireAdmin interceptor that leaves
// Login open.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(AdminServiceLoginProcedure, connect.NewUnaryHandler(AdminServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AdminServiceLogoutProcedure, connect.NewUnaryHandler(AdminServiceLogoutProcedure, svc.Logout, opts...))
	mux.Handle(AdminServiceListItemsProcedure, connect.NewUnaryHandler(AdminServiceListItemsProcedure, svc.ListItems, opts...))
	mux.Handle(AdminServiceGetItemProcedure, connect.NewUnaryHandler(AdminServiceGetItemProcedure, svc.GetItem, opts...))
	mux.Handle(AdminServiceUpdateItemProcedure, connect.NewUnaryHandler(AdminServiceUpdateItemProcedure, svc.UpdateItem, opts...))
	mux.Handle(AdminServiceDeleteItemProcedure, connect.NewUnaryHandler(AdminServiceDeleteItemProcedure, svc.DeleteItem, opts...))
	mux.Handle(AdminServiceResetLedgerProcedure, connect.NewUnaryHandler(AdminServiceResetLedgerProcedure, svc.ResetLedger, opts...))
	return "/" + AdminServiceName + "/", mux
}
