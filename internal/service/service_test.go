package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/scanbill/internal/auth"
	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/blobstore"
	"github.com/mmynk/scanbill/internal/metrics"
	"github.com/mmynk/scanbill/internal/storage/sqlite"
)

const (
	adminSecret = "counter-secret"
	scanCode    = "178325003001100101265"
)

type testServer struct {
	*httptest.Server
	blobs *blobstore.MemoryStore
	clock *fakeClock
}

// fakeClock is read by handler goroutines while tests advance it.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// setupTestServer creates a server over an in-memory ledger.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	blobs := blobstore.NewMemoryStore()
	ledger, err := sqlite.New(context.Background(), blobs)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	hash, err := auth.HashSecret(adminSecret)
	if err != nil {
		t.Fatalf("failed to hash secret: %v", err)
	}
	gate, err := auth.NewBcryptGate(hash)
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}

	clock := &fakeClock{t: time.Now().UTC()}
	svc := billing.NewService(ledger, nil)
	mux := NewMux(Deps{
		Session: billing.NewSession(svc, billing.WithClock(clock.Now)),
		Billing: svc,
		Gate:    gate,
		Tokens:  auth.NewTokenManager("test-jwt-secret", time.Hour),
		Metrics: metrics.New(),
	})

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		ledger.Close()
	})
	return &testServer{Server: server, blobs: blobs, clock: clock}
}

// call invokes procedure with the JSON codec, attaching token when non-empty.
func call[Req, Res any](t *testing.T, srv *testServer, procedure string, msg *Req, token string) (*Res, error) {
	t.Helper()

	client := connect.NewClient[Req, Res](srv.Client(), srv.URL+procedure, connect.WithCodec(Codec{}))
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func requireCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error with code %v, got %v", want, err)
	}
	if connectErr.Code() != want {
		t.Fatalf("code = %v, want %v (%v)", connectErr.Code(), want, connectErr.Message())
	}
}

func login(t *testing.T, srv *testServer) string {
	t.Helper()
	resp, err := call[LoginRequest, LoginResponse](t, srv, AdminServiceLoginProcedure, &LoginRequest{Secret: adminSecret}, "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// checkout scans each code, prices it and generates a bill.
func checkout(t *testing.T, srv *testServer, prices map[string]string) int64 {
	t.Helper()

	_, err := call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
	if err != nil {
		requireCode(t, err, connect.CodeFailedPrecondition)
	}
	for code, price := range prices {
		scan, err := call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: code}, "")
		require.NoError(t, err)
		require.Equal(t, "accepted", scan.Result)
		_, err = call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure,
			&SetPriceRequest{Index: len(scan.Draft.Lines) - 1, Price: price}, "")
		require.NoError(t, err)
		srv.clock.Advance(3 * time.Second)
	}
	_, err = call[ConfirmPaymentRequest, DraftResponse](t, srv, BillingServiceConfirmPaymentProcedure, &ConfirmPaymentRequest{Confirmed: true}, "")
	require.NoError(t, err)

	resp, err := call[Empty, GenerateBillResponse](t, srv, BillingServiceGenerateBillProcedure, &Empty{}, "")
	require.NoError(t, err)
	return resp.BillID
}

func TestBillingService(t *testing.T) {
	t.Run("scan flow", func(t *testing.T) {
		srv := setupTestServer(t)

		_, err := call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
		require.NoError(t, err)
		_, err = call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
		requireCode(t, err, connect.CodeFailedPrecondition)

		scan, err := call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: "  " + scanCode + "\n"}, "")
		require.NoError(t, err)
		require.Equal(t, "accepted", scan.Result)
		require.Len(t, scan.Draft.Lines, 1)
		require.Equal(t, "178325", scan.Draft.Lines[0].PSUCode)
		require.Equal(t, "00300", scan.Draft.Lines[0].Weight)
		require.Equal(t, "0.00", scan.Draft.Lines[0].Price)

		scan, err = call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: scanCode}, "")
		require.NoError(t, err)
		require.Equal(t, "debounced", scan.Result)

		_, err = call[Empty, GenerateBillResponse](t, srv, BillingServiceGenerateBillProcedure, &Empty{}, "")
		requireCode(t, err, connect.CodeInvalidArgument)

		draft, err := call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure, &SetPriceRequest{Index: 0, Price: "45.50"}, "")
		require.NoError(t, err)
		require.Equal(t, "45.50", draft.Draft.Total)
		require.False(t, draft.Draft.CanCommit)
		require.Equal(t, "payment not confirmed", draft.Draft.Reason)

		_, err = call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure, &SetPriceRequest{Index: 3, Price: "1"}, "")
		requireCode(t, err, connect.CodeInvalidArgument)

		draft, err = call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure, &SetPriceRequest{Index: 0, Price: "1e400"}, "")
		require.NoError(t, err)
		require.Equal(t, "0.00", draft.Draft.Total)
		_, err = call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure, &SetPriceRequest{Index: 0, Price: "45.50"}, "")
		require.NoError(t, err)

		draft, err = call[ConfirmPaymentRequest, DraftResponse](t, srv, BillingServiceConfirmPaymentProcedure, &ConfirmPaymentRequest{Confirmed: true}, "")
		require.NoError(t, err)
		require.True(t, draft.Draft.CanCommit)

		bill, err := call[Empty, GenerateBillResponse](t, srv, BillingServiceGenerateBillProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.Equal(t, int64(1), bill.BillID)
		require.Empty(t, bill.Draft.Lines)
		require.False(t, bill.Draft.PaymentConfirmed)

		dash, err := call[Empty, DashboardResponse](t, srv, DashboardServiceGetDashboardProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.Equal(t, "45.50", dash.LifetimeRevenue)
		require.Equal(t, "45.50", dash.Today.Revenue)
		require.Equal(t, 1, dash.Today.BillCount)
		require.Len(t, dash.RecentBills, 1)
	})

	t.Run("stop ignores later scans", func(t *testing.T) {
		srv := setupTestServer(t)

		_, err := call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
		require.NoError(t, err)
		stopped, err := call[Empty, DraftResponse](t, srv, BillingServiceStopScannerProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.False(t, stopped.Draft.Scanning)

		scan, err := call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: scanCode}, "")
		require.NoError(t, err)
		require.Equal(t, "stale", scan.Result)
		require.Empty(t, scan.Draft.Lines)
	})

	t.Run("remove item", func(t *testing.T) {
		srv := setupTestServer(t)

		_, err := call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
		require.NoError(t, err)
		_, err = call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: scanCode}, "")
		require.NoError(t, err)

		draft, err := call[RemoveItemRequest, DraftResponse](t, srv, BillingServiceRemoveItemProcedure, &RemoveItemRequest{Index: 0}, "")
		require.NoError(t, err)
		require.Empty(t, draft.Draft.Lines)

		draft, err = call[Empty, DraftResponse](t, srv, BillingServiceGetDraftProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.Equal(t, "0.00", draft.Draft.Total)
	})

	t.Run("persist failure is unavailable", func(t *testing.T) {
		srv := setupTestServer(t)
		srv.blobs.SetFailures(nil, errors.New("disk full"))

		_, err := call[Empty, DraftResponse](t, srv, BillingServiceStartScannerProcedure, &Empty{}, "")
		require.NoError(t, err)
		_, err = call[ScanRequest, ScanResponse](t, srv, BillingServiceScanProcedure, &ScanRequest{Text: scanCode}, "")
		require.NoError(t, err)
		_, err = call[SetPriceRequest, DraftResponse](t, srv, BillingServiceSetPriceProcedure, &SetPriceRequest{Index: 0, Price: "5"}, "")
		require.NoError(t, err)
		_, err = call[ConfirmPaymentRequest, DraftResponse](t, srv, BillingServiceConfirmPaymentProcedure, &ConfirmPaymentRequest{Confirmed: true}, "")
		require.NoError(t, err)

		_, err = call[Empty, GenerateBillResponse](t, srv, BillingServiceGenerateBillProcedure, &Empty{}, "")
		requireCode(t, err, connect.CodeUnavailable)

		draft, err := call[Empty, DraftResponse](t, srv, BillingServiceGetDraftProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.Len(t, draft.Draft.Lines, 1, "draft survives a failed commit")
	})
}

func TestAdminService(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		srv := setupTestServer(t)

		_, err := call[LoginRequest, LoginResponse](t, srv, AdminServiceLoginProcedure, &LoginRequest{Secret: "wrong"}, "")
		requireCode(t, err, connect.CodeUnauthenticated)
		_, err = call[LoginRequest, LoginResponse](t, srv, AdminServiceLoginProcedure, &LoginRequest{}, "")
		requireCode(t, err, connect.CodeInvalidArgument)

		resp, err := call[LoginRequest, LoginResponse](t, srv, AdminServiceLoginProcedure, &LoginRequest{Secret: adminSecret}, "")
		require.NoError(t, err)
		require.True(t, resp.ExpiresAt.After(time.Now()))
	})

	t.Run("requires token", func(t *testing.T) {
		srv := setupTestServer(t)

		_, err := call[Empty, ListItemsResponse](t, srv, AdminServiceListItemsProcedure, &Empty{}, "")
		requireCode(t, err, connect.CodeUnauthenticated)
		_, err = call[Empty, Empty](t, srv, AdminServiceResetLedgerProcedure, &Empty{}, "bogus")
		requireCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("edit and delete", func(t *testing.T) {
		srv := setupTestServer(t)
		checkout(t, srv, map[string]string{"111111000101111A": "10", "222222000201111A": "20"})
		token := login(t, srv)

		list, err := call[Empty, ListItemsResponse](t, srv, AdminServiceListItemsProcedure, &Empty{}, token)
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		require.Equal(t, "30.00", list.Items[0].TotalAmount)

		first := list.Items[0]
		updated, err := call[UpdateItemRequest, ItemResponse](t, srv, AdminServiceUpdateItemProcedure, &UpdateItemRequest{
			ItemID:  first.ItemID,
			PSUCode: first.PSUCode,
			Weight:  first.Weight,
			Price:   "5",
		}, token)
		require.NoError(t, err)
		require.Equal(t, "5.00", updated.Item.Price)
		other := list.Items[1].Price
		require.NotEqual(t, "30.00", updated.Item.TotalAmount)

		_, err = call[UpdateItemRequest, ItemResponse](t, srv, AdminServiceUpdateItemProcedure, &UpdateItemRequest{ItemID: first.ItemID, Price: "abc"}, token)
		requireCode(t, err, connect.CodeInvalidArgument)
		_, err = call[UpdateItemRequest, ItemResponse](t, srv, AdminServiceUpdateItemProcedure, &UpdateItemRequest{ItemID: first.ItemID, Price: "1e400"}, token)
		requireCode(t, err, connect.CodeInvalidArgument)
		_, err = call[UpdateItemRequest, ItemResponse](t, srv, AdminServiceUpdateItemProcedure, &UpdateItemRequest{ItemID: 99, Price: "1"}, token)
		requireCode(t, err, connect.CodeNotFound)

		deleted, err := call[ItemRequest, DeleteItemResponse](t, srv, AdminServiceDeleteItemProcedure, &ItemRequest{ItemID: first.ItemID}, token)
		require.NoError(t, err)
		require.False(t, deleted.BillDeleted)

		got, err := call[ItemRequest, ItemResponse](t, srv, AdminServiceGetItemProcedure, &ItemRequest{ItemID: list.Items[1].ItemID}, token)
		require.NoError(t, err)
		require.Equal(t, other, got.Item.TotalAmount)

		deleted, err = call[ItemRequest, DeleteItemResponse](t, srv, AdminServiceDeleteItemProcedure, &ItemRequest{ItemID: list.Items[1].ItemID}, token)
		require.NoError(t, err)
		require.True(t, deleted.BillDeleted)

		dash, err := call[Empty, DashboardResponse](t, srv, DashboardServiceGetDashboardProcedure, &Empty{}, "")
		require.NoError(t, err)
		require.Empty(t, dash.RecentBills)
		require.Equal(t, "0.00", dash.LifetimeRevenue)
	})

	t.Run("reset", func(t *testing.T) {
		srv := setupTestServer(t)
		checkout(t, srv, map[string]string{scanCode: "12.5"})
		token := login(t, srv)

		_, err := call[Empty, Empty](t, srv, AdminServiceResetLedgerProcedure, &Empty{}, token)
		require.NoError(t, err)

		list, err := call[Empty, ListItemsResponse](t, srv, AdminServiceListItemsProcedure, &Empty{}, token)
		require.NoError(t, err)
		require.Empty(t, list.Items)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		srv := setupTestServer(t)
		token := login(t, srv)

		_, err := call[Empty, Empty](t, srv, AdminServiceLogoutProcedure, &Empty{}, token)
		require.NoError(t, err)

		_, err = call[Empty, ListItemsResponse](t, srv, AdminServiceListItemsProcedure, &Empty{}, token)
		requireCode(t, err, connect.CodeUnauthenticated)
	})
}

func get(t *testing.T, srv *testServer, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestExport(t *testing.T) {
	srv := setupTestServer(t)
	token := login(t, srv)

	resp := get(t, srv, "/export/csv", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, srv, "/export/csv", token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "empty ledger has nothing to export")

	checkout(t, srv, map[string]string{scanCode: "45.50"})

	resp = get(t, srv, "/export/csv", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "billing_export_")
	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "45.50", records[1][6])

	resp = get(t, srv, "/export/xlsx", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	resp = get(t, srv, "/export/sqlite", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "SQLite format 3"))

	resp = get(t, srv, "/export/pdf", token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := setupTestServer(t)

	resp := get(t, srv, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	checkout(t, srv, map[string]string{scanCode: "1"})

	resp = get(t, srv, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `scanbill_rpc_requests_total{code="ok",procedure="/scanbill.v1.BillingService/GenerateBill"} 1`)
}
