package service

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/scanbill/internal/billing"
)

// BillingService implements the counter workflow: scanning, pricing and
// generating bills against one shared session.
type BillingService struct {
	session *billing.Session
	now     func() time.Time
}

// NewBillingService creates a BillingService over session.
func NewBillingService(session *billing.Session) *BillingService {
	return &BillingService{session: session, now: time.Now}
}

func (s *BillingService) draftResponse() *connect.Response[DraftResponse] {
	return connect.NewResponse(&DraftResponse{Draft: toDraft(s.session.Snapshot())})
}

// StartScanner begins accepting scans with fresh debounce state.
func (s *BillingService) StartScanner(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[DraftResponse], error) {
	if err := s.session.StartScanner(); err != nil {
		return nil, toConnectError(err)
	}
	return s.draftResponse(), nil
}

// StopScanner stops accepting scans.
func (s *BillingService) StopScanner(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[DraftResponse], error) {
	s.session.StopScanner()
	return s.draftResponse(), nil
}

// Scan feeds one decoded string to the session.
func (s *BillingService) Scan(ctx context.Context, req *connect.Request[ScanRequest]) (*connect.Response[ScanResponse], error) {
	result := s.session.Decode(req.Msg.Text)
	return connect.NewResponse(&ScanResponse{
		Result: result.String(),
		Draft:  toDraft(s.session.Snapshot()),
	}), nil
}

// SetPrice prices one draft line.
func (s *BillingService) SetPrice(ctx context.Context, req *connect.Request[SetPriceRequest]) (*connect.Response[DraftResponse], error) {
	if err := s.session.SetPrice(req.Msg.Index, req.Msg.Price); err != nil {
		return nil, toConnectError(err)
	}
	return s.draftResponse(), nil
}

// RemoveItem drops one draft line.
func (s *BillingService) RemoveItem(ctx context.Context, req *connect.Request[RemoveItemRequest]) (*connect.Response[DraftResponse], error) {
	if err := s.session.RemoveAt(req.Msg.Index); err != nil {
		return nil, toConnectError(err)
	}
	return s.draftResponse(), nil
}

// ConfirmPayment sets or clears the payment-confirmed flag.
func (s *BillingService) ConfirmPayment(ctx context.Context, req *connect.Request[ConfirmPaymentRequest]) (*connect.Response[DraftResponse], error) {
	s.session.ConfirmPayment(req.Msg.Confirmed)
	return s.draftResponse(), nil
}

// GetDraft returns the current draft.
func (s *BillingService) GetDraft(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[DraftResponse], error) {
	return s.draftResponse(), nil
}

// GenerateBill commits the draft and returns the new bill ID with the now empty draft.
func (s *BillingService) GenerateBill(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[GenerateBillResponse], error) {
	id, err := s.session.Checkout(ctx, s.now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GenerateBillResponse{
		BillID: id,
		Draft:  toDraft(s.session.Snapshot()),
	}), nil
}
