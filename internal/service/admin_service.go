package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/auth"
	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/middleware"
	"github.com/mmynk/scanbill/internal/models"
)

// AdminService implements ledger administration behind the admin secret.
type AdminService struct {
	svc    *billing.Service
	gate   auth.Gate
	tokens *auth.TokenManager
}

// NewAdminService creates a new AdminService.
func NewAdminService(svc *billing.Service, gate auth.Gate, tokens *auth.TokenManager) *AdminService {
	return &AdminService{svc: svc, gate: gate, tokens: tokens}
}

// Login exchanges the admin secret for a session token.
func (s *AdminService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	if req.Msg.Secret == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidSecret)
	}

	if err := s.gate.Authorize(ctx, req.Msg.Secret); err != nil {
		slog.Warn("Admin login failed", "error", err)
		return nil, toConnectError(err)
	}

	token, expires, err := s.tokens.Generate()
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Admin logged in", "expires_at", expires)
	return connect.NewResponse(&LoginResponse{Token: token, ExpiresAt: expires}), nil
}

// Logout revokes the caller's session token.
func (s *AdminService) Logout(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Empty], error) {
	if err := s.tokens.Revoke(middleware.GetToken(ctx)); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Admin logged out")
	return connect.NewResponse(&Empty{}), nil
}

// ListItems returns every bill item joined with its bill, newest bill first.
func (s *AdminService) ListItems(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListItemsResponse], error) {
	items, err := s.svc.ListItems(ctx, middleware.IsAdmin(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = toItem(it)
	}
	return connect.NewResponse(&ListItemsResponse{Items: out}), nil
}

// GetItem returns one joined item for the edit form.
func (s *AdminService) GetItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[ItemResponse], error) {
	item, err := s.svc.GetItem(ctx, middleware.IsAdmin(ctx), req.Msg.ItemID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ItemResponse{Item: toItem(*item)}), nil
}

// UpdateItem edits an item and returns it with its bill's new total.
func (s *AdminService) UpdateItem(ctx context.Context, req *connect.Request[UpdateItemRequest]) (*connect.Response[ItemResponse], error) {
	price, err := decimal.NewFromString(req.Msg.Price)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid price %q", req.Msg.Price))
	}

	authorized := middleware.IsAdmin(ctx)
	upd := models.ItemUpdate{
		PSUCode: req.Msg.PSUCode,
		Weight:  req.Msg.Weight,
		Price:   price,
	}
	if err := s.svc.UpdateItem(ctx, authorized, req.Msg.ItemID, upd); err != nil {
		return nil, toConnectError(err)
	}

	item, err := s.svc.GetItem(ctx, authorized, req.Msg.ItemID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ItemResponse{Item: toItem(*item)}), nil
}

// DeleteItem removes an item and reports whether its bill went with it.
func (s *AdminService) DeleteItem(ctx context.Context, req *connect.Request[ItemRequest]) (*connect.Response[DeleteItemResponse], error) {
	billDeleted, err := s.svc.DeleteItem(ctx, middleware.IsAdmin(ctx), req.Msg.ItemID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteItemResponse{BillDeleted: billDeleted}), nil
}

// ResetLedger discards every bill.
func (s *AdminService) ResetLedger(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Empty], error) {
	if err := s.svc.ResetAll(ctx, middleware.IsAdmin(ctx)); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}
