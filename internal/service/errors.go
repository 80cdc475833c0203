package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/scanbill/internal/auth"
	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/draft"
	"github.com/mmynk/scanbill/internal/scanner"
	"github.com/mmynk/scanbill/internal/storage"
)

// toConnectError maps domain errors onto RPC status codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidDraft),
		errors.Is(err, billing.ErrInvalidItem),
		errors.Is(err, storage.ErrInvalidAmount),
		errors.Is(err, draft.ErrIndexOutOfRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrUnauthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, auth.ErrInvalidSecret),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, auth.ErrGateNotEnabled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, scanner.ErrAlreadyActive):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrPersistence):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
