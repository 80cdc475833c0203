// Package auth guards administrative ledger operations.
//
// A single shared admin secret is checked by a Gate; successful logins are
// issued short-lived session tokens by a TokenManager.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSecret  = errors.New("incorrect admin secret")
	ErrGateNotEnabled = errors.New("admin access is not configured")
)

// Gate decides whether a presented secret grants admin access.
type Gate interface {
	Authorize(ctx context.Context, secret string) error
}

// BcryptGate compares secrets against a bcrypt hash.
type BcryptGate struct {
	hash []byte
}

// NewBcryptGate creates a gate for an existing bcrypt hash.
func NewBcryptGate(hash string) (*BcryptGate, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin secret hash: %w", err)
	}
	return &BcryptGate{hash: []byte(hash)}, nil
}

// NewPlaintextGate hashes secret at startup. The plaintext should not be
// kept in configuration; prefer a hash generated with cmd/hash.
func NewPlaintextGate(secret string) (*BcryptGate, error) {
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, err
	}
	slog.Warn("Admin secret configured in plaintext; set ADMIN_SECRET_HASH instead")
	return &BcryptGate{hash: []byte(hash)}, nil
}

// HashSecret returns the bcrypt hash of secret.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("admin secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func (g *BcryptGate) Authorize(_ context.Context, secret string) error {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(secret)); err != nil {
		return ErrInvalidSecret
	}
	return nil
}

// DisabledGate rejects every secret. Used when no admin secret is configured.
type DisabledGate struct{}

func (DisabledGate) Authorize(context.Context, string) error {
	return ErrGateNotEnabled
}
