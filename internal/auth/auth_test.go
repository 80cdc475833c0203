package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBcryptGate(t *testing.T) {
	ctx := context.Background()

	hash, err := HashSecret("counter-secret")
	require.NoError(t, err)

	gate, err := NewBcryptGate(hash)
	require.NoError(t, err)
	require.NoError(t, gate.Authorize(ctx, "counter-secret"))
	require.ErrorIs(t, gate.Authorize(ctx, "wrong"), ErrInvalidSecret)
	require.ErrorIs(t, gate.Authorize(ctx, ""), ErrInvalidSecret)

	_, err = NewBcryptGate("not-a-hash")
	require.Error(t, err)

	_, err = HashSecret("")
	require.Error(t, err)
}

func TestPlaintextGate(t *testing.T) {
	gate, err := NewPlaintextGate("s3cret")
	require.NoError(t, err)
	require.NoError(t, gate.Authorize(context.Background(), "s3cret"))
}

func TestDisabledGate(t *testing.T) {
	require.ErrorIs(t, DisabledGate{}.Authorize(context.Background(), "anything"), ErrGateNotEnabled)
}

func TestTokenManager(t *testing.T) {
	t.Run("generate and validate", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Hour)
		token, expires, err := m.Generate()
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

		claims, err := m.Validate(token)
		require.NoError(t, err)
		require.Equal(t, adminSubject, claims.Subject)
		require.NotEmpty(t, claims.ID)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		token, _, err := NewTokenManager("one", time.Hour).Generate()
		require.NoError(t, err)

		_, err = NewTokenManager("two", time.Hour).Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Minute)
		token, _, err := m.Generate()
		require.NoError(t, err)

		m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err = m.Validate(token)
		require.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Hour)
		token, _, err := m.Generate()
		require.NoError(t, err)

		require.NoError(t, m.Revoke(token))
		_, err = m.Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, m.Revoke(token), ErrInvalidToken)

		other, _, err := m.Generate()
		require.NoError(t, err)
		_, err = m.Validate(other)
		require.NoError(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := NewTokenManager("test-secret", time.Hour).Validate("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
