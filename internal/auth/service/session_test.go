package service

import (
	"context"
	"testing"
	"time"

	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/pkg/idx"
	"github.com/certtrack/certtrack/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "ada@x.com", "Ada", "secret1")
	require.NoError(t, err)

	issuedAt := f.now
	token, expiresAt, err := f.sessions.Issue(user.ID)
	require.NoError(t, err)
	require.True(t, issuedAt.Add(jwtx.DefaultSessionTTL).Equal(expiresAt))

	t.Run("valid one minute later", func(t *testing.T) {
		f.now = issuedAt.Add(time.Minute)
		got, err := f.auth.GetCurrentIdentity(ctx, token)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, "ada@x.com", got.Email)
	})

	t.Run("expired after seven days", func(t *testing.T) {
		f.now = issuedAt.Add(7*24*time.Hour + time.Minute)
		_, err := f.auth.GetCurrentIdentity(ctx, token)
		require.ErrorIs(t, err, ErrExpiredToken)
		require.True(t, IsSessionRejection(err))
	})

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionChecksTotal.WithLabelValues(observability.ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionChecksTotal.WithLabelValues(observability.ResultExpired)))
}

func TestResolveRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := f.sessions.Resolve(ctx, "")
		require.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := f.sessions.Resolve(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		other, err := NewSessionService(f.store, []byte("another-secret-another-secret-000"), "certtrack-auth", 0, nil)
		require.NoError(t, err)
		other.Now = f.sessions.Now

		token, _, err := other.Issue(idx.New().String())
		require.NoError(t, err)

		_, err = f.sessions.Resolve(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other, err := NewSessionService(f.store, testSecret, "someone-else", 0, nil)
		require.NoError(t, err)
		other.Now = f.sessions.Now

		token, _, err := other.Issue(idx.New().String())
		require.NoError(t, err)

		_, err = f.sessions.Resolve(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("identity no longer exists", func(t *testing.T) {
		token, _, err := f.sessions.Issue(idx.New().String())
		require.NoError(t, err)

		_, err = f.sessions.Resolve(ctx, token)
		require.ErrorIs(t, err, ErrIdentityNotFound)
	})

	for _, label := range []string{observability.ResultMissing, observability.ResultInvalid, observability.ResultUnknownIdentity} {
		require.Positive(t, testutil.ToFloat64(f.metrics.SessionChecksTotal.WithLabelValues(label)), label)
	}
}

func TestResolveStorageFailureIsNotARejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, _, err := f.sessions.Issue(idx.New().String())
	require.NoError(t, err)

	require.NoError(t, f.store.Close(ctx))

	_, err = f.sessions.Resolve(ctx, token)
	require.Error(t, err)
	require.False(t, IsSessionRejection(err))
}

func TestNewSessionServiceRejectsEmptySecret(t *testing.T) {
	_, err := NewSessionService(nil, nil, "certtrack-auth", 0, nil)
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)
}
