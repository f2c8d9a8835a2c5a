package service

import (
	"context"
	"errors"
	"time"

	"github.com/certtrack/certtrack/internal/auth/domain"
	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/store"
	"github.com/certtrack/certtrack/pkg/jwtx"
	"github.com/samber/oops"
)

// SessionService issues and resolves stateless session tokens. There is no
// server-side session record, so a token stays valid until it expires.
type SessionService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Verifier *jwtx.HS256Verifier
	Issuer   string
	TTL      time.Duration
	Metrics  *observability.Metrics

	// Now is the service clock; defaults to time.Now.
	Now func() time.Time
}

// NewSessionService wires an HS256 signer and verifier over one secret.
func NewSessionService(st store.Store, secret []byte, issuer string, ttl time.Duration, metrics *observability.Metrics) (*SessionService, error) {
	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	s := &SessionService{
		Store:    st,
		Signer:   signer,
		Verifier: jwtx.NewVerifierHS256(secret, issuer),
		Issuer:   issuer,
		TTL:      ttl,
		Metrics:  metrics,
		Now:      time.Now,
	}
	s.Verifier.Now = s.now
	return s, nil
}

// Issue signs a token asserting userID, valid for TTL from now.
func (s *SessionService) Issue(userID string) (string, time.Time, error) {
	claims := jwtx.NewSessionClaims(userID, s.Issuer, s.TTL, s.now())

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").
			With("operation", "sign session token").
			Wrap(err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Resolve validates a token and loads the identity it names.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		s.Metrics.ObserveSessionCheck(observability.ResultMissing)
		return domain.User{}, ErrMissingToken
	}

	claims, err := s.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			s.Metrics.ObserveSessionCheck(observability.ResultExpired)
			return domain.User{}, errors.Join(ErrExpiredToken, err)
		}
		s.Metrics.ObserveSessionCheck(observability.ResultInvalid)
		return domain.User{}, errors.Join(ErrInvalidToken, err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.ObserveSessionCheck(observability.ResultUnknownIdentity)
			return domain.User{}, ErrIdentityNotFound
		}
		s.Metrics.ObserveSessionCheck(observability.ResultError)
		return domain.User{}, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get user by id").
			With("user_id", claims.Subject).
			Wrap(err)
	}

	s.Metrics.ObserveSessionCheck(observability.ResultSuccess)
	return user, nil
}

func (s *SessionService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
