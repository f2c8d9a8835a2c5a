package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/certtrack/certtrack/internal/auth/domain"
	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/store"
	"github.com/certtrack/certtrack/pkg/cryptox"
	"github.com/certtrack/certtrack/pkg/idx"
	"github.com/certtrack/certtrack/pkg/slogx"
	"github.com/samber/oops"
)

// MinPasswordLength counts characters, not bytes.
const MinPasswordLength = 6

// dummyHash is verified against when the email is unknown so that both
// login failure paths pay for one argon2 computation. It is hashed with
// the live parameters and pepper on first use.
var dummyHash = sync.OnceValues(func() (string, error) {
	return cryptox.HashPassword("certtrack-login-timing-parity")
})

// AuthService owns registration and login.
type AuthService struct {
	Store    store.Store
	Sessions *SessionService
	Metrics  *observability.Metrics

	// Now stamps created_at/updated_at; defaults to time.Now.
	Now func() time.Time
}

// LoginResult is what a successful login hands to the transport layer.
type LoginResult struct {
	User      domain.User
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the input, rejects known emails and stores a new
// identity. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || name == "" || password == "" {
		s.Metrics.ObserveRegister(observability.ResultInvalid)
		return domain.User{}, ErrValidation
	}
	if !validEmail(email) {
		s.Metrics.ObserveRegister(observability.ResultInvalid)
		return domain.User{}, errors.Join(ErrValidation, ErrInvalidEmail)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		s.Metrics.ObserveRegister(observability.ResultWeakPassword)
		return domain.User{}, ErrWeakPassword
	}

	_, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.Metrics.ObserveRegister(observability.ResultDuplicate)
		return domain.User{}, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		s.Metrics.ObserveRegister(observability.ResultError)
		return domain.User{}, oops.Code("REGISTER_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		s.Metrics.ObserveRegister(observability.ResultError)
		return domain.User{}, oops.Code("REGISTER_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrAlreadyExists) {
			s.Metrics.ObserveRegister(observability.ResultDuplicate)
			return domain.User{}, errors.Join(ErrEmailTaken, err)
		}
		s.Metrics.ObserveRegister(observability.ResultError)
		return domain.User{}, oops.Code("REGISTER_INSERT_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	log.Info("user registered", "user_id", user.ID)
	s.Metrics.ObserveRegister(observability.ResultSuccess)
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller, in both error value
// and work performed.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.Metrics.ObserveLogin(observability.ResultInvalid)
		return LoginResult{}, ErrValidation
	}

	user, lookupErr := s.Store.Users().GetUserByEmail(ctx, email)
	userExists := lookupErr == nil

	var targetHash string
	switch {
	case userExists:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, store.ErrNotFound):
		h, err := dummyHash()
		if err != nil {
			s.Metrics.ObserveLogin(observability.ResultError)
			return LoginResult{}, oops.Code("LOGIN_DUMMY_HASH_FAILED").Wrap(err)
		}
		targetHash = h
	default:
		s.Metrics.ObserveLogin(observability.ResultError)
		return LoginResult{}, oops.Code("LOGIN_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	// Always verify, even for unknown emails.
	verifyErr := cryptox.VerifyPassword(password, targetHash)
	if verifyErr != nil && !errors.Is(verifyErr, cryptox.ErrPasswordMismatch) {
		// A corrupt stored hash can never match; log it loudly but answer
		// like any other bad password.
		log.Error("stored password hash unreadable", "user_id", user.ID, "error", verifyErr)
	}
	if !userExists || verifyErr != nil {
		s.Metrics.ObserveLogin(observability.ResultInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.Sessions.Issue(user.ID)
	if err != nil {
		s.Metrics.ObserveLogin(observability.ResultError)
		return LoginResult{}, err
	}

	log.Info("user logged in", "user_id", user.ID)
	s.Metrics.ObserveLogin(observability.ResultSuccess)
	return LoginResult{
		User:      user,
		Token:     token,
		IssuedAt:  expiresAt.Add(-s.Sessions.TTL),
		ExpiresAt: expiresAt,
	}, nil
}

// GetCurrentIdentity resolves a session token to its user.
func (s *AuthService) GetCurrentIdentity(ctx context.Context, token string) (domain.User, error) {
	return s.Sessions.Resolve(ctx, token)
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// validEmail accepts a bare local@domain.tld address with no display name
// and no whitespace.
func validEmail(email string) bool {
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domainPart := email[at+1:]
	dot := strings.LastIndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
