package http_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/certtrack/certtrack/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

var ada = authsdk.RegisterRequest{Name: "Ada", Email: "ada@x.com", Password: "secret1"}

func TestRegisterLoginScenario(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/auth/register", ada)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"success":true,"message":"Registration successful! Please login."}`, rec.Body.String())
	// Registration does not log in.
	require.Empty(t, rec.Result().Cookies())

	rec = h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: "ada@x.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authsdk.LoginResponse](t, rec)
	require.True(t, login.Success)
	require.Equal(t, "Login successful", login.Message)
	require.Equal(t, "ada@x.com", login.User.Email)
	require.Equal(t, "Ada", login.User.Name)
	require.NotEmpty(t, login.User.ID)
	require.NotContains(t, rec.Body.String(), "argon2id")
	require.NotContains(t, rec.Body.String(), "password")

	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	require.False(t, cookie.Secure)

	rec = h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: "ada@x.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Invalid email or password"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/auth/register", ada)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Email already registered"}`, rec.Body.String())
}

func TestMeScenario(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/auth/register", ada).Code)
	rec := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email, Password: ada.Password})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authsdk.LoginResponse](t, rec)
	cookie := sessionCookie(t, rec)
	issuedAt := h.now

	t.Run("no cookie", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/auth/me", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"success":false,"message":"Not authorized"}`, rec.Body.String())
	})

	t.Run("garbage cookie", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: "token", Value: "garbage"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"success":false,"message":"Not authorized"}`, rec.Body.String())
	})

	t.Run("valid cookie", func(t *testing.T) {
		h.now = issuedAt.Add(time.Minute)
		rec := h.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		me := decode[authsdk.MeResponse](t, rec)
		require.True(t, me.Success)
		require.Equal(t, login.User, me.User)
	})

	t.Run("expired cookie", func(t *testing.T) {
		h.now = issuedAt.Add(7*24*time.Hour + time.Minute)
		rec := h.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"success":false,"message":"Not authorized"}`, rec.Body.String())
	})
}

func TestMeWhenStoreFails(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/auth/register", ada).Code)
	rec := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email, Password: ada.Password})
	cookie := sessionCookie(t, rec)

	require.NoError(t, h.store.Close(t.Context()))

	rec = h.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Server error"}`, rec.Body.String())
}

func TestRegisterValidationMessages(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"empty body", nil, "Please provide all fields"},
		{"missing name", authsdk.RegisterRequest{Email: "a@x.com", Password: "secret1"}, "Please provide all fields"},
		{"missing password", authsdk.RegisterRequest{Name: "A", Email: "a@x.com"}, "Please provide all fields"},
		{"bad email", authsdk.RegisterRequest{Name: "A", Email: "not-an-email", Password: "secret1"}, "Please provide a valid email address"},
		{"weak password", authsdk.RegisterRequest{Name: "A", Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters"},
		{"malformed json", `{"name":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/auth/register", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[authsdk.ErrorResponse](t, rec)
			require.False(t, body.Success)
			require.Equal(t, tt.message, body.Message)
		})
	}
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/auth/register", ada).Code)

	wrong := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email, Password: "wrong-password"})
	unknown := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: "ghost@x.com", Password: ada.Password})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, wrong.Code, unknown.Code)
	require.Equal(t, wrong.Body.String(), unknown.Body.String())
	require.Empty(t, wrong.Result().Cookies())
	require.Empty(t, unknown.Result().Cookies())

	rec := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Please provide email and password"}`, rec.Body.String())
}

func TestStorageFailureIsGeneric(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Close(t.Context()))

	rec := h.do(t, http.MethodPost, "/api/auth/register", ada)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Server error during registration"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email, Password: ada.Password})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Server error during login"}`, rec.Body.String())
	require.False(t, strings.Contains(rec.Body.String(), "sql"))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)

	t.Run("without a session", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/auth/logout", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, rec.Body.String())

		cookie := sessionCookie(t, rec)
		require.Empty(t, cookie.Value)
		require.Negative(t, cookie.MaxAge)
	})

	t.Run("token stays valid until expiry", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/auth/register", ada).Code)
		rec := h.do(t, http.MethodPost, "/api/auth/login", authsdk.LoginRequest{Email: ada.Email, Password: ada.Password})
		cookie := sessionCookie(t, rec)

		rec = h.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		// There is no revocation list; a copied token still resolves.
		rec = h.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/auth/login", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
