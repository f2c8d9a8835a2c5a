package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/certtrack/certtrack/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

var (
	errNoToken  = errors.New("no token")
	errBadToken = errors.New("bad token")
	errDBDown   = errors.New("db down")
)

type principal struct{ Name string }

func resolveForTest(_ context.Context, token string) (principal, string, error) {
	switch token {
	case "":
		return principal{}, "", errNoToken
	case "good":
		return principal{Name: "Ada"}, "user-1", nil
	case "boom":
		return principal{}, "", errDBDown
	default:
		return principal{}, "", errBadToken
	}
}

func isRejection(err error) bool {
	return errors.Is(err, errNoToken) || errors.Is(err, errBadToken)
}

func TestSessionAuth(t *testing.T) {
	protected := httpx.SessionAuth("token", resolveForTest, isRejection)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := httpx.PrincipalFromContext[principal](r.Context())
			require.True(t, ok)
			id, ok := httpx.UserIDFromContext(r.Context())
			require.True(t, ok)
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "name": p.Name})
		}),
	)

	call := func(cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "token", Value: cookie})
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid session", func(t *testing.T) {
		rec := call("good")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"id":"user-1","name":"Ada"}`, rec.Body.String())
	})

	for name, cookie := range map[string]string{"missing": "", "invalid": "forged"} {
		t.Run(name+" session", func(t *testing.T) {
			rec := call(cookie)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.JSONEq(t, `{"success":false,"message":"Not authorized"}`, rec.Body.String())
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}

	t.Run("resolver failure is a server error", func(t *testing.T) {
		rec := call("boom")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"success":false,"message":"Server error"}`, rec.Body.String())
	})
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := httpx.CORS([]string{"http://localhost:3000"})(next)

	t.Run("allowed origin is echoed with credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("wildcard reflects any origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		httpx.CORS([]string{"*"})(next).ServeHTTP(rec, req)

		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestParseOrigins(t *testing.T) {
	require.Nil(t, httpx.ParseOrigins(""))
	require.Equal(t,
		[]string{"http://localhost:3000", "https://certtrack.example"},
		httpx.ParseOrigins(" http://localhost:3000, https://certtrack.example/ ,"),
	)
}

func TestSessionCookies(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := httpx.CookieOptions{Name: "token", Secure: true}

	rec := httptest.NewRecorder()
	httpx.SetSessionCookie(rec, opts, "abc", now.Add(7*24*time.Hour), now)

	res := rec.Result()
	require.Len(t, res.Cookies(), 1)
	c := res.Cookies()[0]
	require.Equal(t, "token", c.Name)
	require.Equal(t, "abc", c.Value)
	require.Equal(t, "/", c.Path)
	require.Equal(t, 7*24*60*60, c.MaxAge)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)

	rec = httptest.NewRecorder()
	httpx.ClearSessionCookie(rec, opts)
	header := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(header, "token=;"), header)
	require.Contains(t, header, "Max-Age=0")
	require.Contains(t, header, "HttpOnly")
}
