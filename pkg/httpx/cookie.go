package httpx

import (
	"net/http"
	"time"
)

// CookieOptions are the attributes shared by the set and clear paths so a
// clearing cookie always targets the same cookie the browser holds.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
}

// SetSessionCookie writes an HttpOnly, SameSite=Strict cookie valid until expires.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, value string, expires time.Time, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     cookiePath(opts),
		Expires:  expires.UTC(),
		MaxAge:   int(expires.Sub(now).Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie instructs the browser to drop the cookie.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     cookiePath(opts),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookiePath(opts CookieOptions) string {
	if opts.Path == "" {
		return "/"
	}
	return opts.Path
}
