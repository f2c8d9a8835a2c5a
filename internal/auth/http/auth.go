package http

import (
	"errors"
	"net/http"

	"github.com/certtrack/certtrack/internal/auth/domain"
	"github.com/certtrack/certtrack/internal/auth/service"
	"github.com/certtrack/certtrack/pkg/authsdk"
	"github.com/certtrack/certtrack/pkg/httpx"
	"github.com/certtrack/certtrack/pkg/slogx"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

const (
	msgMissingFields     = "Please provide all fields"
	msgInvalidEmail      = "Please provide a valid email address"
	msgWeakPassword      = "Password must be at least 6 characters"
	msgEmailTaken        = "Email already registered"
	msgRegistered        = "Registration successful! Please login."
	msgRegisterFailed    = "Server error during registration"
	msgMissingLogin      = "Please provide email and password"
	msgInvalidLogin      = "Invalid email or password"
	msgLoggedIn          = "Login successful"
	msgLoginFailed       = "Server error during login"
	msgLoggedOut         = "Logged out successfully"
	msgServerError       = "Server error"
	msgMalformedJSONBody = "Invalid request body"
)

// AuthHandler serves the credential and session endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookie      httpx.CookieOptions
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Create an account. Registration does not log the user in; call login afterwards.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"name, email, password"
//	@Success		201		{object}	authsdk.MessageResponse	"success, message"
//	@Failure		400		{object}	authsdk.ErrorResponse	"missing fields, invalid email, weak password or duplicate email"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse	"server error"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgMalformedJSONBody)
		return
	}

	_, err := h.AuthService.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteError(w, http.StatusBadRequest, msgInvalidEmail)
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, msgWeakPassword)
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusBadRequest, msgEmailTaken)
		default:
			log.Error("registration failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, msgRegisterFailed)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.MessageResponse{
		Success: true,
		Message: msgRegistered,
	})
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Verify credentials and set the HttpOnly session cookie "token" (SameSite=Strict, 7 days).
//	@Description	Unknown email and wrong password produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.LoginResponse	"success, message, user"
//	@Header			200		{string}	Set-Cookie				"token=<jwt>; HttpOnly; SameSite=Strict"
//	@Failure		400		{object}	authsdk.ErrorResponse	"missing fields"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse	"server error"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgMalformedJSONBody)
		return
	}

	res, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, msgMissingLogin)
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, msgInvalidLogin)
		default:
			log.Error("login failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, msgLoginFailed)
		}
		return
	}

	httpx.SetSessionCookie(w, h.Cookie, res.Token, res.ExpiresAt, res.IssuedAt)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Success: true,
		Message: msgLoggedIn,
		User:    toSDKUser(res.User),
	})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Return the identity behind the session cookie. Missing, invalid or expired sessions all answer 401 "Not authorized".
//	@Tags			Auth
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{object}	authsdk.MeResponse		"success, user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"not authorized"
//	@Failure		500	{object}	authsdk.ErrorResponse	"server error"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.PrincipalFromContext[domain.User](r.Context())
	if !ok {
		// SessionAuth must run first; reaching here without it is a wiring bug.
		slogx.FromContext(r.Context()).Error("me handler reached without a session principal")
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Success: true,
		User:    toSDKUser(user),
	})
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Clear the session cookie. Always succeeds. The token is not revoked server-side and stays valid until it expires.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse	"success, message"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := h.sessionSubject(r); ok {
		slogx.FromContext(r.Context()).Info("user logged out", "user_id", userID)
	}

	httpx.ClearSessionCookie(w, h.Cookie)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{
		Success: true,
		Message: msgLoggedOut,
	})
}

// sessionSubject best-effort resolves the caller for the audit log. Logout
// never fails on a bad cookie.
func (h *AuthHandler) sessionSubject(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.Cookie.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	claims, err := h.AuthService.Sessions.Verifier.Verify(c.Value)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

func toSDKUser(u domain.User) authsdk.User {
	return authsdk.User{ID: u.ID, Name: u.Name, Email: u.Email}
}
