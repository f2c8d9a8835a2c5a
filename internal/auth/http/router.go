package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/certtrack/certtrack/internal/auth/domain"
	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/service"
	"github.com/certtrack/certtrack/pkg/httpx"
	"github.com/certtrack/certtrack/pkg/slogx"

	_ "github.com/certtrack/certtrack/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	AuthService *service.AuthService
	Monitor     HealthChecker
	Metrics     *observability.Metrics

	// Cookie describes the session cookie. Name defaults to SessionCookieName.
	Cookie httpx.CookieOptions

	// AllowedOrigins are the browser origins granted credentialed CORS.
	AllowedOrigins []string

	// StrictLimit and LenientLimit default to the httpx profiles.
	StrictLimit  httpx.RateLimitConfig
	LenientLimit httpx.RateLimitConfig
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Cookie:       httpx.CookieOptions{Name: SessionCookieName, Secure: true},
		StrictLimit:  httpx.StrictLimit,
		LenientLimit: httpx.LenientLimit,
	}
}

func (r *Router) ApplyRoutes() {
	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(r.AllowedOrigins),
	}

	r.registerAuth()
	r.registerSystem()

	// API docs - moderate rate limit by IP
	r.Mux.Handle("/swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						CertTrack Authentication API
//	@version					0.1.0
//	@description				Credential and session lifecycle for CertTrack: registration, login, session checks and logout.
//	@description
//	@description				Sessions are HS256-signed JWTs carried in the HttpOnly cookie "token" and valid for 7 days.
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						token
//	@description				Session token set by /api/auth/login.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	if r.Cookie.Name == "" {
		r.Cookie.Name = SessionCookieName
	}
	h := &AuthHandler{
		AuthService: r.AuthService,
		Cookie:      r.Cookie,
	}

	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.StrictLimit),
		),
	)

	// POST /login - strict rate limit by IP + email to slow credential stuffing
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.StrictLimit, "email"),
		),
	)

	// GET /me - lenient rate limit, session cookie required
	sessions := r.AuthService.Sessions
	resolve := func(ctx context.Context, token string) (domain.User, string, error) {
		u, err := sessions.Resolve(ctx, token)
		return u, u.ID, err
	}
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.RateLimitByIP(r.LenientLimit),
			httpx.SessionAuth(r.Cookie.Name, resolve, service.IsSessionRejection),
		),
	)

	// POST /logout - lenient rate limit, never requires a valid session
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Banner and metrics - public rate limit (scrapers and uptime probes)
	r.Mux.Handle("GET /{$}",
		httpx.Chain(BannerHandler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics",
		httpx.Chain(r.Metrics.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Monitor, r.AuthService.Sessions.Signer),
			httpx.RateLimitByIP(r.LenientLimit),
		),
	)
}
