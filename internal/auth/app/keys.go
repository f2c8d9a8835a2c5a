package app

import (
	"fmt"
	"log/slog"

	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/service"
	"github.com/certtrack/certtrack/internal/auth/store"
)

// InitSessions resolves the HS256 signing secret and builds the session
// service on top of it.
//
// Outside dev the secret must come from configuration (Validate has already
// enforced length and rejected the published fallback). In dev an unset
// secret is replaced with a random one that lives only as long as the
// process, so every restart logs everyone out.
func InitSessions(cfg Config, st store.Store, metrics *observability.Metrics, logger *slog.Logger) (*service.SessionService, error) {
	secret, generated, err := cfg.SigningSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signing secret: %w", err)
	}
	if generated {
		logger.Warn("JWT_SECRET not set, using a random per-process secret; sessions will not survive a restart")
	}

	sessions, err := service.NewSessionService(st, secret, cfg.Issuer, cfg.SessionTTL, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session signer: %w", err)
	}

	logger.Info("session signer initialized", "alg", sessions.Signer.Alg(), "issuer", cfg.Issuer, "ttl", sessions.TTL)
	return sessions, nil
}
