package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fplhq/minileague/internal/domain/session"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/platform/resilience"
)

const (
	defaultExpirySkew     = 60 * time.Second
	defaultRefreshRetry   = 150 * time.Millisecond
	defaultRefreshTimeout = 5 * time.Second
)

// AuthProvider exchanges a refresh token for a fresh token pair.
// ErrUnauthorized marks definitive rejections; ErrDependencyUnavailable marks
// retryable failures.
type AuthProvider interface {
	Refresh(ctx context.Context, refreshToken string) (session.Tokens, error)
}

// SessionService evaluates a request's token pair and refreshes it when the
// access token is expired or inside the skew window. Concurrent requests
// carrying the same refresh token share one provider call, so a burst from a
// single browser session refreshes exactly once.
type SessionService struct {
	provider       AuthProvider
	skew           time.Duration
	retryDelay     time.Duration
	refreshTimeout time.Duration
	flight         resilience.Group[string, session.Tokens]
	logger         *logging.Logger
	metrics        observability.Metrics
	now            func() time.Time
	sleep          func(time.Duration)
}

type SessionConfig struct {
	ExpirySkew     time.Duration
	RetryDelay     time.Duration
	RefreshTimeout time.Duration
}

func NewSessionService(provider AuthProvider, cfg SessionConfig, logger *logging.Logger, metrics observability.Metrics) *SessionService {
	if cfg.ExpirySkew <= 0 {
		cfg.ExpirySkew = defaultExpirySkew
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRefreshRetry
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = defaultRefreshTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &SessionService{
		provider:       provider,
		skew:           cfg.ExpirySkew,
		retryDelay:     cfg.RetryDelay,
		refreshTimeout: cfg.RefreshTimeout,
		logger:         logger,
		metrics:        metrics,
		now:            time.Now,
		sleep:          time.Sleep,
	}
}

// Resolve classifies the presented tokens and refreshes when needed.
func (s *SessionService) Resolve(ctx context.Context, accessToken, refreshToken string) session.Resolution {
	ctx, span := startUsecaseSpan(ctx, "SessionService.Resolve")
	defer span.End()

	if accessToken == "" && refreshToken == "" {
		return session.Resolution{State: session.StateUnauthenticated}
	}

	if accessToken != "" {
		// A malformed token yields a zero expiry and is treated as expired.
		expiresAt := session.AccessExpiry(accessToken)
		if expiresAt.After(s.now().Add(s.skew)) {
			return session.Resolution{
				State:     session.StateValid,
				Principal: session.Identity(accessToken),
				Tokens: session.Tokens{
					AccessToken:     accessToken,
					RefreshToken:    refreshToken,
					AccessExpiresAt: expiresAt,
				},
			}
		}
	}

	if refreshToken == "" {
		return session.Resolution{State: session.StateUnauthenticated}
	}

	return s.refresh(ctx, refreshToken)
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) session.Resolution {
	tokens, err, shared := s.flight.Do(refreshToken, func() (session.Tokens, error) {
		s.metrics.Inc(observability.MetricRefreshCalls, 1)
		return s.callProvider(ctx, refreshToken)
	})
	if shared {
		s.metrics.Inc(observability.MetricRefreshDeduped, 1)
	}

	switch {
	case err == nil:
		return session.Resolution{
			State:     session.StateRefreshSuccess,
			Principal: session.Identity(tokens.AccessToken),
			Tokens:    tokens,
			Rotated:   true,
		}
	case errors.Is(err, ErrUnauthorized):
		s.logger.InfoContext(ctx, "session refresh rejected, clearing session")
		return session.Resolution{State: session.StateRefreshInvalid}
	default:
		s.logger.WarnContext(ctx, "session refresh failed transiently", "error", err)
		return session.Resolution{State: session.StateRefreshTransient}
	}
}

// callProvider runs the refresh with a hard timeout and a single delayed retry
// on transient failure. Definitive rejections never retry.
func (s *SessionService) callProvider(ctx context.Context, refreshToken string) (session.Tokens, error) {
	attempt := func() (session.Tokens, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()

		tokens, err := s.provider.Refresh(attemptCtx, refreshToken)
		if err != nil && attemptCtx.Err() != nil && !errors.Is(err, ErrUnauthorized) {
			return session.Tokens{}, ErrDependencyUnavailable
		}
		return tokens, err
	}

	tokens, err := attempt()
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return tokens, err
	}

	s.sleep(s.retryDelay)
	return attempt()
}
