package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/fplhq/minileague/external/fpl"
	"github.com/fplhq/minileague/internal/config"
	"github.com/fplhq/minileague/internal/infrastructure/auth"
	repocache "github.com/fplhq/minileague/internal/infrastructure/repository/cache"
	"github.com/fplhq/minileague/internal/infrastructure/repository/postgres"
	"github.com/fplhq/minileague/internal/interfaces/httpapi"
	"github.com/fplhq/minileague/internal/platform/cache"
	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/platform/resilience"
	"github.com/fplhq/minileague/internal/usecase"
)

// NewHTTPServer wires the repositories, upstream clients and services behind
// the API server. The returned cleanup closes the database pool.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	views := postgres.NewViewCacheRepository(db)
	jobs := postgres.NewBackfillJobRepository(db)
	members := repocache.NewUserLeagueRepository(
		postgres.NewUserLeagueRepository(db),
		cache.NewStore(cfg.ViewLiveTTL),
	)
	limiter := postgres.NewRateLimitRepository(db)

	provider := fpl.NewClient(fpl.ClientConfig{
		BaseURL:      cfg.FPLBaseURL,
		Timeout:      cfg.FPLTimeout,
		MaxRetries:   cfg.FPLMaxRetries,
		BootstrapTTL: cfg.FPLBootstrapTTL,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	authProvider := auth.NewProvider(auth.ProviderConfig{
		TokenURL: cfg.AuthTokenURL,
		ClientID: cfg.AuthClientID,
		Timeout:  cfg.AuthRefreshTimeout,
		Logger:   logger,
	})

	cache := usecase.NewViewCacheService(views, members, cfg.ViewLiveTTL, logger, nil)
	standings := usecase.NewStandingsService(provider, logger, nil)
	transfers := usecase.NewTransfersService(provider, logger, nil)
	activity := usecase.NewActivityService(provider, logger, nil)
	dashboard := usecase.NewDashboardService(provider, cache, standings, transfers, activity)

	sessions := usecase.NewSessionService(authProvider, usecase.SessionConfig{
		ExpirySkew:     cfg.SessionExpirySkew,
		RetryDelay:     cfg.AuthRetryDelay,
		RefreshTimeout: cfg.AuthRefreshTimeout,
	}, logger, nil)

	warmups := usecase.NewWarmupService(usecase.WarmupConfig{
		Origin:      cfg.WarmupOrigin,
		Concurrency: cfg.WarmupConcurrency,
		TimeBudget:  cfg.WarmupTimeBudget,
	}, provider, logger, nil)
	backfills := usecase.NewBackfillService(jobs, warmups, cfg.BackfillStaleAfter, logger, nil)
	memberships := usecase.NewMembershipService(members, limiter, provider, cache, backfills, logger, nil)

	router := httpapi.NewRouter(dashboard, sessions, memberships, backfills, warmups, httpapi.RouterConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		InternalJobToken: cfg.InternalJobToken,
		Cookies: httpapi.CookieConfig{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.CookieMaxAge,
		},
	}, logger)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		_ = db.Close()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		return db.Close()
	}
	return server, cleanup, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := connString(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(databaseName(dsn)),
		otelsql.WithQueryFormatter(traceQuery),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
