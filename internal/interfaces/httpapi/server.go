package httpapi

import (
	"net/http"

	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/usecase"
)

// RouterConfig carries the deployment knobs the router needs.
type RouterConfig struct {
	AllowedOrigins   []string
	InternalJobToken string
	Cookies          CookieConfig
}

// NewRouter wires every endpoint and the middleware chain.
func NewRouter(
	dashboard *usecase.DashboardService,
	sessions *usecase.SessionService,
	memberships *usecase.MembershipService,
	backfills *usecase.BackfillService,
	warmups *usecase.WarmupService,
	cfg RouterConfig,
	logger *logging.Logger,
) http.Handler {
	handler := NewHandler(dashboard, sessions, memberships, backfills, warmups, cfg, logger)

	mux := http.NewServeMux()
	registerHealthRoutes(mux, handler)
	registerViewRoutes(mux, handler)
	registerAuthRoutes(mux, handler)
	registerLeagueRoutes(mux, handler)
	registerJobRoutes(mux, handler)

	var chain http.Handler = mux
	chain = recoverPanic(logger, chain)
	chain = WithSession(sessions, cfg.Cookies)(chain)
	chain = CORS(cfg.AllowedOrigins)(chain)
	chain = RequestLogging(logger)(chain)
	chain = RequestTracing(chain)
	return chain
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"path", r.URL.Path,
				)
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
