package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fplhq/minileague/internal/platform/logging"
	"github.com/fplhq/minileague/internal/usecase"
)

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	dashboard   *usecase.DashboardService
	sessions    *usecase.SessionService
	memberships *usecase.MembershipService
	backfills   *usecase.BackfillService
	warmups     *usecase.WarmupService
	cfg         RouterConfig
	validate    *validator.Validate
	logger      *logging.Logger
}

func NewHandler(
	dashboard *usecase.DashboardService,
	sessions *usecase.SessionService,
	memberships *usecase.MembershipService,
	backfills *usecase.BackfillService,
	warmups *usecase.WarmupService,
	cfg RouterConfig,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		dashboard:   dashboard,
		sessions:    sessions,
		memberships: memberships,
		backfills:   backfills,
		warmups:     warmups,
		cfg:         cfg,
		validate:    validator.New(),
		logger:      logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
