package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fplhq/minileague/internal/domain/view"
	"github.com/fplhq/minileague/internal/usecase"
)

type viewQuery struct {
	LeagueID  int64 `validate:"required,gt=0"`
	Gameweek  int   `validate:"required,gt=0"`
	CurrentGw int   `validate:"required,gt=0"`
}

func (h *Handler) parseViewQuery(r *http.Request) (viewQuery, error) {
	query := r.URL.Query()
	leagueID, err := strconv.ParseInt(query.Get("leagueId"), 10, 64)
	if err != nil {
		return viewQuery{}, fmt.Errorf("%w: leagueId must be a positive integer", usecase.ErrInvalidInput)
	}
	gw, err := strconv.Atoi(query.Get("gw"))
	if err != nil {
		return viewQuery{}, fmt.Errorf("%w: gw must be a positive integer", usecase.ErrInvalidInput)
	}
	currentGw, err := strconv.Atoi(query.Get("currentGw"))
	if err != nil {
		return viewQuery{}, fmt.Errorf("%w: currentGw must be a positive integer", usecase.ErrInvalidInput)
	}

	parsed := viewQuery{LeagueID: leagueID, Gameweek: gw, CurrentGw: currentGw}
	if err := h.validate.Struct(parsed); err != nil {
		return viewQuery{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return parsed, nil
}

func (h *Handler) serveView(w http.ResponseWriter, r *http.Request, kind view.Kind) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.serveView")
	defer span.End()

	query, err := h.parseViewQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	payload, err := h.dashboard.View(ctx, usecase.ViewRequest{
		LeagueID:  query.LeagueID,
		Gameweek:  query.Gameweek,
		CurrentGw: query.CurrentGw,
		Kind:      kind,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, payload)
}

func (h *Handler) LeagueView(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, view.KindLeague)
}

func (h *Handler) TransfersView(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, view.KindTransfers)
}

func (h *Handler) ChipsView(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, view.KindChips)
}

func (h *Handler) ActivityImpactView(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, view.KindActivityImpact)
}
