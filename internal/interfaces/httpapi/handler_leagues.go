package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/domain/membership"
	"github.com/fplhq/minileague/internal/usecase"
)

type leagueRequest struct {
	LeagueID int64 `json:"leagueId" validate:"required,gt=0"`
}

type leaguePreviewResponse struct {
	LeagueID    int64  `json:"leagueId"`
	LeagueName  string `json:"leagueName"`
	MemberCount int    `json:"memberCount"`
}

type myLeagueItem struct {
	LeagueID   int64  `json:"leagueId"`
	LeagueName string `json:"leagueName"`
	AddedAt    string `json:"addedAt"`
}

func newMyLeagueItem(item membership.UserLeague) myLeagueItem {
	return myLeagueItem{
		LeagueID:   item.LeagueID,
		LeagueName: item.LeagueName,
		AddedAt:    item.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) decodeLeagueRequest(r *http.Request) (leagueRequest, error) {
	var req leagueRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		return leagueRequest{}, fmt.Errorf("%w: malformed body", usecase.ErrInvalidInput)
	}
	if err := h.validate.Struct(req); err != nil {
		return leagueRequest{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return req, nil
}

func (h *Handler) ListMyLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyLeagues")
	defer span.End()

	res, _ := sessionFromContext(ctx)
	items, err := h.memberships.ListLeagues(ctx, res.Principal.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]myLeagueItem, 0, len(items))
	for _, item := range items {
		out = append(out, newMyLeagueItem(item))
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{"leagues": out})
}

func (h *Handler) AddMyLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddMyLeague")
	defer span.End()

	req, err := h.decodeLeagueRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, _ := sessionFromContext(ctx)
	item, err := h.memberships.AddLeague(ctx, res.Principal.UserID, req.LeagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusCreated, newMyLeagueItem(item))
}

func (h *Handler) PreviewLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PreviewLeague")
	defer span.End()

	req, err := h.decodeLeagueRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, _ := sessionFromContext(ctx)
	preview, err := h.memberships.PreviewLeague(ctx, res.Principal.UserID, req.LeagueID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, leaguePreviewResponse{
		LeagueID:    preview.LeagueID,
		LeagueName:  preview.LeagueName,
		MemberCount: preview.MemberCount,
	})
}

func (h *Handler) RemoveMyLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveMyLeague")
	defer span.End()

	leagueID, err := strconv.ParseInt(r.PathValue("leagueID"), 10, 64)
	if err != nil || leagueID <= 0 {
		writeError(ctx, w, fmt.Errorf("%w: league id must be a positive integer", usecase.ErrInvalidInput))
		return
	}

	res, _ := sessionFromContext(ctx)
	if err := h.memberships.RemoveLeague(ctx, res.Principal.UserID, leagueID); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"removed": true})
}
