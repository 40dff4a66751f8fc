package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/fplhq/minileague/internal/domain/session"
	"github.com/fplhq/minileague/internal/usecase"
)

type loginRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type sessionResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	State  string `json:"state"`
}

func newSessionResponse(res session.Resolution) sessionResponse {
	return sessionResponse{
		UserID: res.Principal.UserID,
		Email:  res.Principal.Email,
		State:  string(res.State),
	}
}

// Login accepts a token pair obtained from the identity provider and turns it
// into the cookie-backed session the rest of the API expects.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Login")
	defer span.End()

	var req loginRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: malformed body", usecase.ErrInvalidInput))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	res := h.sessions.Resolve(ctx, req.AccessToken, req.RefreshToken)
	if !res.Authenticated() {
		writeError(ctx, w, fmt.Errorf("%w: token pair rejected", usecase.ErrUnauthorized))
		return
	}

	tokens := session.Tokens{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}
	if res.Rotated {
		tokens = res.Tokens
	}
	setSessionCookies(w, h.cfg.Cookies, tokens)
	writeSuccess(ctx, w, http.StatusOK, newSessionResponse(res))
}

// Refresh forces a token rotation regardless of the access token's remaining
// lifetime.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Refresh")
	defer span.End()

	refreshToken := cookieValue(r, refreshCookieName)
	if refreshToken == "" {
		writeError(ctx, w, fmt.Errorf("%w: no refresh token", usecase.ErrUnauthorized))
		return
	}

	res := h.sessions.Resolve(ctx, "", refreshToken)
	switch res.State {
	case session.StateRefreshSuccess:
		setSessionCookies(w, h.cfg.Cookies, res.Tokens)
		writeSuccess(ctx, w, http.StatusOK, newSessionResponse(res))
	case session.StateRefreshInvalid:
		clearSessionCookies(w, h.cfg.Cookies)
		writeError(ctx, w, fmt.Errorf("%w: refresh token rejected", usecase.ErrUnauthorized))
	default:
		writeError(ctx, w, fmt.Errorf("%w: session refresh failed", usecase.ErrDependencyUnavailable))
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Logout")
	defer span.End()

	clearSessionCookies(w, h.cfg.Cookies)
	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Me")
	defer span.End()

	res, _ := sessionFromContext(ctx)
	writeSuccess(ctx, w, http.StatusOK, newSessionResponse(res))
}
