package httpapi

import "net/http"

func registerHealthRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func registerViewRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /v1/views/league", h.LeagueView)
	mux.HandleFunc("GET /v1/views/transfers", h.TransfersView)
	mux.HandleFunc("GET /v1/views/chips", h.ChipsView)
	mux.HandleFunc("GET /v1/views/activity-impact", h.ActivityImpactView)
}

func registerAuthRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /v1/auth/login", h.Login)
	mux.HandleFunc("POST /v1/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /v1/auth/me", RequireSession(h.Me))
}

func registerLeagueRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /v1/my/leagues", RequireSession(h.ListMyLeagues))
	mux.HandleFunc("POST /v1/my/leagues", RequireSession(h.AddMyLeague))
	mux.HandleFunc("POST /v1/my/leagues/preview", RequireSession(h.PreviewLeague))
	mux.HandleFunc("DELETE /v1/my/leagues/{leagueID}", RequireSession(h.RemoveMyLeague))
}

func registerJobRoutes(mux *http.ServeMux, h *Handler) {
	token := h.cfg.InternalJobToken
	mux.HandleFunc("GET /v1/internal/jobs/active", RequireInternalJobToken(token, h.ActiveJobs))
	mux.HandleFunc("POST /v1/internal/jobs/run", RequireInternalJobToken(token, h.RunJobs))
	mux.HandleFunc("POST /v1/internal/jobs/enqueue", RequireInternalJobToken(token, h.EnqueueJob))
	mux.HandleFunc("POST /v1/internal/jobs/requeue-failed", RequireInternalJobToken(token, h.RequeueFailedJobs))
}
