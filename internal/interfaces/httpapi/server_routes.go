package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET "+openAPIPath, handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/championships/{championshipID}/leaderboard", handler.GetLeaderboard)
}

func registerSyncRoutes(mux *http.ServeMux, handler *Handler, syncSecret string) {
	sync := RequireBearerSecret(syncSecret, http.HandlerFunc(handler.Sync))
	mux.Handle("POST /sync", sync)
	mux.Handle("POST /v1/sync", sync)
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireBearerSecret(syncSecret, http.HandlerFunc(handler.RunBootstrapJob)))
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminSecret string) {
	admin := func(h http.HandlerFunc) http.Handler {
		return RequireBearerSecret(adminSecret, h)
	}

	mux.Handle("POST /v1/admin/sync/force", admin(handler.ForceSync))
	mux.Handle("GET /v1/admin/sync/runs/latest", admin(handler.GetLatestSyncRun))
	mux.Handle("GET /v1/admin/sync/scheduler", admin(handler.GetSchedulerStatus))
	mux.Handle("GET /v1/admin/settings", admin(handler.GetSettings))
	mux.Handle("PUT /v1/admin/settings", admin(handler.UpdateSettings))
	mux.Handle("POST /v1/admin/matches/{matchID}/finish", admin(handler.FinishMatch))
	mux.Handle("POST /v1/admin/matches/{matchID}/refresh", admin(handler.RefreshMatch))
}
