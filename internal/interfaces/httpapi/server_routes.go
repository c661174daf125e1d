package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/blocks", handler.ListBlocks)
	mux.HandleFunc("GET /v1/blocks/current", handler.GetCurrentBlock)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}", handler.GetBlock)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}/state", handler.GetBlockState)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}/fixtures", handler.ListBlockFixtures)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}/prices", handler.ListBlockPrices)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}/leaderboard", handler.GetBlockLeaderboard)
	mux.HandleFunc("GET /v1/blocks/{blockNumber}/points/players", handler.ListBlockPlayerPoints)
	mux.HandleFunc("GET /v1/season/leaderboard", handler.GetSeasonLeaderboard)
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/me/dashboard", RequireAuth(verifier, http.HandlerFunc(handler.GetDashboard)))
	mux.Handle("GET /v1/me/points/history", RequireAuth(verifier, http.HandlerFunc(handler.GetMyPointsHistory)))
	mux.Handle("POST /v1/blocks/{blockNumber}/entries/validate", RequireAuth(verifier, http.HandlerFunc(handler.ValidateEntry)))
	mux.Handle("PUT /v1/blocks/{blockNumber}/entries/me", RequireAuth(verifier, http.HandlerFunc(handler.SaveMyEntry)))
	mux.Handle("GET /v1/blocks/{blockNumber}/entries/me", RequireAuth(verifier, http.HandlerFunc(handler.GetMyEntry)))
	mux.Handle("GET /v1/blocks/{blockNumber}/points/me", RequireAuth(verifier, http.HandlerFunc(handler.GetMyBlockPoints)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/ingestion/fixtures", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestFixtures)))
	mux.Handle("POST /v1/internal/ingestion/roster", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestRoster)))
	mux.Handle("POST /v1/internal/ingestion/teams", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.IngestTeams)))
	mux.Handle("POST /v1/internal/blocks/rebuild", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RebuildBlocks)))
	mux.Handle("POST /v1/internal/blocks/{blockNumber}/prices/defaults", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SeedDefaultPrices)))
	mux.Handle("PUT /v1/internal/blocks/{blockNumber}/prices", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.OverrideBlockPrices)))
	mux.Handle("POST /v1/internal/blocks/{blockNumber}/scores", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.FinalizeBlockScores)))
	mux.Handle("DELETE /v1/internal/entries/{blockNumber}/{userID}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.PurgeEntry)))
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBootstrapJob)))
	mux.Handle("POST /v1/internal/jobs/sync-feed", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncFeedJob)))
	mux.Handle("POST /v1/internal/jobs/sync-scores", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncScoresJob)))
	mux.Handle("GET /v1/internal/jobs/dispatches", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListJobDispatches)))
}
