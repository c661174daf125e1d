package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

func (h *Handler) IngestFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestFixtures")
	defer span.End()

	var req ingestFixturesRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures := make([]fixture.Fixture, 0, len(req.Fixtures))
	for _, item := range req.Fixtures {
		startAt, err := time.Parse(time.RFC3339, item.StartAt)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: fixture %s has invalid startAt %q", usecase.ErrInvalidInput, item.ID, item.StartAt))
			return
		}
		fixtures = append(fixtures, fixture.Fixture{
			ID:       item.ID,
			HomeTeam: item.HomeTeam,
			AwayTeam: item.AwayTeam,
			StartAt:  startAt.UTC(),
		})
	}

	created, err := h.ingestionService.UpsertFixtures(ctx, fixtures)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest fixtures failed", "fixture_count", len(fixtures), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, ingestFixturesResultDTO{
		Upserted:      len(fixtures),
		BlocksCreated: created,
	})
}

func (h *Handler) IngestRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestRoster")
	defer span.End()

	var req ingestRosterRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	players := make([]player.Player, 0, len(req.Players))
	for _, item := range req.Players {
		active := true
		if item.Active != nil {
			active = *item.Active
		}
		players = append(players, player.Player{
			ID:     item.ID,
			Name:   item.Name,
			TeamID: item.TeamID,
			Active: active,
		})
	}

	if err := h.ingestionService.UpsertRoster(ctx, players); err != nil {
		h.logger.WarnContext(ctx, "ingest roster failed", "player_count", len(players), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"players": len(players)})
}

func (h *Handler) IngestTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestTeams")
	defer span.End()

	var req ingestTeamsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	teams := make([]team.Team, 0, len(req.Teams))
	for _, item := range req.Teams {
		teams = append(teams, team.Team{ID: item.ID, Name: item.Name, Short: item.Short})
	}

	if err := h.ingestionService.UpsertTeams(ctx, teams); err != nil {
		h.logger.WarnContext(ctx, "ingest teams failed", "team_count", len(teams), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"teams": len(teams)})
}

func (h *Handler) RebuildBlocks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RebuildBlocks")
	defer span.End()

	created, err := h.blockService.RebuildFromStoredFixtures(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "rebuild blocks failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"blocksCreated": created})
}

func (h *Handler) SeedDefaultPrices(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SeedDefaultPrices")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	req, err := decodeSeedDefaultPricesRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	defaultPrice := decimal.Zero
	if strings.TrimSpace(req.DefaultPrice) != "" {
		defaultPrice, err = decimal.NewFromString(req.DefaultPrice)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid default price %q", usecase.ErrInvalidInput, req.DefaultPrice))
			return
		}
	}

	seeded, err := h.priceService.EnsureDefaultPrices(ctx, number, req.PlayerIDs, defaultPrice)
	if err != nil {
		h.logger.WarnContext(ctx, "seed default prices failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"seeded": seeded})
}

func (h *Handler) OverrideBlockPrices(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.OverrideBlockPrices")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req overrideBlockPricesRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	prices := make([]pricing.BlockPrice, 0, len(req.Prices))
	for _, item := range req.Prices {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: player %s has invalid price %q", usecase.ErrInvalidInput, item.PlayerID, item.Price))
			return
		}
		prices = append(prices, pricing.BlockPrice{
			BlockNumber: number,
			PlayerID:    item.PlayerID,
			Price:       price,
		})
	}

	if err := h.priceService.OverrideBlockPrices(ctx, number, prices, time.Now().UTC()); err != nil {
		h.logger.WarnContext(ctx, "override block prices failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int{"prices": len(prices)})
}

func (h *Handler) FinalizeBlockScores(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizeBlockScores")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req finalizeBlockScoresRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	rows := make([]scoring.PlayerPoints, 0, len(req.Points))
	for _, item := range req.Points {
		rows = append(rows, scoring.PlayerPoints{
			BlockNumber: number,
			PlayerID:    item.PlayerID,
			Points:      item.Points,
		})
	}

	if err := h.scoringService.FinalizeBlockScores(ctx, number, rows, time.Now().UTC()); err != nil {
		h.logger.WarnContext(ctx, "finalize block scores failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"blockNumber": number,
		"finalized":   true,
	})
}

func (h *Handler) PurgeEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PurgeEntry")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	userID := strings.TrimSpace(r.PathValue("userID"))

	if err := h.entryService.PurgeEntry(ctx, number, userID); err != nil {
		h.logger.WarnContext(ctx, "purge entry failed", "block_number", number, "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"blockNumber": number,
		"userId":      userID,
		"deleted":     true,
	})
}

type ingestFixturesRequest struct {
	Fixtures []ingestFixtureItem `json:"fixtures" validate:"required,min=1,dive"`
}

type ingestFixtureItem struct {
	ID       string `json:"id" validate:"required"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	StartAt  string `json:"startAt" validate:"required"`
}

type ingestFixturesResultDTO struct {
	Upserted      int `json:"upserted"`
	BlocksCreated int `json:"blocksCreated"`
}

type ingestRosterRequest struct {
	Players []ingestPlayerItem `json:"players" validate:"required,min=1,dive"`
}

type ingestPlayerItem struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	TeamID string `json:"teamId" validate:"required"`
	Active *bool  `json:"active"`
}

type ingestTeamsRequest struct {
	Teams []ingestTeamItem `json:"teams" validate:"required,min=1,dive"`
}

type ingestTeamItem struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Short string `json:"short"`
}

type seedDefaultPricesRequest struct {
	PlayerIDs    []string `json:"playerIds"`
	DefaultPrice string   `json:"defaultPrice"`
}

// An empty body seeds every active roster player at the configured default.
func decodeSeedDefaultPricesRequest(r *http.Request) (seedDefaultPricesRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req seedDefaultPricesRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return seedDefaultPricesRequest{}, nil
		}
		return seedDefaultPricesRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

type overrideBlockPricesRequest struct {
	Prices []blockPriceItem `json:"prices" validate:"required,min=1,dive"`
}

type blockPriceItem struct {
	PlayerID string `json:"playerId" validate:"required"`
	Price    string `json:"price" validate:"required"`
}

type finalizeBlockScoresRequest struct {
	Points []playerPointsItem `json:"points" validate:"required,min=1,dive"`
}

type playerPointsItem struct {
	PlayerID string  `json:"playerId" validate:"required"`
	Points   float64 `json:"points"`
}
