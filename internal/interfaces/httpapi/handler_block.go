package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBlocks")
	defer span.End()

	blocks, err := h.blockService.ListBlocks(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list blocks failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	now := time.Now().UTC()
	items := make([]blockDTO, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, blockToDTO(b, now))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetCurrentBlock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentBlock")
	defer span.End()

	now := time.Now().UTC()
	number, err := h.blockService.CurrentBlockNumber(ctx, now)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve current block failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	blk, err := h.blockService.GetBlock(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "get current block failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, blockToDTO(blk, now))
}

func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBlock")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	blk, err := h.blockService.GetBlock(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "get block failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, blockToDTO(blk, time.Now().UTC()))
}

func (h *Handler) GetBlockState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBlockState")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	state, err := h.blockService.BlockState(ctx, number, time.Now().UTC())
	if err != nil {
		h.logger.WarnContext(ctx, "get block state failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, blockStateDTO{
		BlockNumber: number,
		State:       string(state),
	})
}

func (h *Handler) ListBlockFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBlockFixtures")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures, err := h.blockService.BlockFixtures(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "list block fixtures failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]fixtureDTO, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, fixtureDTO{
			ID:       f.ID,
			HomeTeam: f.HomeTeam,
			AwayTeam: f.AwayTeam,
			StartAt:  f.StartAt.UTC().Format(time.RFC3339),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListBlockPrices(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBlockPrices")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	prices, err := h.priceService.BlockPrices(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "list block prices failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]blockPriceDTO, 0, len(prices))
	for _, p := range prices {
		items = append(items, blockPriceDTO{
			BlockNumber: p.BlockNumber,
			PlayerID:    p.PlayerID,
			Price:       p.Price.StringFixed(1),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetBlockLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBlockLeaderboard")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rows, err := h.scoringService.BlockUserPoints(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "get block leaderboard failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]userScoreDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, userScoreDTO{
			Rank:        row.Rank,
			UserID:      row.UserID,
			BlockNumber: row.BlockNumber,
			Total:       row.Total,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func parseBlockNumber(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("blockNumber"))
	number, err := strconv.Atoi(raw)
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("%w: block number must be a positive integer, got %q", usecase.ErrInvalidInput, raw)
	}
	return number, nil
}

func blockToDTO(b block.Block, now time.Time) blockDTO {
	dto := blockDTO{
		Number:         b.Number,
		State:          string(block.ResolveState(b, now)),
		FixtureIDs:     append([]string{}, b.FixtureIDs...),
		FirstKickoffAt: b.FirstKickoffAt.UTC().Format(time.RFC3339),
		LockAt:         b.LockAt.UTC().Format(time.RFC3339),
	}
	if b.ScoredAt != nil {
		scoredAt := b.ScoredAt.UTC().Format(time.RFC3339)
		dto.ScoredAt = &scoredAt
	}
	return dto
}

type blockDTO struct {
	Number         int      `json:"number"`
	State          string   `json:"state"`
	FixtureIDs     []string `json:"fixtureIds"`
	FirstKickoffAt string   `json:"firstKickoffAt"`
	LockAt         string   `json:"lockAt"`
	ScoredAt       *string  `json:"scoredAt,omitempty"`
}

type blockStateDTO struct {
	BlockNumber int    `json:"blockNumber"`
	State       string `json:"state"`
}

type fixtureDTO struct {
	ID       string `json:"id"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	StartAt  string `json:"startAt"`
}

type blockPriceDTO struct {
	BlockNumber int    `json:"blockNumber"`
	PlayerID    string `json:"playerId"`
	Price       string `json:"price"`
}

type userScoreDTO struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	BlockNumber int     `json:"blockNumber"`
	Total       float64 `json:"total"`
}
