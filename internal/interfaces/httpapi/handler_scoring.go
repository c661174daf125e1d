package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

func (h *Handler) GetMyBlockPoints(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyBlockPoints")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	score, found, err := h.scoringService.UserBlockPoints(ctx, number, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get user block points failed", "block_number", number, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !found {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entryScoreToDTO(score))
}

func (h *Handler) ListBlockPlayerPoints(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBlockPlayerPoints")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	rows, err := h.scoringService.BlockPlayerPoints(ctx, number)
	if err != nil {
		h.logger.WarnContext(ctx, "list block player points failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]playerPointsDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, playerPointsDTO{
			BlockNumber: row.BlockNumber,
			PlayerID:    row.PlayerID,
			Points:      row.Points,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetSeasonLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSeasonLeaderboard")
	defer span.End()

	rows, err := h.scoringService.SeasonTotals(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get season leaderboard failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]seasonScoreDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, seasonScoreDTO{
			Rank:         row.Rank,
			UserID:       row.UserID,
			Total:        row.Total,
			ScoredBlocks: row.ScoredBlocks,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetMyPointsHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyPointsHistory")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	rows, err := h.scoringService.UserPointsHistory(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get points history failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]blockHistoryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, blockHistoryDTO{
			BlockNumber: row.BlockNumber,
			Total:       row.Total,
			ScoredAt:    row.ScoredAt.UTC().Format(time.RFC3339),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func entryScoreToDTO(score scoring.EntryScore) entryScoreDTO {
	slots := make([]slotResultDTO, 0, len(score.Slots))
	for _, slot := range score.Slots {
		slots = append(slots, slotResultDTO{
			PlayerID:     slot.PlayerID,
			SubbedInFor:  slot.SubbedInFor,
			Played:       slot.Played,
			Points:       slot.Points,
			Multiplier:   slot.Multiplier,
			Contribution: slot.Contribution,
		})
	}

	return entryScoreDTO{
		BlockNumber: score.BlockNumber,
		UserID:      score.UserID,
		Total:       score.Total,
		Slots:       slots,
		BenchUsed:   append([]string{}, score.BenchUsed...),
	}
}

type playerPointsDTO struct {
	BlockNumber int     `json:"blockNumber"`
	PlayerID    string  `json:"playerId"`
	Points      float64 `json:"points"`
}

type slotResultDTO struct {
	PlayerID     string  `json:"playerId"`
	SubbedInFor  string  `json:"subbedInFor,omitempty"`
	Played       bool    `json:"played"`
	Points       float64 `json:"points"`
	Multiplier   float64 `json:"multiplier"`
	Contribution float64 `json:"contribution"`
}

type entryScoreDTO struct {
	BlockNumber int             `json:"blockNumber"`
	UserID      string          `json:"userId"`
	Total       float64         `json:"total"`
	Slots       []slotResultDTO `json:"slots"`
	BenchUsed   []string        `json:"benchUsed"`
}

type seasonScoreDTO struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	Total        float64 `json:"total"`
	ScoredBlocks int     `json:"scoredBlocks"`
}

type blockHistoryDTO struct {
	BlockNumber int     `json:"blockNumber"`
	Total       float64 `json:"total"`
	ScoredAt    string  `json:"scoredAt"`
}
