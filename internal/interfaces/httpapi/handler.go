package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

type Handler struct {
	blockService     *usecase.BlockService
	entryService     *usecase.EntryService
	priceService     *usecase.PriceService
	scoringService   *usecase.ScoringService
	ingestionService *usecase.IngestionService
	dashboardService *usecase.DashboardService
	schedulerService *usecase.SchedulerService
	jobDispatchRepo  dispatch.Repository
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	blockService *usecase.BlockService,
	entryService *usecase.EntryService,
	priceService *usecase.PriceService,
	scoringService *usecase.ScoringService,
	ingestionService *usecase.IngestionService,
	dashboardService *usecase.DashboardService,
	schedulerService *usecase.SchedulerService,
	jobDispatchRepo dispatch.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		blockService:     blockService,
		entryService:     entryService,
		priceService:     priceService,
		scoringService:   scoringService,
		ingestionService: ingestionService,
		dashboardService: dashboardService,
		schedulerService: schedulerService,
		jobDispatchRepo:  jobDispatchRepo,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDashboard")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	dashboard, err := h.dashboardService.Get(ctx, principal.UserID, time.Now().UTC())
	if err != nil {
		h.logger.WarnContext(ctx, "get dashboard failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, dashboardDTO{
		BlockNumber:     dashboard.BlockNumber,
		BlockState:      string(dashboard.BlockState),
		LockAt:          dashboard.LockAt.UTC().Format(time.RFC3339),
		HasEntry:        dashboard.HasEntry,
		RemainingBudget: dashboard.RemainingBudget.StringFixed(1),
		SeasonTotal:     dashboard.SeasonTotal,
		SeasonRank:      dashboard.SeasonRank,
		ScoredBlocks:    dashboard.ScoredBlocks,
	})
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	activeOnly := r.URL.Query().Get("active") == "true"
	players, err := h.ingestionService.ListRoster(ctx, activeOnly)
	if err != nil {
		h.logger.WarnContext(ctx, "list players failed", "active_only", activeOnly, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]playerDTO, 0, len(players))
	for _, p := range players {
		items = append(items, playerDTO{
			ID:     p.ID,
			Name:   p.Name,
			TeamID: p.TeamID,
			Active: p.Active,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams, err := h.ingestionService.ListTeams(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamDTO{ID: t.ID, Name: t.Name, Short: t.Short})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func decodeJSONBody(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type dashboardDTO struct {
	BlockNumber     int     `json:"blockNumber"`
	BlockState      string  `json:"blockState"`
	LockAt          string  `json:"lockAt"`
	HasEntry        bool    `json:"hasEntry"`
	RemainingBudget string  `json:"remainingBudget"`
	SeasonTotal     float64 `json:"seasonTotal"`
	SeasonRank      int     `json:"seasonRank"`
	ScoredBlocks    int     `json:"scoredBlocks"`
}

type playerDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId"`
	Active bool   `json:"active"`
}

type teamDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Short string `json:"short"`
}
