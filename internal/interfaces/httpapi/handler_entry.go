package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
)

func (h *Handler) ValidateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ValidateEntry")
	defer span.End()

	number, err := parseBlockNumber(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req entrySelectionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	violations, err := h.entryService.ValidateEntry(ctx, number, req.toSelection())
	if err != nil {
		h.logger.WarnContext(ctx, "validate entry failed", "block_number", number, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entryValidationDTO{
		Valid:      len(violations) == 0,
		Violations: violationsToDTO(violations),
	})
}

func (h *Handler) SaveMyEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveMyEntry")
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

	var req entrySelectionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, violations, err := h.entryService.SaveEntry(ctx, number, principal.UserID, req.toSelection(), time.Now().UTC())
	if len(violations) > 0 {
		writeRuleViolations(ctx, w, violations)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "save entry failed", "block_number", number, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entryToDTO(entry))
}

func (h *Handler) GetMyEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyEntry")
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

	entry, found, err := h.entryService.GetEntry(ctx, number, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get entry failed", "block_number", number, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !found {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entryToDTO(entry))
}

// writeRuleViolations reports broken squad rules as structured error items so
// clients can highlight every offending part of the picker in one round trip.
func writeRuleViolations(ctx context.Context, w http.ResponseWriter, violations []fantasy.Violation) {
	ctx, span := startSpan(ctx, "httpapi.writeRuleViolations")
	defer span.End()

	items := make([]googleErrorItem, 0, len(violations))
	for _, v := range violations {
		items = append(items, googleErrorItem{
			Domain:  errorDomain,
			Reason:  v.Rule,
			Message: v.Message,
		})
	}

	writeJSON(ctx, w, http.StatusUnprocessableEntity, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error: &googleErrorBody{
			Code:    http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("entry breaks %d squad rule(s)", len(violations)),
			Status:  "FAILED_PRECONDITION",
			Errors:  items,
		},
	})
}

// entrySelectionRequest intentionally has no validator tags: squad composition
// is checked by the rule engine, which reports every broken rule at once
// instead of failing on the first missing field.
type entrySelectionRequest struct {
	Squad         []string `json:"squad"`
	Starting      []string `json:"starting"`
	Bench1        string   `json:"bench1"`
	Bench2        string   `json:"bench2"`
	CaptainID     string   `json:"captainId"`
	ViceCaptainID string   `json:"viceCaptainId"`
}

func (req entrySelectionRequest) toSelection() fantasy.Selection {
	return fantasy.Selection{
		Squad:         req.Squad,
		Starting:      req.Starting,
		Bench1:        req.Bench1,
		Bench2:        req.Bench2,
		CaptainID:     req.CaptainID,
		ViceCaptainID: req.ViceCaptainID,
	}
}

func entryToDTO(e fantasy.Entry) entryDTO {
	return entryDTO{
		ID:            e.ID,
		BlockNumber:   e.BlockNumber,
		UserID:        e.UserID,
		Squad:         append([]string{}, e.Squad...),
		Starting:      append([]string{}, e.Starting...),
		Bench1:        e.Bench1,
		Bench2:        e.Bench2,
		CaptainID:     e.CaptainID,
		ViceCaptainID: e.ViceCaptainID,
		BudgetUsed:    e.BudgetUsed.StringFixed(1),
		SubmittedAt:   e.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

func violationsToDTO(violations []fantasy.Violation) []violationDTO {
	items := make([]violationDTO, 0, len(violations))
	for _, v := range violations {
		items = append(items, violationDTO{Rule: v.Rule, Message: v.Message})
	}
	return items
}

type entryDTO struct {
	ID            string   `json:"id"`
	BlockNumber   int      `json:"blockNumber"`
	UserID        string   `json:"userId"`
	Squad         []string `json:"squad"`
	Starting      []string `json:"starting"`
	Bench1        string   `json:"bench1"`
	Bench2        string   `json:"bench2"`
	CaptainID     string   `json:"captainId"`
	ViceCaptainID string   `json:"viceCaptainId"`
	BudgetUsed    string   `json:"budgetUsed"`
	SubmittedAt   string   `json:"submittedAt"`
}

type violationDTO struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type entryValidationDTO struct {
	Valid      bool           `json:"valid"`
	Violations []violationDTO `json:"violations"`
}
