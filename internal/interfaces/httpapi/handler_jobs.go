package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	"github.com/leagueroom/fantasy-blocks/internal/usecase"
	"go.opentelemetry.io/otel/trace"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBootstrapJob")
	defer span.End()

	if h.schedulerService == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.schedulerService.Bootstrap(ctx)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, dispatch.Event{
			JobName:      "bootstrap",
			JobPath:      "/v1/internal/jobs/bootstrap",
			Status:       dispatch.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run bootstrap job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, dispatch.Event{
		JobName:    "bootstrap",
		JobPath:    "/v1/internal/jobs/bootstrap",
		Status:     dispatch.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSyncFeedJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncFeedJob")
	defer span.End()

	if h.schedulerService == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.schedulerService.RunFeedSync(ctx, usecase.SchedulerInput{Force: req.Force})
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, dispatch.Event{
			JobName:      "sync-feed",
			JobPath:      "/v1/internal/jobs/sync-feed",
			Status:       dispatch.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run sync feed job failed", "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, dispatch.Event{
		JobName:    "sync-feed",
		JobPath:    "/v1/internal/jobs/sync-feed",
		Status:     dispatch.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSyncScoresJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncScoresJob")
	defer span.End()

	if h.schedulerService == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.BlockNumber <= 0 {
		writeError(ctx, w, fmt.Errorf("%w: block_number must be greater than zero", usecase.ErrInvalidInput))
		return
	}

	finalized, err := h.schedulerService.RunScoreSync(ctx, req.BlockNumber)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, dispatch.Event{
			JobName:      "sync-scores",
			JobPath:      "/v1/internal/jobs/sync-scores",
			BlockNumber:  req.BlockNumber,
			Status:       dispatch.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run sync scores job failed", "block_number", req.BlockNumber, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, dispatch.Event{
		JobName:     "sync-scores",
		JobPath:     "/v1/internal/jobs/sync-scores",
		BlockNumber: req.BlockNumber,
		Status:      dispatch.StatusCompleted,
		Payload:     buildInternalJobPayload(req),
		OccurredAt:  time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"blockNumber": req.BlockNumber,
		"finalized":   finalized,
	})
}

func (h *Handler) ListJobDispatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListJobDispatches")
	defer span.End()

	if h.schedulerService == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: limit must be an integer, got %q", usecase.ErrInvalidInput, raw))
			return
		}
		limit = parsed
	}

	events, err := h.schedulerService.Dispatches(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list job dispatches failed", "limit", limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]dispatchEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, dispatchEventToDTO(event))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type internalJobRequest struct {
	BlockNumber int    `json:"block_number"`
	Force       bool   `json:"force"`
	DispatchID  string `json:"dispatch_id"`
}

// The queue posts an empty body for parameterless jobs, so EOF decodes to the
// zero request instead of an error.
func decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req internalJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobRequest{}, nil
		}
		return internalJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, req internalJobRequest, event dispatch.Event) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(event.JobName, dispatchSegment(event), event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildInternalJobPayload(req internalJobRequest) map[string]any {
	payload := map[string]any{
		"force": req.Force,
	}
	if req.BlockNumber > 0 {
		payload["block_number"] = req.BlockNumber
	}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func dispatchSegment(event dispatch.Event) string {
	if event.BlockNumber > 0 {
		return "block-" + strconv.Itoa(event.BlockNumber)
	}
	return "feed"
}

func buildManualDispatchID(jobName, segment string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	segment = sanitizeDispatchPart(segment)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + segment + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

func dispatchEventToDTO(event dispatch.Event) dispatchEventDTO {
	dto := dispatchEventDTO{
		DispatchID:   event.DispatchID,
		JobName:      event.JobName,
		JobPath:      event.JobPath,
		Status:       string(event.Status),
		Payload:      event.Payload,
		ErrorMessage: event.ErrorMessage,
		OccurredAt:   event.OccurredAt.UTC().Format(time.RFC3339),
		TraceID:      event.TraceID,
		SpanID:       event.SpanID,
	}
	if event.BlockNumber > 0 {
		dto.BlockNumber = &event.BlockNumber
	}
	return dto
}

type dispatchEventDTO struct {
	DispatchID   string         `json:"dispatchId"`
	JobName      string         `json:"jobName"`
	JobPath      string         `json:"jobPath"`
	BlockNumber  *int           `json:"blockNumber,omitempty"`
	Status       string         `json:"status"`
	Payload      map[string]any `json:"payload,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	OccurredAt   string         `json:"occurredAt"`
	TraceID      string         `json:"traceId,omitempty"`
	SpanID       string         `json:"spanId,omitempty"`
}
