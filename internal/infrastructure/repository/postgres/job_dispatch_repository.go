package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type JobDispatchRepository struct {
	db *sqlx.DB
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db}
}

// UpsertEvent journals one status transition per dispatch id. Each status
// keeps its own timestamp and trace columns, so a completed delivery still
// shows when it was sent and which trace pushed it.
func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event dispatch.Event) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	jobPath := strings.TrimSpace(event.JobPath)
	if jobPath == "" {
		jobPath = "/unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payloadJSON, err := marshalDispatchPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal job dispatch payload: %w", err)
	}

	model := jobDispatchInsertModel{
		DispatchID:  dispatchID,
		JobName:     jobName,
		JobPath:     jobPath,
		BlockNumber: event.BlockNumber,
		Payload:     payloadJSON,
		Status:      string(event.Status),
		LastError:   optionalString(event.ErrorMessage),
	}

	switch event.Status {
	case dispatch.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case dispatch.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.CompletedTraceID = optionalString(event.TraceID)
		model.CompletedSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case dispatch.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	}

	query, args, err := qb.InsertModel("job_dispatches", model, `ON CONFLICT (dispatch_id) WHERE deleted_at IS NULL
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    block_number = EXCLUDED.block_number,
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    sent_at = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_at
        ELSE COALESCE(job_dispatches.sent_at, EXCLUDED.sent_at)
    END,
    completed_at = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_at
        ELSE job_dispatches.completed_at
    END,
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'completed' THEN NULL
        ELSE job_dispatches.failed_at
    END,
    last_error = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error
        ELSE NULL
    END,
    sent_trace_id = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_trace_id
        ELSE job_dispatches.sent_trace_id
    END,
    sent_span_id = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_span_id
        ELSE job_dispatches.sent_span_id
    END,
    completed_trace_id = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_trace_id
        ELSE job_dispatches.completed_trace_id
    END,
    completed_span_id = CASE
        WHEN EXCLUDED.status = 'completed' THEN EXCLUDED.completed_span_id
        ELSE job_dispatches.completed_span_id
    END,
    failed_trace_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_trace_id
        ELSE job_dispatches.failed_trace_id
    END,
    failed_span_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_span_id
        ELSE job_dispatches.failed_span_id
    END,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert job dispatch query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}

	return nil
}

func (r *JobDispatchRepository) ListRecent(ctx context.Context, limit int) ([]dispatch.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := qb.Select("*").
		From("job_dispatches").
		Where(qb.IsNull("deleted_at")).
		OrderBy("updated_at DESC", "dispatch_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list job dispatches query: %w", err)
	}

	var rows []jobDispatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list job dispatches: %w", err)
	}

	out := make([]dispatch.Event, 0, len(rows))
	for _, row := range rows {
		event, err := dispatchEventFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func dispatchEventFromRow(row jobDispatchTableModel) (dispatch.Event, error) {
	event := dispatch.Event{
		DispatchID:  row.DispatchID,
		JobName:     row.JobName,
		JobPath:     row.JobPath,
		BlockNumber: row.BlockNumber,
		Status:      dispatch.Status(row.Status),
	}

	if strings.TrimSpace(row.Payload) != "" {
		payload := map[string]any{}
		if err := sonic.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return dispatch.Event{}, fmt.Errorf("unmarshal dispatch %s payload: %w", row.DispatchID, err)
		}
		event.Payload = payload
	}

	switch event.Status {
	case dispatch.StatusCompleted:
		event.OccurredAt = derefTime(row.CompletedAt)
		event.TraceID = derefString(row.CompletedTraceID)
		event.SpanID = derefString(row.CompletedSpanID)
	case dispatch.StatusFailed:
		event.OccurredAt = derefTime(row.FailedAt)
		event.TraceID = derefString(row.FailedTraceID)
		event.SpanID = derefString(row.FailedSpanID)
		event.ErrorMessage = derefString(row.LastError)
	default:
		event.OccurredAt = derefTime(row.SentAt)
		event.TraceID = derefString(row.SentTraceID)
		event.SpanID = derefString(row.SentSpanID)
	}

	return event, nil
}

func marshalDispatchPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
