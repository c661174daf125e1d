package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

const (
	jobPathSyncFeed   = "/v1/internal/jobs/sync-feed"
	jobPathSyncScores = "/v1/internal/jobs/sync-scores"
)

type SchedulerConfig struct {
	FeedSyncInterval   time.Duration
	ScoreSyncDelay     time.Duration
	ScoreRetryInterval time.Duration
}

type SchedulerInput struct {
	Force bool
}

type SchedulerResult struct {
	Mode             string         `json:"mode"`
	Sync             FeedSyncResult `json:"sync"`
	BlocksChecked    int            `json:"blocks_checked"`
	QueuedCount      int            `json:"queued_count"`
	QueuedOperations []string       `json:"queued_operations"`
}

// SchedulerService drives the background sync loop. Each run refreshes the
// feed, queues the next run, and queues a score sync for every locked block
// that has not been scored yet. Deduplication ids are derived from time
// buckets so redelivered or overlapping enqueues collapse in the queue, and
// every enqueue attempt lands in the dispatch journal.
type SchedulerService struct {
	blockRepo    block.Repository
	fixtureRepo  fixture.Repository
	feedSync     *FeedSyncService
	queue        JobQueue
	dispatchRepo dispatch.Repository
	cfg          SchedulerConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewSchedulerService(
	blockRepo block.Repository,
	fixtureRepo fixture.Repository,
	feedSync *FeedSyncService,
	queue JobQueue,
	dispatchRepo dispatch.Repository,
	cfg SchedulerConfig,
	logger *logging.Logger,
) *SchedulerService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FeedSyncInterval <= 0 {
		cfg.FeedSyncInterval = 6 * time.Hour
	}
	if cfg.ScoreSyncDelay <= 0 {
		cfg.ScoreSyncDelay = 2 * time.Hour
	}
	if cfg.ScoreRetryInterval <= 0 {
		cfg.ScoreRetryInterval = 30 * time.Minute
	}

	return &SchedulerService{
		blockRepo:    blockRepo,
		fixtureRepo:  fixtureRepo,
		feedSync:     feedSync,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Bootstrap queues the first sync-feed job. Everything after that is queued
// by the runs themselves.
func (s *SchedulerService) Bootstrap(ctx context.Context) (SchedulerResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.Bootstrap")
	defer span.End()

	now := s.now().UTC()
	result := SchedulerResult{
		Mode:             "bootstrap",
		QueuedOperations: make([]string, 0, 1),
	}

	if err := s.enqueueFeedSync(ctx, 0, now); err != nil {
		return SchedulerResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, "sync-feed")
	return result, nil
}

// RunFeedSync executes one sync pass and queues the follow-up work.
func (s *SchedulerService) RunFeedSync(ctx context.Context, input SchedulerInput) (SchedulerResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.RunFeedSync")
	defer span.End()

	syncResult, err := s.feedSync.SyncAll(ctx)
	if err != nil {
		return SchedulerResult{}, fmt.Errorf("run feed sync: %w", err)
	}

	now := s.now().UTC()
	result := SchedulerResult{
		Mode:             "sync-feed",
		Sync:             syncResult,
		QueuedOperations: make([]string, 0, 4),
	}

	if err := s.enqueueFeedSync(ctx, s.cfg.FeedSyncInterval, now); err != nil {
		return SchedulerResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, "sync-feed")

	queued, checked, err := s.enqueueDueScoreSyncs(ctx, now, input.Force)
	if err != nil {
		return SchedulerResult{}, err
	}
	result.BlocksChecked = checked
	result.QueuedCount += len(queued)
	result.QueuedOperations = append(result.QueuedOperations, queued...)

	return result, nil
}

// RunScoreSync executes the score pull for one block. Called by the internal
// job endpoint when the queue delivers a sync-scores job.
func (s *SchedulerService) RunScoreSync(ctx context.Context, blockNumber int) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.RunScoreSync")
	defer span.End()

	finalized, err := s.feedSync.SyncScores(ctx, blockNumber)
	if err != nil {
		return false, fmt.Errorf("run score sync block=%d: %w", blockNumber, err)
	}
	return finalized, nil
}

// Dispatches returns the most recent journal entries, newest first.
func (s *SchedulerService) Dispatches(ctx context.Context, limit int) ([]dispatch.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.Dispatches")
	defer span.End()

	if s.dispatchRepo == nil {
		return []dispatch.Event{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events, err := s.dispatchRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list dispatch events: %w", err)
	}
	return events, nil
}

func (s *SchedulerService) enqueueDueScoreSyncs(ctx context.Context, now time.Time, force bool) ([]string, int, error) {
	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list blocks for score scheduling: %w", err)
	}

	queued := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		if block.ResolveState(blk, now) != block.StateLocked {
			continue
		}

		delay := s.scoreSyncDelay(ctx, blk, now)
		if force {
			delay = 0
		}
		if err := s.enqueueScoreSync(ctx, blk.Number, delay, now); err != nil {
			return nil, 0, err
		}
		queued = append(queued, fmt.Sprintf("sync-scores:%d", blk.Number))
	}

	return queued, len(blocks), nil
}

// scoreSyncDelay waits until the block's last fixture has had time to finish
// before the first pull; once that moment has passed pulls retry on the
// regular interval until the feed publishes the sheet.
func (s *SchedulerService) scoreSyncDelay(ctx context.Context, blk block.Block, now time.Time) time.Duration {
	lastStart := blk.LockAt
	fixtures, err := s.fixtureRepo.ListByIDs(ctx, blk.FixtureIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve block fixtures for score delay failed",
			"block_number", blk.Number,
			"error", err,
		)
	}
	for _, item := range fixtures {
		if item.StartAt.After(lastStart) {
			lastStart = item.StartAt
		}
	}

	readyAt := lastStart.Add(s.cfg.ScoreSyncDelay)
	delay := readyAt.Sub(now)
	if delay <= 0 {
		return s.cfg.ScoreRetryInterval
	}
	return delay
}

func (s *SchedulerService) enqueueFeedSync(ctx context.Context, delay time.Duration, now time.Time) error {
	dedupID := dedupKey("sync-feed", "feed", now.Add(delay), s.cfg.FeedSyncInterval)
	payload := map[string]any{
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, jobPathSyncFeed, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, dispatch.Event{
			DispatchID:   dedupID,
			JobName:      "sync-feed",
			JobPath:      jobPathSyncFeed,
			Status:       dispatch.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now.UTC(),
		})
		return fmt.Errorf("enqueue sync-feed: %w", err)
	}
	s.recordDispatchEvent(ctx, dispatch.Event{
		DispatchID: dedupID,
		JobName:    "sync-feed",
		JobPath:    jobPathSyncFeed,
		Status:     dispatch.StatusSent,
		Payload:    payload,
		OccurredAt: now.UTC(),
	})
	return nil
}

func (s *SchedulerService) enqueueScoreSync(ctx context.Context, blockNumber int, delay time.Duration, now time.Time) error {
	segment := fmt.Sprintf("block-%d", blockNumber)
	dedupID := dedupKey("sync-scores", segment, now.Add(delay), s.cfg.ScoreRetryInterval)
	payload := map[string]any{
		"block_number": blockNumber,
		"dispatch_id":  dedupID,
	}
	if err := s.queue.Enqueue(ctx, jobPathSyncScores, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, dispatch.Event{
			DispatchID:   dedupID,
			JobName:      "sync-scores",
			JobPath:      jobPathSyncScores,
			BlockNumber:  blockNumber,
			Status:       dispatch.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now.UTC(),
		})
		return fmt.Errorf("enqueue sync-scores block=%d: %w", blockNumber, err)
	}
	s.recordDispatchEvent(ctx, dispatch.Event{
		DispatchID:  dedupID,
		JobName:     "sync-scores",
		JobPath:     jobPathSyncScores,
		BlockNumber: blockNumber,
		Status:      dispatch.StatusSent,
		Payload:     payload,
		OccurredAt:  now.UTC(),
	})
	return nil
}

func dedupKey(prefix, segment string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	segment = sanitizeDedupSegment(segment)
	return prefix + "-" + segment + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *SchedulerService) recordDispatchEvent(ctx context.Context, event dispatch.Event) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
