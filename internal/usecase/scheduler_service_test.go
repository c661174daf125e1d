package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

type queuedJob struct {
	path    string
	payload map[string]any
	delay   time.Duration
	dedupID string
}

type recordingJobQueue struct {
	err  error
	jobs []queuedJob
}

func (q *recordingJobQueue) Enqueue(_ context.Context, path string, payload any, delay time.Duration, dedupID string) error {
	if q.err != nil {
		return q.err
	}
	body, _ := payload.(map[string]any)
	q.jobs = append(q.jobs, queuedJob{path: path, payload: body, delay: delay, dedupID: dedupID})
	return nil
}

var _ JobQueue = (*recordingJobQueue)(nil)

func newSchedulerEnv(t *testing.T, provider *stubFeedProvider, now time.Time) (*serviceEnv, *SchedulerService, *recordingJobQueue) {
	t.Helper()

	env, feedSync := newFeedEnv(t, provider)
	queue := &recordingJobQueue{}
	sched := NewSchedulerService(
		env.blockRepo,
		env.fixtureRepo,
		feedSync,
		queue,
		memory.NewDispatchRepository(),
		SchedulerConfig{},
		logging.NewNop(),
	)
	sched.now = func() time.Time { return now }
	return env, sched, queue
}

func TestSchedulerService_Bootstrap(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	_, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)

	result, err := sched.Bootstrap(t.Context())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if result.Mode != "bootstrap" || result.QueuedCount != 1 {
		t.Fatalf("unexpected bootstrap result: %+v", result)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected one queued job, got %d", len(queue.jobs))
	}

	job := queue.jobs[0]
	if job.path != jobPathSyncFeed || job.delay != 0 {
		t.Fatalf("unexpected bootstrap job: %+v", job)
	}
	if job.dedupID != "sync-feed-feed-20260316T060000Z" {
		t.Fatalf("unexpected dedup id: %q", job.dedupID)
	}
}

func TestSchedulerService_RunFeedSync_QueuesDueScoreSyncs(t *testing.T) {
	t.Parallel()

	// Blocks 1 and 2 are locked and unscored at this instant, block 3 is
	// still open, and every fixture in the locked blocks finished long ago.
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	_, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)

	result, err := sched.RunFeedSync(t.Context(), SchedulerInput{})
	if err != nil {
		t.Fatalf("run feed sync: %v", err)
	}
	if result.Mode != "sync-feed" {
		t.Fatalf("unexpected mode: %q", result.Mode)
	}
	if result.Sync.BlocksCreated != 3 || result.BlocksChecked != 3 {
		t.Fatalf("unexpected block accounting: %+v", result)
	}
	wantOps := []string{"sync-feed", "sync-scores:1", "sync-scores:2"}
	if !slices.Equal(result.QueuedOperations, wantOps) {
		t.Fatalf("unexpected queued operations: got=%v want=%v", result.QueuedOperations, wantOps)
	}
	if result.QueuedCount != 3 || len(queue.jobs) != 3 {
		t.Fatalf("unexpected queue volume: count=%d jobs=%d", result.QueuedCount, len(queue.jobs))
	}

	next := queue.jobs[0]
	if next.path != jobPathSyncFeed || next.delay != 6*time.Hour {
		t.Fatalf("unexpected follow-up sync job: %+v", next)
	}
	if next.dedupID != "sync-feed-feed-20260316T120000Z" {
		t.Fatalf("unexpected follow-up dedup id: %q", next.dedupID)
	}

	for idx, wantBlock := range []int{1, 2} {
		job := queue.jobs[idx+1]
		if job.path != jobPathSyncScores {
			t.Fatalf("unexpected score job path: %q", job.path)
		}
		if job.payload["block_number"] != wantBlock {
			t.Fatalf("unexpected score job payload: %+v", job.payload)
		}
		// Kickoffs are long past, so the pull retries on the short interval.
		if job.delay != 30*time.Minute {
			t.Fatalf("block %d: unexpected delay: %v", wantBlock, job.delay)
		}
	}
	if queue.jobs[1].dedupID != "sync-scores-block-1-20260316T103000Z" {
		t.Fatalf("unexpected score dedup id: %q", queue.jobs[1].dedupID)
	}
}

func TestSchedulerService_RunFeedSync_WaitsForFinalKickoff(t *testing.T) {
	t.Parallel()

	// One hour after block 1 locks its second fixture has not kicked off
	// yet, so the score pull waits for that kickoff plus the settle delay.
	now := seedLockBlock1.Add(time.Hour)
	_, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)

	result, err := sched.RunFeedSync(t.Context(), SchedulerInput{})
	if err != nil {
		t.Fatalf("run feed sync: %v", err)
	}
	wantOps := []string{"sync-feed", "sync-scores:1"}
	if !slices.Equal(result.QueuedOperations, wantOps) {
		t.Fatalf("unexpected queued operations: got=%v want=%v", result.QueuedOperations, wantOps)
	}

	// Final kickoff is 24h after lock, settle delay is 2h, now is lock+1h.
	if got, want := queue.jobs[1].delay, 25*time.Hour; got != want {
		t.Fatalf("unexpected score delay: got=%v want=%v", got, want)
	}
}

func TestSchedulerService_RunFeedSync_SkipsScoredBlocks(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	env, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)

	if _, err := sched.RunFeedSync(t.Context(), SchedulerInput{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := env.blockRepo.MarkScored(t.Context(), 1, seedLockBlock1.Add(48*time.Hour)); err != nil {
		t.Fatalf("mark block 1 scored: %v", err)
	}
	queue.jobs = nil

	result, err := sched.RunFeedSync(t.Context(), SchedulerInput{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	wantOps := []string{"sync-feed", "sync-scores:2"}
	if !slices.Equal(result.QueuedOperations, wantOps) {
		t.Fatalf("scored block must drop out of scheduling: got=%v want=%v", result.QueuedOperations, wantOps)
	}
}

func TestSchedulerService_RunFeedSync_ForceZeroesDelays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	_, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)

	if _, err := sched.RunFeedSync(t.Context(), SchedulerInput{Force: true}); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if queue.jobs[1].delay != 0 || queue.jobs[2].delay != 0 {
		t.Fatalf("forced score syncs must be immediate: %v %v", queue.jobs[1].delay, queue.jobs[2].delay)
	}
}

func TestSchedulerService_RunScoreSync(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	provider := seedFeedProvider()
	_, sched, _ := newSchedulerEnv(t, provider, now)

	if _, err := sched.RunFeedSync(t.Context(), SchedulerInput{}); err != nil {
		t.Fatalf("run feed sync: %v", err)
	}

	provider.points[1] = []FeedPointsRow{{PlayerID: "idn-psj-01", Points: 9}}

	finalized, err := sched.RunScoreSync(t.Context(), 1)
	if err != nil {
		t.Fatalf("run score sync: %v", err)
	}
	if !finalized {
		t.Fatalf("expected the first delivery to finalize the block")
	}

	finalized, err = sched.RunScoreSync(t.Context(), 1)
	if err != nil {
		t.Fatalf("redelivered score sync: %v", err)
	}
	if finalized {
		t.Fatalf("redelivery must be a clean skip")
	}
}

func TestSchedulerService_Dispatches(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	_, sched, _ := newSchedulerEnv(t, seedFeedProvider(), now)

	if _, err := sched.RunFeedSync(t.Context(), SchedulerInput{}); err != nil {
		t.Fatalf("run feed sync: %v", err)
	}

	events, err := sched.Dispatches(t.Context(), 10)
	if err != nil {
		t.Fatalf("dispatches: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(events))
	}
	for _, event := range events {
		if event.Status != dispatch.StatusSent {
			t.Fatalf("unexpected status for %s: %s", event.DispatchID, event.Status)
		}
		if !event.OccurredAt.Equal(now) {
			t.Fatalf("unexpected occurred_at: %v", event.OccurredAt)
		}
	}

	events, err = sched.Dispatches(t.Context(), 2)
	if err != nil {
		t.Fatalf("limited dispatches: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("limit not applied: got %d entries", len(events))
	}
}

func TestSchedulerService_EnqueueFailureJournaled(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	_, sched, queue := newSchedulerEnv(t, seedFeedProvider(), now)
	queue.err = errors.New("queue rejected the message")

	if _, err := sched.Bootstrap(t.Context()); err == nil {
		t.Fatalf("expected enqueue failure to propagate")
	}

	events, err := sched.Dispatches(t.Context(), 10)
	if err != nil {
		t.Fatalf("dispatches: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one failed journal entry, got %d", len(events))
	}
	if events[0].Status != dispatch.StatusFailed {
		t.Fatalf("unexpected status: %s", events[0].Status)
	}
	if events[0].ErrorMessage != "queue rejected the message" {
		t.Fatalf("unexpected error message: %q", events[0].ErrorMessage)
	}
}

func TestDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 2, 25, 4, 25, 42, 0, time.UTC)

	got := dedupKey("sync-scores", "idn:liga-1/block 7", at, 5*time.Minute)
	want := "sync-scores-idn-liga-1-block-7-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}

	// A zero bucket falls back to minute slots.
	got = dedupKey("sync-feed", "feed", at, 0)
	want = "sync-feed-feed-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected fallback key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment("   "); got != "unknown" {
		t.Fatalf("unexpected fallback segment: %q", got)
	}
}
