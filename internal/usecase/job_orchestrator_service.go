package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

const SyncJobPath = "/sync"

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

type JobChainInput struct {
	ChampionshipID string
}

type JobChainResult struct {
	Mode            string    `json:"mode"`
	QueuedCount     int       `json:"queuedCount"`
	DeduplicationID string    `json:"deduplicationId,omitempty"`
	NextRunAt       time.Time `json:"nextRunAt"`
}

type syncJobPayload struct {
	ChampionshipID string `json:"championshipId,omitempty"`
}

// JobOrchestratorService keeps a self-chaining sync schedule on a delayed
// queue: every queued cycle enqueues the next one at the following interval
// bucket boundary.
type JobOrchestratorService struct {
	settings *SettingsService
	queue    JobQueue
	logger   *logging.Logger
	now      func() time.Time
}

func NewJobOrchestratorService(settingsSvc *SettingsService, queue JobQueue, logger *logging.Logger) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobOrchestratorService{
		settings: settingsSvc,
		queue:    queue,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *JobOrchestratorService) Bootstrap(ctx context.Context, input JobChainInput) (JobChainResult, error) {
	return s.enqueueNext(ctx, "bootstrap", input)
}

func (s *JobOrchestratorService) ScheduleNext(ctx context.Context, input JobChainInput) (JobChainResult, error) {
	return s.enqueueNext(ctx, "chain", input)
}

func (s *JobOrchestratorService) enqueueNext(ctx context.Context, mode string, input JobChainInput) (JobChainResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService."+mode)
	defer span.End()

	interval := s.settings.Get(ctx).Interval()
	now := s.now().UTC()
	runAt := nextBucketBoundary(now, interval)
	delay := runAt.Sub(now)

	championshipID := strings.TrimSpace(input.ChampionshipID)
	dedupID := dedupKey("sync", championshipID, runAt, interval)
	payload := syncJobPayload{ChampionshipID: championshipID}
	if err := s.queue.Enqueue(ctx, SyncJobPath, payload, delay, dedupID); err != nil {
		s.logger.WarnContext(ctx, "enqueue next sync failed",
			"mode", mode,
			"deduplication_id", dedupID,
			"error", err,
		)
		return JobChainResult{}, fmt.Errorf("%w: enqueue sync: %v", ErrDependencyUnavailable, err)
	}

	s.logger.InfoContext(ctx, "next sync queued",
		"mode", mode,
		"deduplication_id", dedupID,
		"delay", delay.String(),
	)
	return JobChainResult{
		Mode:            mode,
		QueuedCount:     1,
		DeduplicationID: dedupID,
		NextRunAt:       runAt,
	}, nil
}

// nextBucketBoundary returns the start of the interval bucket after now.
func nextBucketBoundary(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		interval = time.Minute
	}
	return now.Truncate(interval).Add(interval)
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return sanitizeDedupSegment(prefix) + "-" + sanitizeDedupSegment(scope) + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = slug.Make(strings.TrimSpace(value))
	if value == "" {
		return "all"
	}
	return value
}
