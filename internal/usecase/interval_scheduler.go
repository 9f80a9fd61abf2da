package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
	"github.com/riskibarqy/prediction-pool/internal/platform/resilience"
)

const DefaultSchedulerTick = 100 * time.Millisecond

type SyncRunner interface {
	Run(ctx context.Context, input SyncInput) (SyncResult, error)
}

type SchedulerStatus struct {
	Running        bool          `json:"running"`
	Interval       time.Duration `json:"-"`
	IntervalText   string        `json:"interval"`
	LastBucket     int64         `json:"lastBucket"`
	LastStartedAt  *time.Time    `json:"lastStartedAt,omitempty"`
	LastFinishedAt *time.Time    `json:"lastFinishedAt,omitempty"`
	LastStatus     string        `json:"lastStatus,omitempty"`
	LastError      string        `json:"lastError,omitempty"`
	LastUpdates    int           `json:"lastUpdates"`
	DroppedTicks   int64         `json:"droppedTicks"`
	NextRunAt      *time.Time    `json:"nextRunAt,omitempty"`
	// Progress is the elapsed fraction of the current bucket, in [0, 1).
	Progress float64 `json:"progress"`
}

// IntervalScheduler fires a sync cycle the first time it observes a new
// interval bucket. A tick that lands while a cycle is still running is
// dropped, never queued.
type IntervalScheduler struct {
	runner   SyncRunner
	settings *SettingsService
	tick     time.Duration
	logger   *logging.Logger
	now      func() time.Time

	gate     resilience.Gate
	inflight sync.WaitGroup

	mu         sync.Mutex
	lastBucket int64
	status     SchedulerStatus
}

func NewIntervalScheduler(runner SyncRunner, settingsSvc *SettingsService, tick time.Duration, logger *logging.Logger) *IntervalScheduler {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IntervalScheduler{
		runner:     runner,
		settings:   settingsSvc,
		tick:       tick,
		logger:     logger.Named("scheduler"),
		now:        time.Now,
		lastBucket: -1,
	}
}

func (s *IntervalScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "interval scheduler started", "tick", s.tick.String())
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info("interval scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts a cycle when the current bucket has not fired yet. It reports
// whether a cycle was started.
func (s *IntervalScheduler) Tick(ctx context.Context) bool {
	interval := s.settings.Get(ctx).Interval()
	bucket := s.now().UnixMilli() / interval.Milliseconds()

	s.mu.Lock()
	s.status.Interval = interval
	s.status.IntervalText = interval.String()
	if bucket == s.lastBucket {
		s.mu.Unlock()
		return false
	}
	s.lastBucket = bucket
	s.status.LastBucket = bucket
	s.mu.Unlock()

	if !s.gate.TryEnter() {
		s.mu.Lock()
		s.status.DroppedTicks++
		s.mu.Unlock()
		metrics.RecordDroppedTick()
		s.logger.WarnContext(ctx, "previous sync still running, tick dropped", "bucket", bucket)
		return false
	}

	startedAt := s.now().UTC()
	s.mu.Lock()
	s.status.Running = true
	s.status.LastStartedAt = &startedAt
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.gate.Leave()
		s.runCycle(context.WithoutCancel(ctx))
	}()
	return true
}

func (s *IntervalScheduler) runCycle(ctx context.Context) {
	result, err := s.runner.Run(ctx, SyncInput{Trigger: syncrun.TriggerInterval, SkipIdle: true})
	finishedAt := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.LastFinishedAt = &finishedAt
	s.status.LastStatus = string(result.Status)
	s.status.LastUpdates = result.Updates
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
		if errors.Is(err, ErrSyncInProgress) {
			return
		}
		s.logger.WarnContext(ctx, "interval sync failed", "error", err)
	}
}

// Wait blocks until the cycle started by the last tick returns.
func (s *IntervalScheduler) Wait() {
	s.inflight.Wait()
}

func (s *IntervalScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	out := s.status
	s.mu.Unlock()
	out.Running = s.gate.Held()

	intervalMs := out.Interval.Milliseconds()
	if intervalMs <= 0 {
		return out
	}
	nowMs := s.now().UnixMilli()
	next := time.UnixMilli((nowMs/intervalMs + 1) * intervalMs).UTC()
	out.NextRunAt = &next
	out.Progress = float64(nowMs%intervalMs) / float64(intervalMs)
	return out
}
