package cronjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type PendingScorer interface {
	ScorePending(ctx context.Context, since time.Time) (usecase.ScoreBatchResult, error)
}

type Config struct {
	SyncSpec           string
	PendingScoringSpec string
	PendingLookback    time.Duration
	Location           *time.Location
	JobTimeout         time.Duration
}

// Runner drives the cron-expressed jobs: a full sync sweep and a pending
// scoring pass. Each job is skipped while its previous run is still going.
type Runner struct {
	cron    *cron.Cron
	sync    usecase.SyncRunner
	scorer  PendingScorer
	cfg     Config
	logger  *logging.Logger
	now     func() time.Time
	entries int
}

func NewRunner(syncRunner usecase.SyncRunner, scorer PendingScorer, cfg Config, logger *logging.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	logger = logger.Named("cron")
	adapter := cronLogger{logger: logger}

	r := &Runner{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		sync:   syncRunner,
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}

	if cfg.SyncSpec != "" && syncRunner != nil {
		if _, err := r.cron.AddFunc(cfg.SyncSpec, r.runSync); err != nil {
			return nil, fmt.Errorf("schedule sync job %q: %w", cfg.SyncSpec, err)
		}
		r.entries++
	}
	if cfg.PendingScoringSpec != "" && scorer != nil {
		if _, err := r.cron.AddFunc(cfg.PendingScoringSpec, r.runPendingScoring); err != nil {
			return nil, fmt.Errorf("schedule pending scoring job %q: %w", cfg.PendingScoringSpec, err)
		}
		r.entries++
	}
	return r, nil
}

func (r *Runner) Entries() int {
	return r.entries
}

// Run blocks until ctx is done, then waits for running jobs to return.
func (r *Runner) Run(ctx context.Context) {
	if r.entries == 0 {
		return
	}
	r.cron.Start()
	r.logger.InfoContext(ctx, "cron runner started",
		"sync_spec", r.cfg.SyncSpec,
		"pending_scoring_spec", r.cfg.PendingScoringSpec,
	)
	<-ctx.Done()
	<-r.cron.Stop().Done()
	r.logger.Info("cron runner stopped")
}

func (r *Runner) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JobTimeout)
	defer cancel()

	result, err := r.sync.Run(ctx, usecase.SyncInput{Trigger: syncrun.TriggerCron})
	switch {
	case errors.Is(err, usecase.ErrSyncInProgress):
		r.logger.DebugContext(ctx, "cron sync skipped, cycle already running")
	case err != nil:
		r.logger.WarnContext(ctx, "cron sync failed", "run_id", result.RunID, "error", err)
	default:
		r.logger.InfoContext(ctx, "cron sync finished",
			"run_id", result.RunID,
			"status", result.Status,
			"updates", result.Updates,
		)
	}
}

func (r *Runner) runPendingScoring() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.JobTimeout)
	defer cancel()

	since := r.now().Add(-r.cfg.PendingLookback)
	result, err := r.scorer.ScorePending(ctx, since)
	if err != nil {
		r.logger.WarnContext(ctx, "pending scoring failed", "since", since, "error", err)
		return
	}
	if result.Matches == 0 {
		return
	}
	r.logger.InfoContext(ctx, "pending scoring finished",
		"matches", result.Matches,
		"scored", result.Scored,
		"failed", len(result.Failed),
	)
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
