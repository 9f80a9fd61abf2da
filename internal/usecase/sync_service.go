package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/platform/id"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
)

type SyncConfig struct {
	// DayLocation decides where "today" starts for scheduled matches.
	DayLocation      *time.Location
	FinishedLookback time.Duration
	DriftTolerance   time.Duration
	// FeedWindowMargin widens the feed date range on both sides so a match the
	// provider moved to another day is still returned and can drift.
	FeedWindowMargin time.Duration
}

const DefaultFeedWindowMargin = 3 * 24 * time.Hour

type SyncDependencies struct {
	MatchRepo        match.Repository
	ChampionshipRepo championship.Repository
	RunRepo          syncrun.Repository
	Feed             FeedClient
	Writer           *MatchWriter
	Scoring          *ScoringService
	Settings         *SettingsService
	Lock             CycleLock
	Events           MatchEventPublisher
	IDs              id.Generator
}

type SyncInput struct {
	Trigger        syncrun.Trigger
	ChampionshipID string
	Log            io.Writer
	// SkipIdle skips the feed call unless a match is live or past kickoff.
	SkipIdle bool
}

type SyncResult struct {
	RunID             string
	Status            syncrun.Status
	SkipReason        string
	ActiveMatches     int
	FeedMatches       int
	Diffs             int
	Updates           int
	Batches           int
	PredictionsScored int
	FinishedMatches   []string
	Diagnostics       []Diagnostic
}

// SyncService runs one reconciliation cycle: load the active window, fetch
// the feed, reconcile, persist in batches, score finished transitions.
// Every trigger goes through Run.
type SyncService struct {
	deps   SyncDependencies
	cfg    SyncConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewSyncService(deps SyncDependencies, cfg SyncConfig, logger *logging.Logger) *SyncService {
	if deps.Lock == nil {
		deps.Lock = NewLocalCycleLock()
	}
	if deps.Events == nil {
		deps.Events = NewNoopMatchEventPublisher()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewUUIDGenerator()
	}
	if cfg.DayLocation == nil {
		cfg.DayLocation = time.UTC
	}
	if cfg.DriftTolerance <= 0 {
		cfg.DriftTolerance = DefaultDriftTolerance
	}
	if cfg.FeedWindowMargin <= 0 {
		cfg.FeedWindowMargin = DefaultFeedWindowMargin
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncService{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("sync"),
		now:    time.Now,
	}
}

func (s *SyncService) Run(ctx context.Context, input SyncInput) (SyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Run")
	defer span.End()

	if input.Trigger == "" {
		input.Trigger = syncrun.TriggerManual
	}
	input.ChampionshipID = strings.TrimSpace(input.ChampionshipID)

	release, acquired, err := s.deps.Lock.TryAcquire(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: acquire cycle lock: %v", ErrDependencyUnavailable, err)
	}
	if !acquired {
		metrics.RecordDroppedTick()
		s.logger.InfoContext(ctx, "sync cycle already running, dropped", "trigger", input.Trigger)
		return SyncResult{Status: syncrun.StatusSkipped, SkipReason: "cycle in progress"}, ErrSyncInProgress
	}
	defer release()

	startedAt := s.now().UTC()
	runID, err := s.deps.IDs.NewID()
	if err != nil {
		return SyncResult{}, fmt.Errorf("generate run id: %w", err)
	}

	log := newCycleLog(input.Log, s.now)
	defer log.Release()
	log.Logf("cycle %s started trigger=%s championship=%s", runID, input.Trigger, emptyAs(input.ChampionshipID, "all"))

	result, runErr := s.runCycle(ctx, input, log, startedAt)
	result.RunID = runID

	if result.Status == syncrun.StatusSkipped {
		log.Logf("cycle skipped: %s", result.SkipReason)
		s.logger.DebugContext(ctx, "sync cycle skipped", "trigger", input.Trigger, "reason", result.SkipReason)
		metrics.RecordSyncCycle(string(input.Trigger), string(result.Status), s.now().Sub(startedAt), s.now())
		return result, nil
	}

	result.Status = syncrun.StatusSucceeded
	if runErr != nil {
		result.Status = syncrun.StatusFailed
		log.Logf("cycle failed: %v", runErr)
	}
	finishedAt := s.now().UTC()
	log.Logf("cycle finished status=%s updates=%d scored=%d in %s", result.Status, result.Updates, result.PredictionsScored, finishedAt.Sub(startedAt))

	s.saveRun(ctx, input, result, runErr, log.String(), startedAt, finishedAt)
	metrics.RecordSyncCycle(string(input.Trigger), string(result.Status), finishedAt.Sub(startedAt), finishedAt)

	logArgs := []any{
		"run_id", runID,
		"trigger", input.Trigger,
		"active", result.ActiveMatches,
		"feed", result.FeedMatches,
		"updates", result.Updates,
		"batches", result.Batches,
		"scored", result.PredictionsScored,
		"diagnostics", len(result.Diagnostics),
	}
	if runErr != nil {
		s.logger.ErrorContext(ctx, "sync cycle failed", append(logArgs, "error", runErr)...)
		return result, runErr
	}
	s.logger.InfoContext(ctx, "sync cycle finished", logArgs...)
	return result, nil
}

func (s *SyncService) runCycle(ctx context.Context, input SyncInput, log *cycleLog, now time.Time) (SyncResult, error) {
	var result SyncResult

	current := s.deps.Settings.Get(ctx)
	log.Logf("settings interval=%dm score_priority=%s", current.APIUpdateInterval, current.ScorePriority)

	active, championships, err := s.loadActive(ctx, input.ChampionshipID, now)
	if err != nil {
		return result, err
	}
	result.ActiveMatches = len(active)
	log.Logf("active window holds %d matches across %d championships", len(active), len(championships))

	if input.SkipIdle && !HasWork(active, now) {
		result.Status = syncrun.StatusSkipped
		result.SkipReason = "no live match and no match past kickoff"
		return result, nil
	}
	if len(active) == 0 {
		return result, nil
	}

	filter := s.buildFilter(active, championships, current.ScorePriority, now)
	if len(filter.CompetitionCodes) == 0 {
		log.Logf("fetching feed globally %s..%s", filter.DateFrom.Format(time.DateOnly), filter.DateTo.Format(time.DateOnly))
	} else {
		log.Logf("fetching feed for %s", strings.Join(filter.CompetitionCodes, ","))
	}
	feedMatches, err := s.deps.Feed.FetchMatches(ctx, filter)
	if err != nil {
		// an unreachable feed is an empty feed: nothing changes, diagnostics still flow
		s.logger.WarnContext(ctx, "feed fetch failed, reconciling against empty feed", "error", err)
		log.Logf("feed unavailable: %v", err)
		feedMatches = nil
	}
	result.FeedMatches = len(feedMatches)
	log.Logf("feed returned %d matches", len(feedMatches))

	outcome := Reconcile(active, feedMatches, ReconcileOptions{DriftTolerance: s.cfg.DriftTolerance})
	result.Diffs = len(outcome.Diffs)
	result.Diagnostics = outcome.Diagnostics
	for _, diag := range outcome.Diagnostics {
		metrics.RecordDiagnostic(string(diag.Kind))
		log.Logf("%s", diag.String())
	}
	if outcome.Linked > 0 {
		log.Logf("linked %d matches by team names", outcome.Linked)
	}
	log.Logf("reconciled %d diffs", len(outcome.Diffs))

	applied, applyErr := s.deps.Writer.Apply(ctx, outcome.Diffs)
	result.Updates = applied.Applied
	result.Batches = applied.Batches
	metrics.RecordMatchUpdates(applied.Applied)
	log.Logf("applied %d diffs in %d batches", applied.Applied, applied.Batches)

	// only committed transitions are scored
	finished := finishedResults(active, applied.Written)
	scored, scoreErr := s.deps.Scoring.ScoreMatches(ctx, finished)
	result.PredictionsScored = scored.Scored
	for _, item := range finished {
		result.FinishedMatches = append(result.FinishedMatches, item.MatchID)
		log.Logf("match %s finished %d-%d, scored %d predictions", item.MatchID, item.HomeScore, item.AwayScore, scored.ByMatch[item.MatchID])
	}
	s.publishFinished(ctx, finished, scored, now)

	if applyErr != nil || scoreErr != nil {
		return result, errors.Join(applyErr, scoreErr)
	}
	return result, nil
}

func (s *SyncService) loadActive(ctx context.Context, championshipID string, now time.Time) ([]match.Match, map[string]championship.Championship, error) {
	local := now.In(s.cfg.DayLocation)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.DayLocation)
	query := match.ActiveQuery{
		DayStart: dayStart.UTC(),
		DayEnd:   dayStart.AddDate(0, 0, 1).UTC(),
	}
	if s.cfg.FinishedLookback > 0 {
		query.FinishedSince = now.Add(-s.cfg.FinishedLookback)
	}

	if championshipID != "" {
		item, exists, err := s.deps.ChampionshipRepo.GetByID(ctx, championshipID)
		if err != nil {
			return nil, nil, fmt.Errorf("get championship=%s: %w", championshipID, err)
		}
		if !exists {
			return nil, nil, fmt.Errorf("%w: championship=%s", ErrNotFound, championshipID)
		}
		query.ChampionshipIDs = []string{championshipID}
		active, err := s.deps.MatchRepo.ListActive(ctx, query)
		if err != nil {
			return nil, nil, fmt.Errorf("list active matches: %w", err)
		}
		return active, map[string]championship.Championship{item.ID: item}, nil
	}

	candidates, err := s.deps.MatchRepo.ListActive(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("list active matches: %w", err)
	}
	ids := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	for _, item := range candidates {
		if _, ok := seen[item.ChampionshipID]; ok {
			continue
		}
		seen[item.ChampionshipID] = struct{}{}
		ids = append(ids, item.ChampionshipID)
	}
	items, err := s.deps.ChampionshipRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list championships: %w", err)
	}
	byID := make(map[string]championship.Championship, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	active := make([]match.Match, 0, len(candidates))
	for _, item := range candidates {
		owner, ok := byID[item.ChampionshipID]
		if ok && !owner.AllowsAutomaticSync() {
			continue
		}
		active = append(active, item)
	}
	for key, owner := range byID {
		if !owner.AllowsAutomaticSync() {
			delete(byID, key)
		}
	}
	return active, byID, nil
}

// buildFilter queries per competition code unless some active match belongs
// to a championship without one, which forces a single global query. The
// date range spans the active matches and now, padded by FeedWindowMargin.
func (s *SyncService) buildFilter(active []match.Match, championships map[string]championship.Championship, priority settings.ScorePriority, now time.Time) feed.Filter {
	local := now.In(s.cfg.DayLocation)
	from, to := local, local
	global := false
	codes := make([]string, 0, len(championships))
	seen := make(map[string]struct{}, len(championships))
	for _, item := range active {
		if at := item.ScheduledAt.In(s.cfg.DayLocation); !item.ScheduledAt.IsZero() {
			if at.Before(from) {
				from = at
			}
			if at.After(to) {
				to = at
			}
		}
		owner, ok := championships[item.ChampionshipID]
		code := strings.TrimSpace(owner.APICode)
		if !ok || code == "" {
			global = true
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	if global {
		codes = nil
	}
	sort.Strings(codes)

	return feed.Filter{
		CompetitionCodes: codes,
		DateFrom:         from.Add(-s.cfg.FeedWindowMargin),
		DateTo:           to.Add(s.cfg.FeedWindowMargin),
		ScorePriority:    priority,
	}
}

func (s *SyncService) publishFinished(ctx context.Context, finished []MatchResult, scored ScoreBatchResult, now time.Time) {
	if len(finished) == 0 {
		return
	}
	failed := make(map[string]struct{}, len(scored.Failed))
	for _, matchID := range scored.Failed {
		failed[matchID] = struct{}{}
	}
	events := make([]MatchFinishedEvent, 0, len(finished))
	for _, item := range finished {
		if _, ok := failed[item.MatchID]; ok {
			continue
		}
		events = append(events, MatchFinishedEvent{
			MatchID:           item.MatchID,
			ChampionshipID:    item.ChampionshipID,
			HomeScore:         item.HomeScore,
			AwayScore:         item.AwayScore,
			PredictionsScored: scored.ByMatch[item.MatchID],
			FinishedAt:        now,
		})
	}
	if len(events) == 0 {
		return
	}
	if err := s.deps.Events.PublishMatchFinished(ctx, events); err != nil {
		s.logger.WarnContext(ctx, "publish match finished events failed", "events", len(events), "error", err)
	}
}

func (s *SyncService) saveRun(ctx context.Context, input SyncInput, result SyncResult, runErr error, log string, startedAt, finishedAt time.Time) {
	if s.deps.RunRepo == nil {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	run := syncrun.Run{
		ID:                result.RunID,
		Trigger:           input.Trigger,
		ChampionshipID:    input.ChampionshipID,
		Status:            result.Status,
		ActiveMatches:     result.ActiveMatches,
		FeedMatches:       result.FeedMatches,
		Diffs:             result.Diffs,
		Updates:           result.Updates,
		Batches:           result.Batches,
		PredictionsScored: result.PredictionsScored,
		Diagnostics:       make([]string, 0, len(result.Diagnostics)),
		Log:               log,
		StartedAt:         startedAt,
		FinishedAt:        finishedAt,
		TraceID:           traceID,
		SpanID:            spanID,
	}
	for _, diag := range result.Diagnostics {
		run.Diagnostics = append(run.Diagnostics, diag.String())
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if err := s.deps.RunRepo.Save(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "save sync run failed", "run_id", run.ID, "error", err)
	}
}

func (s *SyncService) LatestRun(ctx context.Context) (syncrun.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.LatestRun")
	defer span.End()

	if s.deps.RunRepo == nil {
		return syncrun.Run{}, fmt.Errorf("%w: no sync run recorded", ErrNotFound)
	}
	run, exists, err := s.deps.RunRepo.Latest(ctx)
	if err != nil {
		return syncrun.Run{}, fmt.Errorf("get latest sync run: %w", err)
	}
	if !exists {
		return syncrun.Run{}, fmt.Errorf("%w: no sync run recorded", ErrNotFound)
	}
	return run, nil
}

// HasWork reports whether a cycle could change anything: some match is live
// or a scheduled match is already past its kickoff.
func HasWork(active []match.Match, now time.Time) bool {
	for _, item := range active {
		if item.IsManualOverride {
			continue
		}
		if item.Status == match.StatusLive {
			return true
		}
		if item.Status == match.StatusScheduled && item.HasKickedOff(now) {
			return true
		}
	}
	return false
}

func finishedResults(active []match.Match, applied []match.Diff) []MatchResult {
	byID := make(map[string]match.Match, len(active))
	for _, item := range active {
		byID[item.ID] = item
	}
	out := make([]MatchResult, 0)
	for _, diff := range applied {
		if !diff.EntersFinished {
			continue
		}
		home, away, ok := FinalScore(byID[diff.MatchID], diff)
		if !ok {
			continue
		}
		out = append(out, MatchResult{
			MatchID:        diff.MatchID,
			ChampionshipID: diff.ChampionshipID,
			HomeScore:      home,
			AwayScore:      away,
		})
	}
	return out
}

func emptyAs(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
