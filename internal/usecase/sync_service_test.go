package usecase

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/domain/user"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/memory"
)

var syncNow = time.Date(2026, 2, 25, 14, 0, 0, 0, time.UTC)

type stubFeedClient struct {
	mu      sync.Mutex
	matches []feed.Match
	err     error
	filters []feed.Filter
}

func (c *stubFeedClient) FetchMatches(_ context.Context, filter feed.Filter) ([]feed.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, filter)
	if c.err != nil {
		return nil, c.err
	}
	return append([]feed.Match(nil), c.matches...), nil
}

type recordingEventPublisher struct {
	events []MatchFinishedEvent
}

func (p *recordingEventPublisher) PublishMatchFinished(_ context.Context, events []MatchFinishedEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "run-" + strconv.Itoa(g.n), nil
}

type syncFixture struct {
	service  *SyncService
	feed     *stubFeedClient
	matches  *memory.MatchRepository
	users    *memory.UserRepository
	runs     *memory.SyncRunRepository
	events   *recordingEventPublisher
	lock     CycleLock
	settings *SettingsService
}

func newSyncFixture(t *testing.T, championships []championship.Championship, matches []match.Match, predictions []prediction.Prediction) syncFixture {
	t.Helper()

	matchRepo := memory.NewMatchRepository(matches)
	users := memory.NewUserRepository([]user.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}})
	predictionRepo := memory.NewPredictionRepository(predictions, users)
	runs := memory.NewSyncRunRepository()
	settingsSvc := NewSettingsService(memory.NewSettingsRepository(), nil)
	feedClient := &stubFeedClient{}
	events := &recordingEventPublisher{}
	lock := NewLocalCycleLock()

	svc := NewSyncService(SyncDependencies{
		MatchRepo:        matchRepo,
		ChampionshipRepo: memory.NewChampionshipRepository(championships),
		RunRepo:          runs,
		Feed:             feedClient,
		Writer:           NewMatchWriter(matchRepo, nil),
		Scoring:          NewScoringService(matchRepo, predictionRepo, 2, nil),
		Settings:         settingsSvc,
		Lock:             lock,
		Events:           events,
		IDs:              &sequenceIDs{},
	}, SyncConfig{}, nil)
	svc.now = func() time.Time { return syncNow }

	return syncFixture{
		service:  svc,
		feed:     feedClient,
		matches:  matchRepo,
		users:    users,
		runs:     runs,
		events:   events,
		lock:     lock,
		settings: settingsSvc,
	}
}

func premierLeague() championship.Championship {
	return championship.Championship{ID: "pl", Name: "Premier League", APICode: "PL", SyncMode: championship.SyncModeAuto, Status: championship.StatusActive}
}

func TestSyncService_Run_FinishesAndScoresOnce(t *testing.T) {
	t.Parallel()

	live := match.Match{
		ID: "m1", ChampionshipID: "pl", ExternalID: "100",
		HomeTeam: match.Team{Name: "Arsenal FC"}, AwayTeam: match.Team{Name: "Liverpool FC"},
		ScheduledAt: syncNow.Add(-2 * time.Hour), Status: match.StatusLive,
		HomeScore: intRef(1), AwayScore: intRef(0),
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{live}, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "pl", PredictedHome: 2, PredictedAway: 1},
		{UserID: "u2", MatchID: "m1", ChampionshipID: "pl", PredictedHome: 1, PredictedAway: 0},
		{UserID: "u3", MatchID: "m1", ChampionshipID: "pl", PredictedHome: 1, PredictedAway: 1},
	})
	fixture.feed.matches = []feed.Match{{
		ExternalID: "100", HomeTeamName: "Arsenal FC", AwayTeamName: "Liverpool FC",
		Status: match.StatusFinished, ResolvedHome: intRef(2), ResolvedAway: intRef(1),
		KickoffAt: live.ScheduledAt,
	}}

	var stream bytes.Buffer
	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal, Log: &stream})
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if got.Status != syncrun.StatusSucceeded || got.Updates != 1 || got.PredictionsScored != 3 {
		t.Fatalf("unexpected first run: %+v", got)
	}
	if len(fixture.feed.filters) != 1 || strings.Join(fixture.feed.filters[0].CompetitionCodes, ",") != "PL" {
		t.Fatalf("unexpected feed filter: %+v", fixture.feed.filters)
	}
	if !strings.Contains(stream.String(), "match m1 finished 2-1, scored 3 predictions") {
		t.Fatalf("log stream missing finish line:\n%s", stream.String())
	}
	if len(fixture.events.events) != 1 || fixture.events.events[0].PredictionsScored != 3 {
		t.Fatalf("unexpected events: %+v", fixture.events.events)
	}

	stored, _, _ := fixture.matches.GetByID(context.Background(), "m1")
	if stored.Status != match.StatusFinished || *stored.HomeScore != 2 {
		t.Fatalf("unexpected stored match: %+v", stored)
	}

	again, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Updates != 0 || again.PredictionsScored != 0 {
		t.Fatalf("second run changed data: %+v", again)
	}

	totals := map[string]int{"u1": 3, "u2": 1, "u3": 0}
	for userID, want := range totals {
		item, _, _ := fixture.users.GetByID(context.Background(), userID)
		if item.TotalPoints != want {
			t.Fatalf("unexpected total for %s: got=%d want=%d", userID, item.TotalPoints, want)
		}
	}

	run, err := fixture.service.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if run.ID != again.RunID || run.Trigger != syncrun.TriggerExternal || run.Log == "" {
		t.Fatalf("unexpected latest run: %+v", run)
	}
}

func TestSyncService_Run_SkipIdleAvoidsFeed(t *testing.T) {
	t.Parallel()

	later := match.Match{
		ID: "m1", ChampionshipID: "pl", ExternalID: "100",
		ScheduledAt: syncNow.Add(3 * time.Hour), Status: match.StatusScheduled,
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{later}, nil)

	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerInterval, SkipIdle: true})
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if got.Status != syncrun.StatusSkipped || len(fixture.feed.filters) != 0 {
		t.Fatalf("idle cycle reached the feed: result=%+v filters=%d", got, len(fixture.feed.filters))
	}
	if _, err := fixture.service.LatestRun(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("skipped cycle must not be recorded, got %v", err)
	}

	kicked := later
	kicked.ID = "m2"
	kicked.ScheduledAt = syncNow.Add(-time.Minute)
	if !HasWork([]match.Match{later, kicked}, syncNow) {
		t.Fatalf("expected work once a scheduled match passed kickoff")
	}
}

func TestSyncService_Run_ManualChampionshipOnlyWhenTargeted(t *testing.T) {
	t.Parallel()

	manual := championship.Championship{ID: "liga", Name: "Liga 1", SyncMode: championship.SyncModeManual, Status: championship.StatusActive}
	item := match.Match{
		ID: "m1", ChampionshipID: "liga",
		HomeTeam: match.Team{Name: "Persija Jakarta"}, AwayTeam: match.Team{Name: "Persib Bandung"},
		ScheduledAt: syncNow.Add(-30 * time.Minute), Status: match.StatusScheduled,
	}
	fixture := newSyncFixture(t, []championship.Championship{manual}, []match.Match{item}, nil)
	fixture.feed.matches = []feed.Match{{
		ExternalID: "900", HomeTeamName: "Persija Jakarta", AwayTeamName: "Persib Bandung",
		Status: match.StatusLive, ResolvedHome: intRef(0), ResolvedAway: intRef(0), KickoffAt: item.ScheduledAt,
	}}

	sweep, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerCron})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sweep.ActiveMatches != 0 || len(fixture.feed.filters) != 0 {
		t.Fatalf("manual championship synced by sweep: %+v", sweep)
	}

	targeted, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerManual, ChampionshipID: "liga"})
	if err != nil {
		t.Fatalf("targeted run: %v", err)
	}
	if targeted.Updates != 1 {
		t.Fatalf("unexpected targeted result: %+v", targeted)
	}
	if codes := fixture.feed.filters[0].CompetitionCodes; len(codes) != 0 {
		t.Fatalf("championship without api code must query globally, got %v", codes)
	}
	stored, _, _ := fixture.matches.GetByID(context.Background(), "m1")
	if stored.ExternalID != "900" || stored.Status != match.StatusLive {
		t.Fatalf("unexpected stored match: %+v", stored)
	}

	if _, err := fixture.service.Run(context.Background(), SyncInput{ChampionshipID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncService_Run_FeedFailureIsSoft(t *testing.T) {
	t.Parallel()

	live := match.Match{ID: "m1", ChampionshipID: "pl", ExternalID: "100", ScheduledAt: syncNow.Add(-time.Hour), Status: match.StatusLive}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{live}, nil)
	fixture.feed.err = errors.New("dial tcp: i/o timeout")

	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal})
	if err != nil {
		t.Fatalf("feed outage must not fail the cycle: %v", err)
	}
	if got.Updates != 0 || len(got.Diagnostics) != 1 || got.Diagnostics[0].Kind != DiagnosticNoData {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSyncService_Run_DropsWhenLocked(t *testing.T) {
	t.Parallel()

	fixture := newSyncFixture(t, nil, nil, nil)
	release, ok, err := fixture.lock.TryAcquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	defer release()

	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal})
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
	if got.Status != syncrun.StatusSkipped {
		t.Fatalf("unexpected status: got=%s", got.Status)
	}
}

// overrideAfterListRepo pins a match under manual override right after the
// active window was read, so the cycle works from a stale snapshot.
type overrideAfterListRepo struct {
	*memory.MatchRepository
	pinID   string
	pinHome int
	pinAway int
}

func (r *overrideAfterListRepo) ListActive(ctx context.Context, query match.ActiveQuery) ([]match.Match, error) {
	active, err := r.MatchRepository.ListActive(ctx, query)
	if err != nil {
		return nil, err
	}
	if _, err := r.MatchRepository.SetManualResult(ctx, r.pinID, r.pinHome, r.pinAway); err != nil {
		return nil, err
	}
	return active, nil
}

func TestSyncService_Run_OverrideSetMidCycleIsNotScored(t *testing.T) {
	t.Parallel()

	live := match.Match{
		ID: "m1", ChampionshipID: "pl", ExternalID: "100",
		HomeTeam: match.Team{Name: "Arsenal FC"}, AwayTeam: match.Team{Name: "Liverpool FC"},
		ScheduledAt: syncNow.Add(-2 * time.Hour), Status: match.StatusLive,
		HomeScore: intRef(1), AwayScore: intRef(0),
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{live}, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "pl", PredictedHome: 2, PredictedAway: 1},
	})
	racing := &overrideAfterListRepo{MatchRepository: fixture.matches, pinID: "m1", pinHome: 0, pinAway: 0}
	fixture.service.deps.MatchRepo = racing
	fixture.feed.matches = []feed.Match{{
		ExternalID: "100", HomeTeamName: "Arsenal FC", AwayTeamName: "Liverpool FC",
		Status: match.StatusFinished, ResolvedHome: intRef(2), ResolvedAway: intRef(1),
		KickoffAt: live.ScheduledAt,
	}}

	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal})
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if got.Diffs != 1 || got.Updates != 0 || got.PredictionsScored != 0 || len(got.FinishedMatches) != 0 {
		t.Fatalf("unexpected run result: %+v", got)
	}
	if len(fixture.events.events) != 0 {
		t.Fatalf("unexpected events: %+v", fixture.events.events)
	}

	stored, _, _ := fixture.matches.GetByID(context.Background(), "m1")
	if !stored.IsManualOverride || *stored.HomeScore != 0 || *stored.AwayScore != 0 {
		t.Fatalf("override overwritten: %+v", stored)
	}
	u1, _, _ := fixture.users.GetByID(context.Background(), "u1")
	if u1.TotalPoints != 0 {
		t.Fatalf("unexpected total for u1: got=%d want=0", u1.TotalPoints)
	}
}

func TestSyncService_Run_FeedWindowCoversReschedules(t *testing.T) {
	t.Parallel()

	kickoff := syncNow.Add(4 * time.Hour)
	scheduled := match.Match{
		ID: "m1", ChampionshipID: "pl", ExternalID: "100",
		HomeTeam: match.Team{Name: "Arsenal FC"}, AwayTeam: match.Team{Name: "Liverpool FC"},
		ScheduledAt: kickoff, Status: match.StatusScheduled,
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{scheduled}, nil)
	moved := kickoff.AddDate(0, 0, 2)
	fixture.feed.matches = []feed.Match{{
		ExternalID: "100", HomeTeamName: "Arsenal FC", AwayTeamName: "Liverpool FC",
		Status: match.StatusScheduled, KickoffAt: moved,
	}}

	got, err := fixture.service.Run(context.Background(), SyncInput{Trigger: syncrun.TriggerExternal})
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if len(fixture.feed.filters) != 1 {
		t.Fatalf("unexpected feed calls: got=%d want=1", len(fixture.feed.filters))
	}
	filter := fixture.feed.filters[0]
	wantFrom := syncNow.Add(-DefaultFeedWindowMargin)
	wantTo := kickoff.Add(DefaultFeedWindowMargin)
	if !filter.DateFrom.Equal(wantFrom) || !filter.DateTo.Equal(wantTo) {
		t.Fatalf("unexpected filter window: got=%s..%s want=%s..%s", filter.DateFrom, filter.DateTo, wantFrom, wantTo)
	}
	if moved.After(filter.DateTo) {
		t.Fatalf("rescheduled kickoff %s outside window ending %s", moved, filter.DateTo)
	}
	if got.Updates != 1 {
		t.Fatalf("unexpected updates: got=%d want=1", got.Updates)
	}

	stored, _, _ := fixture.matches.GetByID(context.Background(), "m1")
	if !stored.ScheduledAt.Equal(moved) || stored.Status != match.StatusScheduled {
		t.Fatalf("drift not applied: %+v", stored)
	}
}
