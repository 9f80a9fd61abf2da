package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
)

func (c *stubFeedClient) FetchMatch(_ context.Context, externalID string, _ settings.ScorePriority) (feed.Match, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return feed.Match{}, false, c.err
	}
	for _, item := range c.matches {
		if item.ExternalID == externalID {
			return item, true, nil
		}
	}
	return feed.Match{}, false, nil
}

type listOnlyFeed struct{}

func (listOnlyFeed) FetchMatches(context.Context, feed.Filter) ([]feed.Match, error) {
	return nil, nil
}

func TestSyncService_RefreshMatch_FinishesAndScores(t *testing.T) {
	t.Parallel()

	live := match.Match{
		ID: "m1", ChampionshipID: "pl", ExternalID: "100",
		HomeTeam: match.Team{Name: "Arsenal FC"}, AwayTeam: match.Team{Name: "Liverpool FC"},
		ScheduledAt: syncNow.Add(-2 * time.Hour), Status: match.StatusLive,
		HomeScore: intRef(0), AwayScore: intRef(0),
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{live}, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "pl", PredictedHome: 1, PredictedAway: 0},
	})
	fixture.feed.matches = []feed.Match{{
		ExternalID: "100", HomeTeamName: "Arsenal FC", AwayTeamName: "Liverpool FC",
		Status: match.StatusFinished, ResolvedHome: intRef(1), ResolvedAway: intRef(0),
		KickoffAt: live.ScheduledAt,
	}}

	result, err := fixture.service.RefreshMatch(context.Background(), "m1")
	if err != nil {
		t.Fatalf("refresh match: %v", err)
	}
	if !result.Updated || result.PredictionsScored != 1 {
		t.Fatalf("unexpected refresh result: %+v", result)
	}
	if result.Match.Status != match.StatusFinished {
		t.Fatalf("unexpected status: got=%s want=%s", result.Match.Status, match.StatusFinished)
	}
	if len(fixture.events.events) != 1 {
		t.Fatalf("expected one finished event, got=%d", len(fixture.events.events))
	}

	again, err := fixture.service.RefreshMatch(context.Background(), "m1")
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if again.Updated || again.PredictionsScored != 0 {
		t.Fatalf("second refresh must be a no-op: %+v", again)
	}
	u1, _, _ := fixture.users.GetByID(context.Background(), "u1")
	if u1.TotalPoints != prediction.PointsExact {
		t.Fatalf("unexpected total: got=%d want=%d", u1.TotalPoints, prediction.PointsExact)
	}
}

func TestSyncService_RefreshMatch_Errors(t *testing.T) {
	t.Parallel()

	unlinked := match.Match{
		ID: "m2", ChampionshipID: "pl",
		ScheduledAt: syncNow.Add(time.Hour), Status: match.StatusScheduled,
	}
	fixture := newSyncFixture(t, []championship.Championship{premierLeague()}, []match.Match{unlinked}, nil)

	if _, err := fixture.service.RefreshMatch(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown match: got=%v want=%v", err, ErrNotFound)
	}
	if _, err := fixture.service.RefreshMatch(context.Background(), "m2"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unlinked match: got=%v want=%v", err, ErrInvalidInput)
	}

	release, ok, _ := fixture.lock.TryAcquire(context.Background())
	if !ok {
		t.Fatalf("expected to take the cycle lock")
	}
	_, err := fixture.service.RefreshMatch(context.Background(), "m2")
	release()
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("held lock: got=%v want=%v", err, ErrSyncInProgress)
	}

	fixture.service.deps.Feed = listOnlyFeed{}
	if _, err := fixture.service.RefreshMatch(context.Background(), "m2"); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("list-only feed: got=%v want=%v", err, ErrDependencyUnavailable)
	}
}
