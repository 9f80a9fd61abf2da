package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/domain/user"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/memory"
)

type scoringFixture struct {
	matches     *memory.MatchRepository
	users       *memory.UserRepository
	predictions *memory.PredictionRepository
	service     *ScoringService
}

func newScoringFixture(matches []match.Match, predictions []prediction.Prediction) scoringFixture {
	users := memory.NewUserRepository([]user.User{
		{ID: "u1"}, {ID: "u2"}, {ID: "u3"}, {ID: "u4"},
	})
	matchRepo := memory.NewMatchRepository(matches)
	predictionRepo := memory.NewPredictionRepository(predictions, users)
	return scoringFixture{
		matches:     matchRepo,
		users:       users,
		predictions: predictionRepo,
		service:     NewScoringService(matchRepo, predictionRepo, 2, nil),
	}
}

func (f scoringFixture) total(t *testing.T, userID string) int {
	t.Helper()
	item, _, err := f.users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	return item.TotalPoints
}

func TestScoringService_ScoreMatch_Points(t *testing.T) {
	t.Parallel()

	fixture := newScoringFixture(nil, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 2, PredictedAway: 1},
		{UserID: "u2", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 0},
		{UserID: "u3", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 1},
		{UserID: "u4", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 0, PredictedAway: 2},
	})

	scored, err := fixture.service.ScoreMatch(context.Background(), "m1", 2, 1)
	if err != nil {
		t.Fatalf("score match: %v", err)
	}
	if scored != 4 {
		t.Fatalf("unexpected scored count: got=%d want=4", scored)
	}

	want := map[string]int{"u1": 3, "u2": 1, "u3": 0, "u4": 0}
	for userID, points := range want {
		if got := fixture.total(t, userID); got != points {
			t.Fatalf("unexpected total for %s: got=%d want=%d", userID, got, points)
		}
	}
}

func TestScoringService_ScoreMatch_DrawsShareOutcome(t *testing.T) {
	t.Parallel()

	fixture := newScoringFixture(nil, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 1},
		{UserID: "u2", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 2, PredictedAway: 0},
	})

	if _, err := fixture.service.ScoreMatch(context.Background(), "m1", 0, 0); err != nil {
		t.Fatalf("score match: %v", err)
	}
	if got := fixture.total(t, "u1"); got != 1 {
		t.Fatalf("unexpected draw points: got=%d want=1", got)
	}
	if got := fixture.total(t, "u2"); got != 0 {
		t.Fatalf("unexpected miss points: got=%d want=0", got)
	}
}

func TestScoringService_ScoreMatch_SecondCallIsNoop(t *testing.T) {
	t.Parallel()

	fixture := newScoringFixture(nil, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 2, PredictedAway: 1},
		{UserID: "u2", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 3, PredictedAway: 0},
	})

	for i, want := range []int{2, 0} {
		scored, err := fixture.service.ScoreMatch(context.Background(), "m1", 2, 1)
		if err != nil {
			t.Fatalf("score match call %d: %v", i+1, err)
		}
		if scored != want {
			t.Fatalf("unexpected scored on call %d: got=%d want=%d", i+1, scored, want)
		}
	}
	if got := fixture.total(t, "u1"); got != 3 {
		t.Fatalf("double award for u1: got=%d want=3", got)
	}
	if got := fixture.total(t, "u2"); got != 1 {
		t.Fatalf("double award for u2: got=%d want=1", got)
	}
}

type chunkCountingPredictionRepo struct {
	*memory.PredictionRepository
	calls []int
}

func (r *chunkCountingPredictionRepo) AwardPoints(ctx context.Context, awards []prediction.Award) (int, error) {
	r.calls = append(r.calls, len(awards))
	return r.PredictionRepository.AwardPoints(ctx, awards)
}

func TestScoringService_ScoreMatch_ChunksAwards(t *testing.T) {
	t.Parallel()

	items := make([]prediction.Prediction, 0, 5)
	for _, userID := range []string{"u1", "u2", "u3", "u4", "u5"} {
		items = append(items, prediction.Prediction{UserID: userID, MatchID: "m1", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 0})
	}
	repo := &chunkCountingPredictionRepo{PredictionRepository: memory.NewPredictionRepository(items, nil)}
	svc := NewScoringService(memory.NewMatchRepository(nil), repo, 1, nil)
	svc.chunkSize = 2

	scored, err := svc.ScoreMatch(context.Background(), "m1", 1, 0)
	if err != nil {
		t.Fatalf("score match: %v", err)
	}
	if scored != 5 || len(repo.calls) != 3 {
		t.Fatalf("unexpected chunking: scored=%d calls=%v", scored, repo.calls)
	}
}

func TestScoringService_ScoreMatches_Concurrent(t *testing.T) {
	t.Parallel()

	fixture := newScoringFixture(nil, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 0},
		{UserID: "u1", MatchID: "m2", ChampionshipID: "c1", PredictedHome: 2, PredictedAway: 2},
		{UserID: "u1", MatchID: "m3", ChampionshipID: "c1", PredictedHome: 0, PredictedAway: 1},
	})

	got, err := fixture.service.ScoreMatches(context.Background(), []MatchResult{
		{MatchID: "m1", ChampionshipID: "c1", HomeScore: 1, AwayScore: 0},
		{MatchID: "m2", ChampionshipID: "c1", HomeScore: 1, AwayScore: 1},
		{MatchID: "m3", ChampionshipID: "c1", HomeScore: 3, AwayScore: 0},
	})
	if err != nil {
		t.Fatalf("score matches: %v", err)
	}
	if got.Scored != 3 || got.ByMatch["m2"] != 1 || len(got.Failed) != 0 {
		t.Fatalf("unexpected batch result: %+v", got)
	}
	if total := fixture.total(t, "u1"); total != 4 {
		t.Fatalf("totals did not compose: got=%d want=4", total)
	}
}

func TestScoringService_ScorePending_RecoversUnscored(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 2, 24, 19, 0, 0, 0, time.UTC)
	fixture := newScoringFixture([]match.Match{
		{ID: "m1", ChampionshipID: "c1", Status: match.StatusFinished, ScheduledAt: kickoff, HomeScore: intRef(0), AwayScore: intRef(0)},
		{ID: "m2", ChampionshipID: "c1", Status: match.StatusFinished, ScheduledAt: kickoff},
		{ID: "m3", ChampionshipID: "c1", Status: match.StatusLive, ScheduledAt: kickoff, HomeScore: intRef(1), AwayScore: intRef(0)},
	}, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 0, PredictedAway: 0},
		{UserID: "u1", MatchID: "m2", ChampionshipID: "c1", PredictedHome: 0, PredictedAway: 0},
		{UserID: "u1", MatchID: "m3", ChampionshipID: "c1", PredictedHome: 1, PredictedAway: 0},
	})

	got, err := fixture.service.ScorePending(context.Background(), kickoff.Add(-time.Hour))
	if err != nil {
		t.Fatalf("score pending: %v", err)
	}
	if got.Scored != 1 || got.ByMatch["m1"] != 1 {
		t.Fatalf("unexpected pending result: %+v", got)
	}
	if total := fixture.total(t, "u1"); total != 3 {
		t.Fatalf("unexpected total: got=%d want=3", total)
	}

	again, err := fixture.service.ScorePending(context.Background(), kickoff.Add(-time.Hour))
	if err != nil {
		t.Fatalf("score pending again: %v", err)
	}
	if again.Scored != 0 {
		t.Fatalf("pending rescored: %+v", again)
	}
}

func TestScoringService_FinishManually(t *testing.T) {
	t.Parallel()

	fixture := newScoringFixture([]match.Match{
		{ID: "m1", ChampionshipID: "c1", Status: match.StatusLive, HomeScore: intRef(0), AwayScore: intRef(0)},
	}, []prediction.Prediction{
		{UserID: "u1", MatchID: "m1", ChampionshipID: "c1", PredictedHome: 2, PredictedAway: 0},
	})

	updated, scored, err := fixture.service.FinishManually(context.Background(), "m1", 2, 0)
	if err != nil {
		t.Fatalf("finish manually: %v", err)
	}
	if !updated.IsManualOverride || updated.Status != match.StatusFinished || scored != 1 {
		t.Fatalf("unexpected manual finish: match=%+v scored=%d", updated, scored)
	}
	if total := fixture.total(t, "u1"); total != 3 {
		t.Fatalf("unexpected total: got=%d want=3", total)
	}

	_, _, err = fixture.service.FinishManually(context.Background(), "missing", 1, 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _, err = fixture.service.FinishManually(context.Background(), "m1", -1, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
