package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/platform/resilience"
)

type FeedClient interface {
	FetchMatches(ctx context.Context, filter feed.Filter) ([]feed.Match, error)
}

// CycleLock guards a reconciliation cycle. TryAcquire never blocks: a held
// lock reports ok=false and the caller drops its attempt.
type CycleLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type localCycleLock struct {
	gate resilience.Gate
}

// NewLocalCycleLock returns a process-local lock.
func NewLocalCycleLock() CycleLock {
	return &localCycleLock{}
}

func (l *localCycleLock) TryAcquire(_ context.Context) (func(), bool, error) {
	if !l.gate.TryEnter() {
		return nil, false, nil
	}
	return l.gate.Leave, true, nil
}

type MatchFinishedEvent struct {
	MatchID           string    `json:"matchId"`
	ChampionshipID    string    `json:"championshipId"`
	HomeScore         int       `json:"homeScore"`
	AwayScore         int       `json:"awayScore"`
	PredictionsScored int       `json:"predictionsScored"`
	FinishedAt        time.Time `json:"finishedAt"`
}

type MatchEventPublisher interface {
	PublishMatchFinished(ctx context.Context, events []MatchFinishedEvent) error
}

type noopMatchEventPublisher struct{}

func (noopMatchEventPublisher) PublishMatchFinished(_ context.Context, _ []MatchFinishedEvent) error {
	return nil
}

func NewNoopMatchEventPublisher() MatchEventPublisher {
	return noopMatchEventPublisher{}
}
