package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
)

// SingleMatchFeed is implemented by feed clients that can load one match by
// provider id.
type SingleMatchFeed interface {
	FetchMatch(ctx context.Context, externalID string, priority settings.ScorePriority) (feed.Match, bool, error)
}

type RefreshResult struct {
	Match             match.Match
	Updated           bool
	PredictionsScored int
	Diagnostics       []Diagnostic
}

// RefreshMatch reconciles a single linked match against its feed entry. It
// shares the cycle lock with Run.
func (s *SyncService) RefreshMatch(ctx context.Context, matchID string) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.RefreshMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return RefreshResult{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	fetcher, ok := s.deps.Feed.(SingleMatchFeed)
	if !ok {
		return RefreshResult{}, fmt.Errorf("%w: feed cannot load single matches", ErrDependencyUnavailable)
	}

	release, acquired, err := s.deps.Lock.TryAcquire(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: acquire cycle lock: %v", ErrDependencyUnavailable, err)
	}
	if !acquired {
		return RefreshResult{}, ErrSyncInProgress
	}
	defer release()

	stored, exists, err := s.deps.MatchRepo.GetByID(ctx, matchID)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("get match=%s: %w", matchID, err)
	}
	if !exists {
		return RefreshResult{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	if stored.ExternalID == "" {
		return RefreshResult{}, fmt.Errorf("%w: match=%s is not linked to the feed", ErrInvalidInput, matchID)
	}

	current := s.deps.Settings.Get(ctx)
	item, found, err := fetcher.FetchMatch(ctx, stored.ExternalID, current.ScorePriority)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: fetch match external_id=%s: %v", ErrDependencyUnavailable, stored.ExternalID, err)
	}
	if !found {
		return RefreshResult{}, fmt.Errorf("%w: feed has no match external_id=%s", ErrNotFound, stored.ExternalID)
	}

	active := []match.Match{stored}
	outcome := Reconcile(active, []feed.Match{item}, ReconcileOptions{DriftTolerance: s.cfg.DriftTolerance})
	result := RefreshResult{Match: stored, Diagnostics: outcome.Diagnostics}

	applied, applyErr := s.deps.Writer.Apply(ctx, outcome.Diffs)
	metrics.RecordMatchUpdates(applied.Applied)
	result.Updated = applied.Applied > 0

	finished := finishedResults(active, applied.Written)
	scored, scoreErr := s.deps.Scoring.ScoreMatches(ctx, finished)
	result.PredictionsScored = scored.Scored
	s.publishFinished(ctx, finished, scored, s.now().UTC())

	if refreshed, ok, err := s.deps.MatchRepo.GetByID(ctx, matchID); err == nil && ok {
		result.Match = refreshed
	}

	if err := errors.Join(applyErr, scoreErr); err != nil {
		s.logger.WarnContext(ctx, "refresh match failed", "match_id", matchID, "error", err)
		return result, err
	}
	s.logger.InfoContext(ctx, "match refreshed",
		"match_id", matchID,
		"updated", result.Updated,
		"scored", result.PredictionsScored,
	)
	return result, nil
}
