package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
)

// Each award is two row operations: the prediction and its owner's total.
const awardChunkSize = match.MaxBatchOps / 2

const defaultScoringWorkers = 4

type MatchResult struct {
	MatchID        string
	ChampionshipID string
	HomeScore      int
	AwayScore      int
}

type ScoreBatchResult struct {
	Matches int
	Scored  int
	ByMatch map[string]int
	Failed  []string
}

type ScoringService struct {
	matchRepo      match.Repository
	predictionRepo prediction.Repository
	workers        int
	chunkSize      int
	logger         *logging.Logger
}

func NewScoringService(
	matchRepo match.Repository,
	predictionRepo prediction.Repository,
	workers int,
	logger *logging.Logger,
) *ScoringService {
	if workers <= 0 {
		workers = defaultScoringWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringService{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		workers:        workers,
		chunkSize:      awardChunkSize,
		logger:         logger,
	}
}

// ScoreMatch awards points for every unscored prediction of the match and
// returns how many predictions were written. Already scored predictions are
// never touched, so calling it again for the same match is a no-op.
func (s *ScoringService) ScoreMatch(ctx context.Context, matchID string, finalHome, finalAway int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return 0, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if finalHome < 0 || finalAway < 0 {
		return 0, fmt.Errorf("%w: final score cannot be negative", ErrInvalidInput)
	}

	items, err := s.predictionRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("list predictions for match=%s: %w", matchID, err)
	}

	awards := make([]prediction.Award, 0, len(items))
	for _, item := range items {
		if item.IsScored() {
			continue
		}
		awards = append(awards, prediction.Award{
			PredictionID: item.ID,
			UserID:       item.UserID,
			MatchID:      matchID,
			Points:       prediction.CalculatePoints(item.PredictedHome, item.PredictedAway, finalHome, finalAway),
		})
	}

	written := 0
	for start := 0; start < len(awards); start += s.chunkSize {
		end := min(start+s.chunkSize, len(awards))
		n, err := s.predictionRepo.AwardPoints(ctx, awards[start:end])
		written += n
		if err != nil {
			metrics.RecordPredictionsScored(written)
			return written, fmt.Errorf("award points match=%s chunk_start=%d: %w", matchID, start, err)
		}
	}
	metrics.RecordPredictionsScored(written)

	s.logger.DebugContext(ctx, "match scored",
		"match_id", matchID,
		"final_score", fmt.Sprintf("%d-%d", finalHome, finalAway),
		"predictions", len(items),
		"awarded", written,
	)
	return written, nil
}

// ScoreMatches scores several finished matches concurrently. One match is
// always handled by a single worker.
func (s *ScoringService) ScoreMatches(ctx context.Context, results []MatchResult) (ScoreBatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreMatches")
	defer span.End()

	out := ScoreBatchResult{
		Matches: len(results),
		ByMatch: make(map[string]int, len(results)),
	}
	if len(results) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(min(s.workers, len(results)))
	if err != nil {
		return out, fmt.Errorf("create scoring worker pool: %w", err)
	}
	defer pool.Release()

	type matchOutcome struct {
		matchID string
		scored  int
		err     error
	}

	var (
		workers sync.WaitGroup
		scored  atomic.Int64
	)
	outcomes := make(chan matchOutcome, len(results))
	for _, item := range results {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			n, scoreErr := s.ScoreMatch(ctx, item.MatchID, item.HomeScore, item.AwayScore)
			scored.Add(int64(n))
			outcomes <- matchOutcome{matchID: item.MatchID, scored: n, err: scoreErr}
		}); err != nil {
			workers.Done()
			outcomes <- matchOutcome{matchID: item.MatchID, err: fmt.Errorf("submit scoring task: %w", err)}
		}
	}

	workers.Wait()
	close(outcomes)

	var errs []error
	for row := range outcomes {
		out.ByMatch[row.matchID] = row.scored
		if row.err != nil {
			out.Failed = append(out.Failed, row.matchID)
			errs = append(errs, row.err)
		}
	}
	sort.Strings(out.Failed)
	out.Scored = int(scored.Load())

	return out, errors.Join(errs...)
}

// ScorePending re-scores finished matches that still hold unscored
// predictions, which recovers a cycle that stopped between the status write
// and the award.
func (s *ScoringService) ScorePending(ctx context.Context, since time.Time) (ScoreBatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScorePending")
	defer span.End()

	finished, err := s.matchRepo.ListFinishedSince(ctx, since)
	if err != nil {
		return ScoreBatchResult{}, fmt.Errorf("list finished matches: %w", err)
	}
	if len(finished) == 0 {
		return ScoreBatchResult{ByMatch: map[string]int{}}, nil
	}

	byID := make(map[string]match.Match, len(finished))
	ids := make([]string, 0, len(finished))
	for _, item := range finished {
		if item.HomeScore == nil || item.AwayScore == nil {
			s.logger.WarnContext(ctx, "finished match without score skipped", "match_id", item.ID)
			continue
		}
		byID[item.ID] = item
		ids = append(ids, item.ID)
	}

	pending, err := s.predictionRepo.ListMatchIDsWithUnscored(ctx, ids)
	if err != nil {
		return ScoreBatchResult{}, fmt.Errorf("list matches with unscored predictions: %w", err)
	}

	results := make([]MatchResult, 0, len(pending))
	for _, id := range pending {
		item, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, MatchResult{
			MatchID:        item.ID,
			ChampionshipID: item.ChampionshipID,
			HomeScore:      *item.HomeScore,
			AwayScore:      *item.AwayScore,
		})
	}

	out, err := s.ScoreMatches(ctx, results)
	if out.Scored > 0 {
		s.logger.InfoContext(ctx, "pending predictions scored", "matches", out.Matches, "scored", out.Scored)
	}
	return out, err
}

// FinishManually records an operator result for the match, pins it under
// manual override and scores it.
func (s *ScoringService) FinishManually(ctx context.Context, matchID string, homeScore, awayScore int) (match.Match, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.FinishManually")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, 0, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if homeScore < 0 || awayScore < 0 {
		return match.Match{}, 0, fmt.Errorf("%w: score cannot be negative", ErrInvalidInput)
	}

	if _, exists, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return match.Match{}, 0, fmt.Errorf("get match=%s: %w", matchID, err)
	} else if !exists {
		return match.Match{}, 0, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	updated, err := s.matchRepo.SetManualResult(ctx, matchID, homeScore, awayScore)
	if err != nil {
		return match.Match{}, 0, fmt.Errorf("set manual result match=%s: %w", matchID, err)
	}

	scored, err := s.ScoreMatch(ctx, matchID, homeScore, awayScore)
	if err != nil {
		return updated, scored, err
	}
	s.logger.InfoContext(ctx, "match finished manually",
		"match_id", matchID,
		"final_score", fmt.Sprintf("%d-%d", homeScore, awayScore),
		"scored", scored,
	)
	return updated, scored, nil
}
