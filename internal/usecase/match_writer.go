package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

type ApplyResult struct {
	Applied int
	Batches int
	// Written holds the diffs the store actually wrote, in input order.
	// Diffs refused by the manual-override guard are not in it.
	Written []match.Diff
}

// MatchWriter persists diff sets in batches no larger than the store's
// per-commit ceiling.
type MatchWriter struct {
	matchRepo match.Repository
	batchSize int
	logger    *logging.Logger
}

func NewMatchWriter(matchRepo match.Repository, logger *logging.Logger) *MatchWriter {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchWriter{
		matchRepo: matchRepo,
		batchSize: match.MaxBatchOps,
		logger:    logger,
	}
}

// Apply commits diffs chunk by chunk. On failure the returned result still
// holds the chunks that were committed before the failing one.
func (w *MatchWriter) Apply(ctx context.Context, diffs []match.Diff) (ApplyResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchWriter.Apply")
	defer span.End()

	var result ApplyResult
	for start := 0; start < len(diffs); start += w.batchSize {
		end := min(start+w.batchSize, len(diffs))
		chunk := diffs[start:end]
		writtenIDs, err := w.matchRepo.ApplyDiffs(ctx, chunk)
		if err != nil {
			w.logger.ErrorContext(ctx, "apply match diff batch failed",
				"batch", result.Batches+1,
				"batch_size", len(chunk),
				"applied", result.Applied,
				"error", err,
			)
			return result, fmt.Errorf("apply match diffs batch=%d: %w", result.Batches+1, err)
		}
		written := make(map[string]struct{}, len(writtenIDs))
		for _, matchID := range writtenIDs {
			written[matchID] = struct{}{}
		}
		for _, diff := range chunk {
			if _, ok := written[diff.MatchID]; ok {
				result.Written = append(result.Written, diff)
			}
		}
		if skipped := len(chunk) - len(writtenIDs); skipped > 0 {
			w.logger.InfoContext(ctx, "match diffs left unwritten by store",
				"batch", result.Batches+1,
				"skipped", skipped,
			)
		}
		result.Applied += len(writtenIDs)
		result.Batches++
	}

	return result, nil
}
