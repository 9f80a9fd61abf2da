package match

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	ListActive(ctx context.Context, query ActiveQuery) ([]Match, error)
	ListFinishedSince(ctx context.Context, since time.Time) ([]Match, error)
	// ApplyDiffs writes one batch atomically and returns the IDs of the rows
	// it changed. Rows under manual override are left untouched and omitted.
	ApplyDiffs(ctx context.Context, diffs []Diff) ([]string, error)
	// SetManualResult finishes a match with an operator-entered score and
	// pins it under manual override.
	SetManualResult(ctx context.Context, matchID string, homeScore, awayScore int) (Match, error)
}
