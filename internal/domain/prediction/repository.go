package prediction

import "context"

type Repository interface {
	ListByMatch(ctx context.Context, matchID string) ([]Prediction, error)
	// AwardPoints sets points on unscored predictions and increments the owner
	// total for each one actually written. It returns the number written.
	AwardPoints(ctx context.Context, awards []Award) (int, error)
	// ListMatchIDsWithUnscored filters matchIDs down to those that still have
	// predictions without points.
	ListMatchIDsWithUnscored(ctx context.Context, matchIDs []string) ([]string, error)
}
