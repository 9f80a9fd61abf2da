package championship

import "context"

type Repository interface {
	GetByID(ctx context.Context, championshipID string) (Championship, bool, error)
	ListByIDs(ctx context.Context, championshipIDs []string) ([]Championship, error)
}
