package settings

import "context"

type Repository interface {
	Get(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, value Settings) error
}
