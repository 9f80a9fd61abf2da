package user

import "context"

type Repository interface {
	GetByID(ctx context.Context, userID string) (User, bool, error)
	// ListLeaderboard returns users holding predictions in the championship,
	// ordered by total points.
	ListLeaderboard(ctx context.Context, championshipID string, limit int) ([]User, error)
}
