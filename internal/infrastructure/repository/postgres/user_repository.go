package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/prediction-pool/internal/domain/user"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

type userTableModel struct {
	PublicID    string `db:"public_id"`
	DisplayName string `db:"display_name"`
	TotalPoints int    `db:"total_points"`
}

func (m userTableModel) toDomain() user.User {
	return user.User{
		ID:          m.PublicID,
		DisplayName: m.DisplayName,
		TotalPoints: m.TotalPoints,
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	query, args, err := qb.Select("public_id", "display_name", "total_points").From("users").
		Where(
			qb.Eq("public_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build select user query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *UserRepository) ListLeaderboard(ctx context.Context, championshipID string, limit int) ([]user.User, error) {
	query, args, err := qb.Select("u.public_id", "u.display_name", "u.total_points").From("users u").
		Where(
			qb.IsNull("u.deleted_at"),
			qb.Expr(`EXISTS (
SELECT 1 FROM predictions p
WHERE p.user_public_id = u.public_id
  AND p.championship_public_id = ?
  AND p.deleted_at IS NULL)`, championshipID),
		).
		OrderBy("u.total_points DESC", "u.public_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build leaderboard query: %w", err)
	}

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}

	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
