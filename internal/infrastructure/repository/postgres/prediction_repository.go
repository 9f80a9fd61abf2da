package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

type predictionTableModel struct {
	PublicID       string        `db:"public_id"`
	UserID         string        `db:"user_public_id"`
	MatchID        string        `db:"match_public_id"`
	ChampionshipID string        `db:"championship_public_id"`
	PredictedHome  int           `db:"predicted_home"`
	PredictedAway  int           `db:"predicted_away"`
	Points         sql.NullInt64 `db:"points"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) ListByMatch(ctx context.Context, matchID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select(
		"public_id",
		"user_public_id",
		"match_public_id",
		"championship_public_id",
		"predicted_home",
		"predicted_away",
		"points",
		"updated_at",
	).From("predictions").
		Where(
			qb.Eq("match_public_id", matchID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select predictions by match query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select predictions by match: %w", err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, prediction.Prediction{
			ID:             row.PublicID,
			UserID:         row.UserID,
			MatchID:        row.MatchID,
			ChampionshipID: row.ChampionshipID,
			PredictedHome:  row.PredictedHome,
			PredictedAway:  row.PredictedAway,
			Points:         nullIntToPtr(row.Points),
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return out, nil
}

// AwardPoints writes the chunk in one transaction. The points IS NULL guard
// makes a repeated award a no-op, and the owner total only moves when the
// guarded update actually hit a row.
func (r *PredictionRepository) AwardPoints(ctx context.Context, awards []prediction.Award) (int, error) {
	if len(awards) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx for award points: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := 0
	for _, award := range awards {
		setPoints, setArgs, err := buildAwardPointsQuery(award)
		if err != nil {
			return 0, fmt.Errorf("build award prediction=%s query: %w", award.PredictionID, err)
		}
		res, err := tx.ExecContext(ctx, setPoints, setArgs...)
		if err != nil {
			return 0, fmt.Errorf("award prediction=%s: %w", award.PredictionID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("award prediction=%s rows affected: %w", award.PredictionID, err)
		}
		if affected == 0 {
			continue
		}

		increment, incArgs, err := buildIncrementTotalQuery(award)
		if err != nil {
			return 0, fmt.Errorf("build increment user=%s query: %w", award.UserID, err)
		}
		if _, err := tx.ExecContext(ctx, increment, incArgs...); err != nil {
			return 0, fmt.Errorf("increment user=%s: %w", award.UserID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit award points: %w", err)
	}
	return written, nil
}

// buildAwardPointsQuery only matches an unscored row, so a repeated award
// affects zero rows.
func buildAwardPointsQuery(award prediction.Award) (string, []any, error) {
	return qb.Update("predictions").
		Set("points", award.Points).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", award.PredictionID),
			qb.IsNull("points"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
}

func buildIncrementTotalQuery(award prediction.Award) (string, []any, error) {
	return qb.Update("users").
		SetExpr("total_points", "total_points + ?", award.Points).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", award.UserID)).
		ToSQL()
}

func (r *PredictionRepository) ListMatchIDsWithUnscored(ctx context.Context, matchIDs []string) ([]string, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}

	query, args, err := buildUnscoredMatchesQuery(matchIDs)
	if err != nil {
		return nil, fmt.Errorf("build select unscored matches query: %w", err)
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("select unscored matches: %w", err)
	}

	pending := make(map[string]struct{}, len(found))
	for _, id := range found {
		pending[id] = struct{}{}
	}
	out := make([]string, 0, len(found))
	for _, id := range matchIDs {
		if _, ok := pending[id]; ok {
			out = append(out, id)
			delete(pending, id)
		}
	}
	return out, nil
}

func buildUnscoredMatchesQuery(matchIDs []string) (string, []any, error) {
	return qb.Select("match_public_id").From("predictions").
		Where(
			qb.In("match_public_id", matchIDs),
			qb.IsNull("points"),
			qb.IsNull("deleted_at"),
		).
		GroupBy("match_public_id").
		ToSQL()
}
