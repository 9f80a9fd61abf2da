package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchColumns...).From("matches").
		Where(
			qb.Eq("public_id", matchID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	err = retryOnPoolerMismatch(func() error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) ListActive(ctx context.Context, active match.ActiveQuery) ([]match.Match, error) {
	window := []qb.Condition{
		qb.Eq("status", string(match.StatusLive)),
		qb.And(
			qb.Eq("status", string(match.StatusScheduled)),
			qb.Gte("scheduled_at", active.DayStart),
			qb.Lt("scheduled_at", active.DayEnd),
		),
	}
	if !active.FinishedSince.IsZero() {
		window = append(window, qb.And(
			qb.Eq("status", string(match.StatusFinished)),
			qb.Gte("scheduled_at", active.FinishedSince),
		))
	}

	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if len(active.ChampionshipIDs) > 0 {
		conditions = append(conditions, qb.In("championship_public_id", active.ChampionshipIDs))
	}
	conditions = append(conditions, qb.Or(window...))

	query, args, err := qb.Select(matchColumns...).From("matches").
		Where(conditions...).
		OrderBy("scheduled_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select active matches query: %w", err)
	}

	var rows []matchTableModel
	err = retryOnPoolerMismatch(func() error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("select active matches: %w", err)
	}
	return toMatches(rows), nil
}

func (r *MatchRepository) ListFinishedSince(ctx context.Context, since time.Time) ([]match.Match, error) {
	query, args, err := qb.Select(matchColumns...).From("matches").
		Where(
			qb.Eq("status", string(match.StatusFinished)),
			qb.Gte("scheduled_at", since),
			qb.IsNull("deleted_at"),
		).
		OrderBy("scheduled_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select finished matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select finished matches: %w", err)
	}
	return toMatches(rows), nil
}

// ApplyDiffs commits the batch in one transaction. Each diff is a single-row
// update guarded by is_manual_override so a concurrent admin pin always wins;
// a guarded-out row affects zero rows and is left out of the written IDs.
func (r *MatchRepository) ApplyDiffs(ctx context.Context, diffs []match.Diff) ([]string, error) {
	if len(diffs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx for match diffs: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := make([]string, 0, len(diffs))
	for _, diff := range diffs {
		if diff.IsEmpty() {
			continue
		}
		query, args, err := buildApplyDiffQuery(diff)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update match=%s: %w", diff.MatchID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected match=%s: %w", diff.MatchID, err)
		}
		if affected == 1 {
			written = append(written, diff.MatchID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit match diffs: %w", err)
	}
	return written, nil
}

func buildApplyDiffQuery(diff match.Diff) (string, []any, error) {
	update := qb.Update("matches")
	if diff.Status != nil {
		update.Set("status", string(*diff.Status))
	}
	if diff.HomeScore != nil {
		update.Set("home_score", *diff.HomeScore)
	}
	if diff.AwayScore != nil {
		update.Set("away_score", *diff.AwayScore)
	}
	if diff.ScheduledAt != nil {
		update.Set("scheduled_at", diff.ScheduledAt.UTC())
	}
	if diff.ExternalID != nil {
		update.Set("external_id", *diff.ExternalID)
	}
	query, args, err := update.
		SetExpr("last_updated_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", diff.MatchID),
			qb.Eq("is_manual_override", false),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build update match=%s query: %w", diff.MatchID, err)
	}
	return query, args, nil
}

func (r *MatchRepository) SetManualResult(ctx context.Context, matchID string, homeScore, awayScore int) (match.Match, error) {
	query, args, err := qb.Update("matches").
		Set("status", string(match.StatusFinished)).
		Set("home_score", homeScore).
		Set("away_score", awayScore).
		Set("is_manual_override", true).
		SetExpr("last_updated_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", matchID),
			qb.IsNull("deleted_at"),
		).
		Suffix("RETURNING " + joinColumns(matchColumns)).
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build manual result query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, fmt.Errorf("set manual result: match=%s not found", matchID)
		}
		return match.Match{}, fmt.Errorf("set manual result: %w", err)
	}
	return row.toDomain(), nil
}

func toMatches(rows []matchTableModel) []match.Match {
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
