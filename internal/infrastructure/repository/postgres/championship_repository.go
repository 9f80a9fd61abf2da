package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

type championshipTableModel struct {
	PublicID string `db:"public_id"`
	Name     string `db:"name"`
	APICode  string `db:"api_code"`
	SyncMode string `db:"sync_mode"`
	Status   string `db:"status"`
}

func (m championshipTableModel) toDomain() championship.Championship {
	return championship.Championship{
		ID:       m.PublicID,
		Name:     m.Name,
		APICode:  m.APICode,
		SyncMode: championship.NormalizeSyncMode(m.SyncMode),
		Status:   m.Status,
	}
}

var championshipColumns = []string{"public_id", "name", "api_code", "sync_mode", "status"}

type ChampionshipRepository struct {
	db *sqlx.DB
}

func NewChampionshipRepository(db *sqlx.DB) *ChampionshipRepository {
	return &ChampionshipRepository{db: db}
}

func (r *ChampionshipRepository) GetByID(ctx context.Context, championshipID string) (championship.Championship, bool, error) {
	query, args, err := qb.Select(championshipColumns...).From("championships").
		Where(
			qb.Eq("public_id", championshipID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return championship.Championship{}, false, fmt.Errorf("build select championship query: %w", err)
	}

	var row championshipTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return championship.Championship{}, false, nil
		}
		return championship.Championship{}, false, fmt.Errorf("select championship: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *ChampionshipRepository) ListByIDs(ctx context.Context, championshipIDs []string) ([]championship.Championship, error) {
	if len(championshipIDs) == 0 {
		return nil, nil
	}

	query, args, err := qb.Select(championshipColumns...).From("championships").
		Where(
			qb.In("public_id", championshipIDs),
			qb.IsNull("deleted_at"),
		).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select championships query: %w", err)
	}

	var rows []championshipTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select championships: %w", err)
	}

	out := make([]championship.Championship, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
