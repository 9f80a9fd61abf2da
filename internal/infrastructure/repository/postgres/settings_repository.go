package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

const settingsRowID = 1

type settingsTableModel struct {
	ID                int       `db:"id"`
	APIUpdateInterval int       `db:"api_update_interval"`
	ScorePriority     string    `db:"score_priority"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.Settings, bool, error) {
	query, args, err := qb.Select("id", "api_update_interval", "score_priority", "updated_at").
		From("app_settings").
		Where(qb.Eq("id", settingsRowID)).
		ToSQL()
	if err != nil {
		return settings.Settings{}, false, fmt.Errorf("build select settings query: %w", err)
	}

	var row settingsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return settings.Settings{}, false, nil
		}
		return settings.Settings{}, false, fmt.Errorf("select settings: %w", err)
	}
	return settings.Settings{
		APIUpdateInterval: row.APIUpdateInterval,
		ScorePriority:     settings.ScorePriority(row.ScorePriority),
		UpdatedAt:         row.UpdatedAt,
	}, true, nil
}

func (r *SettingsRepository) Save(ctx context.Context, value settings.Settings) error {
	query, args, err := qb.InsertModel("app_settings", settingsTableModel{
		ID:                settingsRowID,
		APIUpdateInterval: value.APIUpdateInterval,
		ScorePriority:     string(value.ScorePriority),
		UpdatedAt:         value.UpdatedAt,
	}, &qb.Conflict{
		Target: []string{"id"},
		Update: []string{"api_update_interval", "score_priority", "updated_at"},
	})
	if err != nil {
		return fmt.Errorf("build upsert settings query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
