package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	qb "github.com/riskibarqy/prediction-pool/internal/platform/querybuilder"
)

type syncRunTableModel struct {
	PublicID          string         `db:"public_id"`
	Trigger           string         `db:"trigger"`
	ChampionshipID    string         `db:"championship_public_id"`
	Status            string         `db:"status"`
	ActiveMatches     int            `db:"active_matches"`
	FeedMatches       int            `db:"feed_matches"`
	Diffs             int            `db:"diffs"`
	Updates           int            `db:"updates"`
	Batches           int            `db:"batches"`
	PredictionsScored int            `db:"predictions_scored"`
	Diagnostics       pq.StringArray `db:"diagnostics"`
	Log               string         `db:"log"`
	ErrorMessage      string         `db:"error_message"`
	StartedAt         time.Time      `db:"started_at"`
	FinishedAt        time.Time      `db:"finished_at"`
	TraceID           string         `db:"trace_id"`
	SpanID            string         `db:"span_id"`
}

var syncRunColumns = []string{
	"public_id", "trigger", "championship_public_id", "status",
	"active_matches", "feed_matches", "diffs", "updates", "batches", "predictions_scored",
	"diagnostics", "log", "error_message", "started_at", "finished_at", "trace_id", "span_id",
}

type SyncRunRepository struct {
	db *sqlx.DB
}

func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Save(ctx context.Context, run syncrun.Run) error {
	query, args, err := qb.InsertModel("sync_runs", syncRunTableModel{
		PublicID:          run.ID,
		Trigger:           string(run.Trigger),
		ChampionshipID:    run.ChampionshipID,
		Status:            string(run.Status),
		ActiveMatches:     run.ActiveMatches,
		FeedMatches:       run.FeedMatches,
		Diffs:             run.Diffs,
		Updates:           run.Updates,
		Batches:           run.Batches,
		PredictionsScored: run.PredictionsScored,
		Diagnostics:       pq.StringArray(append([]string{}, run.Diagnostics...)),
		Log:               run.Log,
		ErrorMessage:      run.ErrorMessage,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		TraceID:           run.TraceID,
		SpanID:            run.SpanID,
	}, &qb.Conflict{Target: []string{"public_id"}})
	if err != nil {
		return fmt.Errorf("build insert sync run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (r *SyncRunRepository) Latest(ctx context.Context) (syncrun.Run, bool, error) {
	query, args, err := qb.Select(syncRunColumns...).From("sync_runs").
		OrderBy("started_at DESC", "id DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return syncrun.Run{}, false, fmt.Errorf("build select latest sync run query: %w", err)
	}

	var row syncRunTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return syncrun.Run{}, false, nil
		}
		return syncrun.Run{}, false, fmt.Errorf("select latest sync run: %w", err)
	}
	return syncrun.Run{
		ID:                row.PublicID,
		Trigger:           syncrun.Trigger(row.Trigger),
		ChampionshipID:    row.ChampionshipID,
		Status:            syncrun.Status(row.Status),
		ActiveMatches:     row.ActiveMatches,
		FeedMatches:       row.FeedMatches,
		Diffs:             row.Diffs,
		Updates:           row.Updates,
		Batches:           row.Batches,
		PredictionsScored: row.PredictionsScored,
		Diagnostics:       []string(row.Diagnostics),
		Log:               row.Log,
		ErrorMessage:      row.ErrorMessage,
		StartedAt:         row.StartedAt,
		FinishedAt:        row.FinishedAt,
		TraceID:           row.TraceID,
		SpanID:            row.SpanID,
	}, true, nil
}
