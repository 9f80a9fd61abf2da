package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
)

var matchColumns = []string{
	"public_id",
	"championship_public_id",
	"home_team_public_id",
	"home_team_name",
	"home_team_crest_url",
	"away_team_public_id",
	"away_team_name",
	"away_team_crest_url",
	"external_id",
	"scheduled_at",
	"round",
	"status",
	"home_score",
	"away_score",
	"last_updated_at",
	"is_manual_override",
	"betting_reopened",
}

type matchTableModel struct {
	PublicID         string        `db:"public_id"`
	ChampionshipID   string        `db:"championship_public_id"`
	HomeTeamID       string        `db:"home_team_public_id"`
	HomeTeamName     string        `db:"home_team_name"`
	HomeTeamCrestURL string        `db:"home_team_crest_url"`
	AwayTeamID       string        `db:"away_team_public_id"`
	AwayTeamName     string        `db:"away_team_name"`
	AwayTeamCrestURL string        `db:"away_team_crest_url"`
	ExternalID       string        `db:"external_id"`
	ScheduledAt      time.Time     `db:"scheduled_at"`
	Round            string        `db:"round"`
	Status           string        `db:"status"`
	HomeScore        sql.NullInt64 `db:"home_score"`
	AwayScore        sql.NullInt64 `db:"away_score"`
	LastUpdatedAt    time.Time     `db:"last_updated_at"`
	IsManualOverride bool          `db:"is_manual_override"`
	BettingReopened  bool          `db:"betting_reopened"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:             m.PublicID,
		ChampionshipID: m.ChampionshipID,
		HomeTeam: match.Team{
			ID:       m.HomeTeamID,
			Name:     m.HomeTeamName,
			CrestURL: m.HomeTeamCrestURL,
		},
		AwayTeam: match.Team{
			ID:       m.AwayTeamID,
			Name:     m.AwayTeamName,
			CrestURL: m.AwayTeamCrestURL,
		},
		ExternalID:       m.ExternalID,
		ScheduledAt:      m.ScheduledAt.UTC(),
		Round:            m.Round,
		Status:           match.NormalizeStatus(m.Status),
		HomeScore:        nullIntToPtr(m.HomeScore),
		AwayScore:        nullIntToPtr(m.AwayScore),
		LastUpdatedAt:    m.LastUpdatedAt.UTC(),
		IsManualOverride: m.IsManualOverride,
		BettingReopened:  m.BettingReopened,
	}
}

func nullIntToPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}
