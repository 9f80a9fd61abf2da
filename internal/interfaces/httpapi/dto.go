package httpapi

import (
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type syncRequest struct {
	ChampionshipID string `json:"championshipId" validate:"omitempty,max=128"`
}

type syncResponse struct {
	Success     bool     `json:"success"`
	Updates     int      `json:"updates"`
	RunID       string   `json:"runId,omitempty"`
	Diagnostics []string `json:"diagnostics"`
	Error       string   `json:"error,omitempty"`
}

type updateSettingsRequest struct {
	APIUpdateInterval int    `json:"apiUpdateInterval" validate:"required,min=1,max=1440"`
	ScorePriority     string `json:"scorePriority" validate:"omitempty,oneof=regular full"`
}

type settingsDTO struct {
	APIUpdateInterval int        `json:"apiUpdateInterval"`
	ScorePriority     string     `json:"scorePriority"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

func settingsToDTO(value settings.Settings) settingsDTO {
	out := settingsDTO{
		APIUpdateInterval: value.APIUpdateInterval,
		ScorePriority:     string(value.ScorePriority),
	}
	if !value.UpdatedAt.IsZero() {
		updatedAt := value.UpdatedAt.UTC()
		out.UpdatedAt = &updatedAt
	}
	return out
}

type finishMatchRequest struct {
	HomeScore *int `json:"homeScore" validate:"required,min=0"`
	AwayScore *int `json:"awayScore" validate:"required,min=0"`
}

type finishMatchDTO struct {
	MatchID           string `json:"matchId"`
	Status            string `json:"status"`
	HomeScore         *int   `json:"homeScore"`
	AwayScore         *int   `json:"awayScore"`
	PredictionsScored int    `json:"predictionsScored"`
}

func finishMatchToDTO(m match.Match, scored int) finishMatchDTO {
	return finishMatchDTO{
		MatchID:           m.ID,
		Status:            string(m.Status),
		HomeScore:         m.HomeScore,
		AwayScore:         m.AwayScore,
		PredictionsScored: scored,
	}
}

type refreshMatchDTO struct {
	finishMatchDTO
	Updated     bool     `json:"updated"`
	Diagnostics []string `json:"diagnostics"`
}

func refreshMatchToDTO(result usecase.RefreshResult) refreshMatchDTO {
	return refreshMatchDTO{
		finishMatchDTO: finishMatchToDTO(result.Match, result.PredictionsScored),
		Updated:        result.Updated,
		Diagnostics:    diagnosticsToStrings(result.Diagnostics),
	}
}

type syncRunDTO struct {
	ID                string    `json:"id"`
	Trigger           string    `json:"trigger"`
	ChampionshipID    string    `json:"championshipId,omitempty"`
	Status            string    `json:"status"`
	ActiveMatches     int       `json:"activeMatches"`
	FeedMatches       int       `json:"feedMatches"`
	Diffs             int       `json:"diffs"`
	Updates           int       `json:"updates"`
	Batches           int       `json:"batches"`
	PredictionsScored int       `json:"predictionsScored"`
	Diagnostics       []string  `json:"diagnostics"`
	Log               string    `json:"log"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	DurationMs        int64     `json:"durationMs"`
	TraceID           string    `json:"traceId,omitempty"`
}

func syncRunToDTO(run syncrun.Run) syncRunDTO {
	diagnostics := run.Diagnostics
	if diagnostics == nil {
		diagnostics = []string{}
	}
	return syncRunDTO{
		ID:                run.ID,
		Trigger:           string(run.Trigger),
		ChampionshipID:    run.ChampionshipID,
		Status:            string(run.Status),
		ActiveMatches:     run.ActiveMatches,
		FeedMatches:       run.FeedMatches,
		Diffs:             run.Diffs,
		Updates:           run.Updates,
		Batches:           run.Batches,
		PredictionsScored: run.PredictionsScored,
		Diagnostics:       diagnostics,
		Log:               run.Log,
		ErrorMessage:      run.ErrorMessage,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		DurationMs:        run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		TraceID:           run.TraceID,
	}
}

type leaderboardEntryDTO struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalPoints int    `json:"totalPoints"`
}

func leaderboardToDTO(entries []usecase.LeaderboardEntry) []leaderboardEntryDTO {
	out := make([]leaderboardEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, leaderboardEntryDTO{
			Rank:        entry.Rank,
			UserID:      entry.UserID,
			DisplayName: entry.DisplayName,
			TotalPoints: entry.TotalPoints,
		})
	}
	return out
}

func diagnosticsToStrings(items []usecase.Diagnostic) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
