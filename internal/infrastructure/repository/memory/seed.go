package memory

import (
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/domain/user"
)

const (
	ChampionshipIDPremierLeague = "eng-premier-league-2026"
	ChampionshipIDLiga1         = "idn-liga-1-2026"
)

func SeedChampionships() []championship.Championship {
	return []championship.Championship{
		{
			ID:       ChampionshipIDPremierLeague,
			Name:     "Premier League",
			APICode:  "PL",
			SyncMode: championship.SyncModeAuto,
			Status:   championship.StatusActive,
		},
		{
			ID:       ChampionshipIDLiga1,
			Name:     "Liga 1 Indonesia",
			SyncMode: championship.SyncModeManual,
			Status:   championship.StatusActive,
		},
	}
}

// SeedMatches places fixtures around the given day so a fresh local run has
// something to reconcile.
func SeedMatches(now time.Time) []match.Match {
	day := now.UTC().Truncate(24 * time.Hour)
	return []match.Match{
		{
			ID:             "pl-ars-liv",
			ChampionshipID: ChampionshipIDPremierLeague,
			HomeTeam:       match.Team{ID: "eng-ars", Name: "Arsenal FC"},
			AwayTeam:       match.Team{ID: "eng-liv", Name: "Liverpool FC"},
			ScheduledAt:    day.Add(12*time.Hour + 30*time.Minute),
			Round:          "Matchday 9",
			Status:         match.StatusScheduled,
		},
		{
			ID:             "pl-che-mci",
			ChampionshipID: ChampionshipIDPremierLeague,
			HomeTeam:       match.Team{ID: "eng-che", Name: "Chelsea FC"},
			AwayTeam:       match.Team{ID: "eng-mci", Name: "Manchester City FC"},
			ScheduledAt:    day.Add(15 * time.Hour),
			Round:          "Matchday 9",
			Status:         match.StatusScheduled,
		},
		{
			ID:             "idn-persija-persib",
			ChampionshipID: ChampionshipIDLiga1,
			HomeTeam:       match.Team{ID: "idn-persija", Name: "Persija Jakarta"},
			AwayTeam:       match.Team{ID: "idn-persib", Name: "Persib Bandung"},
			ScheduledAt:    day.Add(11 * time.Hour),
			Round:          "Pekan 7",
			Status:         match.StatusScheduled,
		},
	}
}

func SeedUsers() []user.User {
	return []user.User{
		{ID: "user-ayu", DisplayName: "Ayu"},
		{ID: "user-bima", DisplayName: "Bima"},
		{ID: "user-citra", DisplayName: "Citra"},
	}
}

func SeedPredictions() []prediction.Prediction {
	return []prediction.Prediction{
		{UserID: "user-ayu", MatchID: "pl-ars-liv", ChampionshipID: ChampionshipIDPremierLeague, PredictedHome: 2, PredictedAway: 1},
		{UserID: "user-bima", MatchID: "pl-ars-liv", ChampionshipID: ChampionshipIDPremierLeague, PredictedHome: 1, PredictedAway: 1},
		{UserID: "user-citra", MatchID: "pl-ars-liv", ChampionshipID: ChampionshipIDPremierLeague, PredictedHome: 0, PredictedAway: 2},
		{UserID: "user-ayu", MatchID: "pl-che-mci", ChampionshipID: ChampionshipIDPremierLeague, PredictedHome: 1, PredictedAway: 3},
		{UserID: "user-bima", MatchID: "idn-persija-persib", ChampionshipID: ChampionshipIDLiga1, PredictedHome: 2, PredictedAway: 2},
	}
}
