package prediction

import "time"

const (
	PointsExact   = 3
	PointsOutcome = 1
	PointsMiss    = 0
)

// Prediction is one user's forecast for one match.
type Prediction struct {
	ID             string
	UserID         string
	MatchID        string
	ChampionshipID string
	PredictedHome  int
	PredictedAway  int
	Points         *int
	UpdatedAt      time.Time
}

func BuildID(matchID, userID string) string {
	return matchID + "_" + userID
}

func (p Prediction) IsScored() bool {
	return p.Points != nil
}

// Award is the points assignment for one prediction and its owner.
type Award struct {
	PredictionID string
	UserID       string
	MatchID      string
	Points       int
}

// CalculatePoints scores a prediction against a final result.
func CalculatePoints(predictedHome, predictedAway, finalHome, finalAway int) int {
	if predictedHome == finalHome && predictedAway == finalAway {
		return PointsExact
	}
	if sign(predictedHome-predictedAway) == sign(finalHome-finalAway) {
		return PointsOutcome
	}
	return PointsMiss
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
