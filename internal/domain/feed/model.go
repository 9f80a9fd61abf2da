package feed

import (
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
)

const (
	DurationRegular         = "REGULAR"
	DurationExtraTime       = "EXTRA_TIME"
	DurationPenaltyShootout = "PENALTY_SHOOTOUT"
)

type ScorePair struct {
	Home *int
	Away *int
}

func (p ScorePair) Complete() bool {
	return p.Home != nil && p.Away != nil
}

type Score struct {
	RegularTime ScorePair
	FullTime    ScorePair
	Duration    string
}

// Match is one provider record normalized to internal vocabulary. It is never persisted.
type Match struct {
	ExternalID      string
	HomeTeamName    string
	AwayTeamName    string
	RawStatus       string
	Status          match.Status
	Score           Score
	ResolvedHome    *int
	ResolvedAway    *int
	KickoffAt       time.Time
	CompetitionCode string
}

type Filter struct {
	CompetitionCodes []string
	DateFrom         time.Time
	DateTo           time.Time
	Statuses         []string
	ScorePriority    settings.ScorePriority
}
