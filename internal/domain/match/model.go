package match

import (
	"strings"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusPostponed Status = "postponed"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// MaxBatchOps bounds the number of per-row updates committed together.
const MaxBatchOps = 500

type Team struct {
	ID       string
	Name     string
	CrestURL string
}

// Match is the locally persisted record of one fixture.
type Match struct {
	ID               string
	ChampionshipID   string
	HomeTeam         Team
	AwayTeam         Team
	ExternalID       string
	ScheduledAt      time.Time
	Round            string
	Status           Status
	HomeScore        *int
	AwayScore        *int
	LastUpdatedAt    time.Time
	IsManualOverride bool
	BettingReopened  bool
}

func NormalizeStatus(value string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusLive:
		return StatusLive
	case StatusFinished:
		return StatusFinished
	case StatusPostponed:
		return StatusPostponed
	case StatusSuspended:
		return StatusSuspended
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusScheduled
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusFinished, StatusPostponed, StatusSuspended, StatusCancelled:
		return true
	default:
		return false
	}
}

// HasKickedOff reports whether a scheduled match is past its kickoff at now.
func (m Match) HasKickedOff(now time.Time) bool {
	return !m.ScheduledAt.IsZero() && !m.ScheduledAt.After(now)
}

// Diff is the minimal change set for one match. Nil fields are unchanged.
type Diff struct {
	MatchID        string
	ChampionshipID string
	PreviousStatus Status
	Status         *Status
	HomeScore      *int
	AwayScore      *int
	ScheduledAt    *time.Time
	ExternalID     *string
	EntersFinished bool
}

func (d Diff) IsEmpty() bool {
	return d.Status == nil &&
		d.HomeScore == nil &&
		d.AwayScore == nil &&
		d.ScheduledAt == nil &&
		d.ExternalID == nil
}

// IsLinkOnly reports whether the diff only associates an external id.
func (d Diff) IsLinkOnly() bool {
	return d.ExternalID != nil &&
		d.Status == nil &&
		d.HomeScore == nil &&
		d.AwayScore == nil &&
		d.ScheduledAt == nil
}

// ActiveQuery selects the working set of one reconciliation cycle.
type ActiveQuery struct {
	ChampionshipIDs []string
	DayStart        time.Time
	DayEnd          time.Time
	FinishedSince   time.Time
}
