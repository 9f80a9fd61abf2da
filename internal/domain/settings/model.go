package settings

import (
	"strings"
	"time"
)

type ScorePriority string

const (
	ScorePriorityRegular ScorePriority = "regular"
	ScorePriorityFull    ScorePriority = "full"
)

const DefaultAPIUpdateInterval = 3

// Settings is the small mutable configuration consumed by the sync scheduler.
type Settings struct {
	APIUpdateInterval int
	ScorePriority     ScorePriority
	UpdatedAt         time.Time
}

func Default() Settings {
	return Settings{
		APIUpdateInterval: DefaultAPIUpdateInterval,
		ScorePriority:     ScorePriorityRegular,
	}
}

func NormalizeScorePriority(value string) ScorePriority {
	if ScorePriority(strings.ToLower(strings.TrimSpace(value))) == ScorePriorityFull {
		return ScorePriorityFull
	}
	return ScorePriorityRegular
}

// WithDefaults fills every missing or invalid field with its default.
func (s Settings) WithDefaults() Settings {
	if s.APIUpdateInterval <= 0 {
		s.APIUpdateInterval = DefaultAPIUpdateInterval
	}
	s.ScorePriority = NormalizeScorePriority(string(s.ScorePriority))
	return s
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.WithDefaults().APIUpdateInterval) * time.Minute
}
