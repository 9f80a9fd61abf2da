package footballdata

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
)

// MapStatus translates a provider status into the internal vocabulary.
// Unknown values fall back to scheduled.
func MapStatus(raw string) match.Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_PLAY", "PAUSED", "EXTRA_TIME", "PENALTY_SHOOTOUT", "LIVE":
		return match.StatusLive
	case "FINISHED", "AWARDED":
		return match.StatusFinished
	case "CANCELLED":
		return match.StatusCancelled
	case "POSTPONED":
		return match.StatusPostponed
	case "SUSPENDED":
		return match.StatusSuspended
	default:
		return match.StatusScheduled
	}
}

func isLiveFamily(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_PLAY", "PAUSED", "EXTRA_TIME", "PENALTY_SHOOTOUT", "LIVE":
		return true
	}
	return false
}

func isFinishedFamily(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FINISHED", "AWARDED", "CANCELLED", "POSTPONED", "SUSPENDED":
		return true
	}
	return false
}

// ResolveScore picks the score the pool awards points against.
// Live matches always carry a number on both sides. Finished matches decided
// after regulation honor priority: regular prefers regularTime when the provider
// sent both sides of it.
func ResolveScore(rawStatus string, score feed.Score, priority settings.ScorePriority) (*int, *int) {
	status := strings.ToUpper(strings.TrimSpace(rawStatus))
	switch {
	case isLiveFamily(status):
		return intOrZero(score.FullTime.Home), intOrZero(score.FullTime.Away)
	case isFinishedFamily(status):
		home, away := score.FullTime.Home, score.FullTime.Away
		duration := strings.ToUpper(strings.TrimSpace(score.Duration))
		afterRegulation := duration == feed.DurationExtraTime || duration == feed.DurationPenaltyShootout
		if afterRegulation && priority != settings.ScorePriorityFull && score.RegularTime.Complete() {
			home, away = score.RegularTime.Home, score.RegularTime.Away
		}
		if home == nil && away == nil && (status == "FINISHED" || status == "AWARDED") {
			return intOrZero(nil), intOrZero(nil)
		}
		if home == nil && away == nil {
			return nil, nil
		}
		return intOrZero(home), intOrZero(away)
	default:
		return nil, nil
	}
}

func toFeedMatch(item matchItem, priority settings.ScorePriority) (feed.Match, bool) {
	if item.ID <= 0 {
		return feed.Match{}, false
	}
	kickoff, ok := parseUTCDate(item.UTCDate)
	if !ok {
		return feed.Match{}, false
	}

	score := feed.Score{
		RegularTime: feed.ScorePair{Home: item.Score.RegularTime.Home, Away: item.Score.RegularTime.Away},
		FullTime:    feed.ScorePair{Home: item.Score.FullTime.Home, Away: item.Score.FullTime.Away},
		Duration:    strings.TrimSpace(item.Score.Duration),
	}
	home, away := ResolveScore(item.Status, score, priority)

	return feed.Match{
		ExternalID:      strconv.FormatInt(item.ID, 10),
		HomeTeamName:    strings.TrimSpace(item.HomeTeam.Name),
		AwayTeamName:    strings.TrimSpace(item.AwayTeam.Name),
		RawStatus:       item.Status,
		Status:          MapStatus(item.Status),
		Score:           score,
		ResolvedHome:    home,
		ResolvedAway:    away,
		KickoffAt:       kickoff,
		CompetitionCode: strings.TrimSpace(item.Competition.Code),
	}, true
}

func parseUTCDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func intOrZero(value *int) *int {
	out := 0
	if value != nil {
		out = *value
	}
	return &out
}
