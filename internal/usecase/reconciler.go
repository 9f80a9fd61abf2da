package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/feed"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
)

const DefaultDriftTolerance = 5 * time.Minute

type DiagnosticKind string

const (
	DiagnosticNoData        DiagnosticKind = "no_data"
	DiagnosticAmbiguousLink DiagnosticKind = "ambiguous_link"
)

// Diagnostic is a non-fatal note about a match the reconciler could not act on.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	MatchID string         `json:"matchId"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] match=%s %s", d.Kind, d.MatchID, d.Message)
}

type ReconcileOptions struct {
	DriftTolerance time.Duration
}

type ReconcileOutcome struct {
	Diffs       []match.Diff
	Diagnostics []Diagnostic
	Linked      int
}

type nameKey struct {
	home string
	away string
}

func newNameKey(home, away string) nameKey {
	return nameKey{home: strings.TrimSpace(home), away: strings.TrimSpace(away)}
}

// Reconcile compares stored matches with the feed and returns the minimal diff
// set. It never performs I/O, so running it twice over the same inputs after
// the first diff set was applied yields nothing.
func Reconcile(active []match.Match, feedMatches []feed.Match, opts ReconcileOptions) ReconcileOutcome {
	tolerance := opts.DriftTolerance
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}

	byExternalID := make(map[string]int, len(feedMatches))
	for i, item := range feedMatches {
		id := strings.TrimSpace(item.ExternalID)
		if id == "" {
			continue
		}
		if _, exists := byExternalID[id]; !exists {
			byExternalID[id] = i
		}
	}

	links := make(map[int]int, len(active))
	claimed := make(map[int]bool, len(active))
	for i, m := range active {
		if m.IsManualOverride || strings.TrimSpace(m.ExternalID) == "" {
			continue
		}
		if idx, ok := byExternalID[strings.TrimSpace(m.ExternalID)]; ok {
			links[i] = idx
			claimed[idx] = true
		}
	}

	feedByName := make(map[nameKey][]int, len(feedMatches))
	for i, item := range feedMatches {
		if claimed[i] {
			continue
		}
		key := newNameKey(item.HomeTeamName, item.AwayTeamName)
		feedByName[key] = append(feedByName[key], i)
	}
	pendingByName := make(map[nameKey]int, len(active))
	for i, m := range active {
		if _, linked := links[i]; linked || m.IsManualOverride {
			continue
		}
		pendingByName[newNameKey(m.HomeTeam.Name, m.AwayTeam.Name)]++
	}

	out := ReconcileOutcome{
		Diffs:       make([]match.Diff, 0, len(active)),
		Diagnostics: make([]Diagnostic, 0),
	}
	for i, m := range active {
		if m.IsManualOverride {
			continue
		}

		idx, linked := links[i]
		nameLinked := false
		if !linked {
			key := newNameKey(m.HomeTeam.Name, m.AwayTeam.Name)
			candidates := feedByName[key]
			switch {
			case len(candidates) == 1 && pendingByName[key] == 1:
				idx, linked, nameLinked = candidates[0], true, true
			case len(candidates) > 1 || (len(candidates) == 1 && pendingByName[key] > 1):
				out.Diagnostics = append(out.Diagnostics, Diagnostic{
					Kind:    DiagnosticAmbiguousLink,
					MatchID: m.ID,
					Message: fmt.Sprintf("%d feed entries and %d local matches share %q vs %q", len(candidates), pendingByName[key], key.home, key.away),
				})
				continue
			}
		}
		if !linked {
			if m.Status != match.StatusScheduled {
				out.Diagnostics = append(out.Diagnostics, Diagnostic{
					Kind:    DiagnosticNoData,
					MatchID: m.ID,
					Message: fmt.Sprintf("no feed entry for %s match %q vs %q", m.Status, m.HomeTeam.Name, m.AwayTeam.Name),
				})
			}
			continue
		}

		diff := diffMatch(m, feedMatches[idx], nameLinked, tolerance)
		if nameLinked && diff.ExternalID != nil {
			out.Linked++
		}
		if diff.IsEmpty() {
			continue
		}
		out.Diffs = append(out.Diffs, diff)
	}

	return out
}

func diffMatch(m match.Match, item feed.Match, nameLinked bool, tolerance time.Duration) match.Diff {
	diff := match.Diff{
		MatchID:        m.ID,
		ChampionshipID: m.ChampionshipID,
		PreviousStatus: m.Status,
	}

	if nameLinked {
		externalID := strings.TrimSpace(item.ExternalID)
		if externalID != "" && externalID != strings.TrimSpace(m.ExternalID) {
			diff.ExternalID = &externalID
		}
	}

	if !item.KickoffAt.IsZero() && absDuration(item.KickoffAt.Sub(m.ScheduledAt)) > tolerance {
		kickoff := item.KickoffAt.UTC()
		diff.ScheduledAt = &kickoff
	}

	// terminal rows keep their result; only link and kickoff drift may move
	if m.Status.IsTerminal() {
		return diff
	}

	candidate := item.Status
	if candidate.Valid() && candidate != m.Status {
		status := candidate
		diff.Status = &status
	}
	if item.ResolvedHome != nil && item.ResolvedAway != nil {
		if !sameScore(m.HomeScore, item.ResolvedHome) || !sameScore(m.AwayScore, item.ResolvedAway) {
			home, away := *item.ResolvedHome, *item.ResolvedAway
			diff.HomeScore = &home
			diff.AwayScore = &away
		}
	}
	diff.EntersFinished = candidate == match.StatusFinished && m.Status != match.StatusFinished

	return diff
}

// FinalScore returns the score a finished diff leaves on the match.
func FinalScore(m match.Match, diff match.Diff) (int, int, bool) {
	home, away := m.HomeScore, m.AwayScore
	if diff.HomeScore != nil {
		home = diff.HomeScore
	}
	if diff.AwayScore != nil {
		away = diff.AwayScore
	}
	if home == nil || away == nil {
		return 0, 0, false
	}
	return *home, *away, true
}

func sameScore(current, candidate *int) bool {
	if current == nil || candidate == nil {
		return current == nil && candidate == nil
	}
	return *current == *candidate
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
