package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/match"
)

type MatchRepository struct {
	mu    sync.RWMutex
	items map[string]match.Match
	now   func() time.Time
}

func NewMatchRepository(matches []match.Match) *MatchRepository {
	items := make(map[string]match.Match, len(matches))
	for _, item := range matches {
		items[item.ID] = cloneMatch(item)
	}
	return &MatchRepository{items: items, now: time.Now}
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[matchID]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) ListActive(_ context.Context, query match.ActiveQuery) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scope := make(map[string]struct{}, len(query.ChampionshipIDs))
	for _, id := range query.ChampionshipIDs {
		scope[id] = struct{}{}
	}

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if len(scope) > 0 {
			if _, ok := scope[item.ChampionshipID]; !ok {
				continue
			}
		}
		if !inActiveWindow(item, query) {
			continue
		}
		out = append(out, cloneMatch(item))
	}
	sortMatches(out)
	return out, nil
}

func inActiveWindow(item match.Match, query match.ActiveQuery) bool {
	switch item.Status {
	case match.StatusLive:
		return true
	case match.StatusScheduled:
		return !item.ScheduledAt.Before(query.DayStart) && item.ScheduledAt.Before(query.DayEnd)
	case match.StatusFinished:
		return !query.FinishedSince.IsZero() && !item.ScheduledAt.Before(query.FinishedSince)
	default:
		return false
	}
}

func (r *MatchRepository) ListFinishedSince(_ context.Context, since time.Time) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if item.Status != match.StatusFinished || item.ScheduledAt.Before(since) {
			continue
		}
		out = append(out, cloneMatch(item))
	}
	sortMatches(out)
	return out, nil
}

func (r *MatchRepository) ApplyDiffs(_ context.Context, diffs []match.Diff) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, diff := range diffs {
		if _, ok := r.items[diff.MatchID]; !ok {
			return nil, fmt.Errorf("apply diff: match=%s not found", diff.MatchID)
		}
	}

	now := r.now().UTC()
	written := make([]string, 0, len(diffs))
	for _, diff := range diffs {
		item := r.items[diff.MatchID]
		if item.IsManualOverride || diff.IsEmpty() {
			continue
		}
		if diff.Status != nil {
			item.Status = *diff.Status
		}
		if diff.HomeScore != nil {
			item.HomeScore = intPtr(*diff.HomeScore)
		}
		if diff.AwayScore != nil {
			item.AwayScore = intPtr(*diff.AwayScore)
		}
		if diff.ScheduledAt != nil {
			item.ScheduledAt = diff.ScheduledAt.UTC()
		}
		if diff.ExternalID != nil {
			item.ExternalID = *diff.ExternalID
		}
		item.LastUpdatedAt = now
		r.items[diff.MatchID] = item
		written = append(written, diff.MatchID)
	}
	return written, nil
}

func (r *MatchRepository) SetManualResult(_ context.Context, matchID string, homeScore, awayScore int) (match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return match.Match{}, fmt.Errorf("set manual result: match=%s not found", matchID)
	}
	item.Status = match.StatusFinished
	item.HomeScore = intPtr(homeScore)
	item.AwayScore = intPtr(awayScore)
	item.IsManualOverride = true
	item.LastUpdatedAt = r.now().UTC()
	r.items[matchID] = item
	return cloneMatch(item), nil
}

func sortMatches(items []match.Match) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScheduledAt.Equal(items[j].ScheduledAt) {
			return items[i].ScheduledAt.Before(items[j].ScheduledAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneMatch(item match.Match) match.Match {
	if item.HomeScore != nil {
		item.HomeScore = intPtr(*item.HomeScore)
	}
	if item.AwayScore != nil {
		item.AwayScore = intPtr(*item.AwayScore)
	}
	return item
}

func intPtr(v int) *int {
	return &v
}
