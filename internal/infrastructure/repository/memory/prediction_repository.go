package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
)

// PredictionRepository credits owners through the paired UserRepository so
// totals move only when a prediction is actually scored.
type PredictionRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.Prediction
	users *UserRepository
}

func NewPredictionRepository(predictions []prediction.Prediction, users *UserRepository) *PredictionRepository {
	if users == nil {
		users = NewUserRepository(nil)
	}
	items := make(map[string]prediction.Prediction, len(predictions))
	for _, item := range predictions {
		if item.ID == "" {
			item.ID = prediction.BuildID(item.MatchID, item.UserID)
		}
		items[item.ID] = item
		users.join(item.ChampionshipID, item.UserID)
	}
	return &PredictionRepository{items: items, users: users}
}

func (r *PredictionRepository) ListByMatch(_ context.Context, matchID string) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if item.MatchID == matchID {
			out = append(out, clonePrediction(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PredictionRepository) AwardPoints(_ context.Context, awards []prediction.Award) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for _, award := range awards {
		item, ok := r.items[award.PredictionID]
		if !ok || item.Points != nil {
			continue
		}
		item.Points = intPtr(award.Points)
		r.items[award.PredictionID] = item
		r.users.addPoints(item.UserID, award.Points)
		written++
	}
	return written, nil
}

func (r *PredictionRepository) ListMatchIDsWithUnscored(_ context.Context, matchIDs []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, item := range r.items {
		if item.Points != nil {
			continue
		}
		if _, ok := wanted[item.MatchID]; ok {
			found[item.MatchID] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for _, id := range matchIDs {
		if _, ok := found[id]; ok {
			out = append(out, id)
			delete(found, id)
		}
	}
	return out, nil
}

func clonePrediction(item prediction.Prediction) prediction.Prediction {
	if item.Points != nil {
		item.Points = intPtr(*item.Points)
	}
	return item
}
