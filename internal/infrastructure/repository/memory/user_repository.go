package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/prediction-pool/internal/domain/user"
)

type UserRepository struct {
	mu           sync.RWMutex
	items        map[string]user.User
	participants map[string]map[string]struct{}
}

func NewUserRepository(users []user.User) *UserRepository {
	items := make(map[string]user.User, len(users))
	for _, item := range users {
		items[item.ID] = item
	}
	return &UserRepository{
		items:        items,
		participants: make(map[string]map[string]struct{}),
	}
}

func (r *UserRepository) GetByID(_ context.Context, userID string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID]
	return item, ok, nil
}

func (r *UserRepository) ListLeaderboard(_ context.Context, championshipID string, limit int) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.participants[championshipID]
	out := make([]user.User, 0, len(members))
	for userID := range members {
		if item, ok := r.items[userID]; ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepository) join(championshipID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.participants[championshipID]
	if !ok {
		members = make(map[string]struct{})
		r.participants[championshipID] = members
	}
	members[userID] = struct{}{}
	if _, ok := r.items[userID]; !ok {
		r.items[userID] = user.User{ID: userID}
	}
}

func (r *UserRepository) addPoints(userID string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := r.items[userID]
	item.ID = userID
	item.TotalPoints += points
	r.items[userID] = item
}
