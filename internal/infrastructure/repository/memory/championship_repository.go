package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
)

type ChampionshipRepository struct {
	mu    sync.RWMutex
	items map[string]championship.Championship
}

func NewChampionshipRepository(items []championship.Championship) *ChampionshipRepository {
	byID := make(map[string]championship.Championship, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &ChampionshipRepository{items: byID}
}

func (r *ChampionshipRepository) GetByID(_ context.Context, championshipID string) (championship.Championship, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[championshipID]
	return item, ok, nil
}

func (r *ChampionshipRepository) ListByIDs(_ context.Context, championshipIDs []string) ([]championship.Championship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]championship.Championship, 0, len(championshipIDs))
	for _, id := range championshipIDs {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}
