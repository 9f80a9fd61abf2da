package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	basecache "github.com/riskibarqy/prediction-pool/internal/platform/cache"
)

const settingsKey = "settings:current"

type SettingsRepository struct {
	next  settings.Repository
	cache *basecache.Store[cachedSettings]
}

func NewSettingsRepository(next settings.Repository, ttl time.Duration) *SettingsRepository {
	return &SettingsRepository{next: next, cache: basecache.NewStore[cachedSettings]("settings", ttl)}
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.Settings, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, settingsKey, func(ctx context.Context) (cachedSettings, error) {
		item, exists, err := r.next.Get(ctx)
		if err != nil {
			return cachedSettings{}, err
		}
		return cachedSettings{value: item, exists: exists}, nil
	})
	if err != nil {
		return settings.Settings{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *SettingsRepository) Save(ctx context.Context, value settings.Settings) error {
	if err := r.next.Save(ctx, value); err != nil {
		return err
	}
	r.cache.Delete(ctx, settingsKey)
	return nil
}

type cachedSettings struct {
	value  settings.Settings
	exists bool
}

// ChampionshipRepository caches championship lookups. Championships change
// through admin tooling only, so entries simply age out with the store TTL.
type ChampionshipRepository struct {
	next  championship.Repository
	byID  *basecache.Store[cachedChampionshipByID]
	lists *basecache.Store[[]championship.Championship]
}

func NewChampionshipRepository(next championship.Repository, ttl time.Duration) *ChampionshipRepository {
	return &ChampionshipRepository{
		next:  next,
		byID:  basecache.NewStore[cachedChampionshipByID]("championship_by_id", ttl),
		lists: basecache.NewStore[[]championship.Championship]("championship_lists", ttl),
	}
}

func (r *ChampionshipRepository) GetByID(ctx context.Context, championshipID string) (championship.Championship, bool, error) {
	cached, err := r.byID.GetOrLoad(ctx, championshipID, func(ctx context.Context) (cachedChampionshipByID, error) {
		item, exists, err := r.next.GetByID(ctx, championshipID)
		if err != nil {
			return cachedChampionshipByID{}, err
		}
		return cachedChampionshipByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return championship.Championship{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *ChampionshipRepository) ListByIDs(ctx context.Context, championshipIDs []string) ([]championship.Championship, error) {
	if len(championshipIDs) == 0 {
		return nil, nil
	}

	ids := append([]string(nil), championshipIDs...)
	sort.Strings(ids)
	items, err := r.lists.GetOrLoad(ctx, strings.Join(ids, ","), func(ctx context.Context) ([]championship.Championship, error) {
		items, err := r.next.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return append([]championship.Championship(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]championship.Championship(nil), items...), nil
}

type cachedChampionshipByID struct {
	value  championship.Championship
	exists bool
}
