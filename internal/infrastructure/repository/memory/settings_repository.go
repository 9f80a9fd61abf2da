package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
)

type SettingsRepository struct {
	mu     sync.RWMutex
	value  settings.Settings
	exists bool
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) Get(_ context.Context) (settings.Settings, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.value, r.exists, nil
}

func (r *SettingsRepository) Save(_ context.Context, value settings.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.value = value
	r.exists = true
	return nil
}
