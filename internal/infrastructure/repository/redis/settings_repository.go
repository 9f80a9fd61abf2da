package redis

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"

	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

type settingsPayload struct {
	APIUpdateInterval int       `json:"apiUpdateInterval"`
	ScorePriority     string    `json:"scorePriority"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SettingsRepository shares the settings row between instances. Redis
// failures fall through to the next repository and only get logged.
type SettingsRepository struct {
	next   settings.Repository
	client goredis.UniversalClient
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

func NewSettingsRepository(next settings.Repository, client goredis.UniversalClient, keyPrefix string, ttl time.Duration, logger *logging.Logger) *SettingsRepository {
	if logger == nil {
		logger = logging.Default()
	}
	key := "settings:current"
	if keyPrefix != "" {
		key = keyPrefix + ":" + key
	}
	return &SettingsRepository{
		next:   next,
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.Named("settings-redis"),
	}
}

func (r *SettingsRepository) Get(ctx context.Context) (settings.Settings, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	switch {
	case err == nil:
		var payload settingsPayload
		decodeErr := sonic.Unmarshal(raw, &payload)
		if decodeErr == nil {
			return settings.Settings{
				APIUpdateInterval: payload.APIUpdateInterval,
				ScorePriority:     settings.ScorePriority(payload.ScorePriority),
				UpdatedAt:         payload.UpdatedAt,
			}, true, nil
		}
		r.logger.WarnContext(ctx, "decode cached settings failed", "key", r.key, "error", decodeErr)
	case err != goredis.Nil:
		r.logger.WarnContext(ctx, "read cached settings failed", "key", r.key, "error", err)
	}

	value, exists, err := r.next.Get(ctx)
	if err != nil || !exists {
		return value, exists, err
	}
	r.store(ctx, value)
	return value, true, nil
}

func (r *SettingsRepository) Save(ctx context.Context, value settings.Settings) error {
	if err := r.next.Save(ctx, value); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		r.logger.WarnContext(ctx, "invalidate cached settings failed", "key", r.key, "error", err)
	}
	return nil
}

func (r *SettingsRepository) store(ctx context.Context, value settings.Settings) {
	raw, err := sonic.Marshal(settingsPayload{
		APIUpdateInterval: value.APIUpdateInterval,
		ScorePriority:     string(value.ScorePriority),
		UpdatedAt:         value.UpdatedAt,
	})
	if err != nil {
		r.logger.WarnContext(ctx, "encode settings for cache failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "write cached settings failed", "key", r.key, "error", err)
	}
}
