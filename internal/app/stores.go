package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/riskibarqy/prediction-pool/internal/config"
	"github.com/riskibarqy/prediction-pool/internal/domain/championship"
	"github.com/riskibarqy/prediction-pool/internal/domain/match"
	"github.com/riskibarqy/prediction-pool/internal/domain/prediction"
	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/domain/user"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/lock"
	cacherepo "github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type stores struct {
	matches       match.Repository
	predictions   prediction.Repository
	users         user.Repository
	championships championship.Repository
	settings      settings.Repository
	runs          syncrun.Repository
	lock          usecase.CycleLock
}

func buildStores(ctx context.Context, cfg config.Config, logger *logging.Logger) (stores, []closer, error) {
	var (
		out     stores
		closers []closer
	)

	if cfg.UseMemoryStore() {
		logger.Warn("DB_URL empty, using in-memory seed data")
		users := memory.NewUserRepository(memory.SeedUsers())
		out.matches = memory.NewMatchRepository(memory.SeedMatches(time.Now()))
		out.users = users
		out.predictions = memory.NewPredictionRepository(memory.SeedPredictions(), users)
		out.championships = memory.NewChampionshipRepository(memory.SeedChampionships())
		out.settings = memory.NewSettingsRepository()
		out.runs = memory.NewSyncRunRepository()
	} else {
		db, err := openDB(ctx, cfg.DBURL, cfg.DBDisablePreparedBinary)
		if err != nil {
			return stores{}, nil, err
		}
		closers = append(closers, closer{name: "postgres", fn: db.Close})
		out.matches = postgres.NewMatchRepository(db)
		out.users = postgres.NewUserRepository(db)
		out.predictions = postgres.NewPredictionRepository(db)
		out.championships = postgres.NewChampionshipRepository(db)
		out.settings = postgres.NewSettingsRepository(db)
		out.runs = postgres.NewSyncRunRepository(db)
	}

	out.lock = usecase.NewLocalCycleLock()
	if cfg.RedisURL != "" {
		client, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			closeAll(logger, closers)
			return stores{}, nil, err
		}
		closers = append(closers, closer{name: "redis", fn: client.Close})
		out.lock = lock.NewRedisCycleLock(client, cfg.RedisKeyPrefix, cfg.SyncLockTTL, logger)
		out.settings = redisrepo.NewSettingsRepository(out.settings, client, cfg.RedisKeyPrefix, cfg.SettingsCacheTTL, logger)
	}

	out.settings = cacherepo.NewSettingsRepository(out.settings, cfg.SettingsCacheTTL)
	out.championships = cacherepo.NewChampionshipRepository(out.championships, 5*time.Minute)
	return out, closers, nil
}

func openRedis(ctx context.Context, rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
