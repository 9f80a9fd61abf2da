package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/prediction-pool/external/footballdata"
	"github.com/riskibarqy/prediction-pool/external/jobqueue"
	"github.com/riskibarqy/prediction-pool/internal/config"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/events"
	"github.com/riskibarqy/prediction-pool/internal/interfaces/cronjob"
	"github.com/riskibarqy/prediction-pool/internal/interfaces/httpapi"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/platform/metrics"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type closer struct {
	name string
	fn   func() error
}

// App owns the HTTP server and the background sync drivers.
type App struct {
	server    *http.Server
	scheduler *usecase.IntervalScheduler
	cron      *cronjob.Runner
	closers   []closer
	logger    *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	st, closers, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher := usecase.NewNoopMatchEventPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(
			events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaMatchEventsTopic),
			cfg.KafkaMatchEventsTopic,
			logger,
		)
		closers = append(closers, closer{name: "kafka", fn: kafkaPublisher.Close})
		publisher = kafkaPublisher
	}

	feedClient := footballdata.NewClient(footballdata.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.FootballDataTimeout},
		BaseURL:        cfg.FootballDataBaseURL,
		Token:          cfg.FootballDataToken,
		Timeout:        cfg.FootballDataTimeout,
		MaxRetries:     cfg.FootballDataMaxRetries,
		Logger:         logger,
		CircuitBreaker: cfg.FootballDataCircuit,
	})

	settingsSvc := usecase.NewSettingsService(st.settings, logger)
	scoringSvc := usecase.NewScoringService(st.matches, st.predictions, cfg.ScoringWorkers, logger)
	syncSvc := usecase.NewSyncService(usecase.SyncDependencies{
		MatchRepo:        st.matches,
		ChampionshipRepo: st.championships,
		RunRepo:          st.runs,
		Feed:             feedClient,
		Writer:           usecase.NewMatchWriter(st.matches, logger),
		Scoring:          scoringSvc,
		Settings:         settingsSvc,
		Lock:             st.lock,
		Events:           publisher,
	}, usecase.SyncConfig{
		DayLocation:      cfg.SyncDayLocation,
		FinishedLookback: cfg.SyncFinishedLookback,
		FeedWindowMargin: cfg.SyncFeedWindowMargin,
	}, logger)

	var queue usecase.JobQueue
	if cfg.QStashEnabled {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			ForwardAuthToken: cfg.SyncSecret,
			CircuitBreaker:   cfg.QStashCircuit,
		}, logger)
	}
	jobs := usecase.NewJobOrchestratorService(settingsSvc, queue, logger)

	app := &App{closers: closers, logger: logger}
	if cfg.AutoSyncEnabled {
		app.scheduler = usecase.NewIntervalScheduler(syncSvc, settingsSvc, cfg.AutoSyncTick, logger)
	}
	if cfg.CronEnabled {
		app.cron, err = cronjob.NewRunner(syncSvc, scoringSvc, cronjob.Config{
			SyncSpec:           cfg.CronSyncSpec,
			PendingScoringSpec: cfg.CronPendingScoringSpec,
			PendingLookback:    cfg.PendingScoringLookback,
			Location:           cfg.SyncDayLocation,
		}, logger)
		if err != nil {
			closeAll(logger, closers)
			return nil, err
		}
	}

	handler := httpapi.NewHandler(httpapi.HandlerDependencies{
		Sync:        syncSvc,
		Scheduler:   app.scheduler,
		Settings:    settingsSvc,
		Scoring:     scoringSvc,
		Leaderboard: usecase.NewLeaderboardService(st.championships, st.users),
		Jobs:        jobs,
	}, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		SyncSecret:         cfg.SyncSecret,
		AdminSecret:        cfg.AdminSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		SwaggerEnabled:     cfg.SwaggerEnabled,
		Metrics:            metrics.Handler(),
	}, logger)

	app.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return app, nil
}

// Run serves HTTP and drives the background schedulers until ctx is done or
// the listener fails, then drains everything.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var wg conc.WaitGroup
	if a.scheduler != nil {
		wg.Go(func() { a.scheduler.Run(bgCtx) })
	}
	if a.cron != nil {
		wg.Go(func() { a.cron.Run(bgCtx) })
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", "error", err)
	}
	stopBackground()
	wg.Wait()

	closeAll(a.logger, a.closers)
	a.logger.Info("http server stopped")
	return runErr
}

func closeAll(logger *logging.Logger, closers []closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(); err != nil {
			logger.Warn("close resource failed", "resource", closers[i].name, "error", err)
		}
	}
}
