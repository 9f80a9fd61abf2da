package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

const maxRequestBodyBytes = 64 << 10

type HandlerDependencies struct {
	Sync        *usecase.SyncService
	Scheduler   *usecase.IntervalScheduler
	Settings    *usecase.SettingsService
	Scoring     *usecase.ScoringService
	Leaderboard *usecase.LeaderboardService
	Jobs        *usecase.JobOrchestratorService
}

type Handler struct {
	syncService        *usecase.SyncService
	scheduler          *usecase.IntervalScheduler
	settingsService    *usecase.SettingsService
	scoringService     *usecase.ScoringService
	leaderboardService *usecase.LeaderboardService
	jobOrchestrator    *usecase.JobOrchestratorService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(deps HandlerDependencies, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		syncService:        deps.Sync,
		scheduler:          deps.Scheduler,
		settingsService:    deps.Settings,
		scoringService:     deps.Scoring,
		leaderboardService: deps.Leaderboard,
		jobOrchestrator:    deps.Jobs,
		logger:             logger.Named("httpapi"),
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON decodes a strict JSON body. An empty body leaves target untouched.
func decodeJSON(r *http.Request, target any) error {
	decoder := jsoniter.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func requireDependency(ok bool, name string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s is not configured", usecase.ErrDependencyUnavailable, name)
}
