package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

const maxAPIUpdateInterval = 24 * 60

type UpdateSettingsInput struct {
	APIUpdateInterval int
	ScorePriority     string
}

type SettingsService struct {
	repo   settings.Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewSettingsService(repo settings.Repository, logger *logging.Logger) *SettingsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SettingsService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Get never fails on missing data: an absent or partial row falls back to
// defaults. Store errors are logged and also answered with defaults so a
// scheduler tick keeps its cadence.
func (s *SettingsService) Get(ctx context.Context) settings.Settings {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettingsService.Get")
	defer span.End()

	value, exists, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "load settings failed, using defaults", "error", err)
		return settings.Default()
	}
	if !exists {
		return settings.Default()
	}
	return value.WithDefaults()
}

func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (settings.Settings, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettingsService.Update")
	defer span.End()

	if input.APIUpdateInterval < 1 || input.APIUpdateInterval > maxAPIUpdateInterval {
		return settings.Settings{}, fmt.Errorf("%w: apiUpdateInterval must be between 1 and %d", ErrInvalidInput, maxAPIUpdateInterval)
	}
	priority := strings.ToLower(strings.TrimSpace(input.ScorePriority))
	if priority == "" {
		priority = string(settings.ScorePriorityRegular)
	}
	if priority != string(settings.ScorePriorityRegular) && priority != string(settings.ScorePriorityFull) {
		return settings.Settings{}, fmt.Errorf("%w: scorePriority must be regular or full", ErrInvalidInput)
	}

	value := settings.Settings{
		APIUpdateInterval: input.APIUpdateInterval,
		ScorePriority:     settings.ScorePriority(priority),
		UpdatedAt:         s.now().UTC(),
	}
	if err := s.repo.Save(ctx, value); err != nil {
		return settings.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	s.logger.InfoContext(ctx, "settings updated",
		"api_update_interval", value.APIUpdateInterval,
		"score_priority", value.ScorePriority,
	)
	return value, nil
}
