package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/prediction-pool/internal/domain/settings"
	"github.com/riskibarqy/prediction-pool/internal/infrastructure/repository/memory"
)

type failingSettingsRepo struct{}

func (failingSettingsRepo) Get(_ context.Context) (settings.Settings, bool, error) {
	return settings.Settings{}, false, errors.New("connection refused")
}

func (failingSettingsRepo) Save(_ context.Context, _ settings.Settings) error {
	return errors.New("connection refused")
}

func TestSettingsService_GetFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	partial := memory.NewSettingsRepository()
	_ = partial.Save(context.Background(), settings.Settings{ScorePriority: "FULL"})

	cases := []struct {
		name     string
		repo     settings.Repository
		interval int
		priority settings.ScorePriority
	}{
		{name: "missing row", repo: memory.NewSettingsRepository(), interval: 3, priority: settings.ScorePriorityRegular},
		{name: "store error", repo: failingSettingsRepo{}, interval: 3, priority: settings.ScorePriorityRegular},
		{name: "partial row", repo: partial, interval: 3, priority: settings.ScorePriorityFull},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NewSettingsService(tc.repo, nil).Get(context.Background())
			if got.APIUpdateInterval != tc.interval || got.ScorePriority != tc.priority {
				t.Fatalf("unexpected settings: got=%+v", got)
			}
		})
	}
}

func TestSettingsService_UpdateValidates(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(memory.NewSettingsRepository(), nil)

	invalid := []UpdateSettingsInput{
		{APIUpdateInterval: 0},
		{APIUpdateInterval: 1441},
		{APIUpdateInterval: 5, ScorePriority: "extra"},
	}
	for _, input := range invalid {
		if _, err := svc.Update(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", input, err)
		}
	}

	saved, err := svc.Update(context.Background(), UpdateSettingsInput{APIUpdateInterval: 10, ScorePriority: " Full "})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if saved.ScorePriority != settings.ScorePriorityFull {
		t.Fatalf("unexpected priority: got=%s", saved.ScorePriority)
	}
	if got := svc.Get(context.Background()); got.APIUpdateInterval != 10 {
		t.Fatalf("update not persisted: got=%+v", got)
	}
}
