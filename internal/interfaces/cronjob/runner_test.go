package cronjob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type recordingSyncRunner struct {
	inputs []usecase.SyncInput
	err    error
}

func (r *recordingSyncRunner) Run(_ context.Context, input usecase.SyncInput) (usecase.SyncResult, error) {
	r.inputs = append(r.inputs, input)
	return usecase.SyncResult{RunID: "run-1", Status: syncrun.StatusSucceeded}, r.err
}

type recordingScorer struct {
	since []time.Time
}

func (r *recordingScorer) ScorePending(_ context.Context, since time.Time) (usecase.ScoreBatchResult, error) {
	r.since = append(r.since, since)
	return usecase.ScoreBatchResult{Matches: 1, Scored: 4}, nil
}

func TestNewRunner_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(&recordingSyncRunner{}, nil, Config{SyncSpec: "every minute"}, logging.NewNop())
	if err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestNewRunner_SkipsEmptySpecs(t *testing.T) {
	t.Parallel()

	runner, err := NewRunner(&recordingSyncRunner{}, &recordingScorer{}, Config{SyncSpec: "*/5 * * * *"}, logging.NewNop())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if got := runner.Entries(); got != 1 {
		t.Fatalf("unexpected entries: got=%d want=1", got)
	}

	idle, err := NewRunner(nil, nil, Config{}, logging.NewNop())
	if err != nil {
		t.Fatalf("new idle runner: %v", err)
	}
	done := make(chan struct{})
	go func() {
		idle.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("runner without entries must return immediately")
	}
}

func TestRunner_SyncJobUsesCronTrigger(t *testing.T) {
	t.Parallel()

	syncRunner := &recordingSyncRunner{err: usecase.ErrSyncInProgress}
	runner, err := NewRunner(syncRunner, nil, Config{SyncSpec: "* * * * *"}, logging.NewNop())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	runner.runSync()
	syncRunner.err = errors.New("feed down")
	runner.runSync()

	if len(syncRunner.inputs) != 2 {
		t.Fatalf("unexpected runs: got=%d want=2", len(syncRunner.inputs))
	}
	for _, input := range syncRunner.inputs {
		if input.Trigger != syncrun.TriggerCron || input.ChampionshipID != "" {
			t.Fatalf("unexpected sync input: %+v", input)
		}
	}
}

func TestRunner_PendingScoringUsesLookback(t *testing.T) {
	t.Parallel()

	scorer := &recordingScorer{}
	runner, err := NewRunner(nil, scorer, Config{
		PendingScoringSpec: "*/15 * * * *",
		PendingLookback:    72 * time.Hour,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	runner.now = func() time.Time { return now }

	runner.runPendingScoring()

	if len(scorer.since) != 1 {
		t.Fatalf("unexpected scoring calls: got=%d want=1", len(scorer.since))
	}
	want := now.Add(-72 * time.Hour)
	if !scorer.since[0].Equal(want) {
		t.Fatalf("unexpected since: got=%v want=%v", scorer.since[0], want)
	}
}
