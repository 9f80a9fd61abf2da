package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_KeysMessagesByMatch(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	publisher := NewKafkaPublisher(writer, "match.finished", logging.NewNop())
	finishedAt := time.Date(2026, 2, 25, 21, 0, 0, 0, time.UTC)

	err := publisher.PublishMatchFinished(context.Background(), []usecase.MatchFinishedEvent{
		{MatchID: "m-1", ChampionshipID: "c-1", HomeScore: 2, AwayScore: 1, PredictionsScored: 3, FinishedAt: finishedAt},
		{MatchID: "m-2", ChampionshipID: "c-1", FinishedAt: finishedAt},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.messages) != 2 {
		t.Fatalf("unexpected message count: got=%d want=2", len(writer.messages))
	}
	if got := string(writer.messages[0].Key); got != "m-1" {
		t.Fatalf("unexpected key: got=%s want=m-1", got)
	}

	var decoded usecase.MatchFinishedEvent
	if err := sonic.Unmarshal(writer.messages[0].Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.HomeScore != 2 || decoded.AwayScore != 1 || decoded.PredictionsScored != 3 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestKafkaPublisher_EmptyBatchSkipsWriter(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{err: errors.New("should not be called")}
	publisher := NewKafkaPublisher(writer, "match.finished", nil)
	if err := publisher.PublishMatchFinished(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKafkaPublisher_WrapsWriterError(t *testing.T) {
	t.Parallel()

	broker := errors.New("broker down")
	publisher := NewKafkaPublisher(&recordingWriter{err: broker}, "match.finished", nil)
	err := publisher.PublishMatchFinished(context.Background(), []usecase.MatchFinishedEvent{{MatchID: "m-1"}})
	if !errors.Is(err, broker) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}
