package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits one message per finished match, keyed by match id so
// consumers see a match's events in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logging.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer messageWriter, topic string, logger *logging.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger.Named("kafka-publisher"),
	}
}

func (p *KafkaPublisher) PublishMatchFinished(ctx context.Context, events []usecase.MatchFinishedEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := sonic.Marshal(event)
		if err != nil {
			return crerr.Wrapf(err, "encode match finished event match=%s", event.MatchID)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.MatchID),
			Value: payload,
			Time:  event.FinishedAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte("match.finished")},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return crerr.Wrapf(err, "publish %d match finished events topic=%s", len(messages), p.topic)
	}
	p.logger.DebugContext(ctx, "match finished events published", "topic", p.topic, "count", len(messages))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
