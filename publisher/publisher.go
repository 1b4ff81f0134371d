/*
Package publisher emits rebate.CalculationEvent values after a calculation
has been persisted.

IMPLEMENTATIONS:
  Kafka: JSON messages on a topic via segmentio/kafka-go, keyed by rebate
         identifier so one rebate's events stay ordered within a partition.
  Log:   Writes the event to a zap logger. Used when no brokers are configured.
  Noop:  Discards events.

USAGE:
  pub := publisher.NewKafka([]string{"localhost:9092"}, "rebate.calculations", log)
  defer pub.Close()
  svc := rebate.NewService(rebates, products, selector, rebate.WithPublisher(pub))
*/
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"
	"github.com/warp/rebate-engine/rebate"
	"go.uber.org/zap"
)

// DefaultTopic is the topic calculation events are written to.
const DefaultTopic = "rebate.calculations"

// =============================================================================
// KAFKA
// =============================================================================

// MessageWriter is the subset of *kafka.Writer used by Kafka.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to a Kafka topic.
type Kafka struct {
	writer MessageWriter
	logger *zap.SugaredLogger
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string, logger *zap.SugaredLogger) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}, logger)
}

// NewKafkaWithWriter creates a publisher over an existing writer.
func NewKafkaWithWriter(w MessageWriter, logger *zap.SugaredLogger) *Kafka {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Kafka{writer: w, logger: logger}
}

// Publish writes the event as a JSON message.
func (k *Kafka) Publish(ctx context.Context, event rebate.CalculationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal calculation event")
	}

	msg := kafka.Message{
		Key:   []byte(event.RebateIdentifier),
		Value: value,
		Time:  event.CalculatedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish calculation event for rebate %q", event.RebateIdentifier)
	}

	k.logger.Debugw("calculation event published",
		"rebate_identifier", event.RebateIdentifier,
		"amount", event.Amount.String(),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// =============================================================================
// LOG / NOOP
// =============================================================================

// Log writes events to a logger instead of a broker.
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog creates a logging publisher.
func NewLog(logger *zap.SugaredLogger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, event rebate.CalculationEvent) error {
	l.logger.Infow("calculation event",
		"rebate_identifier", event.RebateIdentifier,
		"product_identifier", event.ProductIdentifier,
		"incentive", event.Incentive,
		"volume", event.Volume.String(),
		"amount", event.Amount.String(),
		"calculated_at", event.CalculatedAt,
	)
	return nil
}

func (l *Log) Close() error { return nil }

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, rebate.CalculationEvent) error { return nil }

func (Noop) Close() error { return nil }

var (
	_ rebate.Publisher = (*Kafka)(nil)
	_ rebate.Publisher = (*Log)(nil)
	_ rebate.Publisher = Noop{}
)
