package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func ParseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes change events keyed by tenant and record so events for one record stay
// ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	logger ectologger.Logger
}

func NewKafkaNotifier(cfg KafkaConfig, logger ectologger.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic:  cfg.Topic,
		logger: logger,
	}
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

func (k *KafkaNotifier) Notify(ctx context.Context, evt Event) error {
	ctx, span := tracing.StartSpan(ctx, "KafkaNotifier.Notify")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", k.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("tenant_id", evt.TenantID),
		attribute.String("entity", evt.Entity),
		attribute.String("event_type", string(evt.Type)),
	)

	data, err := json.Marshal(evt)
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("failed to marshal %s event: %w", evt.Entity, err)
	}

	headers := []kafka.Header{
		{Key: "tenant_id", Value: []byte(evt.TenantID)},
		{Key: "entity", Value: []byte(evt.Entity)},
		{Key: "type", Value: []byte(evt.Type)},
	}
	for key, value := range tracing.Carrier(ctx) {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(fmt.Sprintf("%s:%s", evt.TenantID, evt.RecordID)),
		Value:   data,
		Headers: headers,
	})
	if err != nil {
		tracing.Fail(span, err)
		k.logger.WithContext(ctx).WithError(err).Errorf("failed to publish to kafka topic %s", k.topic)
		return err
	}

	span.SetStatus(codes.Ok, "event published")
	k.logger.WithContext(ctx).Debugf("published %s %s event for %s", evt.Entity, evt.Type, evt.RecordID)
	return nil
}
