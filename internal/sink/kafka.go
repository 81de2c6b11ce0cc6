package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/metrics"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

// Message header names.
const (
	HeaderTable = "table"
	HeaderRunID = "run_id"
)

// MessageWriter is the subset of *kafka.Writer used by the Kafka sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes each output row as a JSON message keyed by the entity it
// describes.
type Kafka struct {
	writer MessageWriter
	enc    encoder
	logger *zap.Logger
}

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// NewKafkaWriter builds a synchronous writer for topic. Messages with the
// same key land on the same partition.
func NewKafkaWriter(brokers []string, topic string, batchTimeout time.Duration, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: batchTimeout,
		Async:        false,
		Logger:       kafkaZapLogger{log: logger.Named("kafka-go")},
		ErrorLogger:  kafkaZapErrorLogger{log: logger.Named("kafka-go")},
	}
}

// NewKafka wraps a message writer.
func NewKafka(w MessageWriter, runID string, nullSentinel bool, logger *zap.Logger) *Kafka {
	return &Kafka{
		writer: w,
		enc:    encoder{runID: runID, nullSentinel: nullSentinel},
		logger: logger.Named("kafka"),
	}
}

func (k *Kafka) WriteAccessibility(ctx context.Context, results []accessibility.Result) error {
	return k.publish(ctx, k.enc.accessibility(results))
}

func (k *Kafka) WriteTravelTimes(ctx context.Context, rows []accumulate.Row[solver.ODPair]) error {
	return k.publish(ctx, k.enc.travelTimes(rows))
}

func (k *Kafka) WriteThresholdPolygons(ctx context.Context, polys []coverage.ThresholdPolygon) error {
	return k.publish(ctx, k.enc.thresholdPolygons(polys))
}

func (k *Kafka) WriteStopStats(ctx context.Context, rows []StopRow) error {
	return k.publish(ctx, k.enc.stopStats(rows))
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func (k *Kafka) publish(ctx context.Context, b batch) error {
	if len(b.records) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(b.records))
	for _, r := range b.records {
		payload := make(map[string]any, len(r.values)+1)
		for name, v := range r.values {
			payload[name] = v
		}
		if b.table.spatial {
			payload["geometry"] = geometryOf(r.geometry)
		}
		value, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrPublishing, r.key, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.key),
			Value: value,
			Headers: []kafka.Header{
				{Key: HeaderTable, Value: []byte(b.table.name)},
				{Key: HeaderRunID, Value: []byte(k.enc.runID)},
			},
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishing, b.table.name, err)
	}
	metrics.RowsWritten.WithLabelValues("kafka", b.table.name).Add(float64(len(msgs)))
	k.logger.Sugar().Debugw("Records published", "table", b.table.name, "messages", len(msgs))
	return nil
}
