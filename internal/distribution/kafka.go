package distribution

import (
	"context"
	"time"

	"aggregator/internal/aggregator"
	"aggregator/internal/ingest"
	"aggregator/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// MessageWriter is the part of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every summary of one symbol to a topic, keyed by symbol.
type KafkaSink struct {
	writer MessageWriter
	key    []byte
}

// NewKafkaWriter builds a low latency writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafkaSink(writer MessageWriter, symbol string) *KafkaSink {
	return &KafkaSink{writer: writer, key: []byte(symbol)}
}

// Publish writes one summary.
func (k *KafkaSink) Publish(ctx context.Context, s *Summary) error {
	value, err := sonic.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: k.key, Value: value, Time: time.Now()}); err != nil {
		return errors.Wrap(err, "write kafka message").With("key", string(k.key))
	}
	return nil
}

// Run publishes the aggregate stream until it ends or ctx is done. Publish
// failures are logged and the summary is dropped.
func (k *KafkaSink) Run(ctx context.Context, ex ingest.Exchange[aggregator.Result]) error {
	for {
		r, err := ex.Next(ctx)
		if err != nil {
			if errors.Is(err, exception.ErrStreamClosed) {
				return nil
			}
			return err
		}
		if err := k.Publish(ctx, NewSummary(r)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logs.Errorf("kafka sink: publish summary, err: %+v", err)
		}
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
