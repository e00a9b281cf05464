package kafka

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

// Writer is the subset of *kafka.Writer the producer depends on.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outbox envelopes to a single topic. Messages are keyed by
// aggregate id so every event for one order lands on the same partition.
type Producer struct {
	w       Writer
	brokers []string
	topic   string
}

func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: defaultWriteTimeout,
	}
	if logg != nil {
		logg.Info(logg.WithFields(context.Background(), map[string]any{
			"brokers": brokers,
			"topic":   cfg.Topic,
		}), "kafka producer initialized")
	}
	return &Producer{w: w, brokers: brokers, topic: cfg.Topic}, nil
}

// NewWithWriter wraps an existing writer; used by tests.
func NewWithWriter(w Writer, topic string) *Producer {
	return &Producer{w: w, topic: topic}
}

func (p *Producer) Name() string {
	return "kafka"
}

// Publish writes one message synchronously; attrs become record headers.
func (p *Producer) Publish(ctx context.Context, key string, data []byte, attrs map[string]string) error {
	if p == nil || p.w == nil {
		return errors.New("kafka producer not initialized")
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now().UTC(),
		Headers: headers(attrs),
	})
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	if p == nil {
		return errors.New("kafka producer not initialized")
	}
	if len(p.brokers) == 0 {
		return nil
	}
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return lastErr
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

func headers(attrs map[string]string) []kafka.Header {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(attrs[k])})
	}
	return out
}
