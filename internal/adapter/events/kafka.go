// Package events publishes committed trades to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"go.uber.org/zap"
)

// Compile-time interface checks.
var _ domain.TradePublisher = (*KafkaPublisher)(nil)

// producer is the part of *kafka.Producer the publisher needs.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// TradeEvent is the JSON payload written for every committed trade.
type TradeEvent struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
	ExecutedAt string `json:"executed_at"`
}

// KafkaPublisher writes trade events to a topic, keyed by account so one
// account's trades stay ordered within a partition.
type KafkaPublisher struct {
	producer producer
	topic    string
	timeout  time.Duration
	log      *zap.Logger
}

// NewKafkaPublisher connects a producer to the given bootstrap servers.
func NewKafkaPublisher(brokers, topic string, timeout time.Duration, log *zap.Logger) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaPublisher(p, topic, timeout, log), nil
}

func newKafkaPublisher(p producer, topic string, timeout time.Duration, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{producer: p, topic: topic, timeout: timeout, log: log.Named("events")}
}

// PublishTrade produces the event and waits for the broker's delivery report.
func (p *KafkaPublisher) PublishTrade(ctx context.Context, tx *domain.Transaction) error {
	value, err := encodeTradeEvent(tx)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(tx.AccountID.String()),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("failed to produce trade event: %w", err)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case e := <-delivery:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("trade event delivery failed: %w", m.TopicPartition.Error)
		}
		p.log.Debug("trade event delivered", zap.Stringer("transaction_id", tx.ID))
		return nil
	case <-timer.C:
		return fmt.Errorf("trade event delivery timed out after %s", p.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding events and shuts the producer down.
func (p *KafkaPublisher) Close() {
	if left := p.producer.Flush(int(p.timeout.Milliseconds())); left > 0 {
		p.log.Warn("closing with undelivered trade events", zap.Int("pending", left))
	}
	p.producer.Close()
}

func encodeTradeEvent(tx *domain.Transaction) ([]byte, error) {
	side := "sell"
	quantity := -tx.Delta
	if tx.IsBuy() {
		side = "buy"
		quantity = tx.Delta
	}

	data, err := json.Marshal(TradeEvent{
		ID:         tx.ID.String(),
		AccountID:  tx.AccountID.String(),
		Symbol:     tx.Symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      tx.Price.String(),
		Amount:     tx.Amount().String(),
		ExecutedAt: tx.ExecutedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode trade event: %w", err)
	}
	return data, nil
}
