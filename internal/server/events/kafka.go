package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaPublisher struct {
	writer *kafka.Writer
}

func newKafkaPublisher(cfg KafkaConfig, timeout time.Duration) (*kafkaPublisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}

	// fail fast when no broker is reachable
	conn, err := kafka.DialContext(context.Background(), "tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka connection error: %w", err)
	}
	_ = conn.Close()

	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           timeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	// keyed by client so one client's events stay ordered
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ClientID),
		Value: data,
		Time:  e.Timestamp,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
