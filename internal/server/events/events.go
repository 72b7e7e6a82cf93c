// Package events publishes client lifecycle events to an optional broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Type names a lifecycle event
type Type string

const (
	ClientConnected    Type = "client.connected"
	ClientDisconnected Type = "client.disconnected"
	ClientRenamed      Type = "client.renamed"
)

// Event is published as JSON
type Event struct {
	Type      Type      `json:"type"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode returns the JSON body of the event
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Config selects and configures the backend
type Config struct {
	Driver   string
	Timeout  time.Duration
	Redis    RedisConfig
	Kafka    KafkaConfig
	RabbitMQ RabbitMQConfig
	Webhook  WebhookConfig
}

// RedisConfig configures the redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// KafkaConfig configures the kafka backend
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RabbitMQConfig configures the rabbitmq backend
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// WebhookConfig configures the webhook backend
type WebhookConfig struct {
	URL     string
	Secret  string
	Headers map[string]string
}

// New creates the publisher named by cfg.Driver
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	var (
		p   Publisher
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "redis":
		p, err = newRedisPublisher(cfg.Redis, cfg.Timeout)
	case "kafka":
		p, err = newKafkaPublisher(cfg.Kafka, cfg.Timeout)
	case "rabbitmq":
		p, err = newRabbitMQPublisher(cfg.RabbitMQ)
	case "webhook":
		p, err = newWebhookPublisher(cfg.Webhook, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported events driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s publisher: %w", cfg.Driver, err)
	}

	logger.Info("Event publisher initialized", zap.String("driver", cfg.Driver))
	return p, nil
}

// Noop drops every event
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (Noop) Close() error { return nil }
