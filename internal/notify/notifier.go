// Package notify delivers lifecycle events to external listeners. Delivery
// is best effort: callers log failures and move on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/events"
)

// Notifier publishes an event to a sink.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
	Close() error
}

// New builds the notifier selected by cfg.Sink. The redis client is only
// required for the redis sink.
func New(cfg config.NotificationConfig, client *redis.Client, logger *zap.Logger) (Notifier, error) {
	switch cfg.Sink {
	case config.SinkLog, "":
		return NewLogNotifier(logger), nil
	case config.SinkRedis:
		if client == nil {
			return nil, fmt.Errorf("notify: redis sink requires a redis client")
		}
		return NewRedisNotifier(client, cfg.RedisChannel), nil
	case config.SinkKafka:
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return nil, fmt.Errorf("notify: unknown sink %q", cfg.Sink)
}

func encode(event events.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("notify: marshal %s: %w", event.Type, err)
	}
	return body, nil
}

// LogNotifier writes events to the service log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a log-only sink.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event events.Event) error {
	n.logger.Info("notification",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *LogNotifier) Close() error { return nil }
