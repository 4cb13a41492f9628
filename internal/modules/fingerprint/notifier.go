package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mx-space/fpcollector/internal/models"
)

const notifyTimeout = 2 * time.Second

// Publisher is the subset of the redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisNotifier publishes every stored record as JSON on a pub/sub channel.
type RedisNotifier struct {
	publisher Publisher
	channel   string
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(publisher Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{publisher: publisher, channel: channel}
}

// Notify implements Notifier.
func (n *RedisNotifier) Notify(ctx context.Context, rec models.FingerprintLog) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode fingerprint %d: %w", rec.ID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := n.publisher.Publish(ctx, n.channel, body); err != nil {
		return fmt.Errorf("publish fingerprint %d: %w", rec.ID, err)
	}
	return nil
}
