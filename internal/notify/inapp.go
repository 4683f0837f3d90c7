package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InAppTransport publishes in-app notifications to a per-user Redis channel
// that connected frontends subscribe to.
type InAppTransport struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewInAppTransport(rdb *redis.Client, log *zap.Logger) *InAppTransport {
	return &InAppTransport{rdb: rdb, log: log}
}

func (t *InAppTransport) Send(ctx context.Context, recipient, subject, body string) error {
	message, err := json.Marshal(map[string]interface{}{
		"subject":   subject,
		"body":      body,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	channel := "user:" + recipient + ":notifications"
	if err := t.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	t.log.Debug("Published in-app notification", zap.String("channel", channel))
	return nil
}
