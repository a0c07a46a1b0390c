// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skatebattle/skate/internal/game"
)

// DefaultQueueName is the Redis list holding pending notification intents.
var DefaultQueueName = "skate_notifications"

// Notifier pushes notification intents onto a Redis list for the external
// delivery collaborator. The engine only enqueues; it never delivers.
type Notifier struct {
	rdb   *redis.Client
	queue string
}

// Connect initializes a Redis client and verifies connectivity.
func Connect(ctx context.Context, addr string, db int, queue string) (*Notifier, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Notifier{rdb: rdb, queue: queue}, nil
}

// Publish serializes each intent and RPushes it onto the queue.
func (n *Notifier) Publish(ctx context.Context, intents []game.Intent) error {
	if len(intents) == 0 {
		return nil
	}
	payloads := make([]interface{}, 0, len(intents))
	for _, in := range intents {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal intent %s: %w", in.Type, err)
		}
		payloads = append(payloads, data)
	}
	if err := n.rdb.RPush(ctx, n.queue, payloads...).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", n.queue, err)
	}
	return nil
}

// Pop blocks up to timeout waiting for the next intent; used by the notifier
// binary. A nil intent with nil error means the wait timed out.
func (n *Notifier) Pop(ctx context.Context, timeout time.Duration) (*game.Intent, error) {
	res, err := n.rdb.BLPop(ctx, timeout, n.queue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop from '%s': %w", n.queue, err)
	}
	// BLPop returns [key, value].
	var in game.Intent
	if err := json.Unmarshal([]byte(res[1]), &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return &in, nil
}

// Close releases the underlying client.
func (n *Notifier) Close() error {
	return n.rdb.Close()
}
