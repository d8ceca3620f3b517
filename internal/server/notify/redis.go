package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "portfolio:collections:"

// ChannelName is the Redis pub/sub channel used for collection.
func ChannelName(collection string) string {
	return channelPrefix + collection
}

// Redis is a Notifier backed by Redis pub/sub so several server processes
// observe each other's writes.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Publish(ctx context.Context, collection string) error {
	if err := r.rdb.Publish(ctx, ChannelName(collection), collection).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", collection, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	pubsub := r.rdb.Subscribe(ctx, ChannelName(collection))

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range pubsub.Channel() {
			signal(out)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = pubsub.Close() })
	}
	return out, cancel, nil
}
