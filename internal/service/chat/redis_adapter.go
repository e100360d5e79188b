package chat

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter adapts a go-redis client to the Publisher interface
type RedisAdapter struct {
	Client *redis.Client
}

// Publish marshals the payload and publishes it on the channel
func (a *RedisAdapter) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return a.Client.Publish(ctx, channel, data).Err()
}
