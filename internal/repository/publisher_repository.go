package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PublisherRepository fans messages out over Redis pub/sub.
type PublisherRepository struct {
	client redis.UniversalClient
}

func NewPublisherRepository(client redis.UniversalClient) *PublisherRepository {
	return &PublisherRepository{client: client}
}

// Publish JSON-encodes payload onto channel and returns the receiver count.
func (r *PublisherRepository) Publish(ctx context.Context, channel string, payload interface{}) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s message: %w", channel, err)
	}
	n, err := r.client.Publish(ctx, channel, body).Result()
	if err != nil {
		return 0, fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return n, nil
}
