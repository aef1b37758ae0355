package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSubscriptions keeps each user's subscriptions in the hash push:subs:{userID},
// one field per endpoint.
type RedisSubscriptions struct {
	rdb *redis.Client
}

func NewRedisSubscriptions(rdb *redis.Client) *RedisSubscriptions {
	return &RedisSubscriptions{rdb: rdb}
}

func subsKey(userID string) string { return "push:subs:" + userID }

// Save registers sub for userID, replacing an earlier registration of the same endpoint.
func (s *RedisSubscriptions) Save(ctx context.Context, userID string, sub Subscription) error {
	if userID == "" || !sub.Valid() {
		return ErrInvalidSubscription
	}
	b, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, subsKey(userID), sub.Endpoint, string(b)).Err(); err != nil {
		return fmt.Errorf("push: save subscription: %w", err)
	}
	return nil
}

// List returns the user's subscriptions. Unreadable entries are skipped.
func (s *RedisSubscriptions) List(ctx context.Context, userID string) ([]Subscription, error) {
	h, err := s.rdb.HGetAll(ctx, subsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Subscription, 0, len(h))
	for _, raw := range h {
		var sub Subscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil || !sub.Valid() {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *RedisSubscriptions) Remove(ctx context.Context, userID, endpoint string) error {
	return s.rdb.HDel(ctx, subsKey(userID), endpoint).Err()
}
