package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"counsel-platform/internal/calls"

	"github.com/redis/go-redis/v9"
)

// DefaultRecordTTL keeps finished records around long enough for the receiver's
// client to show the missed call.
const DefaultRecordTTL = 24 * time.Hour

// RedisStore keeps call records in Redis.
//
// Keys:
//   - call:{channelId}                       hash, the record
//   - call:{channelId}:presence:{receiverId} string, the ringing signal the receiver's client watches
//   - call:{channelId}:updates               pub/sub topic, JSON record after every status change
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisStore(rdb *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{rdb: rdb, ttl: DefaultRecordTTL, log: log}
}

func recordKey(channelID string) string { return "call:" + channelID }

func presenceKey(channelID, receiverID string) string {
	return "call:" + channelID + ":presence:" + receiverID
}

func updatesTopic(channelID string) string { return "call:" + channelID + ":updates" }

// Create writes a fresh record in status Calling.
func (s *RedisStore) Create(ctx context.Context, rec RemoteCallRecord) error {
	if rec.ChannelID == "" {
		return ErrInvalidRecord
	}
	rec.Status = calls.CallStatusCalling
	rec.MissedCallStatusSeen = false

	key := recordKey(rec.ChannelID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.fields()...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("signaling: create %s: %w", rec.ChannelID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, channelID string) (RemoteCallRecord, error) {
	h, err := s.rdb.HGetAll(ctx, recordKey(channelID)).Result()
	if err != nil {
		return RemoteCallRecord{}, err
	}
	rec, ok := recordFromHash(channelID, h)
	if !ok {
		return RemoteCallRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

// SetStatus updates the record status and publishes the new record to watchers.
func (s *RedisStore) SetStatus(ctx context.Context, channelID string, status calls.CallStatus) (RemoteCallRecord, error) {
	if !status.Valid() {
		return RemoteCallRecord{}, ErrInvalidRecord
	}
	key := recordKey(channelID)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return RemoteCallRecord{}, err
	}
	if n == 0 {
		return RemoteCallRecord{}, ErrRecordNotFound
	}

	var all *redis.MapStringStringCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldStatus, string(status))
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return RemoteCallRecord{}, fmt.Errorf("signaling: set status %s: %w", channelID, err)
	}

	rec, ok := recordFromHash(channelID, all.Val())
	if !ok {
		return RemoteCallRecord{}, ErrInvalidRecord
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return RemoteCallRecord{}, err
	}
	if err := s.rdb.Publish(ctx, updatesTopic(channelID), string(payload)).Err(); err != nil {
		// Watchers still see the new status on their next snapshot read.
		s.log.Warn("call record publish failed", "channel_id", channelID, "err", err)
	}
	return rec, nil
}

// MarkMissedSeen flags that the receiver has seen the missed call.
func (s *RedisStore) MarkMissedSeen(ctx context.Context, channelID string) error {
	key := recordKey(channelID)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return s.rdb.HSet(ctx, key, fieldMissedSeen, "true").Err()
}

// SetPresence raises the ringing signal for the receiver.
func (s *RedisStore) SetPresence(ctx context.Context, channelID, receiverID, callerID string, ttl time.Duration) error {
	if channelID == "" || receiverID == "" {
		return ErrInvalidRecord
	}
	return s.rdb.Set(ctx, presenceKey(channelID, receiverID), callerID, ttl).Err()
}

// ClearPresence removes the ringing signal. Clearing an absent signal is not an error.
func (s *RedisStore) ClearPresence(ctx context.Context, channelID, receiverID string) error {
	if channelID == "" || receiverID == "" {
		return ErrInvalidRecord
	}
	return s.rdb.Del(ctx, presenceKey(channelID, receiverID)).Err()
}

// Watch streams the record for channelID: the current snapshot first, if any, then every
// published update. Malformed updates are skipped. The stream closes when stop is
// called or ctx ends.
func (s *RedisStore) Watch(ctx context.Context, channelID string) (<-chan RemoteCallRecord, func(), error) {
	sub := s.rdb.Subscribe(ctx, updatesTopic(channelID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("signaling: subscribe %s: %w", channelID, err)
	}

	ctx, stop := context.WithCancel(ctx)
	out := make(chan RemoteCallRecord, 4)

	go func() {
		defer close(out)
		defer sub.Close()

		send := func(rec RemoteCallRecord) bool {
			select {
			case out <- rec:
				return true
			case <-ctx.Done():
				return false
			}
		}

		rec, err := s.Get(ctx, channelID)
		switch {
		case err == nil:
			if !send(rec) {
				return
			}
		case !errors.Is(err, ErrRecordNotFound):
			s.log.Warn("call record snapshot failed", "channel_id", channelID, "err", err)
		}

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				rec, err := decodeRecord(m.Payload)
				if err != nil {
					s.log.Debug("skipping malformed call record update", "channel_id", channelID)
					continue
				}
				if !send(rec) {
					return
				}
			}
		}
	}()

	return out, stop, nil
}
