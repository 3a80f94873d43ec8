package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mohamed711/customer-support-agent/logging"
)

// DefaultKeyPrefix namespaces thread keys.
const DefaultKeyPrefix = "support:thread:"

// RedisOptions configure a RedisStore.
type RedisOptions struct {
	Prefix string
	TTL    time.Duration // 0 keeps threads forever
	Logger logging.Logger
}

// RedisStore keeps threads as JSON documents in Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisStore wraps client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{Prefix: DefaultKeyPrefix, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultKeyPrefix
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &RedisStore{client: client, prefix: opts.Prefix, ttl: opts.TTL, logger: opts.Logger}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get loads and decodes a thread.
func (s *RedisStore) Get(ctx context.Context, id string) (*Thread, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: get %s: %w", id, err)
	}

	var t Thread
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", id, err)
	}
	return &t, nil
}

// Put encodes and stores t, refreshing the TTL when one is configured.
func (s *RedisStore) Put(ctx context.Context, t *Thread) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("checkpoint: thread without id")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("checkpoint: encode %s: %w", t.ID, err)
	}
	if err := s.client.Set(ctx, s.key(t.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("checkpoint: put %s: %w", t.ID, err)
	}
	s.logger.Debug("checkpoint.thread.saved", "thread_id", t.ID, "bytes", len(data))
	return nil
}

// Delete removes a thread.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("checkpoint: delete %s: %w", id, err)
	}
	return nil
}
