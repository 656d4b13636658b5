package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the three session keys under a common prefix. Each key
// carries a TTL equal to the time until local expiry so Redis self-cleans
// stale sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "liferank:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	vals, err := s.client.MGet(ctx, s.key(KeyAccessToken), s.key(KeyUser), s.key(KeyExpiresAt)).Result()
	if err != nil {
		return nil, err
	}
	tok, ok1 := vals[0].(string)
	user, ok2 := vals[1].(string)
	exp, ok3 := vals[2].(string)
	if !ok1 || !ok2 || !ok3 || tok == "" || user == "" || exp == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return nil, nil
	}
	return &Record{
		AccessToken: tok,
		UserJSON:    []byte(user),
		ExpiresAt:   time.UnixMilli(ms),
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, r *Record) error {
	ttl := time.Until(r.ExpiresAt)
	if ttl <= 0 {
		// minimal TTL so Redis won't keep an already-expired record
		ttl = time.Second
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(KeyAccessToken), r.AccessToken, ttl)
	pipe.Set(ctx, s.key(KeyUser), string(r.UserJSON), ttl)
	pipe.Set(ctx, s.key(KeyExpiresAt), strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key(KeyAccessToken), s.key(KeyUser), s.key(KeyExpiresAt)).Err()
}
