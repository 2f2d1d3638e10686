package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 100

// touchIfScript re-arms the expiry of KEYS[1] only while its JSON value has
// ARGV[1] == ARGV[2]. The read and PEXPIRE run atomically inside Redis.
var touchIfScript = redis.NewScript(`
	local v = redis.call('GET', KEYS[1])
	if not v then return 0 end
	local ok, obj = pcall(cjson.decode, v)
	if not ok or type(obj) ~= 'table' or obj[ARGV[1]] ~= ARGV[2] then
		return 0
	end
	return redis.call('PEXPIRE', KEYS[1], ARGV[3])
`)

// Redis implements Store on top of a go-redis client. Expiry is delegated
// to Redis itself, so expired keys disappear without any callback.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client. The client is owned by the caller.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bs, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *Redis) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *Redis) TouchIf(ctx context.Context, key, field, want string, ttl time.Duration) (bool, error) {
	n, err := touchIfScript.Run(ctx, s.rdb, []string{key}, field, want, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Scan walks the keyspace with SCAN MATCH so large databases are never
// blocked the way KEYS would block them.
func (s *Redis) Scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	iter := s.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		// SCAN may return a key more than once.
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// escapeGlob quotes the characters Redis treats specially in MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
