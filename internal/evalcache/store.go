package evalcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-review/internal/review"
)

const keyPrefix = "review:eval"

// Store is a Redis-backed review.EvalCache. Entries are scoped by engine
// fingerprint so different engine configurations never share results.
type Store struct {
	rdb         *redis.Client
	fingerprint string
	ttl         time.Duration
}

var _ review.EvalCache = (*Store)(nil)

func NewStore(rdb *redis.Client, fingerprint string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, fingerprint: strings.TrimSpace(fingerprint), ttl: ttl}
}

// Open connects to redisURL and verifies the connection.
func Open(ctx context.Context, redisURL, fingerprint string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for evaluation cache")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, fingerprint, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) key(fen string, depth int) string {
	return keyPrefix + ":" + s.fingerprint + ":d" + strconv.Itoa(depth) + ":" + strings.TrimSpace(fen)
}

func (s *Store) Get(ctx context.Context, fen string, depth int) (review.Evaluation, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(fen, depth)).Bytes()
	if errors.Is(err, redis.Nil) {
		return review.Evaluation{}, false, nil
	}
	if err != nil {
		return review.Evaluation{}, false, fmt.Errorf("get eval: %w", err)
	}
	var e review.Evaluation
	if err := json.Unmarshal(raw, &e); err != nil {
		return review.Evaluation{}, false, fmt.Errorf("decode eval: %w", err)
	}
	return e, true, nil
}

func (s *Store) Put(ctx context.Context, fen string, depth int, e review.Evaluation) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode eval: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(fen, depth), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set eval: %w", err)
	}
	return nil
}

// ParseRedisURL reads redis:// and rediss:// URLs; rediss enables TLS and a
// missing port defaults to 6379.
func ParseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
