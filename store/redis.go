package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisStore implements the Store interface using go-redis/v9.
//
// Documents are stored as JSON strings under "{collection}:{id}" with a
// per-collection membership set under "{collection}:__ids". Counters live
// under "counter:{key}" and are mutated exclusively through INCR.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed document store with the given options.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns the raw document with the given id.
func (s *RedisStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if collection == "" || id == "" {
		return nil, ErrInvalidKey
	}

	data, err := s.client.Get(ctx, docKey(collection, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, unavailable(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return data, nil
}

// Put stores a document under the given id, replacing any existing one.
func (s *RedisStore) Put(ctx context.Context, collection, id string, doc []byte) error {
	if collection == "" || id == "" {
		return ErrInvalidKey
	}

	if err := s.client.Set(ctx, docKey(collection, id), doc, 0).Err(); err != nil {
		return unavailable(fmt.Sprintf("put %s/%s", collection, id), err)
	}
	if err := s.client.SAdd(ctx, idsKey(collection), id).Err(); err != nil {
		return unavailable(fmt.Sprintf("index %s/%s", collection, id), err)
	}
	return nil
}

// Update merges the partial top-level fields into the existing document.
func (s *RedisStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	data, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	for k, v := range partial {
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}
	return s.Put(ctx, collection, id, merged)
}

// Query returns documents matching the query.
func (s *RedisStore) Query(ctx context.Context, collection string, q Query) ([][]byte, error) {
	if collection == "" {
		return nil, ErrInvalidKey
	}

	ids, err := s.client.SMembers(ctx, idsKey(collection)).Result()
	if err != nil {
		return nil, unavailable(fmt.Sprintf("list %s", collection), err)
	}

	type candidate struct {
		raw     []byte
		decoded map[string]any
	}
	matches := make([]candidate, 0, len(ids))

	for _, id := range ids {
		data, err := s.client.Get(ctx, docKey(collection, id)).Bytes()
		if err != nil {
			if err == redis.Nil {
				// Stale index entry; the document was removed.
				continue
			}
			return nil, unavailable(fmt.Sprintf("get %s/%s", collection, id), err)
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}

		ok := true
		for _, p := range q.Predicates {
			if !matchPredicate(doc, p) {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, candidate{raw: data, decoded: doc})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			cmp := compareValues(matches[i].decoded[q.OrderBy], matches[j].decoded[q.OrderBy])
			if q.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	results := make([][]byte, len(matches))
	for i, m := range matches {
		results[i] = m.raw
	}
	return results, nil
}

// AtomicIncrement increments the named counter by one and returns the new
// value. INCR is atomic on the server, so concurrent callers always observe
// distinct, strictly increasing values.
func (s *RedisStore) AtomicIncrement(ctx context.Context, counterKey string) (int64, error) {
	if counterKey == "" {
		return 0, ErrInvalidKey
	}

	val, err := s.client.Incr(ctx, counterKeyName(counterKey)).Result()
	if err != nil {
		return 0, unavailable(fmt.Sprintf("increment counter %s", counterKey), err)
	}
	return val, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s", collection, id)
}

func idsKey(collection string) string {
	return fmt.Sprintf("%s:__ids", collection)
}

func counterKeyName(key string) string {
	return fmt.Sprintf("counter:%s", key)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
