package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrEntryTooLarge is returned by Set for entries above the size limit
	ErrEntryTooLarge = errors.New("cache entry too large")
)

// DefaultMaxEntryBytes is the largest encoded entry Set stores by default.
const DefaultMaxEntryBytes = 1 << 20

// scanBatch is the COUNT hint for SCAN over the namespace.
const scanBatch = 256

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the key prefix. Managers with different namespaces
// share a Redis database without seeing each other's entries.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithMaxEntryBytes limits the encoded size of a stored entry.
// Zero or less disables the limit.
func WithMaxEntryBytes(n int64) Option {
	return func(m *Manager) {
		m.maxEntryBytes = n
	}
}

// Stats describes the entries stored under a namespace.
type Stats struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
}

// Manager stores response entries in Redis under a namespace.
type Manager struct {
	redis         *redis.Client
	namespace     string
	maxEntryBytes int64
}

// NewManager creates a cache manager on redisClient.
func NewManager(redisClient *redis.Client, opts ...Option) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	m := &Manager{
		redis:         redisClient,
		namespace:     DefaultNamespace,
		maxEntryBytes: DefaultMaxEntryBytes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns the key prefix of this manager.
func (m *Manager) Namespace() string {
	return m.namespace
}

// Get loads the entry for key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.format(m.namespace)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	// The entry deadline is checked in addition to the Redis TTL.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Set stores entry until its Expires time. Expired entries are skipped;
// entries whose encoding exceeds the size limit yield ErrEntryTooLarge.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if m.maxEntryBytes > 0 && int64(len(data)) > m.maxEntryBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrEntryTooLarge, len(data), m.maxEntryBytes)
	}

	// SET ... GET returns the replaced value for the size gauge.
	previous, err := m.redis.SetArgs(ctx, key.format(m.namespace), data, redis.SetArgs{
		TTL: ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data) - len(previous)))
	return nil
}

// Delete removes the entry for key. A missing key is not an error.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	removed, err := m.redis.GetDel(ctx, key.format(m.namespace)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis getdel: %w", err)
	}

	CacheSize.WithLabelValues("redis").Sub(float64(len(removed)))
	return nil
}

// Stats counts the entries under the namespace and resynchronises the size
// gauge, which cannot observe entries Redis expires on its own.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Namespace: m.namespace}

	err := m.scan(ctx, func(keys []string) error {
		pipe := m.redis.Pipeline()
		lengths := make([]*redis.IntCmd, len(keys))
		for i, k := range keys {
			lengths[i] = pipe.StrLen(ctx, k)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis strlen: %w", err)
		}
		for _, cmd := range lengths {
			// Keys that expired between SCAN and STRLEN report 0.
			if n := cmd.Val(); n > 0 {
				stats.Entries++
				stats.Bytes += n
			}
		}
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return Stats{}, err
	}

	CacheSize.WithLabelValues("redis").Set(float64(stats.Bytes))
	return stats, nil
}

// Purge removes every entry under the namespace and returns how many keys
// were deleted.
func (m *Manager) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	err := m.scan(ctx, func(keys []string) error {
		n, err := m.redis.Del(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += n
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("purge").Inc()
		return deleted, err
	}

	CacheSize.WithLabelValues("redis").Set(0)
	return deleted, nil
}

// Ping checks that Redis is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// scan calls fn with batches of keys under the namespace.
func (m *Manager) scan(ctx context.Context, fn func(keys []string) error) error {
	match := m.namespace + ":*"
	var cursor uint64
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func decodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Expires.IsZero() {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidEntry)
	}
	return &entry, nil
}
