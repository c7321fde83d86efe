// Package cache stores successful GET responses in Redis so repeated batch
// runs do not re-fetch content that has not expired yet.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key, err := cache.KeyFor(http.MethodGet, "https://example.com/a?b=1&a=2")
//	if err != nil {
//		return err
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch and store
//	}
//
// # Expiry
//
// The TTL of an entry comes from the response: Cache-Control max-age wins
// over Expires, and DefaultTTL applies when neither is present. Responses
// marked no-store, no-cache or private are never cached, nor are non-2xx
// responses.
//
// # Namespaces
//
// Keys are prefixed with DefaultNamespace unless WithNamespace is given.
// Stats and Purge operate on one namespace only:
//
//	manager := cache.NewManager(redisClient, cache.WithNamespace("crawler"))
//	stats, err := manager.Stats(ctx)
//	fmt.Println(stats.Entries, stats.Bytes)
//
// # Metrics
//
//   - rollingbatch_cache_hits_total{layer="redis"} - Cache hits
//   - rollingbatch_cache_misses_total - Cache misses
//   - rollingbatch_cache_size_bytes{layer="redis"} - Bytes stored
//   - rollingbatch_cache_errors_total{operation} - Cache operation errors
package cache
