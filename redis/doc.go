// Package redis provides the shared Redis backend for the embedding cache.
//
// Client wraps go-redis with speakerbind logging and configuration.
// TypedStore stores JSON values under a key prefix and implements
// provider.ContextStore, so it plugs straight into embedding.NewCache:
//
//	client, err := redis.New(cfg, logger.Get("redis"))
//	store := redis.NewVectorStore(client, cfg.KeyPrefix)
//	cache := embedding.NewCache(store, cfg.TTL)
//
// Vectors are stored as JSON arrays; Go's float formatting round-trips
// float64 values exactly, so cached and fresh embeddings are identical.
package redis
