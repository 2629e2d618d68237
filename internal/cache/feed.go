// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// feed.go caches rendered syndication documents (RSS, sitemap) in Valkey.
// Documents are filed under a generation number. Invalidation bumps the
// generation, so a render that read the database before an invalidation
// is stored under a generation no reader asks for again.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// feedKeyPrefix is the Valkey key prefix for cached feeds.
	feedKeyPrefix = "feed:"

	// feedGenKey holds the current generation. It has no TTL.
	feedGenKey = feedKeyPrefix + "gen"

	// DefaultFeedTTL bounds how long superseded generations linger.
	DefaultFeedTTL = 10 * time.Minute
)

// Feed cache keys.
const (
	KeyRSS     = "rss"
	KeySitemap = "sitemap"
)

// NoGeneration is returned by Get when the generation could not be read.
// Set ignores documents rendered under it.
const NoGeneration int64 = -1

// FeedCache stores rendered feed documents in Valkey.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFeedCache creates a new feed cache backed by the given Valkey client.
func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultFeedTTL
	}
	return &FeedCache{client: client, ttl: ttl}
}

func docKey(gen int64, key string) string {
	return feedKeyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}

// Get returns the document cached for the current generation, plus that
// generation. On a miss the caller renders and passes the generation back
// to Set. Valkey errors are logged and reported as a miss.
func (fc *FeedCache) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen, err := fc.client.Get(ctx, feedGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		slog.Warn("feed cache generation error", "error", err)
		return nil, NoGeneration, false
	}

	val, err := fc.client.Get(ctx, docKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		slog.Warn("feed cache get error", "key", key, "error", err)
		return nil, gen, false
	}
	slog.Debug("feed cache hit", "key", key, "generation", gen)
	return val, gen, true
}

// Set stores a document rendered under gen with the configured TTL.
func (fc *FeedCache) Set(ctx context.Context, key string, gen int64, doc []byte) {
	if gen == NoGeneration {
		return
	}
	if err := fc.client.Set(ctx, docKey(gen, key), doc, fc.ttl).Err(); err != nil {
		slog.Warn("feed cache set error", "key", key, "error", err)
	}
}

// InvalidateAll moves the cache to a new generation. Documents of older
// generations are never read again and expire with their TTL.
func (fc *FeedCache) InvalidateAll(ctx context.Context) {
	gen, err := fc.client.Incr(ctx, feedGenKey).Result()
	if err != nil {
		slog.Warn("feed cache invalidate error", "error", err)
		return
	}
	slog.Debug("feed cache invalidated", "generation", gen)
}
