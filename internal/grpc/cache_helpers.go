package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxTTLJitter        = 15 * time.Second
	maxRefreshDelay     = time.Second
)

// nopCache always misses. It stands in when caching is disabled.
type nopCache struct{}

func (nopCache) Get(context.Context, string, any) error { return redis.Nil }
func (nopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (nopCache) Close() error { return nil }

// addTTLJitter spreads expiry by up to ±15s so analytics keys computed
// together do not expire together.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 2*maxTTLJitter {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(int64(2*maxTTLJitter))) - maxTTLJitter
}

func setInBackground[T any](c Cacher, key string, ttl time.Duration, logger *zap.Logger, v T) {
	go func() {
		setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
		defer cancel()

		ttl := addTTLJitter(ttl)
		if err := c.Set(setCtx, key, v, ttl); err != nil {
			logger.Warn("failed to populate cache", zap.String("key", key), zap.Error(err))
			return
		}
		logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
	}()
}

// refreshAhead recomputes a cached key after a hit so the next reader sees
// fresh history without waiting on the query. Concurrent refreshes of one
// key collapse into a single query.
func refreshAhead[T any](c Cacher, sf *singleflight.Group, key string, ttl time.Duration, logger *zap.Logger, fn FetchFunc[T]) {
	go func() {
		time.Sleep(rand.N(maxRefreshDelay))

		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			setInBackground(c, key, ttl, logger, value)
			return value, nil
		})
	}()
}

// FindAndCache implements read-through caching with singleflight and refresh-ahead logic.
// Cache errors are treated as misses; only fn errors are returned.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = nopCache{}
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		refreshAhead(c, sf, key, ttl, logger, fn)
		return cached, nil
	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))
	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		setInBackground(c, key, ttl, logger, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}
