package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ledger/internal/rates"
)

// DefaultRateCacheTTL bounds how long a looked-up conversion factor is
// reused. Rates are keyed by their as-of date, so a long TTL is safe; the
// date in the key changes, not the value behind it.
const DefaultRateCacheTTL = 12 * time.Hour

const rateCachePrefix = "cache:rate:"

// RateCache is a read-through redis cache in front of a rates.Provider.
// Redis trouble never fails a lookup; the cache falls back to the
// underlying provider and logs.
type RateCache struct {
	client *redis.Client
	next   rates.Provider
	ttl    time.Duration
}

// NewRateCache creates a RateCache around the given provider. A
// non-positive ttl falls back to the default.
func NewRateCache(client *redis.Client, next rates.Provider, ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultRateCacheTTL
	}
	return &RateCache{client: client, next: next, ttl: ttl}
}

// Factor implements rates.Provider.
func (c *RateCache) Factor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	key := rateKey(from, to, asOf)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		factor, perr := decimal.NewFromString(val)
		if perr == nil {
			return factor, nil
		}
		slog.Warn("dropping unparseable cached rate", "key", key, "error", perr)
	} else if err != redis.Nil {
		slog.Warn("rate cache read failed, falling back to provider", "key", key, "error", err)
	}

	factor, err := c.next.Factor(ctx, from, to, asOf)
	if err != nil {
		// Failures are not cached; a rate may become available later.
		return decimal.Decimal{}, err
	}

	if serr := c.client.Set(ctx, key, factor.String(), c.ttl).Err(); serr != nil {
		slog.Warn("rate cache write failed", "key", key, "error", serr)
	}
	return factor, nil
}

// rateKey buckets lookups by day: historical rates are effective per date.
func rateKey(from, to string, asOf time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", rateCachePrefix, from, to, asOf.UTC().Format("2006-01-02"))
}
