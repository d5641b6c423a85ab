package suggestcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/appsearch/internal/db"
	"github.com/kailas-cloud/appsearch/internal/domain/suggest"
)

const cacheKeyPrefix = "appsearch:suggest_cache:"

// termSuggester is the decorated suggester.
type termSuggester interface {
	Suggest(ctx context.Context, index string, fields []string, text string) ([]suggest.FieldSuggestions, error)
}

// store is the consumer interface for the suggestion cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSuggester caches term suggestions in a key-value store.
// Cache failures are logged and fall through to the inner suggester.
type CachedSuggester struct {
	inner      termSuggester
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. ttl <= 0 stores entries without expiry.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner termSuggester,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSuggester {
	return &CachedSuggester{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Suggest returns cached suggestions or asks the inner suggester.
func (c *CachedSuggester) Suggest(
	ctx context.Context, index string, fields []string, text string,
) ([]suggest.FieldSuggestions, error) {
	key := cacheKey(index, fields, text)

	if cached, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return cached, nil
	}

	c.incCache("miss")

	result, err := c.inner.Suggest(ctx, index, fields, text)
	if err != nil {
		return nil, fmt.Errorf("suggest terms: %w", err)
	}

	c.putToCache(ctx, key, result)
	return result, nil
}

func (c *CachedSuggester) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(index string, fields []string, text string) string {
	h := sha256.Sum256([]byte(index + "\x00" + strings.Join(fields, ",") + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedSuggester) getFromCache(ctx context.Context, key string) ([]suggest.FieldSuggestions, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached suggestions", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var out []suggest.FieldSuggestions
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Warn("Failed to parse cached suggestions", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return out, true
}

func (c *CachedSuggester) putToCache(ctx context.Context, key string, result []suggest.FieldSuggestions) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("Failed to encode suggestions for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache suggestions", zap.String("key", key), zap.Error(err))
	}
}
