package translate

import (
	"bytes"
	"encoding/gob"
	"strconv"
	"time"

	"github.com/mevdschee/tqmemory/pkg/tqmemory"
)

// Cache memoizes Translate by (sql, paramCount, case policy), adapted from
// the teacher's cache.Cache query-result cache. Translation is a pure,
// deterministic, sub-millisecond function of its inputs with no backend
// round trip behind it, so the thundering-herd single-flight machinery the
// teacher's cache carries for a real query-result cache buys nothing here:
// two sessions racing to translate the same statement just redo cheap
// work, and are simply left to do so. What's kept is the store itself and
// its TTL-bounded Get/Set shape.
type Cache struct {
	store   *tqmemory.ShardedCache
	ttl     time.Duration
	metrics CacheMetrics
}

// CacheMetrics is the narrow metrics surface the translation cache needs;
// nil is fine and simply skips recording.
type CacheMetrics interface {
	IncTranslateCacheHit()
	IncTranslateCacheMiss()
}

// CacheConfig controls the backing store's size and shard count.
type CacheConfig struct {
	MaxMemory int64
	Workers   int
	TTL       time.Duration
}

// DefaultCacheConfig mirrors the teacher's defaults, scaled down: a
// translation cache entry is much smaller than a cached query result.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxMemory: 16 * 1024 * 1024,
		Workers:   4,
		TTL:       10 * time.Minute,
	}
}

// NewCache builds a translation cache backed by tqmemory. metrics may be
// nil.
func NewCache(cfg CacheConfig, metrics CacheMetrics) (*Cache, error) {
	tqcfg := tqmemory.DefaultConfig()
	tqcfg.MaxMemory = cfg.MaxMemory
	store, err := tqmemory.NewSharded(tqcfg, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Cache{store: store, ttl: cfg.TTL, metrics: metrics}, nil
}

// Key builds a cache key from the inputs that affect Translate's output.
func Key(sql string, paramCount int, policy IdentifierCasePolicy) string {
	return string(rune('0'+policy)) + ":" + strconv.Itoa(paramCount) + ":" + sql
}

// GetOrTranslate returns a cached Result for key, computing and storing one
// via compute if absent. A cache-store failure (corrupt entry, encode
// error) is treated the same as a miss: it always falls back to compute
// rather than propagate an error, since a missed cache is a latency
// concern, not a correctness one.
func (c *Cache) GetOrTranslate(key string, compute func() *Result) *Result {
	if raw, _, _, err := c.store.Get(key); err == nil && raw != nil {
		if res, ok := decodeResult(raw); ok {
			c.incHit()
			return res
		}
	}
	c.incMiss()
	res := compute()
	if enc, err := encodeResult(res); err == nil {
		c.store.Set(key, enc, c.ttl)
	}
	return res
}

func (c *Cache) incHit() {
	if c.metrics != nil {
		c.metrics.IncTranslateCacheHit()
	}
}

func (c *Cache) incMiss() {
	if c.metrics != nil {
		c.metrics.IncTranslateCacheMiss()
	}
}

func encodeResult(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResult(raw []byte) (*Result, bool) {
	var r Result
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&r); err != nil {
		return nil, false
	}
	return &r, true
}

// Close releases the cache's backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}
