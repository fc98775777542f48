// Package parsecache memoizes date parse results, so callers that see the
// same header values over and over (e.g. proxies revalidating cached
// responses) do not pay the full parse cost every time.
package parsecache

import (
	"fmt"
	"sync"
	"time"

	"github.com/mailgun/timetools"
	"github.com/mailgun/ttlmap"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/vulcand/httptime/httpdate"
	"github.com/vulcand/httptime/log"
	"github.com/vulcand/httptime/memmetrics"
)

type optSetter func(c *Cache) error

// TTL sets the lifetime of a cached parse result in seconds.
func TTL(seconds int) optSetter {
	return func(c *Cache) error {
		if seconds <= 0 {
			return fmt.Errorf("ttl should be > 0 seconds, got %d", seconds)
		}
		c.ttlSeconds = seconds
		return nil
	}
}

// Clock sets the time provider for the cache and its metrics.
func Clock(clock timetools.TimeProvider) optSetter {
	return func(c *Cache) error {
		c.clock = clock
		return nil
	}
}

// Cache remembers the outcome of parsing a date string, both successes and
// failures, for a limited time. Entries are keyed by a hash of the input,
// the raw input is kept in the entry and compared on lookup so hash
// collisions can not produce a wrong date.
type Cache struct {
	mutex      *sync.Mutex
	entries    *ttlmap.TtlMap
	ttlSeconds int
	clock      timetools.TimeProvider

	hits    *memmetrics.RatioCounter
	metrics *memmetrics.ParseMetrics
}

type entry struct {
	input string
	epoch int64
	set   bool
}

// New creates a cache holding up to capacity parse results.
func New(capacity int, settings ...optSetter) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity should be > 0, got %d", capacity)
	}

	c := &Cache{
		mutex:      &sync.Mutex{},
		ttlSeconds: DefaultTTLSeconds,
	}

	for _, s := range settings {
		if err := s(c); err != nil {
			return nil, err
		}
	}

	if c.clock == nil {
		c.clock = &timetools.RealTime{}
	}

	entries, err := ttlmap.NewMapWithProvider(capacity, c.clock)
	if err != nil {
		return nil, err
	}
	c.entries = entries

	hits, err := memmetrics.NewRatioCounter(hitRatioBuckets, hitRatioResolution, memmetrics.RatioClock(c.clock))
	if err != nil {
		return nil, err
	}
	c.hits = hits

	metrics, err := memmetrics.NewParseMetrics(memmetrics.ParseClock(c.clock))
	if err != nil {
		return nil, err
	}
	c.metrics = metrics

	return c, nil
}

// Parse returns a date parsed from the input, reusing a cached outcome when
// the same input was seen recently. The returned date is always a fresh
// value, callers can mutate it freely.
func (c *Cache) Parse(input string) *httpdate.Date {
	d := httpdate.New(httpdate.Clock(c.clock))

	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := fmt.Sprintf("%x", fnv1a.HashString64(input))
	if v, ok := c.entries.Get(key); ok {
		if e, ok := v.(*entry); ok && e.input == input {
			c.hits.IncA(1)
			if e.set {
				d.SetEpoch(e.epoch)
			}
			return d
		}
	}
	c.hits.IncB(1)

	start := c.clock.UtcNow()
	d.Parse(input)

	e := &entry{input: input}
	format := httpdate.FormatUnknown
	if epoch, ok := d.Epoch(); ok {
		e.epoch = epoch
		e.set = true
		format = httpdate.Detect(input)
	}
	c.metrics.Record(format, e.set, c.clock.UtcNow().Sub(start))

	if err := c.entries.Set(key, e, c.ttlSeconds); err != nil {
		log.Errorf("vulcand/httptime/parsecache: failed to store parse result: %v", err)
	}
	return d
}

// Epoch parses the input through the cache and returns the resulting epoch.
func (c *Cache) Epoch(input string) (int64, bool) {
	return c.Parse(input).Epoch()
}

// HitRatio returns the ratio of cache hits to total lookups over the rolling window.
func (c *Cache) HitRatio() float64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.hits.Ratio()
}

// Len returns the amount of cached entries, expired entries included until
// the map prunes them.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.entries.Len()
}

// Metrics returns the parse outcome collector. Only cache misses record a
// parse attempt.
func (c *Cache) Metrics() *memmetrics.ParseMetrics {
	return c.metrics
}

const (
	// DefaultTTLSeconds is how long a parse result stays cached unless TTL says otherwise.
	DefaultTTLSeconds = 60

	hitRatioBuckets    = 10
	hitRatioResolution = time.Second
)
