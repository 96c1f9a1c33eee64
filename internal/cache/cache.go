// Package cache provides a small TTL cache for backend list data.
//
// The portal frontend this service replaces kept last-fetched lists in
// module-level singletons with manual timestamp expiry. Here the cache is an
// owned object with an explicit Get/Set/Invalidate contract so callers (and
// tests) control its lifetime, and the clock is injectable.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// DefaultTTL is the cache lifetime used when none is configured.
const DefaultTTL = 5 * time.Minute

// Opts holds configuration options for the company cache.
type Opts struct {
	TTL time.Duration
	Now func() time.Time
}

// Option defines a configuration option for the company cache.
type Option func(*Opts)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithClock injects the time source. Tests use this to step time forward.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

type entry struct {
	companies []models.Company
	storedAt  time.Time
}

// CompanyCache caches upstream company lists keyed by list identity.
type CompanyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewCompanyCache creates a company cache with the given options.
func NewCompanyCache(opts ...Option) *CompanyCache {
	cfg := Opts{TTL: DefaultTTL, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CompanyCache{
		ttl:     cfg.TTL,
		now:     cfg.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached list for key if present and not expired.
func (c *CompanyCache) Get(key string) ([]models.Company, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		slog.Debug("CompanyCache entry expired", "key", key)
		return nil, false
	}
	return e.companies, true
}

// Set stores the list under key, replacing any previous entry.
func (c *CompanyCache) Set(key string, companies []models.Company) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{companies: companies, storedAt: c.now()}
}

// Invalidate removes a single entry.
func (c *CompanyCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll clears the cache. Hard reset uses this so a restarted
// wizard sees fresh company data.
func (c *CompanyCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
