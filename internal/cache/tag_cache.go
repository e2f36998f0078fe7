// Package cache implements the process-wide tag-aware cache. Entries are
// namespaced by tenant, carry a tag set for group invalidation, expire by
// TTL, and sit in a bounded LRU so memory stays capped. Subscribers can
// observe invalidations through registered callbacks.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/regwave/regwave/internal/logging"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = 30 * time.Minute
	// DefaultSweepInterval is how often the background sweep drops expired
	// entries.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultMaxEntries bounds the LRU when no capacity is configured.
	DefaultMaxEntries = 16384
)

// InvalidationCallback observes one invalidated entry. It receives the full
// internal key ("tenant:key") and the entry's effective tag set.
type InvalidationCallback func(fullKey string, tags []string)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// Config carries the tunables for a TagCache. Zero values select the
// defaults above.
type Config struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	MaxEntries    int
}

type entry struct {
	value     interface{}
	tags      []string // effective tags: tenant plus caller tags
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TagCache is the tenant-scoped key/value cache with tag-union
// invalidation. All operations are safe for concurrent use.
type TagCache struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, *entry]
	tags map[string]map[string]struct{} // tag -> set of full keys

	defaultTTL    time.Duration
	sweepInterval time.Duration

	hits      int64
	misses    int64
	evictions int64

	// internalRemove marks removals driven by Delete/Invalidate/Clear so
	// the LRU eviction hook can tell them apart from capacity and TTL
	// evictions. Guarded by mu like every LRU mutation.
	internalRemove bool

	cbMu      sync.RWMutex
	callbacks map[int]InvalidationCallback
	nextCbID  int

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	logger *logging.Logger
}

// New constructs a TagCache. The background sweep does not run until Start
// is called.
func New(cfg Config) (*TagCache, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	c := &TagCache{
		tags:          make(map[string]map[string]struct{}),
		defaultTTL:    cfg.DefaultTTL,
		sweepInterval: cfg.SweepInterval,
		callbacks:     make(map[int]InvalidationCallback),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		logger:        logging.GetLogger("cache"),
	}

	store, err := lru.NewWithEvict[string, *entry](cfg.MaxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create lru store: %w", err)
	}
	c.lru = store
	return c, nil
}

// fullKey namespaces a caller key under its tenant. The tenant prefix is
// what guarantees isolation between tenants sharing the process.
func fullKey(tenant, key string) string {
	return tenant + ":" + key
}

// onEvict keeps the tag index consistent for every removal the LRU
// performs. Capacity and TTL removals count as evictions; explicit deletes
// and invalidations do not.
func (c *TagCache) onEvict(key string, ent *entry) {
	for _, tag := range ent.tags {
		if set, ok := c.tags[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.tags, tag)
			}
		}
	}
	if !c.internalRemove {
		atomic.AddInt64(&c.evictions, 1)
	}
}

// Set stores value under the tenant-namespaced key. The effective tag set
// is {tenant} plus the given tags. A non-positive ttl selects the default.
func (c *TagCache) Set(tenant, key string, value interface{}, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	effective := make([]string, 0, len(tags)+1)
	effective = append(effective, tenant)
	for _, t := range tags {
		if t != "" && t != tenant {
			effective = append(effective, t)
		}
	}

	fk := fullKey(tenant, key)
	ent := &entry{
		value:     value,
		tags:      effective,
		expiresAt: time.Now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace any previous entry first so the old tag memberships never
	// survive the overwrite. Overwrites are not evictions.
	if _, ok := c.lru.Peek(fk); ok {
		c.internalRemove = true
		c.lru.Remove(fk)
		c.internalRemove = false
	}

	c.lru.Add(fk, ent)
	for _, tag := range effective {
		set, ok := c.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			c.tags[tag] = set
		}
		set[fk] = struct{}{}
	}
}

// Get returns the live value for the tenant's key. Expired entries are
// dropped inline and counted as evictions.
func (c *TagCache) Get(tenant, key string) (interface{}, bool) {
	fk := fullKey(tenant, key)

	c.mu.Lock()
	ent, ok := c.lru.Get(fk)
	if ok && ent.expired(time.Now()) {
		c.lru.Remove(fk) // counts the eviction via onEvict
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return ent.value, true
}

// Has reports whether the tenant's key holds a live value.
func (c *TagCache) Has(tenant, key string) bool {
	_, ok := c.Get(tenant, key)
	return ok
}

// Delete removes the tenant's key and fires invalidation callbacks with the
// entry's tags. Returns false when the key was absent.
func (c *TagCache) Delete(tenant, key string) bool {
	fk := fullKey(tenant, key)

	c.mu.Lock()
	ent, ok := c.lru.Peek(fk)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.internalRemove = true
	c.lru.Remove(fk)
	c.internalRemove = false
	c.mu.Unlock()

	c.notify([]removed{{key: fk, tags: ent.tags}})
	return true
}

// InvalidateTenant removes every entry scoped to the tenant and returns the
// count removed.
func (c *TagCache) InvalidateTenant(tenant string) int {
	return c.InvalidateByTags([]string{tenant})
}

// InvalidateByTag removes every entry carrying the tag, across tenants.
func (c *TagCache) InvalidateByTag(tag string) int {
	return c.InvalidateByTags([]string{tag})
}

// InvalidateByTags removes every entry carrying any of the tags (union
// semantics) and returns the count removed.
func (c *TagCache) InvalidateByTags(tags []string) int {
	return c.invalidate(tags, "")
}

// invalidate removes entries matching any of the tags. When scope is
// non-empty, only entries also carrying the scope tag (the tenant) are
// touched, keeping other tenants' entries intact.
func (c *TagCache) invalidate(tags []string, scope string) int {
	c.mu.Lock()

	keys := make(map[string]struct{})
	for _, tag := range tags {
		for key := range c.tags[tag] {
			if scope != "" {
				if _, inScope := c.tags[scope][key]; !inScope {
					continue
				}
			}
			keys[key] = struct{}{}
		}
	}

	invalidated := make([]removed, 0, len(keys))
	c.internalRemove = true
	for key := range keys {
		if ent, ok := c.lru.Peek(key); ok {
			c.lru.Remove(key)
			invalidated = append(invalidated, removed{key: key, tags: ent.tags})
		}
	}
	c.internalRemove = false
	c.mu.Unlock()

	c.notify(invalidated)
	return len(invalidated)
}

// OnInvalidation registers a callback fired once per invalidated entry.
// The returned function unregisters it.
func (c *TagCache) OnInvalidation(cb InvalidationCallback) func() {
	c.cbMu.Lock()
	id := c.nextCbID
	c.nextCbID++
	c.callbacks[id] = cb
	c.cbMu.Unlock()

	return func() {
		c.cbMu.Lock()
		delete(c.callbacks, id)
		c.cbMu.Unlock()
	}
}

type removed struct {
	key  string
	tags []string
}

// notify fans invalidations out to registered callbacks. A panicking
// callback is logged and never aborts the remaining notifications.
func (c *TagCache) notify(entries []removed) {
	if len(entries) == 0 {
		return
	}

	c.cbMu.RLock()
	cbs := make([]InvalidationCallback, 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		cbs = append(cbs, cb)
	}
	c.cbMu.RUnlock()

	if len(cbs) == 0 {
		return
	}

	for _, ent := range entries {
		for _, cb := range cbs {
			c.safeCall(cb, ent)
		}
	}
}

func (c *TagCache) safeCall(cb InvalidationCallback, ent removed) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorWithFields("invalidation callback panicked",
				logging.Field("key", ent.key),
				logging.Field("panic", fmt.Sprintf("%v", r)),
			)
		}
	}()
	cb(ent.key, ent.tags)
}

// Stats returns a snapshot of the counters. Size includes entries that have
// expired but not yet been swept.
func (c *TagCache) Stats() Stats {
	c.mu.Lock()
	size := c.lru.Len()
	c.mu.Unlock()

	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      size,
	}
}

// ResetStats zeroes the hit, miss, and eviction counters.
func (c *TagCache) ResetStats() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Clear drops all entries and tag memberships without firing callbacks or
// counting evictions.
func (c *TagCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.internalRemove = true
	c.lru.Purge()
	c.internalRemove = false
	c.tags = make(map[string]map[string]struct{})
}

// Shutdown stops the background sweep and clears all state. Safe to call
// more than once.
func (c *TagCache) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.started {
			<-c.doneCh
		}
	})
	c.Clear()
}
