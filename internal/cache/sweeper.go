package cache

import (
	"context"
	"time"

	"github.com/regwave/regwave/internal/logging"
)

// Start launches the background sweep. Implements lifecycle.Component so
// the cache can be managed alongside the other long-lived services.
func (c *TagCache) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		c.started = true
		go c.sweepLoop()
	})
	c.logger.InfoWithFields("cache started",
		logging.Field("sweep_interval", c.sweepInterval),
		logging.Field("default_ttl", c.defaultTTL),
	)
	return nil
}

// Stop shuts the cache down. The context deadline is not needed: the sweep
// loop exits promptly on signal.
func (c *TagCache) Stop(ctx context.Context) error {
	c.Shutdown()
	c.logger.Info("cache stopped")
	return nil
}

// Name identifies the cache to the lifecycle manager.
func (c *TagCache) Name() string {
	return "cache"
}

func (c *TagCache) sweepLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := c.sweep(time.Now())
			if removed > 0 {
				c.logger.Debug("sweep removed %d expired entries", removed)
			}
		case <-c.stopCh:
			return
		}
	}
}

// sweep drops every entry expired as of now and returns how many were
// removed. Expired entries count as evictions; no invalidation callbacks
// fire for TTL housekeeping.
func (c *TagCache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for _, key := range c.lru.Keys() {
		if ent, ok := c.lru.Peek(key); ok && ent.expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.lru.Remove(key)
	}
	return len(expired)
}
