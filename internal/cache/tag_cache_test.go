package cache

import (
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, cfg Config) *TagCache {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Shutdown)
	return c
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", "payload", time.Minute)

	got, ok := c.Get("t1", "graph")
	if !ok {
		t.Fatal("expected hit within TTL")
	}
	if got != "payload" {
		t.Errorf("Get = %v, want payload", got)
	}
	if !c.Has("t1", "graph") {
		t.Error("Has must report the live entry")
	}

	stats := c.Stats()
	if stats.Hits < 1 || stats.Size != 1 {
		t.Errorf("stats = %+v, want at least 1 hit and size 1", stats)
	}
}

func TestGetExpiredCountsEvictionOnce(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", "payload", 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	if _, ok := c.Get("t1", "graph"); ok {
		t.Fatal("expired entry must be absent")
	}
	if _, ok := c.Get("t1", "graph"); ok {
		t.Fatal("second read must also miss")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want exactly 1", stats.Evictions)
	}
	if stats.Misses != 2 {
		t.Errorf("misses = %d, want 2", stats.Misses)
	}
	if stats.Size != 0 {
		t.Errorf("size = %d, want 0", stats.Size)
	}
}

func TestTenantKeysDoNotCollide(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", "one", time.Minute)
	c.Set("t2", "graph", "two", time.Minute)

	if v, _ := c.Get("t1", "graph"); v != "one" {
		t.Errorf("tenant t1 = %v, want one", v)
	}
	if v, _ := c.Get("t2", "graph"); v != "two" {
		t.Errorf("tenant t2 = %v, want two", v)
	}
}

func TestInvalidateTenantIsolation(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", 1, time.Minute, TagDependencyGraph)
	c.Set("t1", "risks", 2, time.Minute, TagRiskScores)
	c.Set("t2", "graph", 3, time.Minute, TagDependencyGraph)

	if n := c.InvalidateTenant("t1"); n != 2 {
		t.Errorf("InvalidateTenant removed %d, want 2", n)
	}
	if c.Has("t1", "graph") || c.Has("t1", "risks") {
		t.Error("tenant t1 entries must be gone")
	}
	if !c.Has("t2", "graph") {
		t.Error("tenant t2 entry must survive a t1 invalidation")
	}
}

func TestInvalidateByTagsUnion(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "a", 1, time.Minute, "alpha")
	c.Set("t1", "b", 2, time.Minute, "beta")
	c.Set("t1", "c", 3, time.Minute, "gamma")

	if n := c.InvalidateByTags([]string{"alpha", "beta"}); n != 2 {
		t.Errorf("union invalidation removed %d, want 2", n)
	}
	if c.Has("t1", "a") || c.Has("t1", "b") {
		t.Error("tagged entries must be gone")
	}
	if !c.Has("t1", "c") {
		t.Error("unrelated entry must survive")
	}
}

func TestInvalidateByTagIsGlobal(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", 1, time.Minute, TagDependencyGraph)
	c.Set("t2", "graph", 2, time.Minute, TagDependencyGraph)

	if n := c.InvalidateByTag(TagDependencyGraph); n != 2 {
		t.Errorf("global tag invalidation removed %d, want 2", n)
	}
}

func TestConvenienceInvalidatorsAreTenantScoped(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "graph", 1, time.Minute, TagDependencyGraph)
	c.Set("t1", "impact:reg-1", 2, time.Minute, TagImpactAnalysis, TagRegulation("reg-1"))
	c.Set("t2", "graph", 3, time.Minute, TagDependencyGraph)

	if n := c.InvalidateRegulation("t1", "reg-1"); n != 2 {
		t.Errorf("InvalidateRegulation removed %d, want 2", n)
	}
	if !c.Has("t2", "graph") {
		t.Error("another tenant's graph must survive a scoped invalidation")
	}

	c.Set("t1", "graph", 1, time.Minute, TagDependencyGraph)
	if n := c.InvalidateEdges("t1"); n != 1 {
		t.Errorf("InvalidateEdges removed %d, want 1", n)
	}
	if !c.Has("t2", "graph") {
		t.Error("another tenant's graph must survive an edge invalidation")
	}
}

func TestDeleteFiresCallbacks(t *testing.T) {
	c := newTestCache(t, Config{})

	var mu sync.Mutex
	var gotKey string
	var gotTags []string
	unregister := c.OnInvalidation(func(fullKey string, tags []string) {
		mu.Lock()
		defer mu.Unlock()
		gotKey = fullKey
		gotTags = tags
	})

	c.Set("t1", "graph", 1, time.Minute, TagDependencyGraph)
	if !c.Delete("t1", "graph") {
		t.Fatal("Delete must report removal")
	}

	mu.Lock()
	if gotKey != "t1:graph" {
		t.Errorf("callback key = %q, want t1:graph", gotKey)
	}
	foundTenant, foundTag := false, false
	for _, tag := range gotTags {
		if tag == "t1" {
			foundTenant = true
		}
		if tag == TagDependencyGraph {
			foundTag = true
		}
	}
	mu.Unlock()
	if !foundTenant || !foundTag {
		t.Errorf("callback tags = %v, want tenant and dependency-graph tags", gotTags)
	}

	unregister()
	mu.Lock()
	gotKey = ""
	mu.Unlock()
	c.Set("t1", "graph", 1, time.Minute)
	c.Delete("t1", "graph")
	mu.Lock()
	defer mu.Unlock()
	if gotKey != "" {
		t.Error("unregistered callback must not fire")
	}

	if c.Delete("t1", "missing") {
		t.Error("Delete of an absent key must report false")
	}
}

func TestCallbackPanicIsSwallowed(t *testing.T) {
	c := newTestCache(t, Config{})

	var called bool
	c.OnInvalidation(func(string, []string) { panic("subscriber bug") })
	c.OnInvalidation(func(string, []string) { called = true })

	c.Set("t1", "graph", 1, time.Minute)
	c.Delete("t1", "graph") // must not panic the cache

	if !called {
		t.Error("a panicking callback must not starve the others")
	}
}

func TestCapacityEvictionKeepsTagIndexConsistent(t *testing.T) {
	c := newTestCache(t, Config{MaxEntries: 2})

	c.Set("t1", "a", 1, time.Minute, "alpha")
	c.Set("t1", "b", 2, time.Minute, "alpha")
	c.Set("t1", "c", 3, time.Minute, "alpha") // evicts "a"

	if c.Has("t1", "a") {
		t.Error("oldest entry must be evicted at capacity")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", c.Stats().Evictions)
	}

	// The evicted key must be gone from the tag index too: invalidating the
	// shared tag touches only the two survivors.
	if n := c.InvalidateByTag("alpha"); n != 2 {
		t.Errorf("tag invalidation removed %d, want 2", n)
	}
}

func TestOverwriteReplacesTags(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "impact", 1, time.Minute, "old-tag")
	c.Set("t1", "impact", 2, time.Minute, "new-tag")

	if n := c.InvalidateByTag("old-tag"); n != 0 {
		t.Errorf("stale tag removed %d entries, want 0", n)
	}
	if v, _ := c.Get("t1", "impact"); v != 2 {
		t.Errorf("entry = %v, want the overwritten value 2", v)
	}
	if n := c.InvalidateByTag("new-tag"); n != 1 {
		t.Errorf("current tag removed %d entries, want 1", n)
	}
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "short", 1, time.Millisecond)
	c.Set("t1", "long", 2, time.Hour)

	removed := c.sweep(time.Now().Add(time.Second))
	if removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", c.Stats().Evictions)
	}
	if !c.Has("t1", "long") {
		t.Error("unexpired entry must survive the sweep")
	}
}

func TestClearAndResetStats(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("t1", "a", 1, time.Minute)
	c.Get("t1", "a")
	c.Get("t1", "missing")

	c.Clear()
	if c.Stats().Size != 0 {
		t.Errorf("size after Clear = %d, want 0", c.Stats().Size)
	}

	c.ResetStats()
	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Evictions != 0 {
		t.Errorf("stats after reset = %+v, want all zero", stats)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	done := make(chan struct{})
	go func() {
		c.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown must not block when the sweeper never started")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, Config{MaxEntries: 128})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tenant := "t1"
			if n%2 == 0 {
				tenant = "t2"
			}
			for j := 0; j < 200; j++ {
				c.Set(tenant, "k", j, time.Minute, TagDependencyGraph)
				c.Get(tenant, "k")
				if j%50 == 0 {
					c.InvalidateEdges(tenant)
				}
			}
		}(i)
	}
	wg.Wait()
}
