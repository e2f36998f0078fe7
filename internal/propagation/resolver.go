package propagation

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/regwave/regwave/internal/models"
	"github.com/regwave/regwave/internal/store"
)

// nameCacheTTL bounds how stale a prefetched display name can get. Names
// are cosmetic; a short TTL avoids per-node store lookups without holding
// renamed entities for long.
const nameCacheTTL = 5 * time.Minute

// NameResolver resolves display names for reached nodes. It prefetches all
// active names of a (tenant, type) pair in one store call and memoizes the
// map, so a propagation run costs at most five lookups instead of one per
// node. Lookup failures fall back to the id; they never fail a run.
type NameResolver struct {
	store store.Store
	names *gocache.Cache
}

// NewNameResolver wires a resolver over the store.
func NewNameResolver(st store.Store) *NameResolver {
	return &NameResolver{
		store: st,
		names: gocache.New(nameCacheTTL, 2*nameCacheTTL),
	}
}

// Resolve returns the display name for ref within the tenant, or the raw
// id when no name can be found.
func (r *NameResolver) Resolve(ctx context.Context, tenantID string, ref models.NodeRef) string {
	key := tenantID + ":" + string(ref.Type)

	var names map[string]string
	if cached, ok := r.names.Get(key); ok {
		names = cached.(map[string]string)
	} else {
		fetched, err := r.store.ActiveEntityNames(ctx, tenantID, ref.Type)
		if err != nil {
			// Prefetch failed; try the single lookup before giving up.
			if name, err := r.store.DisplayName(ctx, ref.Type, ref.ID); err == nil && name != "" {
				return name
			}
			return ref.ID
		}
		r.names.SetDefault(key, fetched)
		names = fetched
	}

	if name, ok := names[ref.ID]; ok && name != "" {
		return name
	}
	return ref.ID
}

// Invalidate drops the memoized names of one tenant and type, forcing the
// next Resolve to prefetch again.
func (r *NameResolver) Invalidate(tenantID string, entityType models.NodeType) {
	r.names.Delete(tenantID + ":" + string(entityType))
}
