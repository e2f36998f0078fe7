package propagation

import "github.com/regwave/regwave/internal/models"

const (
	// DefaultMaxDepth caps the traversal when no depth is configured.
	DefaultMaxDepth = 10
	// MaxDepthLimit is the hard upper bound on the configurable depth.
	MaxDepthLimit = 20
	// DefaultImpactThreshold prunes branches whose accumulated impact
	// falls below it.
	DefaultImpactThreshold = 0.01
	// DefaultInitialImpact seeds ad-hoc propagations.
	DefaultInitialImpact = 1.0
)

// Options tune one engine. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	MaxDepth        int     `json:"maxDepth"`        // [1,20]
	ImpactThreshold float64 `json:"impactThreshold"` // [0,1]
	IncludeIndirect bool    `json:"includeIndirect"`
}

// DefaultOptions returns the documented defaults: depth 10, threshold
// 0.01, indirect edges included.
func DefaultOptions() Options {
	return Options{
		MaxDepth:        DefaultMaxDepth,
		ImpactThreshold: DefaultImpactThreshold,
		IncludeIndirect: true,
	}
}

// Validate rejects out-of-range tunables.
func (o Options) Validate() error {
	if o.MaxDepth < 1 || o.MaxDepth > MaxDepthLimit {
		return models.NewInvalidError("maxDepth %d outside [1,%d]", o.MaxDepth, MaxDepthLimit)
	}
	if o.ImpactThreshold < 0 || o.ImpactThreshold > 1 {
		return models.NewInvalidError("impactThreshold %.4f outside [0,1]", o.ImpactThreshold)
	}
	return nil
}

// Config seeds one propagation run.
type Config struct {
	Source        models.NodeRef `json:"source"`
	InitialImpact float64        `json:"initialImpact"` // [0,1]
}

// Validate rejects malformed seeds.
func (c Config) Validate() error {
	if !c.Source.Type.Valid() {
		return models.NewInvalidError("unknown source type %q", c.Source.Type)
	}
	if c.Source.ID == "" {
		return models.NewInvalidError("source id required")
	}
	if c.InitialImpact < 0 || c.InitialImpact > 1 {
		return models.NewInvalidError("initialImpact %.4f outside [0,1]", c.InitialImpact)
	}
	return nil
}
