package discovery

import (
	"context"
	"fmt"

	"github.com/amimof/huego"
)

// Registry finds bridges through the Hue N-UPnP registry, which lists the bridges
// that announced themselves from the caller's public address.
type Registry struct {
	lookup func(context.Context) ([]huego.Bridge, error)
	probe  ProbeFunc
}

// NewRegistry creates the registry strategy. probe may be nil.
func NewRegistry(probe ProbeFunc) *Registry {
	return &Registry{
		lookup: huego.DiscoverAllContext,
		probe:  probe,
	}
}

// Name implements Strategy.
func (r *Registry) Name() string {
	return "registry"
}

// Search implements Strategy.
func (r *Registry) Search(ctx context.Context) ([]Candidate, error) {
	bridges, err := r.lookup(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry lookup failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(bridges))
	for _, b := range bridges {
		metadata := map[string]any{}
		if b.ID != "" {
			metadata["id"] = b.ID
		}
		candidates = append(candidates, normalize(ctx, r.probe, b.Host, "", metadata))
	}
	return candidates, nil
}
