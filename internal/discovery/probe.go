package discovery

import (
	"context"
	"time"

	"github.com/dokzlo13/huebackup/internal/hue"
)

// ProbeFunc fetches the public configuration of the bridge at address.
type ProbeFunc func(ctx context.Context, address string) (map[string]any, error)

// NewProbe returns a ProbeFunc querying the bridge's unauthenticated config endpoint.
func NewProbe(timeout time.Duration) ProbeFunc {
	return func(ctx context.Context, address string) (map[string]any, error) {
		client := hue.NewClient(address, "", timeout)
		defer client.Close()
		return client.PublicConfig(ctx)
	}
}

// normalize builds a candidate, enriching it with the probed bridge config when a probe is set.
// Fields already in metadata win over probed ones.
func normalize(ctx context.Context, probe ProbeFunc, address, name string, metadata map[string]any) Candidate {
	c := Candidate{Address: address, Name: name, Metadata: metadata}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if probe == nil || address == "" {
		return c
	}

	cfg, err := probe(ctx, address)
	if err != nil {
		c.Err = err
		return c
	}
	for k, v := range cfg {
		if _, ok := c.Metadata[k]; !ok {
			c.Metadata[k] = v
		}
	}
	if bridgeName, ok := cfg["name"].(string); ok && bridgeName != "" {
		c.Name = bridgeName
	}
	return c
}
