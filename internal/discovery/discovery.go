// Package discovery locates the Hue bridge on the local network.
//
// Strategies are tried in a fixed order and the first one returning exactly one
// usable bridge wins; strategies after it are never invoked. Strategy failures are
// collected and only reported once every strategy came up empty.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dokzlo13/huebackup/internal/logging"
)

// ErrNotFound is matched by the error Discover returns when no strategy found a bridge.
var ErrNotFound = errors.New("could not find any bridge")

// Identity is a discovered bridge.
type Identity struct {
	Address  string
	Name     string
	Metadata map[string]any
}

// Candidate is one bridge reported by a strategy, already normalized.
type Candidate struct {
	Address  string
	Name     string
	Metadata map[string]any
	// Err is set when the bridge was seen but could not be reached.
	Err error
}

// Strategy is one way of finding bridges.
type Strategy interface {
	Name() string
	Search(ctx context.Context) ([]Candidate, error)
}

// NotFoundError carries the per-strategy errors collected during a failed discovery.
type NotFoundError struct {
	Errors []error
}

func (e *NotFoundError) Error() string {
	if len(e.Errors) == 0 {
		return ErrNotFound.Error()
	}
	details := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		details[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(details, "; "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() []error {
	return e.Errors
}

// Discoverer runs the strategy chain.
type Discoverer struct {
	strategies []Strategy
	log        logging.Logger
}

// New creates a discoverer trying strategies in the given order.
func New(strategies ...Strategy) *Discoverer {
	return &Discoverer{
		strategies: strategies,
		log:        logging.Named("discovery"),
	}
}

// Discover returns the single bridge found by the first successful strategy.
// When none succeeds the returned error is a *NotFoundError.
func (d *Discoverer) Discover(ctx context.Context) (*Identity, error) {
	var errs []error

	for _, s := range d.strategies {
		d.log.Debug().Str("strategy", s.Name()).Msg("Searching for bridges")

		identity, err := d.run(ctx, s)
		if err != nil {
			d.log.Debug().Err(err).Str("strategy", s.Name()).Msg("Discovery strategy failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if identity != nil {
			d.log.Info().
				Str("strategy", s.Name()).
				Str("address", identity.Address).
				Str("name", identity.Name).
				Msg("Found bridge")
			return identity, nil
		}
	}

	d.log.Error().Msg("Could not find any bridge")
	for _, err := range errs {
		d.log.Error().Err(err).Msg("Discovery error")
	}

	return nil, &NotFoundError{Errors: errs}
}

// run returns (nil, nil) when the strategy found nothing usable.
func (d *Discoverer) run(ctx context.Context, s Strategy) (*Identity, error) {
	candidates, err := s.Search(ctx)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		d.log.Debug().Str("strategy", s.Name()).Msg("No bridge found")
		return nil, nil
	case 1:
	default:
		addresses := make([]string, 0, len(candidates))
		for _, c := range candidates {
			addresses = append(addresses, c.Address)
		}
		d.log.Warn().
			Str("strategy", s.Name()).
			Strs("addresses", addresses).
			Msg("Found more than one bridge. Multiple bridges are not supported; " +
				"set ipAddress in the stored configuration by hand to pick one")
		return nil, nil
	}

	c := candidates[0]
	if c.Address == "" {
		return nil, errors.New("bridge reported without an address")
	}
	if c.Err != nil {
		return nil, fmt.Errorf("bridge at %s is unreachable: %w", c.Address, c.Err)
	}

	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Identity{Address: c.Address, Name: c.Name, Metadata: metadata}, nil
}
