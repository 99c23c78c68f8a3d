package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// MDNS finds bridges advertising the Hue service over multicast DNS.
type MDNS struct {
	service string
	domain  string
	timeout time.Duration
	probe   ProbeFunc
	query   func(*mdns.QueryParam) error
}

// NewMDNS creates the multicast DNS strategy. probe may be nil.
func NewMDNS(service, domain string, timeout time.Duration, probe ProbeFunc) *MDNS {
	return &MDNS{
		service: service,
		domain:  domain,
		timeout: timeout,
		probe:   probe,
		query:   mdns.Query,
	}
}

// Name implements Strategy.
func (m *MDNS) Name() string {
	return "mdns"
}

// Search implements Strategy. It listens for answers until the timeout elapses.
func (m *MDNS) Search(ctx context.Context) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entriesCh := make(chan *mdns.ServiceEntry, 16)
	var (
		entries []*mdns.ServiceEntry
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range entriesCh {
			entries = append(entries, e)
		}
	}()

	params := mdns.DefaultParams(m.service)
	params.Domain = m.domain
	params.Timeout = m.timeout
	params.Entries = entriesCh

	err := m.query(params)
	close(entriesCh)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	for _, e := range entries {
		address := entryAddress(e)
		if address != "" && seen[address] {
			continue
		}
		seen[address] = true
		candidates = append(candidates, normalize(ctx, m.probe, address, m.instanceName(e.Name), entryMetadata(e)))
	}
	return candidates, nil
}

func (m *MDNS) instanceName(name string) string {
	suffix := "." + m.service + "." + m.domain + "."
	name = strings.TrimSuffix(name, suffix)
	return strings.ReplaceAll(name, `\ `, " ")
}

func entryAddress(e *mdns.ServiceEntry) string {
	if e.AddrV4 != nil {
		return e.AddrV4.String()
	}
	if e.AddrV6 != nil {
		return e.AddrV6.String()
	}
	return ""
}

func entryMetadata(e *mdns.ServiceEntry) map[string]any {
	metadata := map[string]any{}
	if e.Host != "" {
		metadata["host"] = strings.TrimSuffix(e.Host, ".")
	}
	if e.Port != 0 {
		metadata["port"] = e.Port
	}
	for _, field := range e.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			continue
		}
		metadata[key] = value
	}
	return metadata
}
