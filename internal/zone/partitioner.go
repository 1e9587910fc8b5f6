package zone

import (
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Partition is the result of expanding a location into sub-areas.
type Partition struct {
	IsPartitioned bool     `json:"is_partitioned"`
	Areas         []string `json:"areas"`
	CanonicalKey  string   `json:"canonical_key,omitempty"`
}

// Partitioner expands a free-text location into the sub-areas to search.
// The table is supplied at construction; AddZone extends it at runtime.
type Partitioner struct {
	mu    sync.RWMutex
	zones []Zone
}

// NewPartitioner creates a Partitioner from a zone table.
func NewPartitioner(table *Table) *Partitioner {
	p := &Partitioner{}
	if table != nil {
		p.zones = append(p.zones, table.Zones...)
	}
	return p
}

// Partition matches the location against the zone table. Only an exact alias
// match, or an exact "alias, country" match, expands into sub-areas. Substring
// containment never triggers: a neighborhood already qualified by its city
// must pass through unchanged.
func (p *Partitioner) Partition(location string) Partition {
	trimmed := strings.TrimSpace(location)
	needle := normalizeKey(trimmed)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if needle != "" {
		for _, z := range p.zones {
			for _, alias := range z.Aliases {
				a := normalizeKey(alias)
				if needle == a || (z.Country != "" && needle == a+", "+normalizeKey(z.Country)) {
					areas := make([]string, len(z.SubAreas))
					copy(areas, z.SubAreas)
					return Partition{IsPartitioned: true, Areas: areas, CanonicalKey: z.Key}
				}
			}
		}
	}

	return Partition{IsPartitioned: false, Areas: []string{trimmed}}
}

// AddZone registers a custom zone at runtime.
func (p *Partitioner) AddZone(z Zone) error {
	if z.Key == "" {
		return eris.New("zone: key is required")
	}
	if len(z.Aliases) == 0 {
		return eris.New("zone: at least one alias is required")
	}
	if len(z.SubAreas) == 0 {
		return eris.New("zone: at least one sub-area is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.zones {
		if existing.Key == z.Key {
			return eris.Errorf("zone: key %q already registered", z.Key)
		}
	}
	p.zones = append(p.zones, z)
	return nil
}

// Zones returns a copy of the registered zones.
func (p *Partitioner) Zones() []Zone {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Zone, len(p.zones))
	copy(out, p.zones)
	return out
}
