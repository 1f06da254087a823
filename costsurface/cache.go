package costsurface

import "rover/grid"

// DefaultRefreshInterval rescans an observable region's structures every
// cycle.
const DefaultRefreshInterval = 1

// Stamped tags layer data with the cycle it was read in.
type Stamped[T any] struct {
	Cycle   uint64 `json:"cycle"`
	Present bool   `json:"present"`
	Data    T      `json:"data"`
}

// RegionEntry holds the raw layers for one region. Only the structure layer
// is serialised; the ephemeral layers are valid for the cycle that read them.
type RegionEntry struct {
	Structures *Stamped[StructureLayer] `json:"structures,omitempty"`

	construction *Stamped[ConstructionLayer]
	agents       *Stamped[AgentLayer]
	danger       *Stamped[DangerLayer]
}

// Cache stores raw layer data per region. It is owned by the caller and
// handed to Build for the duration of a single call.
type Cache struct {
	Regions map[grid.RegionID]*RegionEntry `json:"regions"`

	// RefreshInterval is the number of cycles a durable structure layer is
	// trusted while its region is observable.
	RefreshInterval uint64 `json:"-"`

	cycle uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		Regions:         make(map[grid.RegionID]*RegionEntry),
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Advance starts a new cycle. Ephemeral layers read in earlier cycles are
// never served again.
func (c *Cache) Advance(cycle uint64) {
	if c == nil {
		return
	}
	c.cycle = cycle
}

// Cycle reports the current cycle.
func (c *Cache) Cycle() uint64 {
	if c == nil {
		return 0
	}
	return c.cycle
}

// Invalidate drops every layer for region, forcing a rescan of the durable
// layer on next use.
func (c *Cache) Invalidate(region grid.RegionID) {
	if c == nil {
		return
	}
	delete(c.Regions, region)
}

// HasStructures reports whether a durable layer is cached for region.
func (c *Cache) HasStructures(region grid.RegionID) bool {
	if c == nil {
		return false
	}
	entry, ok := c.Regions[region]
	return ok && entry.Structures != nil && entry.Structures.Present
}

func (c *Cache) entry(region grid.RegionID) *RegionEntry {
	if c.Regions == nil {
		c.Regions = make(map[grid.RegionID]*RegionEntry)
	}
	entry, ok := c.Regions[region]
	if !ok {
		entry = &RegionEntry{}
		c.Regions[region] = entry
	}
	return entry
}

func (c *Cache) structures(src DataSource, region grid.RegionID) (StructureLayer, bool) {
	entry := c.entry(region)
	current := entry.Structures
	interval := c.RefreshInterval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	stale := current == nil || current.Cycle > c.cycle || c.cycle-current.Cycle >= interval
	if stale && src != nil {
		if layer, ok := src.Structures(region); ok {
			current = &Stamped[StructureLayer]{Cycle: c.cycle, Present: true, Data: layer.clone()}
			entry.Structures = current
		}
	}
	if current == nil || !current.Present {
		return StructureLayer{}, false
	}
	return current.Data, true
}

func (c *Cache) constructionSites(src DataSource, region grid.RegionID) (ConstructionLayer, bool) {
	entry := c.entry(region)
	if entry.construction == nil || entry.construction.Cycle != c.cycle {
		next := &Stamped[ConstructionLayer]{Cycle: c.cycle}
		if src != nil {
			next.Data, next.Present = src.ConstructionSites(region)
		}
		entry.construction = next
	}
	return entry.construction.Data, entry.construction.Present
}

func (c *Cache) agents(src DataSource, region grid.RegionID) (AgentLayer, bool) {
	entry := c.entry(region)
	if entry.agents == nil || entry.agents.Cycle != c.cycle {
		next := &Stamped[AgentLayer]{Cycle: c.cycle}
		if src != nil {
			next.Data, next.Present = src.Agents(region)
		}
		entry.agents = next
	}
	return entry.agents.Data, entry.agents.Present
}

func (c *Cache) dangerZones(src DataSource, region grid.RegionID) (DangerLayer, bool) {
	entry := c.entry(region)
	if entry.danger == nil || entry.danger.Cycle != c.cycle {
		next := &Stamped[DangerLayer]{Cycle: c.cycle}
		if src != nil {
			next.Data, next.Present = src.DangerZones(region)
		}
		entry.danger = next
	}
	return entry.danger.Data, entry.danger.Present
}
