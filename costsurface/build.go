package costsurface

import "rover/grid"

// Build composes the surface for region from the cached layers selected by
// opts, reading through to src for layers that are missing or stale. Calls
// with the same cache contents and options produce equal surfaces; the
// returned surface is never retained.
func Build(cache *Cache, src DataSource, region grid.RegionID, opts Options) *Surface {
	if cache == nil {
		cache = NewCache()
	}
	s := NewSurface()

	if opts.Structures {
		if layer, ok := cache.structures(src, region); ok {
			road := opts.RoadCost
			layer.Roads.ApplyTransformed(s, func(uint8) uint8 { return road })
			layer.Other.ApplyTo(s)
		}
	}

	if opts.ConstructionSites {
		if layer, ok := cache.constructionSites(src, region); ok {
			applySites(s, layer, opts.Sites)
		}
	}

	if opts.HostileAgents {
		if layer, ok := cache.agents(src, region); ok {
			layer.Hostile.ApplyTransformed(s, blockAll)
		}
	}

	if opts.FriendlyAgents {
		if layer, ok := cache.agents(src, region); ok {
			if opts.Proximity != nil {
				keep := opts.Proximity.keep(region)
				for _, e := range layer.Friendly.Entries {
					if keep(e.Loc) {
						s.SetLocation(e.Loc, Impassable)
					}
				}
			} else {
				layer.Friendly.ApplyTransformed(s, blockAll)
			}
		}
	}

	if opts.DangerZones && opts.DangerCost != TerrainDefault {
		if layer, ok := cache.dangerZones(src, region); ok {
			for _, e := range layer.Zones.Entries {
				s.raise(e.Loc, opts.DangerCost)
			}
		}
	}

	return s
}

func blockAll(uint8) uint8 { return Impassable }

func applySites(s *Surface, layer ConstructionLayer, costs SiteCosts) {
	layer.Blocked.ApplyTransformed(s, blockAll)
	for _, pair := range []struct {
		m    Matrix
		cost uint8
	}{
		{layer.FriendlyInactive, costs.FriendlyInactive},
		{layer.FriendlyActive, costs.FriendlyActive},
		{layer.HostileInactive, costs.HostileInactive},
		{layer.HostileActive, costs.HostileActive},
	} {
		if pair.cost == TerrainDefault {
			continue
		}
		cost := pair.cost
		pair.m.ApplyTransformed(s, func(uint8) uint8 { return cost })
	}
}
