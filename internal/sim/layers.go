package sim

import (
	"rover/costsurface"
	"rover/grid"
)

// AddRoad marks p as a road.
func (w *World) AddRoad(p grid.Position) {
	layer := w.structureLayer(p.Region)
	layer.Roads.Set(p.X, p.Y, 1)
}

// AddStructure places a structure with the given traversal cost. Impassable
// structures use costsurface.Impassable.
func (w *World) AddStructure(p grid.Position, cost uint8) {
	layer := w.structureLayer(p.Region)
	layer.Other.Set(p.X, p.Y, cost)
}

// AddSite places a construction site.
func (w *World) AddSite(p grid.Position, class SiteClass) {
	layer, ok := w.sites[p.Region]
	if !ok {
		layer = &costsurface.ConstructionLayer{}
		w.sites[p.Region] = layer
	}
	var m *costsurface.Matrix
	switch class {
	case SiteFriendlyInactive:
		m = &layer.FriendlyInactive
	case SiteFriendlyActive:
		m = &layer.FriendlyActive
	case SiteHostileInactive:
		m = &layer.HostileInactive
	case SiteHostileActive:
		m = &layer.HostileActive
	default:
		m = &layer.Blocked
	}
	m.Set(p.X, p.Y, costsurface.Impassable)
}

// AddDanger marks p as inside a hostile aggression zone.
func (w *World) AddDanger(p grid.Position) {
	layer, ok := w.danger[p.Region]
	if !ok {
		layer = &costsurface.DangerLayer{}
		w.danger[p.Region] = layer
	}
	layer.Zones.Set(p.X, p.Y, costsurface.Impassable)
}

func (w *World) structureLayer(region grid.RegionID) *costsurface.StructureLayer {
	layer, ok := w.structures[region]
	if !ok {
		layer = &costsurface.StructureLayer{}
		w.structures[region] = layer
	}
	return layer
}

func (w *World) observable(region grid.RegionID) bool {
	return w.Terrain.HasRegion(region) && !w.hidden[region]
}

// Structures implements costsurface.DataSource.
func (w *World) Structures(region grid.RegionID) (costsurface.StructureLayer, bool) {
	if !w.observable(region) {
		return costsurface.StructureLayer{}, false
	}
	if layer, ok := w.structures[region]; ok {
		return *layer, true
	}
	return costsurface.StructureLayer{}, true
}

// ConstructionSites implements costsurface.DataSource.
func (w *World) ConstructionSites(region grid.RegionID) (costsurface.ConstructionLayer, bool) {
	if !w.observable(region) {
		return costsurface.ConstructionLayer{}, false
	}
	if layer, ok := w.sites[region]; ok {
		return *layer, true
	}
	return costsurface.ConstructionLayer{}, true
}

// Agents implements costsurface.DataSource from current agent positions.
func (w *World) Agents(region grid.RegionID) (costsurface.AgentLayer, bool) {
	if !w.observable(region) {
		return costsurface.AgentLayer{}, false
	}
	var layer costsurface.AgentLayer
	for _, name := range w.Names() {
		a := w.agents[name]
		if a.Inactive || a.Pos.Region != region {
			continue
		}
		if a.Hostile {
			layer.Hostile.Set(a.Pos.X, a.Pos.Y, costsurface.Impassable)
		} else {
			layer.Friendly.Set(a.Pos.X, a.Pos.Y, costsurface.Impassable)
		}
	}
	return layer, true
}

// DangerZones implements costsurface.DataSource.
func (w *World) DangerZones(region grid.RegionID) (costsurface.DangerLayer, bool) {
	if !w.observable(region) {
		return costsurface.DangerLayer{}, false
	}
	if layer, ok := w.danger[region]; ok {
		return *layer, true
	}
	return costsurface.DangerLayer{}, true
}
