package costsurface

import "rover/grid"

// StructureLayer is the durable layer: roads plus every other structure with
// its reported cost.
type StructureLayer struct {
	Roads Matrix `json:"roads"`
	Other Matrix `json:"other"`
}

// ConstructionLayer splits construction sites by ownership and progress.
type ConstructionLayer struct {
	Blocked          Matrix
	FriendlyInactive Matrix
	FriendlyActive   Matrix
	HostileInactive  Matrix
	HostileActive    Matrix
}

// AgentLayer holds agent positions split by population.
type AgentLayer struct {
	Friendly Matrix
	Hostile  Matrix
}

// DangerLayer marks tiles inside hostile aggression zones.
type DangerLayer struct {
	Zones Matrix
}

// DataSource returns raw per-layer obstacle data for a region. The boolean
// is false when the region is not currently observable.
type DataSource interface {
	Structures(region grid.RegionID) (StructureLayer, bool)
	ConstructionSites(region grid.RegionID) (ConstructionLayer, bool)
	Agents(region grid.RegionID) (AgentLayer, bool)
	DangerZones(region grid.RegionID) (DangerLayer, bool)
}

func (l StructureLayer) clone() StructureLayer {
	return StructureLayer{Roads: l.Roads.clone(), Other: l.Other.clone()}
}
