package costsurface

import "rover/grid"

// SiteCosts assigns a traversal cost to each construction-site class. Zero
// leaves the tile at terrain default.
type SiteCosts struct {
	FriendlyInactive uint8 `yaml:"friendly_inactive" json:"friendly_inactive"`
	FriendlyActive   uint8 `yaml:"friendly_active" json:"friendly_active"`
	HostileInactive  uint8 `yaml:"hostile_inactive" json:"hostile_inactive"`
	HostileActive    uint8 `yaml:"hostile_active" json:"hostile_active"`
}

// Proximity limits the friendly-agent layer to agents within Radius tiles of
// Origin.
type Proximity struct {
	Origin grid.Position
	Radius uint8
}

// Options selects which layers are composed and the costs they apply.
type Options struct {
	Structures        bool `yaml:"structures" json:"structures"`
	ConstructionSites bool `yaml:"construction_sites" json:"construction_sites"`
	FriendlyAgents    bool `yaml:"friendly_agents" json:"friendly_agents"`
	HostileAgents     bool `yaml:"hostile_agents" json:"hostile_agents"`
	DangerZones       bool `yaml:"danger_zones" json:"danger_zones"`

	RoadCost   uint8     `yaml:"road_cost" json:"road_cost"`
	PlainCost  uint8     `yaml:"plain_cost" json:"plain_cost"`
	SwampCost  uint8     `yaml:"swamp_cost" json:"swamp_cost"`
	DangerCost uint8     `yaml:"danger_cost" json:"danger_cost"`
	Sites      SiteCosts `yaml:"sites" json:"sites"`

	// Proximity, when set, filters the friendly-agent layer.
	Proximity *Proximity `yaml:"-" json:"-"`
}

// DefaultOptions returns the composition used when a request does not supply
// its own.
func DefaultOptions() Options {
	return Options{
		Structures:        true,
		ConstructionSites: true,
		HostileAgents:     true,
		DangerZones:       true,
		RoadCost:          1,
		PlainCost:         2,
		SwampCost:         10,
		DangerCost:        Impassable,
		Sites: SiteCosts{
			HostileActive: Impassable,
		},
	}
}

// WithProximity returns a copy of o filtering friendly agents around origin.
func (o Options) WithProximity(origin grid.Position, radius uint8) Options {
	o.FriendlyAgents = true
	o.Proximity = &Proximity{Origin: origin, Radius: radius}
	return o
}

// WithFriendlyAgents returns a copy of o that blocks every friendly agent.
func (o Options) WithFriendlyAgents() Options {
	o.FriendlyAgents = true
	o.Proximity = nil
	return o
}

func (p *Proximity) keep(region grid.RegionID) func(grid.Location) bool {
	return func(l grid.Location) bool {
		return p.Origin.InRangeTo(l.In(region), uint32(p.Radius))
	}
}
