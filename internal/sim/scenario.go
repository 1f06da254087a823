package sim

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rover"
	"rover/costsurface"
	"rover/grid"
	"rover/internal/stuck"
	"rover/search"
)

// Point is a pair of world tile coordinates, written [x, y] in YAML.
type Point [2]int

// Pos converts p to a grid position.
func (p Point) Pos() grid.Position {
	return grid.FromWorld(p[0], p[1])
}

// Scenario describes a world, its agents and their standing orders.
//
// Map rows are read from world (0, 0) downwards:
//
//	'.' plain   '#' wall       '~' swamp
//	'=' road    'x' danger     's' blocked construction site
//	'o' impassable structure
type Scenario struct {
	Name    string       `yaml:"name" jsonschema:"required"`
	Cycles  int          `yaml:"cycles"`
	Regions []Point      `yaml:"regions"`
	Hostile []Point      `yaml:"hostile_regions"`
	Map     []string     `yaml:"map"`
	Engine  rover.Config `yaml:"engine"`
	Agents  []AgentSpec  `yaml:"agents"`
}

// AgentSpec places one agent and gives it an order.
type AgentSpec struct {
	Name        string            `yaml:"name" jsonschema:"required"`
	Pos         Point             `yaml:"pos" jsonschema:"required"`
	Hostile     bool              `yaml:"hostile"`
	Inactive    bool              `yaml:"inactive"`
	Fatigue     uint32            `yaml:"fatigue"`
	FatigueRate uint32            `yaml:"fatigue_rate"`
	Thresholds  *stuck.Thresholds `yaml:"thresholds"`
	Order       Order             `yaml:"order"`
}

// Order is a standing request reissued every cycle.
type Order struct {
	Kind       string              `yaml:"kind" jsonschema:"enum=goto,enum=follow,enum=flee,enum=idle"`
	Target     *Point              `yaml:"target"`
	Range      *uint32             `yaml:"range"`
	Priority   string              `yaml:"priority" jsonschema:"enum=low,enum=normal,enum=high,enum=immovable"`
	AllowShove *bool               `yaml:"allow_shove"`
	AllowSwap  *bool               `yaml:"allow_swap"`
	Anchor     *AnchorSpec         `yaml:"anchor"`
	Leader     string              `yaml:"leader"`
	Pull       bool                `yaml:"pull"`
	Offset     *Point              `yaml:"offset"`
	Threats    []ThreatSpec        `yaml:"threats"`
	Visualize  bool                `yaml:"visualize"`
	Route      search.RouteOptions `yaml:"route"`
}

type AnchorSpec struct {
	Pos   Point  `yaml:"pos"`
	Range uint32 `yaml:"range"`
}

// ThreatSpec is a fixed position or the live position of a named agent.
type ThreatSpec struct {
	Agent string `yaml:"agent"`
	Pos   *Point `yaml:"pos"`
	Range uint32 `yaml:"range"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario. Engine settings are read
// over the default configuration.
func ParseScenario(data []byte) (*Scenario, error) {
	s := Scenario{Engine: rover.DefaultConfig()}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	names := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("scenario %q: agent without name", s.Name)
		}
		if names[a.Name] {
			return fmt.Errorf("scenario %q: duplicate agent %q", s.Name, a.Name)
		}
		names[a.Name] = true
	}
	for _, a := range s.Agents {
		o := a.Order
		switch strings.ToLower(o.Kind) {
		case "", "idle":
		case "goto":
			if o.Target == nil {
				return fmt.Errorf("agent %q: goto without target", a.Name)
			}
		case "follow":
			if !names[o.Leader] {
				return fmt.Errorf("agent %q: unknown leader %q", a.Name, o.Leader)
			}
		case "flee":
			if len(o.Threats) == 0 {
				return fmt.Errorf("agent %q: flee without threats", a.Name)
			}
			for _, th := range o.Threats {
				if th.Pos == nil && !names[th.Agent] {
					return fmt.Errorf("agent %q: threat needs pos or a known agent", a.Name)
				}
			}
		default:
			return fmt.Errorf("agent %q: unknown order kind %q", a.Name, o.Kind)
		}
		if _, err := parsePriority(o.Priority); err != nil {
			return fmt.Errorf("agent %q: %w", a.Name, err)
		}
	}
	return nil
}

func parsePriority(name string) (rover.Priority, error) {
	switch strings.ToLower(name) {
	case "", "normal":
		return rover.PriorityNormal, nil
	case "low":
		return rover.PriorityLow, nil
	case "high":
		return rover.PriorityHigh, nil
	case "immovable":
		return rover.PriorityImmovable, nil
	}
	return rover.PriorityNormal, fmt.Errorf("unknown priority %q", name)
}

// Build creates the world described by the scenario.
func (s *Scenario) Build() (*World, error) {
	regions := make([]grid.RegionID, 0, len(s.Regions))
	for _, r := range s.Regions {
		regions = append(regions, grid.RegionID{X: int16(r[0]), Y: int16(r[1])})
	}
	if len(regions) == 0 {
		regions = append(regions, mapRegions(s.Map)...)
	}
	w := NewWorld(regions...)
	for _, r := range s.Hostile {
		w.SetHostile(grid.RegionID{X: int16(r[0]), Y: int16(r[1])}, true)
	}
	for y, row := range s.Map {
		for x, ch := range row {
			p := grid.FromWorld(x, y)
			switch ch {
			case '.', ' ':
			case '#':
				w.SetTerrain(p, search.TerrainWall)
			case '~':
				w.SetTerrain(p, search.TerrainSwamp)
			case '=':
				w.AddRoad(p)
			case 'x':
				w.AddDanger(p)
			case 's':
				w.AddSite(p, SiteBlocked)
			case 'o':
				w.AddStructure(p, costsurface.Impassable)
			default:
				return nil, fmt.Errorf("scenario %q: unknown map tile %q at %d,%d", s.Name, ch, x, y)
			}
		}
	}
	for _, a := range s.Agents {
		err := w.AddAgent(Agent{
			Name:        a.Name,
			Pos:         a.Pos.Pos(),
			Hostile:     a.Hostile,
			Inactive:    a.Inactive,
			Fatigue:     a.Fatigue,
			FatigueRate: a.FatigueRate,
		})
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return w, nil
}

// mapRegions covers the map rows with regions starting at region 0:0.
func mapRegions(rows []string) []grid.RegionID {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	cols := max(1, (width+grid.RegionSize-1)/grid.RegionSize)
	lines := max(1, (len(rows)+grid.RegionSize-1)/grid.RegionSize)
	out := make([]grid.RegionID, 0, cols*lines)
	for ry := 0; ry < lines; ry++ {
		for rx := 0; rx < cols; rx++ {
			out = append(out, grid.RegionID{X: int16(rx), Y: int16(ry)})
		}
	}
	return out
}

// Requests issues every agent's standing order against the world's current
// state.
func (s *Scenario) Requests(w *World) *rover.Requests[string] {
	reqs := rover.NewRequests[string]()
	for _, a := range s.Agents {
		o := a.Order
		var b *rover.RequestBuilder[string]
		switch strings.ToLower(o.Kind) {
		case "goto":
			b = reqs.MoveTo(a.Name, o.Target.Pos())
		case "follow":
			b = reqs.Follow(a.Name, o.Leader)
			if o.Pull {
				b.Pull()
			}
			if o.Offset != nil {
				b.Offset(grid.Vector{DX: o.Offset[0], DY: o.Offset[1]})
			}
		case "flee":
			b = reqs.Flee(a.Name, s.threats(w, o.Threats)...)
		default:
			b = reqs.Idle(a.Name)
		}
		if o.Range != nil {
			b.Range(*o.Range)
		}
		if o.Priority != "" {
			p, _ := parsePriority(o.Priority)
			b.Priority(p)
		}
		if o.AllowShove != nil {
			b.AllowShove(*o.AllowShove)
		}
		if o.AllowSwap != nil {
			b.AllowSwap(*o.AllowSwap)
		}
		if o.Anchor != nil {
			b.Anchor(o.Anchor.Pos.Pos(), o.Anchor.Range)
		}
		if o.Visualize {
			b.Visualize()
		}
		b.RouteOptions(o.Route)
	}
	return reqs
}

func (s *Scenario) threats(w *World, specs []ThreatSpec) []rover.Threat {
	out := make([]rover.Threat, 0, len(specs))
	for _, th := range specs {
		if th.Pos != nil {
			out = append(out, rover.Threat{Pos: th.Pos.Pos(), Range: th.Range})
			continue
		}
		if a, ok := w.Get(th.Agent); ok {
			out = append(out, rover.Threat{Pos: a.Pos, Range: th.Range})
		}
	}
	return out
}
