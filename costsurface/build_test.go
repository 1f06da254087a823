package costsurface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover/grid"
)

type fakeSource struct {
	visible     map[grid.RegionID]bool
	structures  StructureLayer
	sites       ConstructionLayer
	agents      AgentLayer
	danger      DangerLayer
	structReads int
	agentReads  int
	dangerReads int
	siteReads   int
}

func newFakeSource(region grid.RegionID) *fakeSource {
	return &fakeSource{visible: map[grid.RegionID]bool{region: true}}
}

func (f *fakeSource) Structures(r grid.RegionID) (StructureLayer, bool) {
	f.structReads++
	return f.structures, f.visible[r]
}

func (f *fakeSource) ConstructionSites(r grid.RegionID) (ConstructionLayer, bool) {
	f.siteReads++
	return f.sites, f.visible[r]
}

func (f *fakeSource) Agents(r grid.RegionID) (AgentLayer, bool) {
	f.agentReads++
	return f.agents, f.visible[r]
}

func (f *fakeSource) DangerZones(r grid.RegionID) (DangerLayer, bool) {
	f.dangerReads++
	return f.danger, f.visible[r]
}

func TestBuildComposesLayersInOrder(t *testing.T) {
	region := grid.RegionID{}
	src := newFakeSource(region)
	src.structures.Roads.Set(1, 1, 1)
	src.structures.Other.Set(2, 2, 2)
	src.structures.Other.Set(3, 3, Impassable)
	src.sites.Blocked.Set(4, 4, 1)
	src.sites.HostileActive.Set(5, 5, 1)
	src.agents.Hostile.Set(6, 6, 0)
	src.agents.Friendly.Set(7, 7, 0)
	src.danger.Zones.Set(2, 2, 1)
	src.danger.Zones.Set(3, 3, 1)
	src.danger.Zones.Set(8, 8, 1)

	opts := DefaultOptions()
	opts.RoadCost = 3
	opts.DangerCost = 40
	cache := NewCache()
	cache.Advance(1)
	s := Build(cache, src, region, opts)

	assert.Equal(t, uint8(3), s.Get(1, 1), "roads use the configured cost")
	assert.Equal(t, uint8(40), s.Get(2, 2), "danger raises structure cost")
	assert.Equal(t, Impassable, s.Get(3, 3), "danger never unblocks")
	assert.Equal(t, Impassable, s.Get(4, 4))
	assert.Equal(t, Impassable, s.Get(5, 5))
	assert.Equal(t, Impassable, s.Get(6, 6))
	assert.Equal(t, TerrainDefault, s.Get(7, 7), "friendly agents are off by default")
	assert.Equal(t, uint8(40), s.Get(8, 8))
	assert.Equal(t, TerrainDefault, s.Get(0, 0))
}

func TestBuildIsDeterministicPerOptions(t *testing.T) {
	region := grid.RegionID{X: 2}
	src := newFakeSource(region)
	src.agents.Friendly.Set(10, 10, 0)
	src.agents.Friendly.Set(30, 30, 0)

	cache := NewCache()
	cache.Advance(7)

	near := DefaultOptions().WithProximity(grid.NewPosition(region, 12, 12), 3)
	all := DefaultOptions().WithFriendlyAgents()

	a := Build(cache, src, region, near)
	b := Build(cache, src, region, all)
	c := Build(cache, src, region, near)

	require.True(t, a.Equal(c))
	assert.False(t, a.Equal(b))
	assert.Equal(t, Impassable, a.Get(10, 10))
	assert.Equal(t, TerrainDefault, a.Get(30, 30))
	assert.Equal(t, Impassable, b.Get(30, 30))
	assert.Equal(t, 1, src.agentReads, "agent layer is read once per cycle")
}

func TestEphemeralLayersDoNotLeakAcrossCycles(t *testing.T) {
	region := grid.RegionID{}
	src := newFakeSource(region)
	src.agents.Hostile.Set(9, 9, 0)

	cache := NewCache()
	cache.Advance(1)
	assert.Equal(t, Impassable, Build(cache, src, region, DefaultOptions()).Get(9, 9))

	src.agents = AgentLayer{}
	cache.Advance(2)
	assert.Equal(t, TerrainDefault, Build(cache, src, region, DefaultOptions()).Get(9, 9))

	src.visible[region] = false
	src.agents.Hostile.Set(9, 9, 0)
	cache.Advance(3)
	assert.Equal(t, TerrainDefault, Build(cache, src, region, DefaultOptions()).Get(9, 9))
}

func TestStructuresSurviveWhileUnobservable(t *testing.T) {
	region := grid.RegionID{}
	src := newFakeSource(region)
	src.structures.Other.Set(4, 4, Impassable)

	cache := NewCache()
	cache.Advance(1)
	Build(cache, src, region, DefaultOptions())
	require.True(t, cache.HasStructures(region))

	src.visible[region] = false
	src.structures = StructureLayer{}
	cache.Advance(5)
	assert.Equal(t, Impassable, Build(cache, src, region, DefaultOptions()).Get(4, 4))

	src.visible[region] = true
	cache.Advance(6)
	assert.Equal(t, TerrainDefault, Build(cache, src, region, DefaultOptions()).Get(4, 4))

	cache.Invalidate(region)
	assert.False(t, cache.HasStructures(region))
}

func TestStructuresReadOncePerRefreshInterval(t *testing.T) {
	region := grid.RegionID{}
	src := newFakeSource(region)
	cache := NewCache()
	cache.RefreshInterval = 3

	for cycle := uint64(1); cycle <= 6; cycle++ {
		cache.Advance(cycle)
		Build(cache, src, region, DefaultOptions())
		Build(cache, src, region, DefaultOptions())
	}
	assert.Equal(t, 2, src.structReads)
}

func TestSiteCostsZeroLeavesTerrain(t *testing.T) {
	region := grid.RegionID{}
	src := newFakeSource(region)
	src.sites.FriendlyInactive.Set(1, 2, 0)
	src.sites.FriendlyActive.Set(2, 2, 0)

	opts := DefaultOptions()
	opts.Sites.FriendlyActive = 5
	s := Build(NewCache(), src, region, opts)
	assert.Equal(t, TerrainDefault, s.Get(1, 2))
	assert.Equal(t, uint8(5), s.Get(2, 2))
}
