package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover"
	"rover/costsurface"
	"rover/grid"
	"rover/internal/pathcache"
	"rover/internal/stuck"
)

type layers struct {
	roads costsurface.StructureLayer
}

func (l layers) Structures(grid.RegionID) (costsurface.StructureLayer, bool) { return l.roads, true }
func (layers) ConstructionSites(grid.RegionID) (costsurface.ConstructionLayer, bool) {
	return costsurface.ConstructionLayer{}, true
}
func (layers) Agents(grid.RegionID) (costsurface.AgentLayer, bool) {
	return costsurface.AgentLayer{}, true
}
func (layers) DangerZones(grid.RegionID) (costsurface.DangerLayer, bool) {
	return costsurface.DangerLayer{}, true
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "rover.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatesRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	target := grid.FromWorld(60, 3)
	states := rover.NewMapStore[string]()
	states.Put("scout", rover.AgentState{
		Path: pathcache.Entry{
			Target: target,
			Range:  1,
			Steps:  []grid.Position{grid.FromWorld(58, 3), grid.FromWorld(59, 3)},
			Age:    2,
		},
		Stuck: stuck.Counters{Immobile: 3, Tier: stuck.TierAvoidAll, Key: stuck.Key{Target: target, Range: 1}, Tracking: true},
	})
	states.State("idle")

	require.NoError(t, s.SaveStates(ctx, "alpha", 42, states))

	loaded, tick, err := s.LoadStates(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), tick)
	assert.Equal(t, []string{"idle", "scout"}, loaded.Handles())

	scout, ok := loaded.Lookup("scout")
	require.True(t, ok)
	want, _ := states.Lookup("scout")
	assert.Equal(t, *want, *scout)

	_, _, err = s.LoadStates(ctx, "beta")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveStatesReplacesPreviousSnapshot(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := rover.NewMapStore[string]()
	first.State("a")
	first.State("b")
	require.NoError(t, s.SaveStates(ctx, "alpha", 1, first))

	second := rover.NewMapStore[string]()
	second.State("c")
	require.NoError(t, s.SaveStates(ctx, "alpha", 2, second))

	loaded, tick, err := s.LoadStates(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tick)
	assert.Equal(t, []string{"c"}, loaded.Handles())
}

func TestSurfaceCacheKeepsDurableLayerOnly(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var src layers
	src.roads.Roads.Set(4, 4, 1)
	region := grid.RegionID{X: 1, Y: -2}

	cache := costsurface.NewCache()
	cache.Advance(9)
	costsurface.Build(cache, src, region, costsurface.DefaultOptions().WithFriendlyAgents())
	require.True(t, cache.HasStructures(region))

	require.NoError(t, s.SaveSurfaceCache(ctx, "alpha", cache))
	require.NoError(t, s.SaveSurfaceCache(ctx, "alpha", cache))

	loaded, err := s.LoadSurfaceCache(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), loaded.Cycle())
	assert.True(t, loaded.HasStructures(region))
	assert.Equal(t, cache.Regions[region].Structures, loaded.Regions[region].Structures)

	// A restored cache serves the durable layer without a data source.
	surface := costsurface.Build(loaded, nil, region, costsurface.DefaultOptions())
	assert.Equal(t, costsurface.DefaultOptions().RoadCost, surface.Get(4, 4))

	_, err = s.LoadSurfaceCache(ctx, "beta")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	states := rover.NewMapStore[string]()
	states.State("a")
	require.NoError(t, s.SaveStates(context.Background(), "w", 1, states))
	_, _, err = s.LoadStates(context.Background(), "w")
	assert.NoError(t, err)
}
