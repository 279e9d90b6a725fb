package roadnet_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
)

// square 构造4节点双向环路：1-2-4-3-1
func square(t *testing.T) *roadnet.RoadGraph {
	t.Helper()
	g := roadnet.New()
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, g.AddNode(id, float64(id), 0))
	}
	for _, uv := range [][2]int64{{1, 2}, {2, 4}, {4, 3}, {3, 1}} {
		require.NoError(t, g.AddEdge(roadnet.EdgeID{U: uv[0], V: uv[1]}, 100, 50, 0))
		require.NoError(t, g.AddEdge(roadnet.EdgeID{U: uv[1], V: uv[0]}, 100, 50, 0))
	}
	return g
}

func TestAddEdgeValidation(t *testing.T) {
	g := roadnet.New()
	require.NoError(t, g.AddNode(1, 0, 0))
	require.NoError(t, g.AddNode(2, 1, 0))

	assert.ErrorIs(t, g.AddNode(1, 0, 0), roadnet.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 9}, 100, 50, 0), roadnet.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 9, V: 2}, 100, 50, 0), roadnet.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, 0, 50, 0), roadnet.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, 100, -1, 0), roadnet.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, math.NaN(), 50, 0), roadnet.ErrInvalidGraph)

	require.NoError(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, 100, 50, 0))
	assert.ErrorIs(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, 100, 50, 0), roadnet.ErrInvalidGraph)
}

func TestTravelTimeDerivation(t *testing.T) {
	g := roadnet.New()
	require.NoError(t, g.AddNode(1, 0, 0))
	require.NoError(t, g.AddNode(2, 1, 0))
	// 100m @ 50km/h -> 7.2s
	require.NoError(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2}, 100, 50, 0))
	e, ok := g.Edge(roadnet.EdgeID{U: 1, V: 2})
	require.True(t, ok)
	assert.InDelta(t, 7.2, e.TravelTime(), 1e-9)

	// 显式给定travel_time时不推导
	require.NoError(t, g.AddEdge(roadnet.EdgeID{U: 2, V: 1}, 100, 50, 30))
	e, ok = g.Edge(roadnet.EdgeID{U: 2, V: 1})
	require.True(t, ok)
	assert.Equal(t, 30.0, e.TravelTime())
}

func TestDegreeAndInEdges(t *testing.T) {
	g := square(t)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 8, g.EdgeCount())
	assert.Equal(t, []int64{1, 2, 3, 4}, g.Nodes())
	for _, id := range g.Nodes() {
		assert.Equal(t, 4, g.Degree(id))
	}

	// 进入节点1的边按(U,V,Key)有序
	assert.Equal(t, []roadnet.EdgeID{{U: 2, V: 1}, {U: 3, V: 1}}, g.InEdges(1))

	// 平行边计入度数
	require.NoError(t, g.AddEdge(roadnet.EdgeID{U: 2, V: 1, Key: 1}, 80, 50, 0))
	assert.Equal(t, 5, g.Degree(1))
	assert.Equal(t, []roadnet.EdgeID{{U: 2, V: 1}, {U: 2, V: 1, Key: 1}, {U: 3, V: 1}}, g.InEdges(1))
}

func TestShortestPath(t *testing.T) {
	g := square(t)
	nodes, edges, err := g.ShortestPath(1, 4)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Equal(t, int64(1), nodes[0])
	assert.Equal(t, int64(4), nodes[2])
	require.Len(t, edges, 2)
	assert.Equal(t, nodes[0], edges[0].U)
	assert.Equal(t, nodes[1], edges[0].V)
	assert.Equal(t, nodes[1], edges[1].U)
	assert.Equal(t, nodes[2], edges[1].V)
}

func TestShortestPathPrefersShorterParallelEdge(t *testing.T) {
	g := square(t)
	// 更短的平行边应被选作该跳的具体边
	require.NoError(t, g.AddEdge(roadnet.EdgeID{U: 1, V: 2, Key: 1}, 60, 50, 0))
	nodes, edges, err := g.ShortestPath(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, nodes)
	assert.Equal(t, []roadnet.EdgeID{{U: 1, V: 2, Key: 1}}, edges)
}

func TestShortestPathNoPath(t *testing.T) {
	g := square(t)
	require.NoError(t, g.AddNode(9, 9, 9))
	_, _, err := g.ShortestPath(1, 9)
	assert.ErrorIs(t, err, roadnet.ErrNoPath)

	_, _, err = g.ShortestPath(1, 100)
	assert.ErrorIs(t, err, roadnet.ErrInvalidGraph)
}

func TestCongestion(t *testing.T) {
	g := square(t)
	ab := roadnet.EdgeID{U: 1, V: 2}
	assert.Equal(t, 0.0, g.Congestion(ab))

	updated := g.ApplyCongestion(map[roadnet.EdgeID]float64{
		ab:              0.7,
		{U: 2, V: 4}:    1.5,        // 截断到1
		{U: 4, V: 3}:    math.NaN(), // 跳过
		{U: 99, V: 100}: 0.5,        // 未知边跳过
	})
	assert.Equal(t, 2, updated)
	assert.Equal(t, 0.7, g.Congestion(ab))
	assert.Equal(t, 1.0, g.Congestion(roadnet.EdgeID{U: 2, V: 4}))
	assert.Equal(t, 0.0, g.Congestion(roadnet.EdgeID{U: 4, V: 3}))

	assert.Equal(t, 2, g.CountCongested(0.6))
	assert.Equal(t, 1, g.CountCongested(0.9))
}

func TestEdgeIDString(t *testing.T) {
	assert.Equal(t, "1->2", roadnet.EdgeID{U: 1, V: 2}.String())
	assert.Equal(t, "1->2#1", roadnet.EdgeID{U: 1, V: 2, Key: 1}.String())
	assert.True(t, roadnet.EdgeID{U: 1, V: 2, Key: 1}.SameRoad(roadnet.EdgeID{U: 1, V: 2}))
	assert.False(t, roadnet.EdgeID{U: 1, V: 2}.SameRoad(roadnet.EdgeID{U: 2, V: 1}))
}
