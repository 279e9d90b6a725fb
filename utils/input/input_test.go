package input_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/config"
	"github.com/tsinghua-fib-lab/signet-sim/utils/input"
)

const graphYAML = `nodes:
  - {id: 1, x: 0, y: 0}
  - {id: 2, x: 100, y: 0}
  - {id: 3, x: 100, y: 100}
edges:
  - {u: 1, v: 2, length: 100, speed_kph: 50}
  - {u: 2, v: 1, length: 100, speed_kph: 50}
  - {u: 2, v: 3, length: 100, speed_kph: 50, travel_time: 30, congestion: 0.75}
  - {u: 2, v: 3, key: 1, length: 80, speed_kph: 50}
`

func TestLoadFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "graph.yml")
	require.NoError(t, os.WriteFile(file, []byte(graphYAML), 0o644))

	g, err := input.Load(config.Input{Graph: config.InputPath{File: file}})
	require.NoError(t, err)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())

	e, ok := g.Edge(roadnet.EdgeID{U: 2, V: 3})
	require.True(t, ok)
	assert.Equal(t, 30.0, e.TravelTime())
	assert.Equal(t, 0.75, g.Congestion(roadnet.EdgeID{U: 2, V: 3}))

	// 平行边带key区分
	_, ok = g.Edge(roadnet.EdgeID{U: 2, V: 3, Key: 1})
	assert.True(t, ok)
}

func TestLoadNoSource(t *testing.T) {
	_, err := input.Load(config.Input{})
	assert.Error(t, err)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "graph.yml")
	require.NoError(t, os.WriteFile(file, []byte("nodes: []\nedgez: []\n"), 0o644))
	_, err := input.Load(config.Input{Graph: config.InputPath{File: file}})
	assert.Error(t, err)
}

func TestBuildRejectsBadEdge(t *testing.T) {
	_, err := input.Build(&input.GraphData{
		Nodes: []input.NodeRecord{{ID: 1}, {ID: 2}},
		Edges: []input.EdgeRecord{{U: 1, V: 9, Length: 100, SpeedKph: 50}},
	})
	assert.ErrorIs(t, err, roadnet.ErrInvalidGraph)
}
