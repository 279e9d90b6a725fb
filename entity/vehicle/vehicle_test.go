package vehicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signet-sim/clock"
	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/signet-sim/utils/config"
	"github.com/tsinghua-fib-lab/signet-sim/utils/qstore"
)

// testContext 测试用任务上下文
type testContext struct {
	clock *clock.Clock
	graph *roadnet.RoadGraph
	rc    *config.RuntimeConfig
}

func (c *testContext) Clock() *clock.Clock                    { return c.clock }
func (c *testContext) RoadGraph() *roadnet.RoadGraph          { return c.graph }
func (c *testContext) SignalManager() entity.ISignalManager   { return nil }
func (c *testContext) VehicleManager() entity.IVehicleManager { return nil }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig   { return c.rc }

// stubSignals 测试用信号灯管理器，red中的边视作红灯，其余恒为放行
type stubSignals struct {
	red map[roadnet.EdgeID]bool
}

func (s *stubSignals) Get(int64) (entity.ISignal, bool)   { return nil, false }
func (s *stubSignals) Count() int                         { return 0 }
func (s *stubSignals) Update(map[roadnet.EdgeID]int)      {}
func (s *stubSignals) States() map[int64]string           { return nil }
func (s *stubSignals) LoadPolicies(qstore.Store) error    { return nil }
func (s *stubSignals) SavePolicies(qstore.Store) error    { return nil }
func (s *stubSignals) IsGreen(_ int64, e roadnet.EdgeID) bool {
	return !s.red[e]
}

func newTestContext(t *testing.T, vehicleConfig config.Vehicle) *testContext {
	t.Helper()
	rc, err := config.NewRuntimeConfig(config.Config{
		Control: config.Control{Step: config.ControlStep{Total: 100, Interval: 1}},
		Vehicle: vehicleConfig,
	})
	require.NoError(t, err)
	g := roadnet.New()
	for id := int64(1); id <= 4; id++ {
		require.NoError(t, g.AddNode(id, float64(id), 0))
	}
	for _, uv := range [][2]int64{{1, 2}, {2, 4}, {4, 3}, {3, 1}} {
		require.NoError(t, g.AddEdge(roadnet.EdgeID{U: uv[0], V: uv[1]}, 100, 50, 0))
		require.NoError(t, g.AddEdge(roadnet.EdgeID{U: uv[1], V: uv[0]}, 100, 50, 0))
	}
	return &testContext{
		clock: clock.New(rc.C.Step),
		graph: g,
		rc:    rc,
	}
}

func TestVehicleTraversal(t *testing.T) {
	ctx := newTestContext(t, config.Vehicle{})
	m := vehicle.NewManager(ctx)
	v, err := m.Add(1, 3)
	require.NoError(t, err)
	m.Prepare()

	signals := &stubSignals{}
	steps := 0
	for !v.IsFinished() {
		ctx.clock.InternalStep++
		m.Update(signals)
		steps++
		require.Less(t, steps, 10)
	}
	// 1->3的最短路径为两跳（1->3有直达边时为一跳），本路网中1->3直达
	assert.Equal(t, 1, steps)
	assert.Equal(t, 1, m.CompletedCount())
	assert.Equal(t, 0, m.ActiveCount())
}

func TestVehicleBlockedByRedLight(t *testing.T) {
	ctx := newTestContext(t, config.Vehicle{})
	m := vehicle.NewManager(ctx)
	v, err := m.Add(1, 2)
	require.NoError(t, err)
	m.Prepare()

	signals := &stubSignals{red: map[roadnet.EdgeID]bool{{U: 1, V: 2}: true}}
	for i := 0; i < 5; i++ {
		ctx.clock.InternalStep++
		m.Update(signals)
	}
	assert.False(t, v.IsFinished())
	e, ok := v.PendingEdge()
	require.True(t, ok)
	assert.Equal(t, roadnet.EdgeID{U: 1, V: 2}, e)

	// 放行后一步通过
	signals.red = nil
	ctx.clock.InternalStep++
	m.Update(signals)
	assert.True(t, v.IsFinished())
}

func TestQueues(t *testing.T) {
	ctx := newTestContext(t, config.Vehicle{})
	m := vehicle.NewManager(ctx)
	_, err := m.Add(1, 2)
	require.NoError(t, err)
	_, err = m.Add(1, 2)
	require.NoError(t, err)
	_, err = m.Add(4, 3)
	require.NoError(t, err)
	m.Prepare()

	queues := m.Queues()
	assert.Equal(t, 2, queues[roadnet.EdgeID{U: 1, V: 2}])
	assert.Equal(t, 1, queues[roadnet.EdgeID{U: 4, V: 3}])

	// 完成行程的车辆不再计入排队
	m.Update(&stubSignals{})
	assert.Empty(t, m.Queues())
}

func TestAddRejectsSameSourceDestination(t *testing.T) {
	ctx := newTestContext(t, config.Vehicle{})
	m := vehicle.NewManager(ctx)
	_, err := m.Add(1, 1)
	assert.Error(t, err)
}

func TestInitReproducible(t *testing.T) {
	// 相同种子下两次初始化生成相同的起终点序列
	trips := func() [][2]int64 {
		ctx := newTestContext(t, config.Vehicle{Num: 20, Seed: 99})
		m := vehicle.NewManager(ctx)
		require.NoError(t, m.Init())
		out := make([][2]int64, 0, 20)
		for id := int64(1); id <= 20; id++ {
			v, ok := m.Get(id)
			require.True(t, ok)
			out = append(out, [2]int64{v.Source(), v.Destination()})
		}
		return out
	}
	assert.Equal(t, trips(), trips())
}

func TestAvgTripTime(t *testing.T) {
	ctx := newTestContext(t, config.Vehicle{})
	m := vehicle.NewManager(ctx)
	// 1->2为一跳，1->4为两跳
	_, err := m.Add(1, 2)
	require.NoError(t, err)
	_, err = m.Add(1, 4)
	require.NoError(t, err)
	m.Prepare()

	signals := &stubSignals{}
	for i := 0; i < 2; i++ {
		ctx.clock.InternalStep++
		m.Update(signals)
	}
	assert.Equal(t, 2, m.CompletedCount())
	assert.InDelta(t, 1.5, m.AvgTripTime(), 1e-9)
}
