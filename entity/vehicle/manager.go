package vehicle

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/container"
	"github.com/tsinghua-fib-lab/signet-sim/utils/randengine"
)

// GlobalRuntime 全局运行时数据结构
// 功能：管理全局运行时数据，包括完成行程数与总行程用时（步数）
type GlobalRuntime struct {
	NumCompletedTrips int32 // 已完成的行程
	TravelSteps       int64 // 总行程用时（步数）
}

// VehicleManager 车辆管理器
// 功能：管理所有车辆实体，提供创建、查找、排队统计、批量行进等功能
type VehicleManager struct {
	ctx entity.ITaskContext

	data map[int64]*Vehicle

	// 参与计算与输出的车辆
	vehicles *container.DeferredArray[*Vehicle]

	insertMutex   sync.Mutex
	nextVehicleID int64

	// 起终点采样的随机数引擎，仅在串行的创建流程中使用
	generator *randengine.Engine

	runtime    GlobalRuntime
	runtimeMtx sync.Mutex
}

// NewManager 创建车辆管理器实例
// 参数：ctx-任务上下文
func NewManager(ctx entity.ITaskContext) *VehicleManager {
	return &VehicleManager{
		ctx:           ctx,
		data:          make(map[int64]*Vehicle),
		vehicles:      container.NewDeferredArray[*Vehicle](),
		nextVehicleID: 1,
		generator:     randengine.New(ctx.RuntimeConfig().V.Seed),
	}
}

// Init 初始化车辆
// 功能：按配置数量生成车辆，起终点在路网节点中均匀采样
// 说明：生成流程串行执行以保证采样序列可复现；
// 生成完成后调用Prepare使车辆生效
func (m *VehicleManager) Init() error {
	num := m.ctx.RuntimeConfig().V.Num
	for i := 0; i < num; i++ {
		if _, err := m.createVehicle(); err != nil {
			return fmt.Errorf("init vehicle %d/%d: %w", i+1, num, err)
		}
	}
	m.Prepare()
	log.Infof("init %d vehicles", num)
	return nil
}

// Get 根据ID获取车辆实例
func (m *VehicleManager) Get(id int64) (entity.IVehicle, bool) {
	v, ok := m.data[id]
	if !ok {
		return nil, false
	}
	return v, true
}

// Add 动态添加车辆
// 功能：在指定起终点间规划最短路径并创建车辆，下一次Prepare后生效
// 返回：新创建的车辆；起终点相同或不可达时返回错误
func (m *VehicleManager) Add(source, destination int64) (entity.IVehicle, error) {
	if source == destination {
		return nil, fmt.Errorf("vehicle source and destination are both %d", source)
	}
	path, edges, err := m.ctx.RoadGraph().ShortestPath(source, destination)
	if err != nil {
		return nil, err
	}
	return m.add(path, edges)
}

// add 创建车辆并登记到管理器
// 说明：使用互斥锁保证线程安全，ID自动分配
func (m *VehicleManager) add(path []int64, edges []roadnet.EdgeID) (*Vehicle, error) {
	m.insertMutex.Lock()
	defer m.insertMutex.Unlock()
	v, err := newVehicle(m.nextVehicleID, path, edges, m.ctx.Clock().InternalStep)
	if err != nil {
		return nil, err
	}
	m.nextVehicleID++
	m.data[v.id] = v
	m.vehicles.Add(v)
	return v, nil
}

// createVehicle 随机生成一辆车
// 功能：均匀采样起点与不同于起点的终点并规划最短路径；
// 终点不可达时保持起点不变重新采样终点，重试次数由配置限定
func (m *VehicleManager) createVehicle() (*Vehicle, error) {
	nodes := m.ctx.RoadGraph().Nodes()
	if len(nodes) < 2 {
		return nil, fmt.Errorf("road graph has %d nodes, need at least 2", len(nodes))
	}
	source := randengine.Choice(m.generator, nodes)
	retries := m.ctx.RuntimeConfig().V.MaxPathRetries
	for attempt := 0; attempt < retries; attempt++ {
		destination := randengine.Choice(m.generator, nodes)
		if destination == source {
			continue
		}
		path, edges, err := m.ctx.RoadGraph().ShortestPath(source, destination)
		if err != nil {
			log.Debugf("no path from %d to %d, resample destination", source, destination)
			continue
		}
		return m.add(path, edges)
	}
	return nil, fmt.Errorf("no reachable destination from node %d after %d attempts", source, retries)
}

// Prepare 使新添加的车辆生效
// 说明：两个模拟步之间调用，避免行进过程中并发修改车辆列表
func (m *VehicleManager) Prepare() {
	m.vehicles.Prepare()
}

// Queues 统计各边上排队等待通过的车辆数
// 说明：作为信号灯的观测输入与奖励依据
func (m *VehicleManager) Queues() map[roadnet.EdgeID]int {
	queues := make(map[roadnet.EdgeID]int)
	for _, v := range m.vehicles.Data() {
		if e, ok := v.PendingEdge(); ok {
			queues[e]++
		}
	}
	return queues
}

// Update 批量行进一个模拟步
// 功能：并行推进所有未完成的车辆，统计本步完成的行程
// 说明：行进过程不使用随机数，并行执行不影响可复现性
func (m *VehicleManager) Update(signals entity.ISignalManager) {
	step := m.ctx.Clock().InternalStep
	parallel.GoFor(m.vehicles.Data(), func(v *Vehicle) {
		if v.IsFinished() {
			return
		}
		if v.move(signals, step) && v.IsFinished() {
			m.runtimeMtx.Lock()
			m.runtime.NumCompletedTrips++
			m.runtime.TravelSteps += int64(v.endStep - v.startStep)
			m.runtimeMtx.Unlock()
		}
	})
}

// ActiveCount 未完成行程的车辆数
func (m *VehicleManager) ActiveCount() int {
	n := 0
	for _, v := range m.vehicles.Data() {
		if !v.IsFinished() {
			n++
		}
	}
	return n
}

// CompletedCount 已完成行程的车辆数
func (m *VehicleManager) CompletedCount() int {
	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	return int(m.runtime.NumCompletedTrips)
}

// TotalCount 登记过的车辆总数（含未生效的）
func (m *VehicleManager) TotalCount() int {
	return len(m.data)
}

// AvgTripTime 已完成行程的平均用时（秒）
// 返回：平均行程用时，无完成行程时为0
func (m *VehicleManager) AvgTripTime() float64 {
	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	if m.runtime.NumCompletedTrips == 0 {
		return 0
	}
	return float64(m.runtime.TravelSteps) / float64(m.runtime.NumCompletedTrips) * m.ctx.Clock().DT
}
