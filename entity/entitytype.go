package entity

import (
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/qstore"
)

// entity/signal/signal.go的依赖倒置
type ISignal interface {
	ID() int64                        // 获取信号灯所在路口的节点ID
	IsGreen(edge roadnet.EdgeID) bool // 查询指定进口道当前是否放行
	GreenLaneString() string          // 当前放行车道的可读描述
	Update(queues map[roadnet.EdgeID]int) error
}

// entity/signal/manager.go的依赖倒置
type ISignalManager interface {
	Get(id int64) (ISignal, bool)
	// IsGreen 查询路口node处的进口道edge是否放行，无信号灯的路口恒为放行
	IsGreen(node int64, edge roadnet.EdgeID) bool
	Count() int
	Update(queues map[roadnet.EdgeID]int)
	States() map[int64]string
	LoadPolicies(store qstore.Store) error
	SavePolicies(store qstore.Store) error
}

// entity/vehicle/vehicle.go的依赖倒置
type IVehicle interface {
	ID() int64
	Source() int64
	Destination() int64
	IsFinished() bool
	// PendingEdge 下一步要通过的边，已完成时第二个返回值为false
	PendingEdge() (roadnet.EdgeID, bool)
}

// entity/vehicle/manager.go的依赖倒置
type IVehicleManager interface {
	Get(id int64) (IVehicle, bool)
	// Add 在指定起终点间规划最短路径并创建车辆，下一次Prepare后生效
	Add(source, destination int64) (IVehicle, error)
	Prepare()
	// Queues 统计各边上排队等待通过的车辆数
	Queues() map[roadnet.EdgeID]int
	Update(signals ISignalManager)
	ActiveCount() int
	CompletedCount() int
	TotalCount() int
	AvgTripTime() float64
}
