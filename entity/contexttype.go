package entity

import (
	"github.com/tsinghua-fib-lab/signet-sim/clock"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/config"
)

// 外部路况数据源接口
// 说明：在两个模拟步之间提供各路段的拥堵程度（[0,1]，越大越拥堵）
type ICongestionSource interface {
	Congestion() (map[roadnet.EdgeID]float64, error)
}

type ITaskContext interface {
	Clock() *clock.Clock
	RoadGraph() *roadnet.RoadGraph
	SignalManager() ISignalManager
	VehicleManager() IVehicleManager
	RuntimeConfig() *config.RuntimeConfig
}
