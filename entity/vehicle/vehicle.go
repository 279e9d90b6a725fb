package vehicle

import (
	"fmt"

	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
)

// Vehicle 车辆实体
// 功能：沿预先规划好的最短路径逐节点行进，每个模拟步最多通过一条边；
// 下一条边所属路口有信号灯且未放行时原地等待
// 说明：路径在创建时确定且之后不变，平行边在规划时已解析为具体边ID
type Vehicle struct {
	id          int64
	source      int64
	destination int64

	path  []int64          // 节点序列，path[0]=source，path[len-1]=destination
	edges []roadnet.EdgeID // 逐跳的具体边，len(edges)=len(path)-1
	index int              // 当前所在节点在path中的下标

	startStep int32 // 创建时的步数
	endStep   int32 // 到达终点时的步数，未完成时为-1
}

// newVehicle 创建车辆
// 说明：路径至少包含两个节点，边序列与节点序列必须逐跳对应
func newVehicle(id int64, path []int64, edges []roadnet.EdgeID, startStep int32) (*Vehicle, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("vehicle %d: path %v has fewer than 2 nodes", id, path)
	}
	if len(edges) != len(path)-1 {
		return nil, fmt.Errorf("vehicle %d: %d edges do not match %d path nodes", id, len(edges), len(path))
	}
	for i, e := range edges {
		if e.U != path[i] || e.V != path[i+1] {
			return nil, fmt.Errorf("vehicle %d: edge %v does not connect %d->%d", id, e, path[i], path[i+1])
		}
	}
	return &Vehicle{
		id:          id,
		source:      path[0],
		destination: path[len(path)-1],
		path:        path,
		edges:       edges,
		startStep:   startStep,
		endStep:     -1,
	}, nil
}

func (v *Vehicle) ID() int64          { return v.id }
func (v *Vehicle) Source() int64      { return v.source }
func (v *Vehicle) Destination() int64 { return v.destination }
func (v *Vehicle) StartStep() int32   { return v.startStep }

// EndStep 到达终点时的步数，未完成时为-1
func (v *Vehicle) EndStep() int32 { return v.endStep }

// CurrentNode 当前所在节点
func (v *Vehicle) CurrentNode() int64 { return v.path[v.index] }

// IsFinished 是否已到达终点
func (v *Vehicle) IsFinished() bool { return v.endStep >= 0 }

// PendingEdge 下一步要通过的边
// 返回：待通过的边ID；已完成时第二个返回值为false
func (v *Vehicle) PendingEdge() (roadnet.EdgeID, bool) {
	if v.IsFinished() {
		return roadnet.EdgeID{}, false
	}
	return v.edges[v.index], true
}

// move 行进一个模拟步
// 功能：下一条边放行时通过该边并前进一个节点，到达终点时记录完成步数；
// 信号灯未放行时原地等待
// 参数：signals-信号灯管理器，step-当前步数
// 返回：本步是否发生了移动
func (v *Vehicle) move(signals entity.ISignalManager, step int32) bool {
	if v.IsFinished() {
		return false
	}
	e := v.edges[v.index]
	if !signals.IsGreen(e.V, e) {
		return false // 红灯等待
	}
	v.index++
	if v.index == len(v.path)-1 {
		v.endStep = step
	}
	return true
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle{id=%d, %d->%d, at=%d, finished=%v}",
		v.id, v.source, v.destination, v.path[v.index], v.IsFinished())
}
