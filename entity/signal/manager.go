package signal

import (
	"fmt"
	"sync/atomic"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/qstore"
)

// 需要信控的路口判定阈值：度数（进出边数之和，含平行边）大于该值
const signalDegree = 2

// SignalManager 信号灯管理器
// 功能：管理所有信号灯，提供初始化、批量推进、策略存取等功能
type SignalManager struct {
	ctx entity.ITaskContext

	data map[int64]*TrafficSignal

	// 确定性顺序的信号灯列表（按节点ID升序）
	signals []*TrafficSignal

	// 累计的信号灯推进失败次数
	failures atomic.Int64
}

// NewManager 创建信号灯管理器实例
// 参数：ctx-任务上下文
func NewManager(ctx entity.ITaskContext) *SignalManager {
	return &SignalManager{
		ctx:  ctx,
		data: make(map[int64]*TrafficSignal),
	}
}

// Init 初始化所有信号灯
// 功能：遍历路网节点，在度数大于2的路口创建信号灯
// 说明：节点按ID升序遍历，信号灯列表顺序确定
func (m *SignalManager) Init() {
	g := m.ctx.RoadGraph()
	for _, node := range g.Nodes() {
		if g.Degree(node) > signalDegree {
			s := newSignal(m.ctx, node)
			m.data[node] = s
			m.signals = append(m.signals, s)
		}
	}
	log.Infof("init %d signals at %d nodes", len(m.signals), g.NodeCount())
}

// Get 根据路口节点ID获取信号灯
func (m *SignalManager) Get(id int64) (entity.ISignal, bool) {
	s, ok := m.data[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Count 信号灯数量
func (m *SignalManager) Count() int { return len(m.signals) }

// IsGreen 查询路口node处的进口道edge是否放行
// 说明：无信号灯的路口恒为放行
func (m *SignalManager) IsGreen(node int64, edge roadnet.EdgeID) bool {
	s, ok := m.data[node]
	if !ok {
		return true
	}
	return s.IsGreen(edge)
}

// Update 批量推进所有信号灯一个模拟步
// 功能：并行执行各信号灯的学习与决策
// 说明：单个信号灯的故障只记录日志与计数，不中断其余信号灯
func (m *SignalManager) Update(queues map[roadnet.EdgeID]int) {
	parallel.GoFor(m.signals, func(s *TrafficSignal) {
		if err := s.Update(queues); err != nil {
			m.failures.Add(1)
			log.Errorf("signal %d update failed: %v", s.id, err)
		}
	})
}

// Failures 累计的信号灯推进失败次数
func (m *SignalManager) Failures() int64 { return m.failures.Load() }

// States 获取各信号灯当前放行车道的可读描述
func (m *SignalManager) States() map[int64]string {
	return lo.SliceToMap(m.signals, func(s *TrafficSignal) (int64, string) {
		return s.id, s.GreenLaneString()
	})
}

// LoadPolicies 从存储加载所有信号灯的策略
// 说明：无历史策略的信号灯从空表开始学习
func (m *SignalManager) LoadPolicies(store qstore.Store) error {
	for _, s := range m.signals {
		table, err := store.Load(s.id)
		if err != nil {
			return fmt.Errorf("load policy for signal %d: %w", s.id, err)
		}
		if len(table) == 0 {
			continue
		}
		if err := s.agent.Import(table); err != nil {
			return fmt.Errorf("import policy for signal %d: %w", s.id, err)
		}
	}
	log.Infof("load policies for %d signals", len(m.signals))
	return nil
}

// SavePolicies 将所有信号灯的策略写入存储
func (m *SignalManager) SavePolicies(store qstore.Store) error {
	for _, s := range m.signals {
		if err := store.Save(s.id, s.agent.Export()); err != nil {
			return err
		}
	}
	log.Infof("save policies for %d signals", len(m.signals))
	return nil
}
