package signal

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/entity/signal/qlearn"
	"github.com/tsinghua-fib-lab/signet-sim/utils/randengine"
)

// 拥堵程度离散化阈值，[0,0.3)->0，[0.3,0.6)->1，[0.6,0.9)->2，[0.9,1]->3
const (
	congestionLow  = 0.3
	congestionMid  = 0.6
	congestionHigh = 0.9
)

// discretize 将[0,1]内的拥堵程度映射为4级离散等级
func discretize(congestion float64) int {
	switch {
	case congestion < congestionLow:
		return 0
	case congestion < congestionMid:
		return 1
	case congestion < congestionHigh:
		return 2
	default:
		return 3
	}
}

// TrafficSignal 路口信号灯
// 功能：每个模拟步观测各进口道的拥堵等级，由Q-learning智能体
// 选择一条放行车道，并以上一步决策产生的排队情况作为奖励在线学习
// 算法说明：学习时序为滞后一步——本步观测到的状态同时作为
// 上一步决策的后继状态参与Bellman更新，再作为本步决策的输入
type TrafficSignal struct {
	ctx entity.ITaskContext

	id    int64            // 所在路口的节点ID
	lanes []roadnet.EdgeID // 进口道，顺序即动作空间的定义顺序
	green int              // 当前放行车道在lanes中的下标

	agent     *qlearn.Agent
	generator *randengine.Engine

	// 上一步的观测与决策，首步无历史不做学习
	lastState  qlearn.State
	lastAction int
	hasLast    bool
}

// newSignal 创建信号灯
// 说明：动作空间为该路口的进口道列表；随机数引擎以节点ID作种子，
// 保证并行推进下各信号灯的探索序列互不干扰且可复现
func newSignal(ctx entity.ITaskContext, node int64) *TrafficSignal {
	lanes := ctx.RoadGraph().InEdges(node)
	p := ctx.RuntimeConfig().P
	return &TrafficSignal{
		ctx:       ctx,
		id:        node,
		lanes:     lanes,
		agent:     qlearn.New(len(lanes), p.LearningRate, p.DiscountFactor, p.ExplorationRate),
		generator: randengine.New(uint64(node)),
	}
}

// ID 获取信号灯所在路口的节点ID
func (s *TrafficSignal) ID() int64 { return s.id }

// IsGreen 查询指定进口道当前是否放行
// 说明：仅按(U,V)比较，平行边与放行车道同路即视作放行；
// 无进口道的信号灯恒为放行
func (s *TrafficSignal) IsGreen(edge roadnet.EdgeID) bool {
	if len(s.lanes) == 0 {
		return true
	}
	return s.lanes[s.green].SameRoad(edge)
}

// GreenLaneString 当前放行车道的可读描述
func (s *TrafficSignal) GreenLaneString() string {
	if len(s.lanes) == 0 {
		return ""
	}
	return s.lanes[s.green].String()
}

// currentState 观测当前状态
// 功能：将各进口道的拥堵程度离散化为等级元组
func (s *TrafficSignal) currentState() qlearn.State {
	g := s.ctx.RoadGraph()
	return qlearn.State(lo.Map(s.lanes, func(lane roadnet.EdgeID, _ int) int {
		return discretize(g.Congestion(lane))
	}))
}

// reward 计算上一步决策的奖励
// 功能：未放行进口道上排队车辆数之和的相反数，排队越长惩罚越大
func (s *TrafficSignal) reward(queues map[roadnet.EdgeID]int) float64 {
	r := 0.0
	for i, lane := range s.lanes {
		if i == s.lastAction {
			continue
		}
		r -= float64(queues[lane])
	}
	return r
}

// Update 推进一个模拟步
// 功能：先以当前观测结算上一步决策的学习更新，再选择本步的放行车道
// 参数：queues-各边上排队等待的车辆数
func (s *TrafficSignal) Update(queues map[roadnet.EdgeID]int) error {
	if len(s.lanes) == 0 {
		return nil // 无进口道，恒为放行，无需学习
	}
	state := s.currentState()
	if s.hasLast {
		if err := s.agent.UpdateQTable(s.lastState, s.lastAction, s.reward(queues), state); err != nil {
			return err
		}
	}
	action := s.agent.GetAction(state, s.generator)
	if action < 0 || action >= len(s.lanes) {
		// 策略给出非法动作时回退到0号车道
		log.Warnf("signal %d: action %d out of range, fall back to 0", s.id, action)
		action = 0
	}
	s.green = action
	s.lastState = state
	s.lastAction = action
	s.hasLast = true
	return nil
}
