// 表格型Q-learning模块
// 状态为离散化后的各车道拥堵等级元组，动作为放行车道的下标，
// 采用epsilon-greedy选择动作并按Bellman方程在线更新
package qlearn

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signet-sim/utils/randengine"
)

var (
	// ErrInvalidAction 动作超出动作空间范围（更新被拒绝）
	ErrInvalidAction = errors.New("qlearn: action out of range")
	// ErrNotFinite 更新后的Q值非有限数（更新被拒绝，保留原值）
	ErrNotFinite = errors.New("qlearn: non-finite q value")
)

// Table Q表的导出形式
// 说明：键为状态的规范编码（见State.Key），值为与动作空间等长的得分向量；
// 该形式直接用于持久化，保证保存再加载后键与浮点值完全一致
type Table map[string][]float64

// Agent 表格型Q-learning智能体
// 功能：维护状态到动作得分向量的映射，提供动作选择与在线更新
// 说明：未见过的状态首次访问时以全零向量物化，
// 使得全零并列时的随机打破能让信号灯在学习分化前公平轮转
type Agent struct {
	actionCount int     // 动作空间大小，动作为[0, actionCount)内的下标
	lr          float64 // 学习率alpha
	gamma       float64 // 折扣系数gamma
	epsilon     float64 // 探索概率epsilon

	qTable map[string][]float64
}

// New 创建智能体
// 参数：actionCount-动作空间大小，lr/gamma/epsilon-超参数（调用方保证在[0,1]内）
func New(actionCount int, lr, gamma, epsilon float64) *Agent {
	return &Agent{
		actionCount: actionCount,
		lr:          lr,
		gamma:       gamma,
		epsilon:     epsilon,
		qTable:      make(map[string][]float64),
	}
}

// ActionCount 动作空间大小
func (a *Agent) ActionCount() int {
	return a.actionCount
}

// ensure 物化状态对应的得分向量（未见过的状态为全零）
func (a *Agent) ensure(key string) []float64 {
	if q, ok := a.qTable[key]; ok {
		return q
	}
	q := make([]float64, a.actionCount)
	a.qTable[key] = q
	return q
}

// GetAction 按epsilon-greedy策略选择动作
// 功能：以epsilon概率均匀随机探索，否则取Q值最大的动作，
// 并列最大时在最大值集合中均匀随机打破
// 参数：state-当前状态，rng-调用方持有的随机数引擎
func (a *Agent) GetAction(state State, rng *randengine.Engine) int {
	if a.actionCount == 0 {
		return 0
	}
	if rng.PTrue(a.epsilon) {
		return rng.Intn(a.actionCount) // 探索
	}
	q := a.ensure(state.Key())
	best := []int{0}
	for i := 1; i < len(q); i++ {
		if q[i] > q[best[0]] {
			best = best[:0]
			best = append(best, i)
		} else if q[i] == q[best[0]] {
			best = append(best, i)
		}
	}
	return randengine.Choice(rng, best) // 利用
}

// UpdateQTable 按Bellman方程更新Q表
// 功能：Q(s,a) += alpha * (reward + gamma*max_a' Q(s',a') - Q(s,a))
// 说明：state与nextState未见过时先以全零向量物化；
// 动作越界或更新结果非有限数时拒绝更新并返回错误，Q表保持不变
func (a *Agent) UpdateQTable(state State, action int, reward float64, nextState State) error {
	if action < 0 || action >= a.actionCount {
		return fmt.Errorf("action %d with action space size %d: %w", action, a.actionCount, ErrInvalidAction)
	}
	q := a.ensure(state.Key())
	nextQ := a.ensure(nextState.Key())

	nextMax := 0.0
	if len(nextQ) > 0 {
		nextMax = lo.Max(nextQ)
	}
	old := q[action]
	value := old + a.lr*(reward+a.gamma*nextMax-old)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("update for action %d yields %v: %w", action, value, ErrNotFinite)
	}
	q[action] = value
	return nil
}

// Export 导出Q表（深拷贝）
func (a *Agent) Export() Table {
	t := make(Table, len(a.qTable))
	for k, v := range a.qTable {
		t[k] = append([]float64(nil), v...)
	}
	return t
}

// Import 导入Q表（深拷贝，替换现有内容）
// 功能：校验每个键可被规范解析、向量长度与动作空间一致且取值有限
func (a *Agent) Import(t Table) error {
	qTable := make(map[string][]float64, len(t))
	for k, v := range t {
		state, err := ParseKey(k)
		if err != nil {
			return err
		}
		if len(v) != a.actionCount {
			return fmt.Errorf("qlearn: state %v has %d action values, want %d", state, len(v), a.actionCount)
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("state %v contains %v: %w", state, x, ErrNotFinite)
			}
		}
		qTable[state.Key()] = append([]float64(nil), v...)
	}
	a.qTable = qTable
	return nil
}
