// 随机数引擎，包装了golang.org/x/exp/rand，为模拟实体提供可复现的随机数来源
package randengine

import (
	"flag"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成功能
// 说明：每个需要随机性的实体（信号灯、车辆管理器）持有独立的Engine，
// 保证并行更新时各实体消费的随机数序列与迭代顺序无关
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 功能：使用给定种子（叠加全局种子偏移量）初始化一个新的随机数引擎
// 参数：seed-随机数种子
// 返回：随机数引擎指针
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以指定概率返回true
// 功能：根据给定概率返回布尔值，实现伯努利分布
// 参数：p-返回true的概率（0.0到1.0之间）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// Choice 从切片中均匀随机选取一个元素
// 功能：用于epsilon-greedy中的探索动作与并列最大值的随机打破
// 参数：items-候选元素列表，不能为空
func Choice[T any](e *Engine, items []T) T {
	return items[e.Intn(len(items))]
}
