package task

import (
	"errors"
	"flag"
	"fmt"

	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/utils/container"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// 指标中判定路段拥堵的阈值
const congestedThreshold = 0.5

// ErrTooManyFailures 连续故障步数超过配置上限
var ErrTooManyFailures = errors.New("task: too many consecutive step failures")

// EdgeQueue 路段与其上排队车辆数
type EdgeQueue struct {
	Edge  roadnet.EdgeID
	Count int
}

// StepMetrics 单个模拟步的统计指标
type StepMetrics struct {
	Step           int32                  // 步数
	ActiveVehicles int                    // 未完成行程的车辆数
	CompletedTrips int                    // 累计完成的行程数
	AvgTripTime    float64                // 已完成行程的平均用时（秒）
	CongestedEdges int                    // 拥堵程度超过阈值的路段数
	EdgeOccupancy  map[roadnet.EdgeID]int // 行进后各路段上的车辆数
	TopOccupied    []EdgeQueue            // 车辆最多的路段（降序）
	SignalStates   map[int64]string       // 各信号灯当前放行的车道
}

// prepare 准备阶段，每步执行一次
// 功能：推进时钟、输出心跳日志并使新添加的车辆生效
func (ctx *Context) prepare() {
	ctx.clock.InternalStep++
	ctx.clock.T = float64(ctx.clock.InternalStep) * ctx.clock.DT

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		log.Infof("STEP: %d(%v)", ctx.clock.InternalStep, ctx.clock)
	}

	ctx.vehicleManager.Prepare()
}

// Step 推进一个模拟步
// 功能：执行一个完整的模拟步并返回统计指标
// 算法说明：
// 1. 准备阶段：时钟推进、车辆列表生效
// 2. 路况更新：从外部数据源拉取拥堵程度（如已设置）
// 3. 排队观测：统计各路段上排队等待的车辆数
// 4. 信控推进：各信号灯以排队结算上一步的奖励并选择放行车道
// 5. 车辆行进：放行的车辆通过一条边，其余原地等待
// 6. 指标汇总
// 说明：路况数据源的故障只影响当步的观测，不中断模拟；
// 连续故障步数超过上限时返回ErrTooManyFailures
func (ctx *Context) Step() (StepMetrics, error) {
	ctx.prepare()

	failed := false
	if ctx.congestion != nil {
		if values, err := ctx.congestion.Congestion(); err != nil {
			failed = true
			log.Errorf("step %d: fetch congestion failed: %v", ctx.clock.InternalStep, err)
		} else {
			ctx.graph.ApplyCongestion(values)
		}
	}

	queues := ctx.vehicleManager.Queues()
	before := ctx.signalManager.Failures()
	ctx.signalManager.Update(queues)
	if ctx.signalManager.Failures() > before {
		failed = true
	}
	ctx.vehicleManager.Update(ctx.signalManager)

	if failed {
		ctx.consecutiveFailures++
	} else {
		ctx.consecutiveFailures = 0
	}
	// 行进后重新统计各路段占用，作为本步的路况指标
	metrics := ctx.collectMetrics(ctx.vehicleManager.Queues())
	if ctx.consecutiveFailures > ctx.runtimeConfig.C.MaxStepFailures {
		return metrics, fmt.Errorf("%d consecutive failures at step %d: %w",
			ctx.consecutiveFailures, ctx.clock.InternalStep, ErrTooManyFailures)
	}
	return metrics, nil
}

// collectMetrics 汇总当前模拟步的统计指标
// 说明：用大小受限的最小堆筛选车辆最多的路段
func (ctx *Context) collectMetrics(occupancy map[roadnet.EdgeID]int) StepMetrics {
	topNum := ctx.runtimeConfig.C.TopCongestedEdgeNum
	pq := container.NewPriorityQueue[roadnet.EdgeID]()
	for e, n := range occupancy {
		pq.HeapPush(e, float64(n))
		if pq.Len() > topNum {
			pq.HeapPop()
		}
	}
	top := make([]EdgeQueue, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		e, n := pq.HeapPop()
		top[i] = EdgeQueue{Edge: e, Count: int(n)}
	}

	return StepMetrics{
		Step:           ctx.clock.InternalStep,
		ActiveVehicles: ctx.vehicleManager.ActiveCount(),
		CompletedTrips: ctx.vehicleManager.CompletedCount(),
		AvgTripTime:    ctx.vehicleManager.AvgTripTime(),
		CongestedEdges: ctx.graph.CountCongested(congestedThreshold),
		EdgeOccupancy:  occupancy,
		TopOccupied:    top,
		SignalStates:   ctx.signalManager.States(),
	}
}

// runEpisode 运行一个训练回合
func (ctx *Context) runEpisode(episode int) error {
	if err := ctx.Init(); err != nil {
		return err
	}
	var last StepMetrics
	for ctx.clock.InternalStep < ctx.clock.END_STEP {
		metrics, err := ctx.Step()
		if err != nil {
			return err
		}
		last = metrics
		if ctx.closed.Load() {
			break
		}
	}
	log.Infof("episode %d (job %s): %d/%d trips completed, avg trip time %.1fs, %d congested edges",
		episode, ctx.job, last.CompletedTrips, ctx.vehicleManager.TotalCount(),
		last.AvgTripTime, last.CongestedEdges)

	if ctx.store != nil {
		if err := ctx.signalManager.SavePolicies(ctx.store); err != nil {
			return fmt.Errorf("episode %d: %w", episode, err)
		}
	}
	return nil
}

// Run 运行全部训练回合
// 功能：按配置的回合数反复运行模拟，信号灯策略跨回合累积；
// 配置了策略存储时在每个回合开始加载、结束保存
func (ctx *Context) Run() error {
	episodes := ctx.runtimeConfig.C.Episodes
	for episode := 1; episode <= episodes; episode++ {
		if err := ctx.runEpisode(episode); err != nil {
			return err
		}
		if ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	return nil
}
