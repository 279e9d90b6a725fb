package task

import (
	"fmt"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/signet-sim/clock"
	"github.com/tsinghua-fib-lab/signet-sim/entity"
	"github.com/tsinghua-fib-lab/signet-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/signet-sim/entity/signal"
	"github.com/tsinghua-fib-lab/signet-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/signet-sim/utils/config"
	"github.com/tsinghua-fib-lab/signet-sim/utils/input"
	"github.com/tsinghua-fib-lab/signet-sim/utils/qstore"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：管理仿真系统的所有组件，包括时钟、路网、管理器、策略存储
type Context struct {

	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 路网
	graph *roadnet.RoadGraph

	// 信号灯管理器，跨回合持续学习
	signalManager *signal.SignalManager
	// 车辆管理器，每个回合重建
	vehicleManager *vehicle.VehicleManager

	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 策略存储，未配置时为nil（禁用持久化）
	store qstore.Store

	// 外部路况数据源，未设置时沿用输入数据中的拥堵程度
	congestion entity.ICongestionSource

	// 连续故障步数
	consecutiveFailures int
}

// NewContext 创建新的仿真任务上下文
// 功能：校验配置、加载路网并初始化各管理器
// 参数：job-任务名称，c-配置对象
// 算法说明：
// 1. 补全配置默认值并校验
// 2. 从文件或MongoDB加载路网
// 3. 创建信号灯管理器并在度数大于2的路口布设信号灯
// 4. 创建策略存储（如配置了存储目录）
func NewContext(job string, c config.Config) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		job:           job,
		runtimeConfig: rc,
	}
	ctx.clock = clock.New(rc.C.Step)

	ctx.graph, err = input.Load(c.Input)
	if err != nil {
		return nil, err
	}

	ctx.signalManager = signal.NewManager(ctx)
	ctx.signalManager.Init()
	ctx.vehicleManager = vehicle.NewManager(ctx)

	if c.Store.Dir != "" {
		ctx.store, err = qstore.NewFileStore(c.Store.Dir)
		if err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RoadGraph() *roadnet.RoadGraph {
	return ctx.graph
}

func (ctx *Context) SignalManager() entity.ISignalManager {
	return ctx.signalManager
}

func (ctx *Context) VehicleManager() entity.IVehicleManager {
	return ctx.vehicleManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// SetCongestionSource 设置外部路况数据源
// 说明：在每个模拟步开始时拉取各路段的拥堵程度并写入路网
func (ctx *Context) SetCongestionSource(src entity.ICongestionSource) {
	ctx.congestion = src
}

// Init 初始化一个训练回合
// 功能：重置时钟与故障计数，重建车辆并加载历史策略
// 说明：相同种子下每个回合生成相同的车辆起终点序列，
// 信号灯的Q表跨回合保留，实现增量学习
func (ctx *Context) Init() error {
	ctx.clock.Init()
	ctx.consecutiveFailures = 0
	ctx.vehicleManager = vehicle.NewManager(ctx)
	if err := ctx.vehicleManager.Init(); err != nil {
		return fmt.Errorf("init episode: %w", err)
	}
	if ctx.store != nil {
		if err := ctx.signalManager.LoadPolicies(ctx.store); err != nil {
			return fmt.Errorf("init episode: %w", err)
		}
	}
	return nil
}

// Close 请求终止运行
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}
