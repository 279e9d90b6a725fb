package config

import "fmt"

// 超参数默认值，与策略相关的取值沿用常见Q-learning设定
const (
	DefaultLearningRate    = 0.1
	DefaultDiscountFactor  = 0.9
	DefaultExplorationRate = 0.1

	DefaultEpisodes            = 1
	DefaultMaxStepFailures     = 10
	DefaultTopCongestedEdgeNum = 5
	DefaultMaxPathRetries      = 10
)

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，包含补全默认值后的各项参数
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
	P   Policy  // 信控策略超参数
	V   Vehicle // 车辆配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，补全默认值并校验取值范围
// 参数：config-原始配置对象
// 返回：运行时配置指针与校验错误
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	rc.P = config.Policy
	rc.V = config.Vehicle

	if rc.C.Episodes <= 0 {
		rc.C.Episodes = DefaultEpisodes
	}
	if rc.C.MaxStepFailures <= 0 {
		rc.C.MaxStepFailures = DefaultMaxStepFailures
	}
	if rc.C.TopCongestedEdgeNum <= 0 {
		rc.C.TopCongestedEdgeNum = DefaultTopCongestedEdgeNum
	}
	if rc.V.MaxPathRetries <= 0 {
		rc.V.MaxPathRetries = DefaultMaxPathRetries
	}
	if rc.P == (Policy{}) {
		rc.P = Policy{
			LearningRate:    DefaultLearningRate,
			DiscountFactor:  DefaultDiscountFactor,
			ExplorationRate: DefaultExplorationRate,
		}
	}

	for name, v := range map[string]float64{
		"policy.learning_rate":    rc.P.LearningRate,
		"policy.discount_factor":  rc.P.DiscountFactor,
		"policy.exploration_rate": rc.P.ExplorationRate,
	} {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("config: %s must be in [0,1], got %v", name, v)
		}
	}
	if rc.C.Step.Total <= 0 {
		return nil, fmt.Errorf("config: control.step.total must be positive, got %v", rc.C.Step.Total)
	}
	if rc.V.Num < 0 {
		return nil, fmt.Errorf("config: vehicle.num must be non-negative, got %v", rc.V.Num)
	}

	return rc, nil
}
