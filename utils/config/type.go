package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义路网数据输入路径的配置结构，支持两种数据源
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB）
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI   string    `yaml:"uri,omitempty"` // MongoDB连接字符串
	Graph InputPath `yaml:"graph"`         // 路网
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
type Control struct {
	Step                ControlStep `yaml:"step"`
	Episodes            int         `yaml:"episodes,omitempty"`              // 训练回合数（默认1）
	MaxStepFailures     int         `yaml:"max_step_failures,omitempty"`     // 连续故障步数上限，超过则终止（默认10）
	TopCongestedEdgeNum int         `yaml:"top_congested_edge_num,omitempty"` // 指标中输出的占用最多边数量（默认5）
}

// Policy 信号灯控制策略（Q-learning）超参数
// 说明：所有信号灯共用同一组超参数，各自持有独立的Q表
type Policy struct {
	LearningRate    float64 `yaml:"learning_rate"`    // 学习率alpha，[0,1]
	DiscountFactor  float64 `yaml:"discount_factor"`  // 折扣系数gamma，[0,1]
	ExplorationRate float64 `yaml:"exploration_rate"` // 探索概率epsilon，[0,1]
}

// Vehicle 车辆生成配置
type Vehicle struct {
	Num            int    `yaml:"num"`                        // 初始车辆数
	Seed           uint64 `yaml:"seed,omitempty"`             // 起终点采样种子
	MaxPathRetries int    `yaml:"max_path_retries,omitempty"` // 无可达路径时重新采样终点的次数上限（默认10）
}

// Store 策略持久化配置
type Store struct {
	Dir string `yaml:"dir,omitempty"` // Q表存储目录，为空则禁用持久化
}

// Config YAML配置文件的根结构
type Config struct {
	Input   Input   `yaml:"input"`   // 输入
	Control Control `yaml:"control"` // 模拟过程控制
	Policy  Policy  `yaml:"policy"`  // 信控策略超参数
	Vehicle Vehicle `yaml:"vehicle"` // 车辆
	Store   Store   `yaml:"store"`   // 策略持久化
}
