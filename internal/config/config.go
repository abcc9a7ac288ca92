package config

import (
	"github.com/spf13/viper"

	"github.com/starfund/mes/internal/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Escrow   EscrowConfig   `mapstructure:"escrow"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 结算资产所在链的配置
type ChainConfig struct {
	Mode         string `mapstructure:"mode"`          // 资产划转模式: chain, local
	ChainId      int64  `mapstructure:"chain_id"`      // 链ID
	RpcUrl       string `mapstructure:"rpc_url"`       // RPC节点URL
	PrivateKey   string `mapstructure:"private_key"`   // 托管账户私钥
	AssetAddress string `mapstructure:"asset_address"` // 结算资产合约地址
}

// EscrowConfig 托管策略配置
type EscrowConfig struct {
	// 托管账户地址，投资资金的托管方
	EscrowAddress string `mapstructure:"escrow_address"`
	// 里程碑被拒绝时是否取消整个项目并退还全部未释放资金；
	// 为 false 时仅该里程碑的份额进入退款
	RejectCancelsProject bool `mapstructure:"reject_cancels_project"`
	// 验证前是否允许重复提交证据（后写覆盖先写）
	AllowEvidenceResubmit bool `mapstructure:"allow_evidence_resubmit"`
}

type TaskConfig struct {
	Interval   int `mapstructure:"interval"`    // 秒
	RefundPool int `mapstructure:"refund_pool"` // 退款打款并发数
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mes")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "escrow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.mode", "local")
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("escrow.escrow_address", "0x0000000000000000000000000000000000000e5c")
	viper.SetDefault("escrow.reject_cancels_project", false)
	viper.SetDefault("escrow.allow_evidence_resubmit", true)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("task.refund_pool", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
