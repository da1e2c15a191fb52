package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// BusConfig MoonWire 总线端点配置
type BusConfig struct {
	ListenAddr     string `mapstructure:"listenAddr"`     // 本节点入站端点，固定端口 12778
	RouterAddr     string `mapstructure:"routerAddr"`     // 总线路由器出站端点，固定端口 12777
	ReadBuffer     int    `mapstructure:"readBuffer"`     // UDP 接收缓冲区字节数
	WarnRatePerSec int    `mapstructure:"warnRatePerSec"` // 坏帧/未知类型告警限速
	WarnBurst      int    `mapstructure:"warnBurst"`
}

// LandingConfig 着陆检测参数
type LandingConfig struct {
	ThresholdMetres float64 `mapstructure:"thresholdMetres"` // height <= threshold 判定触地
}

// HTTPConfig 运维 HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Bus     BusConfig     `mapstructure:"bus"`
	Landing LandingConfig `mapstructure:"landing"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空则回退到 configs/example.yaml；缺文件时依赖默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 HSS_，点号替换为下划线
	v.SetEnvPrefix("HSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hss-node")
	v.SetDefault("app.env", "dev")

	// 总线端口是各子系统共同约定的常量，测试环境可覆盖
	v.SetDefault("bus.listenAddr", ":12778")
	v.SetDefault("bus.routerAddr", "127.0.0.1:12777")
	v.SetDefault("bus.readBuffer", 1<<20)
	v.SetDefault("bus.warnRatePerSec", 5)
	v.SetDefault("bus.warnBurst", 10)

	v.SetDefault("landing.thresholdMetres", 0.0)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/hss-node.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
