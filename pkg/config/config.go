// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wyfcoding/affiliateops/pkg/cache"
	"github.com/wyfcoding/affiliateops/pkg/db"
	"github.com/wyfcoding/affiliateops/pkg/logger"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string          `mapstructure:"environment"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	Database    db.Config       `mapstructure:"database"`
	Redis       cache.Config    `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Logger      logger.Config   `mapstructure:"logger"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Decision    DecisionConfig  `mapstructure:"decision"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	// 写入超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// 同步等待所有副本确认
	RequireAll bool `mapstructure:"require_all"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// 半开状态允许通过的请求数
	MaxRequests uint32 `mapstructure:"max_requests"`
	// 闭合状态下清零计数的周期
	Interval time.Duration `mapstructure:"interval"`
	// 打开状态持续时间
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
	// 连续失败多少次后打开
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// ProviderConfig 单个开通渠道的接入配置
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// Ringba 账户 ID，Cake 不使用
	AccountID string        `mapstructure:"account_id"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// ProvidersConfig 渠道配置
type ProvidersConfig struct {
	Cake   ProviderConfig `mapstructure:"cake"`
	Ringba ProviderConfig `mapstructure:"ringba"`
}

// DecisionConfig 决策编排配置
type DecisionConfig struct {
	// 单次渠道调用超时
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// 注册申请锁持有上限
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// 等待锁释放的最长时间
	LockWait time.Duration `mapstructure:"lock_wait"`
	// 激活问卷缓存时间
	FormCacheTTL time.Duration `mapstructure:"form_cache_ttl"`
}

// RateLimitConfig 决策接口限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 每个操作人每秒请求数
	QPS   int `mapstructure:"qps"`
	Burst int `mapstructure:"burst"`
}

// Load 从 TOML 文件加载配置，未配置项使用默认值，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis addrs are required when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	for name, p := range map[string]ProviderConfig{"cake": c.Providers.Cake, "ringba": c.Providers.Ringba} {
		if p.Enabled && p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url is required", name)
		}
	}
	if c.Providers.Ringba.Enabled && c.Providers.Ringba.AccountID == "" {
		return fmt.Errorf("providers.ringba.account_id is required")
	}
	if c.Decision.ProviderTimeout <= 0 {
		return fmt.Errorf("decision.provider_timeout must be positive")
	}
	if c.Decision.LockTTL <= 2*c.Decision.ProviderTimeout {
		return fmt.Errorf("decision.lock_ttl (%s) must exceed twice the provider timeout (%s)", c.Decision.LockTTL, c.Decision.ProviderTimeout)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "signup")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "60s")

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 200)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.require_all", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/signup.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	for _, p := range []string{"cake", "ringba"} {
		v.SetDefault("providers."+p+".enabled", false)
		v.SetDefault("providers."+p+".base_url", "")
		v.SetDefault("providers."+p+".api_key", "")
		v.SetDefault("providers."+p+".account_id", "")
		v.SetDefault("providers."+p+".breaker.max_requests", 1)
		v.SetDefault("providers."+p+".breaker.interval", "60s")
		v.SetDefault("providers."+p+".breaker.open_timeout", "30s")
		v.SetDefault("providers."+p+".breaker.consecutive_failures", 5)
	}

	v.SetDefault("decision.provider_timeout", "10s")
	v.SetDefault("decision.lock_ttl", "30s")
	v.SetDefault("decision.lock_wait", "3s")
	v.SetDefault("decision.form_cache_ttl", "10m")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.qps", 5)
	v.SetDefault("ratelimit.burst", 10)
}
