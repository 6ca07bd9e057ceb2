// =============================================================================
// 📦 graphrag 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.Load("config.yaml")
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/graphrag/cache"
	"github.com/BaSui01/graphrag/limit"
	"github.com/BaSui01/graphrag/retry"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GRAPHRAG"

// Config 是 LLM 调用核心的完整配置
type Config struct {
	// Model 默认模型名（同时决定分词器编码）
	Model string `yaml:"model"`

	// Tokenizer 分词策略: tiktoken | estimator
	Tokenizer string `yaml:"tokenizer"`

	// RateLimit 限流配置；nil 表示不限流
	RateLimit *limit.Config `yaml:"rate_limit"`

	// Retry 重试配置；nil 表示不重试
	Retry *retry.Config `yaml:"retry"`

	// Cache 缓存配置；nil 或 type=none 表示不缓存
	Cache *cache.Config `yaml:"cache"`

	// Mux 并发多路复用配置
	Mux MuxConfig `yaml:"mux"`

	// ErrorInjectionRate 故障注入概率（仅测试）
	ErrorInjectionRate float64 `yaml:"error_injection_rate"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`
}

// MuxConfig 多路复用器配置
type MuxConfig struct {
	Concurrency int `yaml:"concurrency"`
	QueueLimit  int `yaml:"queue_limit"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default 返回缺省配置
func Default() *Config {
	return &Config{
		Model:     "gpt-4o-mini",
		Tokenizer: "tiktoken",
		Mux: MuxConfig{
			Concurrency: 4,
			QueueLimit:  1024,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 加载配置: 默认值 → YAML 文件（可选）→ 环境变量覆盖
// 所有校验错误在加载阶段返回，绝不进入请求路径。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 应用环境变量覆盖（GRAPHRAG_ 前缀）
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvPrefix + "_TOKENIZER"); v != "" {
		cfg.Tokenizer = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvPrefix + "_MUX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mux.Concurrency = n
		}
	}
	if v := os.Getenv(EnvPrefix + "_MUX_QUEUE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mux.QueueLimit = n
		}
	}
}

// Validate 校验全部子配置，任一失败即整体失败
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	switch c.Tokenizer {
	case "", "tiktoken", "estimator":
	default:
		return fmt.Errorf("config: unknown tokenizer %q", c.Tokenizer)
	}
	if c.RateLimit != nil {
		if err := c.RateLimit.WithDefaults().Validate(); err != nil {
			return err
		}
	}
	if c.Retry != nil {
		if err := c.Retry.WithDefaults().Validate(); err != nil {
			return err
		}
	}
	if c.Cache != nil {
		if err := c.Cache.WithDefaults().Validate(); err != nil {
			return err
		}
	}
	if c.Mux.Concurrency < 0 {
		return fmt.Errorf("config: mux concurrency must be positive, got %d", c.Mux.Concurrency)
	}
	if c.Mux.QueueLimit < 0 {
		return fmt.Errorf("config: mux queue_limit must be positive, got %d", c.Mux.QueueLimit)
	}
	if c.ErrorInjectionRate < 0 || c.ErrorInjectionRate > 1 {
		return fmt.Errorf("config: error_injection_rate must be in [0,1], got %v", c.ErrorInjectionRate)
	}
	return nil
}
