package retry

import "fmt"

// 重试策略类型，对应配置文件中的 type 字段
const (
	TypeExponentialBackoff = "exponential_backoff"
	TypeImmediate          = "immediate"
)

// Config 用户侧重试配置（YAML）
// 校验规则在 Validate 中集中执行，加载阶段即失败，不会进入请求路径
type Config struct {
	Type       string   `yaml:"type" json:"type"`
	MaxRetries int      `yaml:"max_retries" json:"max_retries"`
	BaseDelay  float64  `yaml:"base_delay" json:"base_delay"` // 秒，指数退避的倍增基数
	Jitter     bool     `yaml:"jitter" json:"jitter"`
	MaxDelay   float64  `yaml:"max_delay" json:"max_delay"` // 秒，单次退避上限
	SkipCodes  []string `yaml:"skip_codes" json:"skip_codes"`
}

// WithDefaults 填充缺省值
func (c Config) WithDefaults() Config {
	if c.Type == "" {
		c.Type = TypeExponentialBackoff
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
	if c.Type == TypeExponentialBackoff {
		if c.BaseDelay == 0 {
			c.BaseDelay = 2.0
		}
		if c.MaxDelay == 0 {
			c.MaxDelay = 60.0
		}
	}
	return c
}

// Validate 校验配置合法性
func (c Config) Validate() error {
	switch c.Type {
	case TypeExponentialBackoff, TypeImmediate:
	case "":
	default:
		return fmt.Errorf("retry: unknown retry type %q", c.Type)
	}
	if c.MaxRetries <= 1 {
		return fmt.Errorf("retry: max_retries must be greater than 1, got %d", c.MaxRetries)
	}
	if c.Type == TypeExponentialBackoff {
		if c.BaseDelay <= 1.0 {
			return fmt.Errorf("retry: base_delay must be greater than 1.0, got %v", c.BaseDelay)
		}
		if c.MaxDelay <= 1.0 {
			return fmt.Errorf("retry: max_delay must be greater than 1, got %v", c.MaxDelay)
		}
	}
	return nil
}
