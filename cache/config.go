package cache

import (
	"fmt"
	"time"
)

// 缓存后端类型
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeNone   = "none"
)

// Config 缓存配置
type Config struct {
	Type         string        `yaml:"type" json:"type"`
	MaxEntries   int           `yaml:"max_entries" json:"max_entries"`
	TTL          time.Duration `yaml:"ttl" json:"ttl"`
	SingleFlight bool          `yaml:"single_flight" json:"single_flight"`

	// Redis 后端
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
}

// WithDefaults 填充缺省值
func (c Config) WithDefaults() Config {
	if c.Type == "" {
		c.Type = TypeMemory
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 1000
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
	return c
}

// Validate 校验配置合法性
func (c Config) Validate() error {
	switch c.Type {
	case "", TypeMemory, TypeNone:
	case TypeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("cache: redis_addr is required for redis cache")
		}
	default:
		return fmt.Errorf("cache: unknown cache type %q", c.Type)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("cache: max_entries must be positive, got %d", c.MaxEntries)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache: ttl must be positive, got %v", c.TTL)
	}
	return nil
}
