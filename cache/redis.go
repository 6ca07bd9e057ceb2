package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/llm"
)

const redisKeyPrefix = "graphrag:"

// Redis 基于 Redis 的缓存后端
// 反序列化失败按未命中处理，绝不把损坏的条目抛给调用方。
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis 创建 Redis 缓存后端
func NewRedis(cfg Config, logger *zap.Logger) (*Redis, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("cache: redis_addr is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Redis{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// NewRedisWithClient 复用已有客户端（测试用 miniredis）
func NewRedisWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get 实现 llm.CacheStore
func (r *Redis) Get(ctx context.Context, key string) (*llm.CacheEntry, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, llm.ErrCacheMiss
		}
		return nil, err
	}

	var entry llm.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// 损坏条目当作未命中
		r.logger.Warn("corrupt cache entry, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, llm.ErrCacheMiss
	}
	return &entry, nil
}

// Set 实现 llm.CacheStore
func (r *Redis) Set(ctx context.Context, key string, entry *llm.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err()
}

// Close 关闭底层连接
func (r *Redis) Close() error {
	return r.client.Close()
}
