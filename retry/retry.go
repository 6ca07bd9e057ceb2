// Package retry 为 LLM 调用提供失败重试能力，支持指数退避与立即重试两种策略。
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Retryer 重试器接口
// 同步与异步调用共用同一控制流：传入的函数持有 context，
// 取消与超时由 context 统一承载。
type Retryer interface {
	// Do 执行函数，失败时根据策略重试
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithResult 执行函数并返回结果，失败时根据策略重试
	DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

// Policy 定义重试策略
// Skip 命中的错误永不重试：这类请求本身非法，重试没有意义。
type Policy struct {
	MaxRetries int                                               // 最大重试次数（不含首次尝试）
	BaseDelay  float64                                           // 指数退避倍增基数（秒）；0 表示立即重试
	MaxDelay   float64                                           // 单次延迟上限（秒）
	Jitter     bool                                              // 是否叠加 [0,1) 秒随机抖动
	Skip       func(err error) bool                              // 不可重试错误判定
	OnRetry    func(attempt int, err error, delay time.Duration) // 每次重试前回调
}

type retryer struct {
	policy Policy
	logger *zap.Logger
}

// NewExponentialBackoff 创建指数退避重试器
// 第 n 次重试前延迟 BaseDelay^n 秒，封顶 MaxDelay，可选抖动。
func NewExponentialBackoff(policy Policy, logger *zap.Logger) Retryer {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2.0
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 60.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryer{policy: policy, logger: logger}
}

// NewImmediate 创建立即重试器：两次尝试之间零延迟
func NewImmediate(maxRetries int, skip func(error) bool, logger *zap.Logger) Retryer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryer{
		policy: Policy{MaxRetries: maxRetries, Skip: skip},
		logger: logger,
	}
}

// FromConfig 根据配置构建重试器
// skip 由调用方注入（通常按错误码匹配 Config.SkipCodes）。
func FromConfig(cfg Config, skip func(error) bool, logger *zap.Logger) (Retryer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type == TypeImmediate {
		return NewImmediate(cfg.MaxRetries, skip, logger), nil
	}
	return NewExponentialBackoff(Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Jitter:     cfg.Jitter,
		Skip:       skip,
	}, logger), nil
}

// Do 实现 Retryer.Do
func (r *retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult
// 耗尽重试后原样返回最后一次的错误，不做包装，调用方能看到真实失败原因。
func (r *retryer) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delayFor(attempt)

			r.logger.Debug("retrying call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					if !timer.Stop() {
						<-timer.C
					}
					return nil, ctx.Err()
				case <-timer.C:
				}
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("call succeeded after retry", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		// 不可重试错误直接向上抛，首次尝试即终止
		if r.policy.Skip != nil && r.policy.Skip(err) {
			r.logger.Debug("error not retryable", zap.Error(err))
			return nil, err
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

// delayFor 计算第 attempt 次重试前的延迟
// 指数退避：BaseDelay^attempt 秒，封顶 MaxDelay，抖动为加性 [0,1) 秒。
func (r *retryer) delayFor(attempt int) time.Duration {
	if r.policy.BaseDelay <= 0 {
		return 0
	}
	delay := math.Pow(r.policy.BaseDelay, float64(attempt))
	if delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}
	if r.policy.Jitter {
		delay += rand.Float64()
	}
	return time.Duration(delay * float64(time.Second))
}
