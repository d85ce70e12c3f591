// Package retry 固定间隔重试
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 10
	DefaultDelay       = time.Second
)

// Policy 重试策略
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable 为 nil 时所有错误都不重试
	Retryable func(error) bool
	// OnRetry 每次决定重试前回调, attempt 从 1 开始
	OnRetry func(attempt int, err error)
}

// ExhaustedError 重试次数耗尽
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	return p
}

// Do 执行 fn, 可重试错误按固定间隔重试, 不可重试错误立即返回
// 失败时也返回最后一次的结果, 便于调用方记录链上交易哈希
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p := policy.normalize()

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return result, err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return result, &ExhaustedError{Attempts: p.MaxAttempts, Last: err}
}
