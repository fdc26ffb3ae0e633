package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bazaar-next/internal/logger"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

// RetryPolicy 瞬时数据库故障的重试参数
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

// DefaultRetryPolicy 默认重试 3 次，起始间隔 100ms
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Base: 100 * time.Millisecond}

var transientMarkers = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"bad connection",
	"i/o timeout",
	"timeout",
	"too many connections",
	"queue limit",
	"database is locked",
	"deadlock",
	"server closed the connection",
	"unexpected eof",
}

// IsTransientError 判断是否为可重试的瞬时错误
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithRetry 对瞬时错误按指数退避重试，其余错误立即返回
func WithRetry(ctx context.Context, policy RetryPolicy, op string, fn func(ctx context.Context) error) error {
	if policy.Base <= 0 {
		policy.Base = DefaultRetryPolicy.Base
	}
	attempt := 0
	backoff := retry.WithMaxRetries(policy.MaxRetries, retry.NewExponential(policy.Base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTransientError(err) {
			logger.Warnw("db_transient_error_retry",
				"op", op,
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return err
	})
}
