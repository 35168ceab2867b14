// Package lock 注册申请级别的互斥锁实现
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/cache"
)

// RedisSignupLocker 基于 Redis 的分布式注册申请锁，多实例部署时使用
type RedisSignupLocker struct {
	mutex  *cache.Mutex
	prefix string
	wait   time.Duration
	logger *slog.Logger
}

// NewRedisSignupLocker 创建分布式锁；wait 为等待其他持有者释放的最长时间
func NewRedisSignupLocker(mutex *cache.Mutex, wait time.Duration, logger *slog.Logger) *RedisSignupLocker {
	return &RedisSignupLocker{
		mutex:  mutex,
		prefix: "signup:lock:",
		wait:   wait,
		logger: logger,
	}
}

func (l *RedisSignupLocker) Lock(ctx context.Context, signupID string, ttl time.Duration) (func(), error) {
	key := l.prefix + signupID
	token, ok, err := l.mutex.Lock(ctx, key, ttl, l.wait)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrLockNotAcquired
	}
	return func() {
		// 释放不受请求取消影响
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := l.mutex.Unlock(releaseCtx, key, token); err != nil {
			l.logger.WarnContext(ctx, "failed to release signup lock", "signup_id", signupID, "error", err)
		}
	}, nil
}
