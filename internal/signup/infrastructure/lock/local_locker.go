package lock

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
)

// LocalSignupLocker 进程内按注册申请加锁，未启用 Redis 的单实例部署使用
type LocalSignupLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocalSignupLocker 创建进程内锁
func NewLocalSignupLocker(wait time.Duration) *LocalSignupLocker {
	return &LocalSignupLocker{
		held: make(map[string]chan struct{}),
		wait: wait,
	}
}

// Lock 等待至多 wait 时间；进程内持有者随进程退出，ttl 不生效
func (l *LocalSignupLocker) Lock(ctx context.Context, signupID string, _ time.Duration) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		released, busy := l.held[signupID]
		if !busy {
			done := make(chan struct{})
			l.held[signupID] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, signupID)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-timer.C:
			return nil, domain.ErrLockNotAcquired
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
