// Package redis 注册审核 Redis 缓存
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/cache"
)

// cachedQAFormRepository 激活问卷的读穿缓存，写入后失效
type cachedQAFormRepository struct {
	next   domain.QAFormRepository
	cache  *cache.RedisCache
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedQAFormRepository 为问卷仓储加上 Redis 缓存
func NewCachedQAFormRepository(next domain.QAFormRepository, c *cache.RedisCache, ttl time.Duration, logger *slog.Logger) domain.QAFormRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedQAFormRepository{
		next:   next,
		cache:  c,
		prefix: "signup:qa_form:active:",
		ttl:    ttl,
		logger: logger,
	}
}

func (r *cachedQAFormRepository) ActiveForm(ctx context.Context, provider domain.Provider) (*domain.QAForm, error) {
	key := r.key(provider)
	var form domain.QAForm
	hit, err := r.cache.GetJSON(ctx, key, &form)
	if err != nil {
		r.logger.WarnContext(ctx, "qa form cache read failed", "provider", provider, "error", err)
	}
	if hit {
		return &form, nil
	}

	loaded, err := r.next.ActiveForm(ctx, provider)
	if err != nil || loaded == nil {
		return loaded, err
	}
	if err := r.cache.SetJSON(ctx, key, loaded, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "qa form cache write failed", "provider", provider, "error", err)
	}
	return loaded, nil
}

func (r *cachedQAFormRepository) SaveActive(ctx context.Context, form *domain.QAForm) error {
	if err := r.next.SaveActive(ctx, form); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, r.key(form.Provider)); err != nil {
		r.logger.WarnContext(ctx, "qa form cache invalidation failed", "provider", form.Provider, "error", err)
	}
	return nil
}

func (r *cachedQAFormRepository) key(p domain.Provider) string {
	return r.prefix + string(p)
}
