// Package cache 提供 Redis 客户端封装：连接配置、JSON 缓存与基于 SET NX 的分布式锁
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/affiliateops/pkg/logger"
)

// Config Redis 配置
type Config struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addrs        []string `mapstructure:"addrs"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	DialTimeout  int      `mapstructure:"dial_timeout"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
}

// NewClient 创建 Redis 客户端并检测连通性；多个地址时使用集群模式
func NewClient(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info(ctx, "redis connected", "addrs", cfg.Addrs)
	return client, nil
}

// RedisCache Redis 缓存实现
type RedisCache struct {
	client redis.UniversalClient
}

// New 创建 Redis 缓存实例
func New(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON 获取 JSON 缓存值，未命中时返回 false
func (rc *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error(ctx, "redis get failed", "key", key, "error", err)
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 设置 JSON 格式的缓存值
func (rc *RedisCache) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := rc.client.Set(ctx, key, data, expiration).Err(); err != nil {
		logger.Error(ctx, "redis set failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Delete 删除缓存
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := rc.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error(ctx, "redis delete failed", "keys", keys, "error", err)
		return err
	}
	return nil
}

// releaseScript 仅当持有者令牌匹配时删除锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Mutex 基于 SET NX PX 的分布式锁
type Mutex struct {
	client redis.UniversalClient
	retry  time.Duration
}

// NewMutex 创建分布式锁，retry 为抢锁失败后的重试间隔
func NewMutex(client redis.UniversalClient, retry time.Duration) *Mutex {
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Mutex{client: client, retry: retry}
}

// TryLock 尝试一次加锁，成功返回持有者令牌
func (m *Mutex) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Lock 在 wait 时间内循环抢锁；超时返回 ok=false
func (m *Mutex) Lock(ctx context.Context, key string, ttl, wait time.Duration) (string, bool, error) {
	deadline := time.Now().Add(wait)
	for {
		token, ok, err := m.TryLock(ctx, key, ttl)
		if err != nil || ok {
			return token, ok, err
		}
		if time.Now().Add(m.retry).After(deadline) {
			return "", false, nil
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(m.retry):
		}
	}
}

// Unlock 释放锁，令牌不匹配时不做任何操作
func (m *Mutex) Unlock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, m.client, []string{key}, token).Err()
}
