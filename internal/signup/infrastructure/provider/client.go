// Package provider Cake / Ringba 开通接口客户端
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/config"
)

const maxErrorBody = 256

// StatusError 渠道返回非 2xx 响应
type StatusError struct {
	Provider domain.Provider
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable 5xx 视为渠道侧故障
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// ErrCircuitOpen 熔断打开期间的快速失败
var ErrCircuitOpen = errors.New("provider circuit open")

// client 带熔断的 JSON HTTP 客户端。POST 不自动重试，避免重复创建联盟账号
type client struct {
	provider domain.Provider
	rest     *resty.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

func newClient(p domain.Provider, cfg config.ProviderConfig, logger *slog.Logger) *client {
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	threshold := cfg.Breaker.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	c := &client{provider: p, rest: rest, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(p),
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isBreakerSuccess,
	})
	return c
}

// isBreakerSuccess 4xx 和调用方取消不计入熔断失败
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}

// post 发送 JSON 请求并解析响应到 result
func (c *client) post(ctx context.Context, path string, headers map[string]string, body, result any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetBody(body).
			SetResult(result).
			Post(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			text := resp.String()
			if len(text) > maxErrorBody {
				text = text[:maxErrorBody]
			}
			return nil, &StatusError{Provider: c.provider, Code: resp.StatusCode(), Body: text}
		}
		return nil, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.WarnContext(ctx, "provider call rejected by circuit breaker", "provider", c.provider, "path", path)
		return fmt.Errorf("%w: %s", ErrCircuitOpen, c.provider)
	case err != nil:
		c.logger.WarnContext(ctx, "provider call failed", "provider", c.provider, "path", path, "duration", time.Since(start), "error", err)
		return fmt.Errorf("%s request failed: %w", c.provider, err)
	}

	c.logger.DebugContext(ctx, "provider call succeeded", "provider", c.provider, "path", path, "duration", time.Since(start))
	return nil
}
