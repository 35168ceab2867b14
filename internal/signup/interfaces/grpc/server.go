// Package grpc 注册审核 gRPC 服务：健康检查与反射
package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/affiliateops/pkg/metrics"
	"github.com/wyfcoding/affiliateops/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 健康检查中使用的服务名
const ServiceName = "affiliateops.signup"

// CheckFunc 依赖探活
type CheckFunc func(ctx context.Context) error

// NewServer 创建挂载拦截器、健康检查与反射的 gRPC 服务
func NewServer(collector metrics.MetricsCollector) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
		middleware.GRPCMetricsInterceptor(collector),
	))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

// WatchHealth 周期性探测依赖并更新健康状态，ctx 结束时返回
func WatchHealth(ctx context.Context, hs *health.Server, interval time.Duration, logger *slog.Logger, checks map[string]CheckFunc) {
	probe := func() {
		status := healthpb.HealthCheckResponse_SERVING
		for name, check := range checks {
			cctx, cancel := context.WithTimeout(ctx, interval)
			err := check(cctx)
			cancel()
			if err != nil {
				logger.WarnContext(ctx, "dependency health check failed", "dependency", name, "error", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
		hs.SetServingStatus(ServiceName, status)
		hs.SetServingStatus("", status)
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
