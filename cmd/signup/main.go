package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/affiliateops/internal/signup/application"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/internal/signup/infrastructure/lock"
	"github.com/wyfcoding/affiliateops/internal/signup/infrastructure/messaging"
	"github.com/wyfcoding/affiliateops/internal/signup/infrastructure/persistence/mysql"
	redisrepo "github.com/wyfcoding/affiliateops/internal/signup/infrastructure/persistence/redis"
	"github.com/wyfcoding/affiliateops/internal/signup/infrastructure/provider"
	grpcserver "github.com/wyfcoding/affiliateops/internal/signup/interfaces/grpc"
	httpserver "github.com/wyfcoding/affiliateops/internal/signup/interfaces/http"
	"github.com/wyfcoding/affiliateops/pkg/cache"
	"github.com/wyfcoding/affiliateops/pkg/config"
	"github.com/wyfcoding/affiliateops/pkg/db"
	"github.com/wyfcoding/affiliateops/pkg/logger"
	"github.com/wyfcoding/affiliateops/pkg/metrics"
	"github.com/wyfcoding/affiliateops/pkg/middleware"
	"github.com/wyfcoding/affiliateops/pkg/mq"
	"github.com/wyfcoding/affiliateops/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/signup/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.Init(cfg.Logger, cfg.ServiceName)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	collector := metrics.NewDefaultMetricsCollector(m)

	// 4. 初始化基础设施
	database, err := db.Init(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		done := logger.LogDuration(ctx, "database schema migrated")
		if err := mysql.AutoMigrate(database.DB); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		done()
	}

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		if redisClient, err = cache.NewClient(ctx, cfg.Redis); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	var publisher domain.EventPublisher = messaging.NewLogEventPublisher(log)
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			RequireAll:   cfg.Kafka.RequireAll,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = messaging.NewKafkaEventPublisher(producer, cfg.ServiceName)
	}

	// 5. 初始化仓储
	signupRepo := mysql.NewSignupRepository(database.DB)
	noteRepo := mysql.NewNoteRepository(database.DB)
	formRepo := mysql.NewQAFormRepository(database.DB)

	var locker domain.SignupLocker
	var limiter ratelimit.RateLimiter
	if redisClient != nil {
		formRepo = redisrepo.NewCachedQAFormRepository(formRepo, cache.New(redisClient), cfg.Decision.FormCacheTTL, log)
		locker = lock.NewRedisSignupLocker(cache.NewMutex(redisClient, 50*time.Millisecond), cfg.Decision.LockWait, log)
		limiter = ratelimit.NewRedisRateLimiter(redisClient)
	} else {
		log.Warn("redis disabled, using in-process signup locks")
		locker = lock.NewLocalSignupLocker(cfg.Decision.LockWait)
		limiter = ratelimit.NewLocalRateLimiter()
	}

	var provisioners []domain.Provisioner
	if cfg.Providers.Cake.Enabled {
		provisioners = append(provisioners, provider.NewCakeProvisioner(cfg.Providers.Cake, log))
	}
	if cfg.Providers.Ringba.Enabled {
		provisioners = append(provisioners, provider.NewRingbaProvisioner(cfg.Providers.Ringba, log))
	}

	// 6. 初始化应用服务
	appService := application.NewSignupApplicationService(
		signupRepo, noteRepo, formRepo,
		provisioners, locker, publisher, collector, log,
		application.Options{
			ProviderTimeout: cfg.Decision.ProviderTimeout,
			LockTTL:         cfg.Decision.LockTTL,
		},
	)

	// 7. 初始化接口层
	grpcSrv, healthSrv := grpcserver.NewServer(collector)

	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(collector),
	)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	httpserver.NewSignupHandler(appService).RegisterRoutes(r,
		middleware.RateLimitMiddleware(limiter, cfg.RateLimit, httpserver.ActorKey))

	checks := map[string]grpcserver.CheckFunc{"mysql": database.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// 8. 启动服务
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		grpcserver.WatchHealth(gctx, healthSrv, 15*time.Second, log, checks)
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		log.Info("gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	g.Go(func() error {
		log.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 9. 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Decision.LockTTL)
		defer cancel()
		healthSrv.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	return g.Wait()
}
