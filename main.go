package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boron/funnel-service/handlers"
	"github.com/boron/funnel-service/internal/config"
	"github.com/boron/funnel-service/internal/database"
	"github.com/boron/funnel-service/internal/funnel/handler"
	"github.com/boron/funnel-service/internal/funnel/repository"
	"github.com/boron/funnel-service/internal/funnel/service"
	"github.com/boron/funnel-service/internal/funnel/store"
	"github.com/boron/funnel-service/internal/storage"
	"github.com/boron/funnel-service/pkg/logger"
	"github.com/boron/funnel-service/pkg/metrics"
	"github.com/boron/funnel-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	// initialize logging (LOG_LEVEL: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Infof("config loaded: storage=%s redis=%v publish=%v", cfg.Storage.Backend, cfg.Redis.Addr() != "", cfg.Publish.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting funnel service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// app holds the wired router and everything that must be closed on exit.
type app struct {
	router  *gin.Engine
	redis   *redis.Client
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// Lightweight CORS middleware for the editor front end.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; sessions stay process-local", addr, err)
			_ = client.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			a.redis = client
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}

	repo, err := a.openRepository(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var svcOpts []service.Option
	if cfg.Publish.Enabled {
		pub, err := storage.NewMinIOStorage(ctx, &cfg.Publish.MinIO)
		if err != nil {
			logger.Warnf("page publishing disabled: %v", err)
		} else {
			svcOpts = append(svcOpts, service.WithPublisher(pub))
		}
	}
	svc := service.New(repo, svcOpts...)

	var snapshots store.SnapshotRepository
	if a.redis != nil {
		snapshots = store.NewRedisSnapshotRepository(a.redis, cfg.Sessions.Prefix, cfg.Sessions.TTL)
	}
	sessions := store.NewSessions(snapshots,
		store.WithIdleTTL(cfg.Sessions.TTL),
		store.WithMaxSessions(cfg.Sessions.MaxActive),
	)

	var hopts []handler.Option
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && a.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			hopts = append(hopts, handler.WithIngestLimiter(middleware.RedisRateLimitMiddleware(a.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win, nil)))
		} else {
			hopts = append(hopts, handler.WithIngestLimiter(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst, nil)))
		}
	}
	handler.New(svc, sessions, hopts...).Register(r)
	handlers.RegisterSwagger(r)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: Redis must answer when it is configured
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{"storage": true}
		if cfg.Redis.Addr() != "" {
			deps["redis"] = a.redis != nil && a.redis.Ping(c.Request.Context()).Err() == nil
			ready = deps["redis"]
		}
		body := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	a.router = r
	return a, nil
}

func (a *app) openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		repo, err := repository.NewSQLiteRepo(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		logger.Infof("using SQLite funnel storage at %s", cfg.SQLite.Path)
		return repo, nil
	case config.BackendMongo:
		// retry with backoff to tolerate startup races
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		logger.Infof("using MongoDB funnel storage %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		return repository.NewMongoRepo(ctx, col)
	default:
		logger.Warn("using in-memory funnel storage; funnels are lost on restart")
		return repository.NewMemoryRepo(), nil
	}
}
