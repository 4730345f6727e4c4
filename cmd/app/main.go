package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"linkly/internal/cache"
	"linkly/internal/config"
	"linkly/internal/handler"
	"linkly/internal/i18n"
	"linkly/internal/keygen"
	"linkly/internal/repository"
	"linkly/internal/service"
	"linkly/pkg/logging"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file, empty to use defaults and LINKLY_* env only")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, atomicLevel, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	logger.Info("Application started", zap.String("config", *configPath))

	if err := run(cfg, logger, atomicLevel); err != nil {
		logger.Fatal("Application exited with error", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func run(cfg *config.Config, logger *zap.Logger, atomicLevel zap.AtomicLevel) error {
	db, err := repository.OpenDB(cfg.DB, logger, atomicLevel)
	if err != nil {
		return err
	}
	defer func() {
		if err := repository.CloseDB(db); err != nil {
			logger.Warn("Database close failed", zap.Error(err))
		}
	}()
	if err := repository.Migrate(db); err != nil {
		return err
	}
	store := repository.NewLinkStore(db, cfg.Store.Timeout)

	healthChecks := []handler.HealthCheck{{Name: "db", Check: store.Ping}}

	var linkCache cache.Cache
	switch cfg.Cache.Driver {
	case "redis":
		pool := repository.NewRedisPool(cfg.Redis, logger)
		defer func() {
			if err := pool.Close(); err != nil {
				logger.Warn("Redis pool close failed", zap.Error(err))
			}
		}()
		rc := cache.NewRedisCache(pool, cfg.Cache.Timeout, logger)
		if err := rc.Ping(context.Background()); err != nil {
			// 缓存不可用时降级到存储，不阻止启动
			logger.Warn("Redis unreachable at startup, serving from store", zap.Error(err))
		}
		healthChecks = append(healthChecks, handler.HealthCheck{Name: "cache", Check: rc.Ping, Optional: true})
		linkCache = rc
	case "memory":
		linkCache = cache.NewMemoryCache(time.Minute)
	default:
		linkCache = cache.Noop{}
	}
	logger.Info("Cache configured", zap.String("driver", cfg.Cache.Driver))

	gen, err := keygen.New(cfg.ShortLink.ShortKeyLength, cfg.ShortLink.ShortKeyAlphabet)
	if err != nil {
		return err
	}
	logger.Info("Key generator configured",
		zap.Int("length", gen.Length()),
		zap.Int("alphabet_size", len(cfg.ShortLink.ShortKeyAlphabet)),
	)

	resolver := service.NewResolver(store, linkCache, service.ResolverOptions{
		CacheTTL:     cfg.ShortLink.CacheTTL(),
		NegativeTTL:  cfg.Cache.NegativeTTL,
		RetryBackoff: cfg.Store.RetryBackoff,
	}, logger)
	clicks := service.NewClickCounter(store, cfg.Click, logger)
	defer clicks.Close()

	svc := service.NewShortLinkService(store, gen, resolver, clicks, service.ShortLinkOptions{
		MaxKeyAttempts: cfg.ShortLink.MaxKeyGenerationRetries,
		MaxURLLength:   cfg.Links.MaxURLLength,
		BlockedDomains: cfg.Links.BlockedDomains,
		ReuseExisting:  cfg.Links.ReuseExisting,
		RetentionDays:  cfg.Click.RetentionDays,
	}, logger)

	scheduler, err := startRetentionJob(cfg.Click, svc, logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	tr, err := i18n.New("en")
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	if atomicLevel.Level() == zap.DebugLevel {
		gin.SetMode(gin.DebugMode)
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, bearer tokens will be rejected")
	}

	h := handler.NewShortLinkHandler(svc, cfg.Auth.AllowAnonymous, cfg.Server.BaseURL, logger)
	r := handler.NewRouter(h, handler.RouterOptions{
		Logger:       logger,
		Translator:   tr,
		JWTSecret:    []byte(cfg.Auth.JWTSecret),
		AllowOrigins: cfg.Server.AllowOrigins,
		HealthChecks: healthChecks,
	})

	return serve(r, cfg.Server, logger)
}

// startRetentionJob 未配置保留天数时不启动定时任务
func startRetentionJob(cfg config.ClickConfig, svc *service.ShortLinkService, logger *zap.Logger) (*cron.Cron, error) {
	if cfg.RetentionDays <= 0 {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.RetentionCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := svc.PurgeClickEvents(ctx); err != nil {
			logger.Error("Click retention job failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("Click retention job scheduled",
		zap.String("spec", cfg.RetentionCron),
		zap.Int("retention_days", cfg.RetentionDays),
	)
	return c, nil
}

func serve(r http.Handler, cfg config.ServerConfig, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running on " + cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待中断信号以优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	return nil
}
