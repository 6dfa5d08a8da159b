package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dealscout/internal/config"
	"dealscout/internal/dialogue"
	"dealscout/internal/extract"
	"dealscout/internal/geo"
	"dealscout/internal/handler"
	"dealscout/internal/logger"
	"dealscout/internal/provider"
	"dealscout/internal/search"
	"dealscout/internal/session"
	"dealscout/internal/valuation"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()

	zlog.Info("starting dealscout",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	gin.SetMode(cfg.Server.GinMode)

	// City-to-ZIP gazetteer, optionally extended from a mapping file
	gazetteer := geo.New()
	if cfg.Geo.MappingFile != "" {
		if err := gazetteer.LoadFile(cfg.Geo.MappingFile); err != nil {
			zlog.Fatal("failed to load geo mapping file",
				zap.String("path", cfg.Geo.MappingFile),
				zap.Error(err))
		}
		zlog.Info("loaded geo mapping file", zap.String("path", cfg.Geo.MappingFile))
	}

	extractor := extract.New(gazetteer.Cities())
	machine := dialogue.New(extractor, zlog)

	source, cleanup, err := buildPropertySource(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize property provider",
			zap.String("provider", cfg.Search.Provider),
			zap.Error(err))
	}
	defer cleanup()
	zlog.Info("property provider ready", zap.String("provider", source.Name()))

	// Fair-value estimation is optional; without a key the pipeline runs on
	// market signals only.
	var estimate valuation.EstimateFunc
	if cfg.Estimator.Enabled {
		estimator := valuation.NewEstimator(&cfg.Estimator, zlog)
		estimate = estimator.EstimateFairValue
		zlog.Info("fair-value estimator ready",
			zap.String("api_base", cfg.Estimator.APIBase),
			zap.String("model", cfg.Estimator.Model))
	} else {
		zlog.Warn("ESTIMATOR_API_KEY not set, valuations will use market signals only")
	}

	aggregator := valuation.NewAggregator(
		time.Duration(cfg.Search.EstimateTimeoutSeconds)*time.Second, zlog)
	orchestrator := search.NewOrchestrator(source, aggregator, estimate, gazetteer, &cfg.Search, zlog)

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize session store",
			zap.String("store", cfg.Session.Store),
			zap.Error(err))
	}
	defer sessions.Close()
	zlog.Info("session store ready", zap.String("store", cfg.Session.Store))

	chatHandler := handler.NewChatHandler(machine, extractor, sessions, orchestrator, zlog)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.AllowedOrigins, ",")
	corsConfig.AllowMethods = strings.Split(cfg.Server.AllowedMethods, ",")
	corsConfig.AllowHeaders = strings.Split(cfg.Server.AllowedHeaders, ",")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"service":  "dealscout",
			"version":  Version,
			"provider": source.Name(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatHandler.Chat)
		apiV1.GET("/sessions/:id", chatHandler.GetSession)
		apiV1.DELETE("/sessions/:id", chatHandler.DeleteSession)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		zlog.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("shutdown did not finish cleanly", zap.Error(err))
	}
	zlog.Info("server stopped")
}

// buildPropertySource selects the configured property data backend.
func buildPropertySource(cfg *config.Config, zlog *zap.Logger) (provider.PropertySource, func(), error) {
	switch cfg.Search.Provider {
	case "attom":
		if !cfg.Attom.Enabled {
			return nil, nil, fmt.Errorf("provider attom requires ATTOM_API_KEY")
		}
		return provider.NewAttom(&cfg.Attom, zlog), func() {}, nil
	case "postgres":
		pg, err := provider.NewPostgres(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
			zlog,
		)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	case "mock":
		return provider.NewMock(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown property provider %q", cfg.Search.Provider)
}

// buildSessionStore selects the configured session backend.
func buildSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Store {
	case "redis":
		return session.NewRedisStore(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Session.TTLSeconds,
		)
	case "memory":
		return session.NewMemoryStore(cfg.Session.TTLSeconds), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
}
