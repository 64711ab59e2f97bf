package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rhyrak/localsearch/internal/config"
	"github.com/rhyrak/localsearch/internal/logger"
	"github.com/rhyrak/localsearch/internal/metrics"
	"github.com/rhyrak/localsearch/internal/store"
)

type server struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Collector
	runs    *registry
	// store is nil unless database.dsn is set.
	store *store.ScheduleRepository
}

func newServer(cfg *config.Config, log *zap.Logger) *server {
	return &server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewCollector(),
		runs:    newRegistry(cfg.Server.MaxRuns),
	}
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(s.log))
	r.Use(s.metrics.GinMiddleware())
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.POST("/schedule", s.handlePostSchedule)
	r.GET("/schedule", s.handleGetSchedule)
	r.GET("/schedule/:id", s.handleGetScheduleWithId)
	r.GET("/schedule/:id/export", s.handleExportSchedule)
	r.DELETE("/schedule/:id", s.handleCancelSchedule)
	return r
}

func main() {
	configFile := flag.String("config", "", "path to a yaml, json or env config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	s := newServer(cfg, log)
	if cfg.Database.DSN != "" {
		db, err := store.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if cfg.Database.Migrate {
			if err := store.Migrate(db.DB, log); err != nil {
				log.Fatal("failed to migrate database", zap.Error(err))
			}
		}
		s.store = store.NewScheduleRepository(db)
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: s.router(),
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	s.cancelAll()
}
