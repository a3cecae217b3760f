// Command server wires together the persistence layer, provider
// registry, import engine, task queue, scheduler, and compatibility API
// into one running process, mirroring the shape (if not the stack) of
// the teacher's cmd/main.go: load config, open the DB, build the
// service graph, mount routes, serve, and shut down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/api"
	"github.com/danmaku-hub/aggregator/internal/cache"
	"github.com/danmaku-hub/aggregator/internal/importjob"
	"github.com/danmaku-hub/aggregator/internal/matcher"
	"github.com/danmaku-hub/aggregator/internal/metadata/tmdb"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/internal/provider/bilibili"
	"github.com/danmaku-hub/aggregator/internal/provider/gamer"
	"github.com/danmaku-hub/aggregator/internal/provider/iqiyi"
	"github.com/danmaku-hub/aggregator/internal/provider/mgtv"
	"github.com/danmaku-hub/aggregator/internal/provider/tencent"
	"github.com/danmaku-hub/aggregator/internal/provider/youku"
	"github.com/danmaku-hub/aggregator/internal/scheduler"
	"github.com/danmaku-hub/aggregator/internal/scheduler/tmdbautomap"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/internal/taskqueue"
	"github.com/danmaku-hub/aggregator/pkg/config"
	"github.com/danmaku-hub/aggregator/pkg/configkv"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env, cfg.LogLevel)

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	kv := configkv.New(db)

	registry := provider.NewRegistry(db, map[string]provider.Factory{
		"bilibili": func() provider.Adapter { return bilibili.New() },
		"tencent":  func() provider.Adapter { return tencent.New() },
		"iqiyi":    func() provider.Adapter { return iqiyi.New() },
		"youku":    func() provider.Adapter { return youku.New() },
		"mgtv":     func() provider.Adapter { return mgtv.New() },
		"gamer":    func() provider.Adapter { return gamer.New(kv) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := db.SweepExpiredCacheEntries(); err != nil {
					logger.Warnf("sweep expired cache entries: %v", err)
				}
			}
		}
	}()

	if err := registry.Sync(ctx); err != nil {
		log.Fatalf("sync provider registry: %v", err)
	}

	searchTTL := kv.CacheTTL("search", cfg.CacheTTL["search"])
	episodesTTL := kv.CacheTTL("episodes", cfg.CacheTTL["episodes"])
	registry.SetCache(cache.New(cfg.RedisAddr, cfg.RedisDB, pkgLogger{}), searchTTL, episodesTTL)

	imports := importjob.New(registry, db)
	tasks := taskqueue.New(db, cfg.MaxConcurrency*16)
	go tasks.Run(ctx)

	dispatcher := matcher.New(registry, db, imports, tasks)

	sched, err := scheduler.New(db, cfg.SchedulerTimezone)
	if err != nil {
		log.Fatalf("build scheduler: %v", err)
	}

	tmdbClient := tmdb.New(kv.TMDBAPIKey(cfg.TMDBAPIKey))
	tmdbJob := tmdbautomap.New(db, tmdbClient)
	if err := sched.Register("tmdb_auto_map", "tmdb_auto_map", "0 0 4 * * *", true, tmdbJob.Run); err != nil {
		log.Fatalf("register tmdb auto-map job: %v", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	svc := api.NewService(db, dispatcher, tasks)

	router := gin.Default()
	api.SetupRoutes(router, svc)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	tasks.Shutdown()
	logger.Info("server exited")
}

// pkgLogger adapts the package-level pkg/logger functions to the small
// logging interface internal/cache.New expects.
type pkgLogger struct{}

func (pkgLogger) Warnf(format string, args ...interface{}) { logger.Warnf(format, args...) }
func (pkgLogger) Infof(format string, args ...interface{}) { logger.Infof(format, args...) }
