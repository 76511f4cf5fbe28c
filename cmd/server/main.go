package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/cache"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/database"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/handler"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/index"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/maintenance"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/queue"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/repository"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/router"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/search"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "search-index",
	})

	exec := store.NewExecutor(
		cfg.Store.RetryAttempts, cfg.Store.RetryBase,
		cfg.Store.BreakAfter, cfg.Store.BreakCooldown, log)
	mgr := store.NewManager(cfg.Store, exec, log)
	defer mgr.Close()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("source database unavailable", "error", err)
	}
	defer db.Close()
	source := repository.NewMySQLSource(db)

	stats := health.NewStats()
	ml := cache.New(cfg.Cache, mgr, log)
	defer ml.Close()

	proc := availability.NewProcessor(mgr, cfg.Cache, source, stats, log)
	indexer := index.NewIndexer(mgr, source, proc, stats, log)
	engine := search.NewEngine(mgr, ml, proc, stats, log)

	outcomes := queue.NewPublisher(cfg.AMQPURL, cfg.OutcomeQueue, log)
	defer outcomes.Close()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventQueue, indexer, log)
	go func() {
		if err := consumer.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event consumer stopped", "error", err)
		}
	}()

	optimizer := maintenance.NewOptimizer(mgr, log)
	scheduler := maintenance.NewScheduler(log)
	if cfg.Maintain.Enabled {
		if err := scheduler.Start(cfg.Maintain.Schedule, optimizer); err != nil {
			log.Fatal("invalid maintenance schedule", "schedule", cfg.Maintain.Schedule, "error", err)
		}
		defer scheduler.Stop()
	}

	e := router.New(cfg, mgr, router.Handlers{
		Search:       handler.NewSearchHandler(engine, log),
		Availability: handler.NewAvailabilityHandler(proc, log),
		Admin:        handler.NewAdminHandler(indexer, outcomes, ml, optimizer, log),
		Health:       handler.NewHealthHandler(mgr, stats),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
}
