package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/api"
	"github.com/hackgods/appointment-calendar/internal/calendar"
	"github.com/hackgods/appointment-calendar/internal/config"
	"github.com/hackgods/appointment-calendar/internal/db"
	"github.com/hackgods/appointment-calendar/internal/form"
	"github.com/hackgods/appointment-calendar/internal/logger"
	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
	"github.com/hackgods/appointment-calendar/internal/worker"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("calendar-worker starting up",
		zap.String("env", cfg.Env),
		zap.String("cron", cfg.CalendarCron),
		zap.String("timezone", cfg.Location.String()),
		zap.Int("weeks_to_precreate", cfg.WeeksToPreCreate),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 30*time.Second)
	pgPool, err := db.Open(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns}, lg)
	cancelPg()
	if err != nil {
		lg.Fatal("postgres setup error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		lg.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			lg.Warn("error closing redis", zap.Error(err))
		}
	}()
	lg.Info("connected to Redis")

	locker := redisclient.NewRedisFormLocker(rdb, cfg.LockTTL, lg)
	reconciler := calendar.NewReconciler(calendar.NewPgRepository(pgPool), cfg.Now, lg)
	calendarSvc := calendar.NewService(reconciler, locker, lg)

	job := worker.NewCalendarJob(form.NewPgRepository(pgPool), calendarSvc, cfg.WeeksToPreCreate, 10*time.Minute, lg)
	scheduler, err := worker.NewScheduler(cfg.CalendarCron, cfg.Location, job, lg)
	if err != nil {
		lg.Fatal("scheduler init error", zap.Error(err))
	}
	scheduler.Start()

	router := api.NewRouter(api.RouterConfig{
		Postgres: pgPool,
		Redis:    api.PingFunc(redisclient.PingFunc(rdb)),
		Job:      job,
		Logger:   lg,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("health server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("health server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	lg.Info("shutdown signal received, stopping calendar worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("health server shutdown error", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)

	lg.Info("calendar worker stopped")
}
