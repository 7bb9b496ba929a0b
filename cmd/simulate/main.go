package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-calendar/internal/calendar"
	"github.com/hackgods/appointment-calendar/internal/config"
	"github.com/hackgods/appointment-calendar/internal/db"
	"github.com/hackgods/appointment-calendar/internal/form"
	"github.com/hackgods/appointment-calendar/internal/logger"
	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
)

type SimConfig struct {
	Duration   time.Duration
	Workers    int
	ResetRatio float64
	WeekRatio  float64
	FormLimit  int
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Contended int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&om.Success, 1)
	case errors.Is(err, calendar.ErrGenerationInProgress):
		atomic.AddInt64(&om.Contended, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Ensure OperationMetrics
	Reset  OperationMetrics
	Week   OperationMetrics
}

type Simulator struct {
	config    SimConfig
	schedules []calendar.FormSchedule
	calendar  *calendar.Service
	metrics   Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := loadSimConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d reset=%.2f week=%.2f",
		cfg.Duration, cfg.Workers, cfg.ResetRatio, cfg.WeekRatio)

	// Generation logs are noisy under load
	lg, err := logger.New("warn", "console")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// one connection per worker plus headroom for the integrity check
	pgPool, err := db.Open(ctx, baseCfg.PostgresDSN, db.PoolOptions{
		MaxConns: int32(cfg.Workers) + 2,
		MinConns: int32(cfg.Workers),
	}, lg)
	if err != nil {
		log.Fatalf("postgres setup: %v", err)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     baseCfg.RedisAddr,
		Username: baseCfg.RedisUsername,
		Password: baseCfg.RedisPassword,
		PoolSize: cfg.Workers,
	})
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	schedules, err := loadSchedules(ctx, form.NewPgRepository(pgPool), baseCfg.WeeksToPreCreate, cfg.FormLimit)
	if err != nil {
		log.Fatalf("load forms: %v", err)
	}
	log.Printf("loaded %d forms", len(schedules))

	reconciler := calendar.NewReconciler(calendar.NewPgRepository(pgPool), baseCfg.Now, lg)
	sim := &Simulator{
		config:    cfg,
		schedules: schedules,
		calendar:  calendar.NewService(reconciler, redisclient.NewRedisFormLocker(rdb, baseCfg.LockTTL, lg), lg),
	}

	sim.Run()
	sim.PrintReport()

	if err := checkIntegrity(context.Background(), pgPool); err != nil {
		log.Fatalf("integrity check failed: %v", err)
	}
	log.Println("integrity check passed: one day per form and date, slot counts consistent")
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		Duration:   getDuration("SIM_DURATION", 30*time.Second),
		Workers:    getInt("SIM_WORKERS", 10),
		ResetRatio: getFloat("SIM_RESET_RATIO", 0.1),
		WeekRatio:  getFloat("SIM_WEEK_RATIO", 0.3),
		FormLimit:  getInt("SIM_FORM_LIMIT", 5),
	}

	if total := cfg.ResetRatio + cfg.WeekRatio; total > 1 {
		cfg.ResetRatio /= total
		cfg.WeekRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.FormLimit <= 0 {
		return fmt.Errorf("SIM_FORM_LIMIT must be > 0")
	}
	return nil
}

func loadSchedules(ctx context.Context, forms form.Repository, weeksToPreCreate, limit int) ([]calendar.FormSchedule, error) {
	active, err := forms.ListActiveForms(ctx)
	if err != nil {
		return nil, err
	}

	var schedules []calendar.FormSchedule
	for _, f := range active {
		if len(schedules) == limit {
			break
		}
		s, err := calendar.ParseSchedule(f.FormConfig, weeksToPreCreate)
		if err != nil {
			log.Printf("skipping form %d: %v", f.ID, err)
			continue
		}
		schedules = append(schedules, s)
	}

	if len(schedules) == 0 {
		return nil, fmt.Errorf("no usable active forms, run cmd/seed first")
	}
	return schedules, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		schedule := s.schedules[rng.Intn(len(s.schedules))]
		start := time.Now()

		r := rng.Float64()
		switch {
		case r < s.config.ResetRatio:
			err := s.calendar.Reset(ctx, schedule)
			s.metrics.Reset.Record(time.Since(start), ignoreCancel(ctx, err))
		case r < s.config.ResetRatio+s.config.WeekRatio:
			_, err := s.calendar.Week(ctx, schedule, rng.Intn(schedule.WindowWeeks()+1))
			s.metrics.Week.Record(time.Since(start), ignoreCancel(ctx, err))
		default:
			err := s.calendar.EnsureUpcoming(ctx, schedule)
			s.metrics.Ensure.Record(time.Since(start), ignoreCancel(ctx, err))
		}
	}
}

// ignoreCancel hides errors caused by the simulation deadline itself.
func ignoreCancel(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// checkIntegrity verifies the invariants concurrency could break.
func checkIntegrity(ctx context.Context, pool *pgxpool.Pool) error {
	var duplicates int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT form_id, day_date FROM calendar_days
			GROUP BY form_id, day_date
			HAVING count(*) > 1
		) d
	`).Scan(&duplicates)
	if err != nil {
		return err
	}
	if duplicates > 0 {
		return fmt.Errorf("%d duplicated (form, date) days", duplicates)
	}

	var mismatched int
	err = pool.QueryRow(ctx, `
		SELECT count(*) FROM calendar_days d
		WHERE (
			SELECT count(*) FROM calendar_slots s WHERE s.day_id = d.id
		) <> CASE
			WHEN d.is_open AND d.appointment_duration > 0 THEN
				GREATEST(0, ((d.closing_hour * 60 + d.closing_minute) - (d.opening_hour * 60 + d.opening_minute)) / d.appointment_duration)
			ELSE 0
		END
	`).Scan(&mismatched)
	if err != nil {
		return err
	}
	if mismatched > 0 {
		return fmt.Errorf("%d days with an unexpected number of slots", mismatched)
	}

	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n=== Simulation Report ===")
	printOp("EnsureUpcoming", &s.metrics.Ensure)
	printOp("Reset", &s.metrics.Reset)
	printOp("Week", &s.metrics.Week)
}

func printOp(name string, om *OperationMetrics) {
	avg, min, max, p50, p95 := om.Stats()
	fmt.Printf("\n%s:\n", name)
	fmt.Printf("  total=%d success=%d contended=%d error=%d\n",
		atomic.LoadInt64(&om.Total), atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Contended), atomic.LoadInt64(&om.Error))
	fmt.Printf("  latency avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
