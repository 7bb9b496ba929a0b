package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/calendar"
	"github.com/hackgods/appointment-calendar/internal/config"
	"github.com/hackgods/appointment-calendar/internal/db"
	"github.com/hackgods/appointment-calendar/internal/form"
	"github.com/hackgods/appointment-calendar/internal/logger"
	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
)

var durations = []int{10, 15, 20, 25, 30, 45, 60}

func main() {
	count := flag.Int("forms", 20, "number of forms to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4}, lg)
	if err != nil {
		lg.Fatal("postgres setup", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		lg.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	reconciler := calendar.NewReconciler(calendar.NewPgRepository(pool), cfg.Now, lg)
	calendarSvc := calendar.NewService(reconciler, redisclient.NewRedisFormLocker(rdb, cfg.LockTTL, lg), lg)
	formSvc := form.NewService(form.NewPgRepository(pool), calendarSvc, cfg.WeeksToPreCreate, lg)

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	lg.Info("seeding forms", zap.Int("count", *count))
	for i := 0; i < *count; i++ {
		if _, err := formSvc.Create(ctx, fakeFormConfig(faker)); err != nil {
			lg.Fatal("create form", zap.Int("index", i), zap.Error(err))
		}
	}

	lg.Info("seed complete")
}

// fakeFormConfig returns a valid configuration: opening between 07h00 and
// 10h45, closing 2 to 10 hours later.
func fakeFormConfig(faker *gofakeit.Faker) calendar.FormConfig {
	opening := calendar.TimeOfDay{Hour: faker.Number(7, 10), Minute: faker.RandomInt([]int{0, 15, 30, 45})}
	closingMinutes := opening.Minutes() + faker.Number(2, 10)*60
	closing := calendar.TimeOfDay{Hour: closingMinutes / 60, Minute: closingMinutes % 60}

	cfg := calendar.FormConfig{
		Title:                fmt.Sprintf("%s %s", faker.Company(), faker.RandomString([]string{"consultation", "workshop", "blood drive", "vaccination"})),
		TimeStart:            opening.String(),
		TimeEnd:              closing.String(),
		DurationAppointments: faker.RandomInt(durations),
		PeoplePerAppointment: faker.Number(1, 5),
		WeeksToDisplay:       faker.Number(1, 4),
		OpenMonday:           faker.Bool(),
		OpenTuesday:          faker.Bool(),
		OpenWednesday:        faker.Bool(),
		OpenThursday:         faker.Bool(),
		OpenFriday:           faker.Bool(),
		OpenSaturday:         faker.Number(0, 4) == 0,
		OpenSunday:           false,
		Active:               true,
	}
	return cfg
}
