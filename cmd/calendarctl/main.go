package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/calendar"
	"github.com/hackgods/appointment-calendar/internal/config"
	"github.com/hackgods/appointment-calendar/internal/db"
	"github.com/hackgods/appointment-calendar/internal/form"
	"github.com/hackgods/appointment-calendar/internal/logger"
	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
	"github.com/hackgods/appointment-calendar/internal/worker"
)

const usage = `usage: calendarctl <command> [flags]

commands:
  ensure     generate the missing upcoming weeks of a form
  ensure-all generate the missing upcoming weeks of every active form
  reset      regenerate the upcoming weeks of a form from its configuration
  week       show one week, generating it if needed
  view       show one week as users see it
  times      list the appointment start times of a form
  weekday    list every stored slot of a form on one weekday (1=Monday)
`

type options struct {
	formID  int64
	week    int
	weekday int
}

func parseOptions(cmd string, args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.Int64Var(&opts.formID, "form", 0, "form id")
	fs.IntVar(&opts.week, "week", 0, "week offset from the current week")
	fs.IntVar(&opts.weekday, "day", 0, "weekday, 1=Monday .. 7=Sunday")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if cmd != "ensure-all" && opts.formID <= 0 {
		return options{}, errors.New("-form is required")
	}
	return opts, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	opts, err := parseOptions(cmd, os.Args[2:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgPool, err := db.Open(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2}, lg)
	if err != nil {
		lg.Fatal("postgres setup error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: 2,
	})
	if err != nil {
		lg.Fatal("redis connection error", zap.Error(err))
	}
	defer rdb.Close()

	reconciler := calendar.NewReconciler(calendar.NewPgRepository(pgPool), cfg.Now, lg)
	calendarSvc := calendar.NewService(reconciler, redisclient.NewRedisFormLocker(rdb, cfg.LockTTL, lg), lg)
	forms := form.NewPgRepository(pgPool)
	formSvc := form.NewService(forms, calendarSvc, cfg.WeeksToPreCreate, lg)

	app := &cli{
		out:      os.Stdout,
		forms:    forms,
		formSvc:  formSvc,
		calendar: calendarSvc,
		job:      worker.NewCalendarJob(forms, calendarSvc, cfg.WeeksToPreCreate, 0, lg),
	}

	if err := app.run(ctx, cmd, opts); err != nil {
		lg.Error("command failed", zap.String("command", cmd), zap.Error(err))
		stop()
		os.Exit(1)
	}
}

type cli struct {
	out      io.Writer
	forms    form.Repository
	formSvc  *form.Service
	calendar *calendar.Service
	job      *worker.CalendarJob
}

func (c *cli) run(ctx context.Context, cmd string, opts options) error {
	if cmd == "ensure-all" {
		stats := c.job.Run(ctx)
		if stats.Err != nil {
			return stats.Err
		}
		fmt.Fprintf(c.out, "forms=%d ensured=%d skipped=%d failed=%d in %s\n",
			stats.Forms, stats.Ensured, stats.Skipped, stats.Failed, stats.Duration.Round(time.Millisecond))
		return nil
	}

	f, err := c.forms.GetForm(ctx, opts.formID)
	if err != nil {
		return err
	}
	schedule, err := c.formSvc.Schedule(*f)
	if err != nil {
		return err
	}

	switch cmd {
	case "ensure":
		return c.calendar.EnsureUpcoming(ctx, schedule)
	case "reset":
		return c.calendar.Reset(ctx, schedule)
	case "week":
		days, err := c.calendar.Week(ctx, schedule, opts.week)
		if err != nil {
			return err
		}
		return renderWeek(c.out, days)
	case "view":
		days, err := c.formSvc.Calendar(ctx, opts.formID, opts.week)
		if err != nil {
			return err
		}
		return renderWeek(c.out, days)
	case "times":
		times := calendar.AppointmentTimes(schedule.DurationMinutes, schedule.Opening, schedule.Closing)
		_, err := fmt.Fprintln(c.out, strings.Join(times, " "))
		return err
	case "weekday":
		slots, err := c.calendar.WeekdaySlots(ctx, opts.formID, opts.weekday)
		if err != nil {
			return err
		}
		return renderSlots(c.out, slots)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func renderWeek(w io.Writer, days []calendar.Day) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAY\tOPEN\tHOURS\tSLOTS\tFREE")
	for _, d := range days {
		hours := "-"
		if d.Open {
			hours = d.Opening.String() + "-" + d.Closing.String()
		}
		free := 0
		for _, s := range d.Slots {
			free += s.FreePlaces
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\t%d\n",
			d.Date.Format("2006-01-02"), d.Date.Weekday().String()[:3], d.Open, hours, len(d.Slots), free)
	}
	return tw.Flush()
}

func renderSlots(w io.Writer, slots []calendar.Slot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY_ID\tSTART\tEND\tPLACES\tFREE\tENABLED")
	for _, s := range slots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%t\n", s.DayID, s.Start, s.End, s.Capacity, s.FreePlaces, s.Enabled)
	}
	return tw.Flush()
}
