package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/okian/sportsday/internal/adapters/repository/sqlite"
	app "github.com/okian/sportsday/internal/app"
	"github.com/okian/sportsday/internal/config"
	"github.com/okian/sportsday/internal/domain/plan"
	"github.com/okian/sportsday/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString("configure: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run parses args, expands the schedule and either prints the plan or writes
// it to the database.
func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		schedulePath = fs.String("schedule", cfg.SchedulePath, "Schedule document to expand")
		dbPath       = fs.String("db", cfg.DBPath, "SQLite database to write")
		apply        = fs.Bool("apply", false, "Replace the stored schedule instead of printing the plan")
		asJSON       = fs.Bool("json", false, "Print the plan as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, sched, err := app.Preview(*schedulePath)
	if err != nil {
		return err
	}

	if !*apply {
		if *asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		printPlan(out, sched.Version, p)
		return nil
	}

	log := logger.Get().Named("configure")
	store, err := sqlite.New(*dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close database", logger.Error(err))
		}
	}()

	if err := plan.Apply(ctx, store, p); err != nil {
		return err
	}
	log.Info(ctx, "schedule applied",
		logger.String("db", *dbPath),
		logger.String("version", sched.Version),
		logger.Int("years", len(p.Years)),
		logger.Int("events", p.EventCount()),
	)
	fmt.Fprintf(out, "applied %d years and %d events to %s\n", len(p.Years), p.EventCount(), *dbPath)
	return nil
}

func printPlan(out io.Writer, version string, p plan.Plan) {
	fmt.Fprintf(out, "schedule %s: %d years, %d events\n", version, len(p.Years), p.EventCount())
	for _, y := range p.Years {
		fmt.Fprintf(out, "%s (%s)\n", y.ID, y.Name)
		for _, e := range y.Events {
			fmt.Fprintf(out, "  %-32s %-20s %s\n", e.ID, e.Name, e.Scores)
		}
	}
}
