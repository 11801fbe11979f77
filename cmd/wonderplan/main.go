package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/udisondev/wonderhelper/internal/config"
	"github.com/udisondev/wonderhelper/internal/db"
	"github.com/udisondev/wonderhelper/internal/model"
	"github.com/udisondev/wonderhelper/internal/wonder"
)

const ConfigPath = "config/wonderplan.yaml"

const usage = `usage: wonderplan <command> [flags]

commands:
  modes       list distribution modes
  plan        compute an allocation (-total for offline, -town for database)
  set-mode    store a town's mode and re-plan (-town, -mode)
`

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfgPath := ConfigPath
	if p := os.Getenv("WONDERPLAN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadPlanner(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))

	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "modes":
		for _, m := range model.Modes {
			fmt.Fprintf(out, "%d\t%s\n", int(m), m)
		}
		return nil
	case "plan":
		return runPlan(ctx, cfg, args[1:], out)
	case "set-mode":
		return runSetMode(ctx, cfg, args[1:], out)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

type planFlags struct {
	town              int
	total             int64
	mode              string
	wood, stone, iron int64
}

func parsePlanFlags(args []string) (planFlags, error) {
	var f planFlags
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.IntVar(&f.town, "town", 0, "town ID (database mode)")
	fs.Int64Var(&f.total, "total", 0, "trade capacity (offline mode)")
	fs.StringVar(&f.mode, "mode", "", "distribution mode name or number")
	fs.Int64Var(&f.wood, "wood", -1, "wood in stock (offline, -1 = not given)")
	fs.Int64Var(&f.stone, "stone", -1, "stone in stock (offline, -1 = not given)")
	fs.Int64Var(&f.iron, "iron", -1, "iron in stock (offline, -1 = not given)")
	if err := fs.Parse(args); err != nil {
		return f, fmt.Errorf("parsing flags: %w", err)
	}
	return f, nil
}

// stock returns nil unless at least one stock flag was given.
func (f planFlags) stock() *model.Stock {
	if f.wood < 0 && f.stone < 0 && f.iron < 0 {
		return nil
	}
	return &model.Stock{
		Wood:  max(f.wood, 0),
		Stone: max(f.stone, 0),
		Iron:  max(f.iron, 0),
	}
}

func (f planFlags) resolveMode(fallback model.Mode) (model.Mode, error) {
	if f.mode == "" {
		return fallback, nil
	}
	m, err := model.LookupMode(f.mode)
	if err != nil {
		return fallback, fmt.Errorf("-mode: %w", err)
	}
	return m, nil
}

func runPlan(ctx context.Context, cfg config.Planner, args []string, out io.Writer) error {
	f, err := parsePlanFlags(args)
	if err != nil {
		return err
	}
	mode, err := f.resolveMode(cfg.Mode())
	if err != nil {
		return err
	}

	if f.town == 0 {
		if f.total <= 0 {
			return errors.New("plan needs -total > 0 or -town")
		}
		town := wonder.StaticTown{Units: f.total, Known: true, Inventory: f.stock()}
		p := wonder.NewPlanner(cfg, town, town, wonder.NewMemoryModeStore(mode), wonder.NewWriterSink(out))
		_, err := p.Update(ctx, 0)
		return err
	}

	database, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	towns := db.NewTownRepository(database.Pool())
	modes := db.NewModeRepository(database.Pool(), cfg.Mode())
	p := wonder.NewPlanner(cfg, towns, towns, modes, wonder.NewWriterSink(out))

	if f.mode == "" {
		_, err = p.Update(ctx, int32(f.town))
		return err
	}

	// -mode overrides the stored selection for this run only.
	a, _, err := p.Plan(ctx, int32(f.town), mode)
	if err != nil {
		return err
	}
	return wonder.NewWriterSink(out).Apply(ctx, int32(f.town), a)
}

func runSetMode(ctx context.Context, cfg config.Planner, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set-mode", flag.ContinueOnError)
	town := fs.Int("town", 0, "town ID")
	modeName := fs.String("mode", "", "distribution mode name or number")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if *town == 0 || *modeName == "" {
		return errors.New("set-mode needs -town and -mode")
	}
	mode, err := model.LookupMode(*modeName)
	if err != nil {
		return fmt.Errorf("-mode: %w", err)
	}

	database, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	towns := db.NewTownRepository(database.Pool())
	modes := db.NewModeRepository(database.Pool(), cfg.Mode())
	p := wonder.NewPlanner(cfg, towns, towns, modes, wonder.NewWriterSink(out))

	_, err = p.SetMode(ctx, int32(*town), mode)
	if errors.Is(err, wonder.ErrNoCapacity) {
		// The mode is stored; there is just nothing to send right now.
		slog.Warn("mode saved, no trade capacity to plan", "town", *town)
		return nil
	}
	return err
}

func connect(ctx context.Context, cfg config.Planner) (*db.DB, error) {
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Debug("database ready", "host", cfg.Database.Host, "db", cfg.Database.DBName)
	return database, nil
}
