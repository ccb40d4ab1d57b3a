// Command zonemap discovers SNMP zone topology and MAC forwarding tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/zonemap/internal/config"
	"github.com/HerbHall/zonemap/internal/event"
	"github.com/HerbHall/zonemap/internal/recon"
	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/internal/store"
	"github.com/HerbHall/zonemap/internal/version"
	"github.com/HerbHall/zonemap/pkg/models"
)

// newTransport builds the SNMP transport used by discover and walk.
var newTransport = func(logger *zap.Logger) snmp.Transport {
	return snmp.NewGoSNMPTransport(logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "zonemap: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "discover"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "discover":
		return runDiscover(ctx, args, stdout, stderr)
	case "walk":
		return runWalk(ctx, args, stdout, stderr)
	case "history":
		return runHistory(ctx, args, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.Info())
		return nil
	default:
		return fmt.Errorf("unknown command %q (want discover, walk, history or version)", cmd)
	}
}

func runDiscover(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	zones := fs.String("zone", "", "comma-separated zones to discover (default all)")
	out := fs.String("out", "", "write the report to this file instead of stdout")
	dbPath := fs.String("db", "", "snapshot database path (overrides database.path)")
	scheduled := fs.Bool("schedule", false, "keep running on schedule.interval")
	runs := fs.Int("runs", 0, "with -schedule, stop after this many runs (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, v, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("zonemap starting", zap.String("version", version.Short()))
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	var db *store.SQLiteStore
	if cfg.Database.Path != "" {
		db, err = openStore(ctx, cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database initialized", zap.String("component", "database"), zap.String("path", cfg.Database.Path))
	}

	bus := event.NewBus(logger.Named("event"))
	bus.SubscribeAll(progressLogger(logger.Named("progress")))

	m, err := recon.New(ctx, cfg.Config, recon.Dependencies{
		Logger:          logger,
		Bus:             bus,
		Store:           db,
		Transport:       newTransport(logger.Named("snmp")),
		MetricsTextfile: cfg.Metrics.Textfile,
	})
	if err != nil {
		return err
	}

	report := func(topos []*models.ZoneTopology) error {
		return writeReport(*out, stdout, topos)
	}

	if !*scheduled {
		topos, err := m.RunOnce(ctx, splitList(*zones)...)
		if err != nil {
			return err
		}
		return report(topos)
	}

	if *zones != "" {
		return fmt.Errorf("-zone cannot be combined with -schedule")
	}
	if v.ConfigFileUsed() != "" {
		config.Watch(v, func(c *config.Config) {
			m.UpdateZones(c.Zones)
			logger.Info("zones reloaded", zap.String("component", "config"), zap.Int("zones", len(c.Zones)))
		}, func(err error) {
			logger.Warn("config change ignored", zap.String("component", "config"), zap.Error(err))
		})
	}

	completed := 0
	return m.Start(ctx, func(topos []*models.ZoneTopology) {
		// A tick can race the stop signal; drop runs past the limit.
		if *runs > 0 && completed >= *runs {
			return
		}
		if err := report(topos); err != nil {
			logger.Error("failed to write report", zap.Error(err))
		}
		completed++
		if *runs > 0 && completed >= *runs {
			m.Stop()
		}
	})
}

// progressLogger logs each discovery event at info level, and failures at
// warn.
func progressLogger(logger *zap.Logger) event.Handler {
	return func(_ context.Context, e event.Event) {
		fields := []zap.Field{zap.String("topic", e.Topic), zap.Any("payload", e.Payload)}
		if e.Topic == recon.TopicDeviceFailed {
			logger.Warn("discovery progress", fields...)
			return
		}
		logger.Info("discovery progress", fields...)
	}
}

func writeReport(path string, stdout io.Writer, topos []*models.ZoneTopology) error {
	if path == "" {
		return recon.WriteReport(stdout, topos)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := recon.WriteReport(f, topos); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runWalk(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("walk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", "", "agent address, host or host:port")
	community := fs.String("community", "public", "SNMP v2c community")
	vlan := fs.Int("vlan", 0, "walk with the VLAN-scoped community for this VLAN")
	strategy := fs.String("strategy", "community_index", "VLAN credential strategy (community_index or global)")
	oid := fs.String("oid", "", "table OID to walk")
	arity := fs.Int("arity", 1, "number of index sub-identifiers")
	format := fs.String("format", "preview", "value format: int, hex, bin, str, preview, any, mac, ipv4")
	withLen := fs.Int("len", 0, "print only the length-prefixed trailing N sub-identifiers of the index")
	timeout := fs.Duration("timeout", 5*time.Second, "per-request timeout")
	retries := fs.Int("retries", 1, "per-request retries")
	verbose := fs.Bool("v", false, "log each round trip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *host == "" || *oid == "" {
		return fmt.Errorf("walk requires -host and -oid")
	}
	if *arity < 1 {
		return fmt.Errorf("-arity must be at least 1")
	}
	f, err := snmp.ParseFormat(*format)
	if err != nil {
		return err
	}
	dev, err := snmp.NewDevice(*host, *community, *timeout, *retries)
	if err != nil {
		return err
	}

	cred := dev.Community
	if *vlan > 0 {
		s, err := snmp.ParseVLANStrategy(*strategy)
		if err != nil {
			return err
		}
		cred = s.Community(dev.Community, *vlan)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := config.NewLogger(config.LoggingConfig{Level: level, Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	walker := snmp.NewWalker(newTransport(logger.Named("snmp")), nil, logger.Named("snmp"))
	rows, err := walker.Walk(ctx, dev, cred, snmp.Table{
		Name:   *oid,
		OID:    strings.TrimPrefix(*oid, "."),
		Arity:  *arity,
		Format: f,
	})
	if err != nil {
		return err
	}

	for _, r := range rows {
		index := r.Index
		if *withLen > 0 {
			tail, ok := snmp.LengthPrefixed(index, *withLen)
			if !ok {
				continue
			}
			index = tail
		}
		fmt.Fprintf(stdout, "%s = %s\n", snmp.JoinIndex(index), r.Value)
	}
	return nil
}

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	dbPath := fs.String("db", "", "snapshot database path (overrides database.path)")
	zone := fs.String("zone", "", "only list this zone")
	limit := fs.Int("limit", 20, "maximum snapshots to list")
	id := fs.String("id", "", "print the stored report for this snapshot")
	latest := fs.Bool("latest", false, "print the newest stored report for -zone")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("history requires database.path or -db")
	}

	db, err := openStore(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := recon.New(ctx, cfg.Config, recon.Dependencies{Store: db})
	if err != nil {
		return err
	}

	if *id != "" {
		snap, err := m.Snapshot(ctx, *id)
		if err != nil {
			return err
		}
		return recon.WriteReport(stdout, []*models.ZoneTopology{snap.Topology})
	}
	if *latest {
		if *zone == "" {
			return fmt.Errorf("-latest requires -zone")
		}
		snap, err := m.Latest(ctx, *zone)
		if err != nil {
			return err
		}
		return recon.WriteReport(stdout, []*models.ZoneTopology{snap.Topology})
	}

	snaps, err := m.History(ctx, *zone, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tZONE\tSTARTED\tDURATION\tDEVICES\tPARTIAL\tSUBNETS")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.Zone, s.StartedAt.Format(time.RFC3339), s.Duration.Round(time.Millisecond),
			s.Devices, s.Partial, s.Subnets)
	}
	return tw.Flush()
}

// openStore opens the snapshot database and refuses one last written by a
// newer zonemap.
func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	db, err := store.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
