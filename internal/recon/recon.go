// Package recon discovers zone topology over SNMP: it reads the gateway and
// access-switch tables, correlates them by interface, and stores the result.
package recon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/zonemap/internal/event"
	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/internal/store"
	"github.com/HerbHall/zonemap/pkg/models"
)

// Dependencies are the collaborators a Module is built from. Only Logger
// is expected in production; nil Transport and Sweeper get the gosnmp and
// ICMP implementations, and a nil Store disables history.
type Dependencies struct {
	Logger          *zap.Logger
	Bus             event.Publisher
	Store           *store.SQLiteStore
	Transport       snmp.Transport
	Sweeper         Sweeper
	MetricsTextfile string
}

// Module is the discovery composition root used by the CLI.
type Module struct {
	logger       *zap.Logger
	store        *ReconStore
	orchestrator *Orchestrator
	textfile     string

	mu        sync.RWMutex
	cfg       Config
	scheduler *Scheduler
}

// New wires a Module from cfg and deps and applies the snapshot schema
// when a store is given.
func New(ctx context.Context, cfg Config, deps Dependencies) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	vlans, err := snmp.ParseVLANStrategy(cfg.SNMP.VLANStrategy)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Module{logger: logger, cfg: cfg, textfile: deps.MetricsTextfile}

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "recon", migrations()); err != nil {
			return nil, err
		}
		m.store = NewReconStore(deps.Store.DB())
	}

	transport := deps.Transport
	if transport == nil {
		transport = snmp.NewGoSNMPTransport(logger.Named("snmp"))
	}
	sweeper := deps.Sweeper
	if sweeper == nil {
		sweeper = NewICMPSweeper(cfg.Sweep, logger.Named("sweep"))
	}

	walker := snmp.NewWalker(transport, WalkMetrics{}, logger.Named("snmp"))
	collector := NewSNMPCollector(walker, vlans, cfg.Discovery, logger.Named("recon"))
	m.orchestrator = NewOrchestrator(collector, sweeper, deps.Bus, cfg, logger.Named("recon"))

	return m, nil
}

// Zones returns the configured zones.
func (m *Module) Zones() []Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Zone(nil), m.cfg.Zones...)
}

// UpdateZones replaces the zone list used by later runs. Device settings
// are fixed at New.
func (m *Module) UpdateZones(zones []Zone) {
	m.mu.Lock()
	m.cfg.Zones = zones
	m.mu.Unlock()
	m.logger.Info("zone list updated", zap.Int("zones", len(zones)))
}

// selectZones resolves names to zones. No names selects every zone.
func (m *Module) selectZones(names []string) ([]Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(names) == 0 {
		return append([]Zone(nil), m.cfg.Zones...), nil
	}
	zones := make([]Zone, 0, len(names))
	for _, name := range names {
		z, ok := m.cfg.Zone(name)
		if !ok {
			return nil, fmt.Errorf("unknown zone %q", name)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// RunOnce discovers the named zones one after another, or every zone when
// names is empty. Snapshots are stored and the metrics textfile rewritten
// when configured; failures there are logged, not returned.
func (m *Module) RunOnce(ctx context.Context, names ...string) ([]*models.ZoneTopology, error) {
	zones, err := m.selectZones(names)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("no zones configured")
	}

	topos := make([]*models.ZoneTopology, 0, len(zones))
	for _, z := range zones {
		if err := ctx.Err(); err != nil {
			return topos, err
		}
		start := time.Now()
		topo := m.orchestrator.DiscoverZone(ctx, z)
		topos = append(topos, topo)

		if m.store != nil {
			snap := NewSnapshot(topo, start, time.Since(start))
			if err := m.store.SaveSnapshot(ctx, snap); err != nil {
				m.logger.Error("failed to save snapshot",
					zap.String("zone", z.Name),
					zap.Error(err),
				)
			}
		}
	}

	if err := WriteMetricsTextfile(m.textfile); err != nil {
		m.logger.Warn("metrics textfile not written", zap.Error(err))
	}
	return topos, nil
}

// History lists stored snapshots, newest first.
func (m *Module) History(ctx context.Context, zone string, limit int) ([]SnapshotSummary, error) {
	if m.store == nil {
		return nil, fmt.Errorf("history requires a database")
	}
	return m.store.ListSnapshots(ctx, zone, limit)
}

// Snapshot loads one stored snapshot by id.
func (m *Module) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	if m.store == nil {
		return nil, fmt.Errorf("history requires a database")
	}
	return m.store.GetSnapshot(ctx, id)
}

// Latest loads the newest stored snapshot of zone.
func (m *Module) Latest(ctx context.Context, zone string) (*Snapshot, error) {
	if m.store == nil {
		return nil, fmt.Errorf("history requires a database")
	}
	return m.store.LatestSnapshot(ctx, zone)
}

// Start runs every zone on the configured schedule until ctx is cancelled
// or Stop is called. onRun, if set, receives each run's topologies.
func (m *Module) Start(ctx context.Context, onRun func([]*models.ZoneTopology)) error {
	m.mu.Lock()
	if m.cfg.Schedule.Interval <= 0 {
		m.mu.Unlock()
		return fmt.Errorf("schedule.interval must be set for scheduled mode")
	}
	if m.scheduler != nil {
		m.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	m.scheduler = NewScheduler(m.cfg.Schedule, func(ctx context.Context) {
		topos, err := m.RunOnce(ctx)
		if err != nil {
			m.logger.Error("scheduled discovery failed", zap.Error(err))
			return
		}
		if onRun != nil {
			onRun(topos)
		}
	}, m.logger.Named("scheduler"))
	sched := m.scheduler
	m.mu.Unlock()

	m.logger.Info("recon module started")
	sched.Run(ctx)
	return nil
}

// Stop ends scheduled mode. It is safe to call when not started.
func (m *Module) Stop() {
	m.mu.RLock()
	sched := m.scheduler
	m.mu.RUnlock()
	if sched != nil {
		sched.Stop()
	}
	m.logger.Info("recon module stopped")
}
