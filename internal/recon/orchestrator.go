package recon

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/HerbHall/zonemap/internal/event"
	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/pkg/models"
)

// Orchestrator runs the discovery phases for one zone at a time: gateways,
// then a sweep of every routed subnet they report, then access switches.
type Orchestrator struct {
	collector *SNMPCollector
	sweeper   Sweeper
	bus       event.Publisher
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator creates a new orchestrator. sweeper and bus may be nil.
func NewOrchestrator(collector *SNMPCollector, sweeper Sweeper, bus event.Publisher, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		collector: collector,
		sweeper:   sweeper,
		bus:       bus,
		cfg:       cfg,
		logger:    logger,
	}
}

// zoneRun is the state of one DiscoverZone call. Every device entry is
// created before a phase starts, and each task writes only its own entry.
type zoneRun struct {
	zone    Zone
	topo    *models.ZoneTopology
	devices map[string]snmp.Device
}

// deviceStep is one table read in a device task.
type deviceStep struct {
	table string
	run   func(ctx context.Context) error
}

// DiscoverZone builds the topology of one zone. It never fails as a whole:
// per-device problems are recorded on the device and marked Partial.
func (o *Orchestrator) DiscoverZone(ctx context.Context, zone Zone) *models.ZoneTopology {
	start := time.Now()
	run := &zoneRun{
		zone: zone,
		topo: &models.ZoneTopology{
			Zone:    zone.Name,
			Subnets: []string{},
			Devices: make(map[string]*models.DeviceTopology),
		},
		devices: make(map[string]snmp.Device),
	}

	o.logger.Info("zone discovery started",
		zap.String("zone", zone.Name),
		zap.Int("gateways", len(zone.Gateways)),
		zap.Int("access_switches", len(zone.AccessSwitches)),
	)

	gateways := o.prepare(run, zone.Gateways, models.RoleGateway)
	access := o.prepare(run, zone.AccessSwitches, models.RoleAccessSwitch)

	routed := make([][]netip.Prefix, len(gateways))
	p := pool.New().WithMaxGoroutines(o.concurrency())
	for i, key := range gateways {
		p.Go(func() {
			routed[i] = o.discoverGateway(ctx, run, key)
		})
	}
	p.Wait()

	subnets := mergeSubnets(routed)
	for _, s := range subnets {
		run.topo.Subnets = append(run.topo.Subnets, s.String())
	}
	o.sweep(ctx, zone.Name, subnets)

	p = pool.New().WithMaxGoroutines(o.concurrency())
	for _, key := range access {
		p.Go(func() {
			o.discoverAccessSwitch(ctx, run, key)
		})
	}
	p.Wait()

	partial := 0
	for _, dt := range run.topo.Devices {
		if dt.Partial {
			partial++
		}
	}
	elapsed := time.Since(start)
	zoneDiscoveryDuration.WithLabelValues(zone.Name).Observe(elapsed.Seconds())
	o.publish(ctx, TopicZoneCompleted, ZoneEvent{
		Zone:     zone.Name,
		Devices:  len(run.topo.Devices),
		Partial:  partial,
		Duration: elapsed,
	})
	o.logger.Info("zone discovery completed",
		zap.String("zone", zone.Name),
		zap.Int("devices", len(run.topo.Devices)),
		zap.Int("partial", partial),
		zap.Int("subnets", len(subnets)),
		zap.Duration("elapsed", elapsed),
	)
	return run.topo
}

// prepare builds one device handle per distinct host and registers role on
// its topology entry. It returns the keys of the hosts that can be queried.
// A host seen in both roles keeps the handle built for its first role.
func (o *Orchestrator) prepare(run *zoneRun, hosts []string, role models.DeviceRole) []string {
	var keys []string
	queued := make(map[string]bool)
	for _, host := range hosts {
		dev, err := o.newDevice(host, run.zone.community(o.cfg.SNMP.Community))
		if err != nil {
			o.logger.Warn("skipping invalid host",
				zap.String("zone", run.zone.Name),
				zap.String("device", host),
				zap.Error(err),
			)
			dt := o.entry(run, host, role)
			dt.Partial = true
			dt.Errors = append(dt.Errors, models.TableError{Table: "device", Error: err.Error()})
			continue
		}

		key := dev.String()
		if _, ok := run.devices[key]; !ok {
			run.devices[key] = dev
		}
		if queued[key] {
			continue
		}
		queued[key] = true
		o.entry(run, key, role)
		keys = append(keys, key)
	}
	return keys
}

// entry returns the topology entry for key, adding role if missing.
func (o *Orchestrator) entry(run *zoneRun, key string, role models.DeviceRole) *models.DeviceTopology {
	dt, ok := run.topo.Devices[key]
	if !ok {
		dt = &models.DeviceTopology{Address: key}
		run.topo.Devices[key] = dt
	}
	for _, r := range dt.Roles {
		if r == role {
			return dt
		}
	}
	dt.Roles = append(dt.Roles, role)
	return dt
}

func (o *Orchestrator) newDevice(host, community string) (snmp.Device, error) {
	target := host
	if _, _, err := net.SplitHostPort(host); err != nil && o.cfg.SNMP.Port != 0 {
		target = net.JoinHostPort(host, strconv.Itoa(o.cfg.SNMP.Port))
	}
	return snmp.NewDevice(target, community, o.cfg.SNMP.Timeout, o.cfg.SNMP.Retries)
}

func (o *Orchestrator) concurrency() int {
	if o.cfg.Discovery.Concurrency > 0 {
		return o.cfg.Discovery.Concurrency
	}
	return 1
}

// discoverGateway reads the gateway tables and returns the routed subnets
// it carries. Subnets learned before a failure are still returned.
func (o *Orchestrator) discoverGateway(ctx context.Context, run *zoneRun, key string) []netip.Prefix {
	dev := run.devices[key]
	dt := run.topo.Devices[key]
	c := o.collector

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Discovery.deviceTimeout(dev))
	defer cancel()

	var bindings []models.SubnetBinding
	err := o.runSteps(ctx, dt, []deviceStep{
		{"sysName", func(ctx context.Context) (err error) {
			dt.Hostname, err = c.Hostname(ctx, dev)
			return err
		}},
		{"ifDescr", func(ctx context.Context) (err error) {
			dt.Interfaces, err = c.Interfaces(ctx, dev)
			return err
		}},
		{"ipAddrTable", func(ctx context.Context) (err error) {
			bindings, err = c.SubnetBindings(ctx, dev)
			dt.Bindings = bindings
			return err
		}},
		{"ifAlias", func(ctx context.Context) error {
			aliases, err := c.InterfaceAliases(ctx, dev)
			dt.Aliases = nameAliases(aliases, dt.Interfaces)
			return err
		}},
		{"cHsrpGrpTable", func(ctx context.Context) (err error) {
			dt.HSRP, err = c.HSRPActive(ctx, dev)
			return err
		}},
	})

	subnets := RoutedSubnets(bindings, dt.Interfaces, o.cfg.Discovery.isRouted)
	for _, s := range subnets {
		dt.RoutedSubnets = append(dt.RoutedSubnets, s.String())
	}

	o.finishDevice(ctx, run.zone.Name, dt, models.RoleGateway, err)
	return subnets
}

// discoverAccessSwitch reads neighbors, ARP and the per-VLAN forwarding
// tables. A host that was also a gateway reuses its interface table.
func (o *Orchestrator) discoverAccessSwitch(ctx context.Context, run *zoneRun, key string) {
	dev := run.devices[key]
	dt := run.topo.Devices[key]
	c := o.collector

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Discovery.deviceTimeout(dev))
	defer cancel()

	err := o.runSteps(ctx, dt, []deviceStep{
		{"sysName", func(ctx context.Context) (err error) {
			if dt.Hostname != "" {
				return nil
			}
			dt.Hostname, err = c.Hostname(ctx, dev)
			return err
		}},
		{"ifDescr", func(ctx context.Context) (err error) {
			if dt.Interfaces != nil {
				return nil
			}
			dt.Interfaces, err = c.Interfaces(ctx, dev)
			return err
		}},
		{"cdpCacheTable", func(ctx context.Context) error {
			neighbors, err := c.CDPNeighbors(ctx, dev)
			if len(neighbors) > 0 {
				dt.Neighbors = GroupNeighbors(neighbors, dt.Interfaces)
			}
			return err
		}},
		{"ipNetToMediaTable", func(ctx context.Context) error {
			entries, err := c.ARP(ctx, dev)
			dt.ARPEntries = len(entries)
			return err
		}},
		{"vtpVlanTable", func(ctx context.Context) (err error) {
			dt.VLANs, err = c.VLANs(ctx, dev)
			return err
		}},
	})

	if err == nil {
		for _, v := range dt.VLANs {
			if err = ctx.Err(); err != nil {
				o.recordError(dt, fmt.Sprintf("vlan %d", v.ID), err)
				break
			}
			macs, vlanErr := o.vlanForwarding(ctx, dev, v.ID, dt.Interfaces)
			if vlanErr != nil {
				o.recordError(dt, fmt.Sprintf("vlan %d", v.ID), vlanErr)
				// An expired deadline fails the device, not just this VLAN.
				if err = ctx.Err(); err != nil {
					break
				}
				o.logger.Warn("skipping vlan",
					zap.String("zone", run.zone.Name),
					zap.String("device", key),
					zap.Int("vlan", v.ID),
					zap.Error(vlanErr),
				)
				continue
			}
			if len(macs) == 0 {
				continue
			}
			if dt.MACTable == nil {
				dt.MACTable = make(map[int]map[string][]string)
			}
			dt.MACTable[v.ID] = macs
		}
	}

	o.finishDevice(ctx, run.zone.Name, dt, models.RoleAccessSwitch, err)
}

// vlanForwarding resolves one VLAN's forwarding table to interface names.
func (o *Orchestrator) vlanForwarding(ctx context.Context, dev snmp.Device, vlan int, interfaces []models.Interface) (map[string][]string, error) {
	ports, err := o.collector.BridgePorts(ctx, dev, vlan)
	if err != nil {
		return nil, err
	}
	fdb, err := o.collector.Forwarding(ctx, dev, vlan)
	if err != nil {
		return nil, err
	}
	return NameForwarding(ResolveForwarding(fdb, ports), interfaces), nil
}

// runSteps runs steps in order and stops at the first failure, which is
// recorded against its table.
func (o *Orchestrator) runSteps(ctx context.Context, dt *models.DeviceTopology, steps []deviceStep) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			o.recordError(dt, s.table, err)
			return err
		}
		if err := s.run(ctx); err != nil {
			o.recordError(dt, s.table, err)
			return err
		}
	}
	return nil
}

func (o *Orchestrator) recordError(dt *models.DeviceTopology, table string, err error) {
	dt.Partial = true
	dt.Errors = append(dt.Errors, models.TableError{Table: table, Error: err.Error()})
}

func (o *Orchestrator) finishDevice(ctx context.Context, zone string, dt *models.DeviceTopology, role models.DeviceRole, err error) {
	observeDevice(zone, role, dt.Partial)

	ev := DeviceEvent{Zone: zone, Address: dt.Address, Role: role, Partial: dt.Partial}
	if err != nil {
		ev.Err = err.Error()
		o.logger.Warn("device discovery failed",
			zap.String("zone", zone),
			zap.String("device", dt.Address),
			zap.String("role", string(role)),
			zap.Bool("transport", snmp.IsTransport(err)),
			zap.Error(err),
		)
		o.publish(ctx, TopicDeviceFailed, ev)
		return
	}
	o.logger.Debug("device discovery complete",
		zap.String("zone", zone),
		zap.String("device", dt.Address),
		zap.String("role", string(role)),
	)
	o.publish(ctx, TopicDeviceCompleted, ev)
}

// sweep pings each subnet in turn, pausing between subnets. It returns
// once every sweep has finished.
func (o *Orchestrator) sweep(ctx context.Context, zone string, subnets []netip.Prefix) {
	if o.sweeper == nil || !o.cfg.Sweep.Enabled || len(subnets) == 0 {
		return
	}

	swept := 0
	for i, s := range subnets {
		if i > 0 && o.cfg.Sweep.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.cfg.Sweep.Pause):
			}
		}
		if ctx.Err() != nil {
			break
		}
		if !o.cfg.Sweep.sweepable(s) {
			o.logger.Info("subnet too large to sweep",
				zap.String("zone", zone),
				zap.String("subnet", s.String()),
			)
			continue
		}
		if err := o.sweeper.Sweep(ctx, s); err != nil {
			o.logger.Warn("sweep failed",
				zap.String("zone", zone),
				zap.String("subnet", s.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	o.publish(ctx, TopicSweepCompleted, SweepEvent{Zone: zone, Subnets: swept})
}

func (o *Orchestrator) publish(ctx context.Context, topic string, payload any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(ctx, event.Event{Topic: topic, Source: eventSource, Payload: payload})
}

// mergeSubnets flattens and deduplicates the per-gateway subnet lists.
func mergeSubnets(lists [][]netip.Prefix) []netip.Prefix {
	seen := make(map[netip.Prefix]bool)
	var merged []netip.Prefix
	for _, list := range lists {
		for _, p := range list {
			if seen[p] {
				continue
			}
			seen[p] = true
			merged = append(merged, p)
		}
	}
	SortPrefixes(merged)
	return merged
}

// nameAliases keys aliases by interface name. Aliases on unnamed
// interfaces are dropped.
func nameAliases(aliases map[int]string, interfaces []models.Interface) map[string]string {
	if len(aliases) == 0 {
		return nil
	}
	names := interfaceNames(interfaces)
	named := make(map[string]string, len(aliases))
	for ifIndex, alias := range aliases {
		if name, ok := names[ifIndex]; ok {
			named[name] = alias
		}
	}
	if len(named) == 0 {
		return nil
	}
	return named
}
