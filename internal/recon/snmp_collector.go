package recon

import (
	"context"
	"net/netip"
	"sort"

	"go.uber.org/zap"

	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/pkg/models"
)

// SNMPCollector reads the MIB tables used for zone discovery. Each method
// issues its own walks; a device error status on a table yields an empty
// result, and a transport failure is returned to the caller.
type SNMPCollector struct {
	walker *snmp.Walker
	vlans  snmp.VLANStrategy
	cfg    DiscoveryConfig
	logger *zap.Logger
}

// NewSNMPCollector creates a new SNMP collector.
func NewSNMPCollector(walker *snmp.Walker, vlans snmp.VLANStrategy, cfg DiscoveryConfig, logger *zap.Logger) *SNMPCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vlans == nil {
		vlans = snmp.CommunityIndexing{}
	}
	return &SNMPCollector{walker: walker, vlans: vlans, cfg: cfg, logger: logger}
}

func (c *SNMPCollector) table(name, oid string, arity int, f snmp.Format) snmp.Table {
	return snmp.Table{Name: name, OID: oid, Arity: arity, Format: f, MaxRepetitions: c.cfg.BulkRepetitions}
}

func (c *SNMPCollector) vlanTable(name, oid string, arity int, f snmp.Format) snmp.Table {
	return snmp.Table{Name: name, OID: oid, Arity: arity, Format: f, MaxRepetitions: c.cfg.VLANBulkRepetitions}
}

// Hostname returns sysName, or "" when the agent does not expose it.
func (c *SNMPCollector) Hostname(ctx context.Context, dev snmp.Device) (string, error) {
	v, ok, err := c.walker.Get(ctx, dev, dev.Community, "sysName", OIDSysName, snmp.FormatStr)
	if err != nil || !ok {
		return "", err
	}
	return v.Text, nil
}

// Interfaces reads ifDescr as the interface name table.
func (c *SNMPCollector) Interfaces(ctx context.Context, dev snmp.Device) ([]models.Interface, error) {
	rows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("ifDescr", OIDIfDescr, 1, snmp.FormatStr))
	if err != nil {
		return nil, err
	}

	interfaces := make([]models.Interface, 0, len(rows))
	for _, r := range rows {
		interfaces = append(interfaces, models.Interface{Index: r.Index[0], Name: r.Value.Text})
	}
	sort.Slice(interfaces, func(i, j int) bool {
		return interfaces[i].Index < interfaces[j].Index
	})

	c.logger.Debug("interfaces retrieved",
		zap.String("device", dev.String()),
		zap.Int("count", len(interfaces)),
	)
	return interfaces, nil
}

// InterfaceAliases reads ifAlias keyed by ifIndex. Empty aliases are
// omitted.
func (c *SNMPCollector) InterfaceAliases(ctx context.Context, dev snmp.Device) (map[int]string, error) {
	rows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("ifAlias", OIDIfAlias, 1, snmp.FormatStr))
	if err != nil {
		return nil, err
	}

	aliases := make(map[int]string, len(rows))
	for _, r := range rows {
		if r.Value.Text != "" {
			aliases[r.Index[0]] = r.Value.Text
		}
	}
	return aliases, nil
}

// SubnetBindings joins ipAdEntIfIndex and ipAdEntNetMask on their shared
// address index. Every address is its own binding, so secondary addresses
// on one interface are all kept.
func (c *SNMPCollector) SubnetBindings(ctx context.Context, dev snmp.Device) ([]models.SubnetBinding, error) {
	ifRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("ipAdEntIfIndex", OIDIPAdEntIfIndex, snmp.ArityIPv4, snmp.FormatInt))
	if err != nil {
		return nil, err
	}
	maskRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("ipAdEntNetMask", OIDIPAdEntNetMask, snmp.ArityIPv4, snmp.FormatIPv4))
	if err != nil {
		return nil, err
	}

	masks := indexRows(maskRows)
	bindings := make([]models.SubnetBinding, 0, len(ifRows))
	for _, r := range ifRows {
		ip, ok := snmp.DecodeIPv4(r.Index)
		if !ok {
			continue
		}
		m, ok := masks[snmp.JoinIndex(r.Index)]
		if !ok {
			continue
		}
		mask, ok := parseAddr(m.Value.Text)
		if !ok {
			continue
		}
		bindings = append(bindings, models.SubnetBinding{IfIndex: int(r.Value.Int), IP: ip, Mask: mask})
	}

	c.logger.Debug("subnet bindings retrieved",
		zap.String("device", dev.String()),
		zap.Int("count", len(bindings)),
	)
	return bindings, nil
}

// HSRPActive returns the HSRP groups whose standby state equals the
// configured active value.
func (c *SNMPCollector) HSRPActive(ctx context.Context, dev snmp.Device) ([]models.HSRPGroup, error) {
	vipRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("cHsrpGrpVirtualIpAddr", OIDHSRPVirtualIP, 2, snmp.FormatIPv4))
	if err != nil {
		return nil, err
	}
	if len(vipRows) == 0 {
		return nil, nil
	}
	stateRows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("cHsrpGrpStandbyState", OIDHSRPStandbyState, 2, snmp.FormatInt))
	if err != nil {
		return nil, err
	}

	states := indexRows(stateRows)
	var groups []models.HSRPGroup
	for _, r := range vipRows {
		s, ok := states[snmp.JoinIndex(r.Index)]
		if !ok || int(s.Value.Int) != c.cfg.HSRPActiveState {
			continue
		}
		vip, ok := parseAddr(r.Value.Text)
		if !ok {
			continue
		}
		groups = append(groups, models.HSRPGroup{IfIndex: r.Index[0], Group: r.Index[1], VirtualIP: vip})
	}
	return groups, nil
}

// ARP reads ipNetToMediaPhysAddress. The index is ifIndex followed by the
// four address octets.
func (c *SNMPCollector) ARP(ctx context.Context, dev snmp.Device) ([]models.ARPEntry, error) {
	rows, err := c.walker.Walk(ctx, dev, dev.Community, c.table("ipNetToMediaPhysAddress", OIDIPNetToMediaPhysAddress, 1+snmp.ArityIPv4, snmp.FormatMAC))
	if err != nil {
		return nil, err
	}

	entries := make([]models.ARPEntry, 0, len(rows))
	for _, r := range rows {
		ip, ok := snmp.DecodeIPv4(r.Index[1:])
		if !ok || len(r.Value.Text) != 17 {
			continue
		}
		entries = append(entries, models.ARPEntry{IP: ip, MAC: r.Value.Text, IfIndex: r.Index[0]})
	}

	c.logger.Debug("arp entries retrieved",
		zap.String("device", dev.String()),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// VLANs joins the vtpVlanTable state, type and name columns and keeps only
// operational ethernet VLANs, ordered by VLAN id.
func (c *SNMPCollector) VLANs(ctx context.Context, dev snmp.Device) ([]models.VLAN, error) {
	stateRows, err := c.walker.Walk(ctx, dev, dev.Community, c.vlanTable("vtpVlanState", OIDVTPVlanState, 2, snmp.FormatInt))
	if err != nil {
		return nil, err
	}
	if len(stateRows) == 0 {
		return nil, nil
	}
	typeRows, err := c.walker.Walk(ctx, dev, dev.Community, c.vlanTable("vtpVlanType", OIDVTPVlanType, 2, snmp.FormatInt))
	if err != nil {
		return nil, err
	}
	nameRows, err := c.walker.Walk(ctx, dev, dev.Community, c.vlanTable("vtpVlanName", OIDVTPVlanName, 2, snmp.FormatStr))
	if err != nil {
		return nil, err
	}

	types := indexRows(typeRows)
	names := indexRows(nameRows)

	var vlans []models.VLAN
	for _, r := range stateRows {
		key := snmp.JoinIndex(r.Index)
		t, ok := types[key]
		if !ok {
			continue
		}
		v := models.VLAN{
			ID:    r.Index[1],
			State: int(r.Value.Int),
			Type:  int(t.Value.Int),
			Name:  names[key].Value.Text,
		}
		if RetainVLAN(v) {
			vlans = append(vlans, v)
		}
	}
	sort.Slice(vlans, func(i, j int) bool { return vlans[i].ID < vlans[j].ID })

	c.logger.Debug("vlans retrieved",
		zap.String("device", dev.String()),
		zap.Int("rows", len(stateRows)),
		zap.Int("retained", len(vlans)),
	)
	return vlans, nil
}

// RetainVLAN reports whether a VLAN is operational and of ethernet type.
func RetainVLAN(v models.VLAN) bool {
	return v.State == vtpVlanOperational && v.Type == vtpVlanEthernet
}

// BridgePorts reads dot1dBasePortIfIndex in the given VLAN's context and
// returns bridge port -> ifIndex.
func (c *SNMPCollector) BridgePorts(ctx context.Context, dev snmp.Device, vlan int) (map[int]int, error) {
	community := c.vlans.Community(dev.Community, vlan)
	rows, err := c.walker.Walk(ctx, dev, community, c.vlanTable("dot1dBasePortIfIndex", OIDDot1dBasePortIfIndex, snmp.ArityBridgePort, snmp.FormatInt))
	if err != nil {
		return nil, err
	}

	ports := make(map[int]int, len(rows))
	for _, r := range rows {
		port, ok := snmp.DecodeBridgeID(r.Index)
		if !ok {
			continue
		}
		ports[port] = int(r.Value.Int)
	}
	return ports, nil
}

// Forwarding reads dot1dTpFdbPort in the given VLAN's context. The MAC is
// carried in the row index.
func (c *SNMPCollector) Forwarding(ctx context.Context, dev snmp.Device, vlan int) ([]models.FDBEntry, error) {
	community := c.vlans.Community(dev.Community, vlan)
	rows, err := c.walker.Walk(ctx, dev, community, c.vlanTable("dot1dTpFdbPort", OIDDot1dTpFdbPort, snmp.ArityMAC, snmp.FormatInt))
	if err != nil {
		return nil, err
	}

	entries := make([]models.FDBEntry, 0, len(rows))
	for _, r := range rows {
		mac, ok := snmp.DecodeMAC(r.Index)
		if !ok {
			continue
		}
		entries = append(entries, models.FDBEntry{MAC: mac, BridgePort: int(r.Value.Int)})
	}

	c.logger.Debug("forwarding entries retrieved",
		zap.String("device", dev.String()),
		zap.Int("vlan", vlan),
		zap.Int("count", len(entries)),
	)
	return entries, nil
}

// indexRows keys rows by their dotted index for suffix joins.
func indexRows(rows []snmp.Row) map[string]snmp.Row {
	m := make(map[string]snmp.Row, len(rows))
	for _, r := range rows {
		m[snmp.JoinIndex(r.Index)] = r
	}
	return m
}

func parseAddr(s string) (netip.Addr, bool) {
	a, err := netip.ParseAddr(s)
	return a, err == nil
}
