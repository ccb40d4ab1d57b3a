package recon

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/internal/snmp/snmptest"
)

const (
	gwHost        = "10.0.0.1"
	swHost        = "10.0.0.2"
	testCommunity = "public"
)

var testMAC = []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

// seedGateway loads a gateway with one routed VLAN interface carrying two
// subnets, one non-routed uplink, an alias and one active HSRP group.
func seedGateway(a *snmptest.Agent, host string) {
	c := testCommunity
	a.SetString(host, c, OIDSysName, "core-gw1")

	a.SetString(host, c, OIDIfDescr+".1", "GigabitEthernet0/1")
	a.SetString(host, c, OIDIfDescr+".42", "Vlan20")
	a.SetString(host, c, OIDIfAlias+".1", "")
	a.SetString(host, c, OIDIfAlias+".42", "users")

	a.SetInt(host, c, OIDIPAdEntIfIndex+".10.20.0.1", 42)
	a.SetInt(host, c, OIDIPAdEntIfIndex+".10.30.0.1", 42)
	a.SetInt(host, c, OIDIPAdEntIfIndex+".192.168.255.1", 1)
	a.SetIP(host, c, OIDIPAdEntNetMask+".10.20.0.1", "255.255.255.0")
	a.SetIP(host, c, OIDIPAdEntNetMask+".10.30.0.1", "255.255.255.0")
	a.SetIP(host, c, OIDIPAdEntNetMask+".192.168.255.1", "255.255.255.252")

	a.SetIP(host, c, OIDHSRPVirtualIP+".42.1", "10.20.0.254")
	a.SetIP(host, c, OIDHSRPVirtualIP+".42.2", "10.30.0.254")
	a.SetInt(host, c, OIDHSRPStandbyState+".42.1", 1)
	a.SetInt(host, c, OIDHSRPStandbyState+".42.2", 6)
}

// seedSwitch loads an access switch with a CDP neighbor, one ARP row and
// three VTP VLANs of which only VLAN 10 is operational ethernet. VLAN 10's
// forwarding table holds testMAC on bridge port 5, mapped to ifIndex 101.
func seedSwitch(a *snmptest.Agent, host string) {
	c := testCommunity
	a.SetString(host, c, OIDSysName, "acc-sw1")

	a.SetString(host, c, OIDIfDescr+".101", "GigabitEthernet1/0/1")
	a.SetString(host, c, OIDIfDescr+".102", "GigabitEthernet1/0/2")

	a.SetString(host, c, OIDCDPCacheDeviceID+".102.1", "core-gw1.example.com")
	a.SetString(host, c, OIDCDPCacheDevicePort+".102.1", "GigabitEthernet0/5")

	a.Set(host, c, OIDIPNetToMediaPhysAddress+".101.10.20.0.5", gosnmp.OctetString, testMAC)

	a.SetInt(host, c, OIDVTPVlanState+".1.10", 1)
	a.SetInt(host, c, OIDVTPVlanState+".1.30", 2)
	a.SetInt(host, c, OIDVTPVlanState+".1.1002", 1)
	a.SetInt(host, c, OIDVTPVlanType+".1.10", 1)
	a.SetInt(host, c, OIDVTPVlanType+".1.30", 1)
	a.SetInt(host, c, OIDVTPVlanType+".1.1002", 2)
	a.SetString(host, c, OIDVTPVlanName+".1.10", "users")
	a.SetString(host, c, OIDVTPVlanName+".1.30", "parked")
	a.SetString(host, c, OIDVTPVlanName+".1.1002", "fddi-default")

	vc := c + "@10"
	a.SetInt(host, vc, OIDDot1dBasePortIfIndex+".5", 101)
	a.SetInt(host, vc, OIDDot1dTpFdbPort+".170.187.204.221.238.255", 5)
}

// fakeSweeper records the subnets it is asked to sweep.
type fakeSweeper struct {
	mu      sync.Mutex
	subnets []string
	onSweep func(netip.Prefix)
	err     error
}

func (f *fakeSweeper) Sweep(_ context.Context, p netip.Prefix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subnets = append(f.subnets, p.String())
	if f.onSweep != nil {
		f.onSweep(p)
	}
	return f.err
}

func (f *fakeSweeper) swept() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subnets...)
}

func testConfig(zones ...Zone) Config {
	cfg := DefaultConfig()
	cfg.SNMP.Timeout = time.Second
	cfg.Sweep.Pause = 0
	cfg.Zones = zones
	return cfg
}

func testDevice(t *testing.T, host string) snmp.Device {
	t.Helper()
	dev, err := snmp.NewDevice(host, testCommunity, time.Second, 0)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return dev
}

func newTestCollector(agent *snmptest.Agent, cfg Config) *SNMPCollector {
	vlans, err := snmp.ParseVLANStrategy(cfg.SNMP.VLANStrategy)
	if err != nil {
		panic(err)
	}
	return NewSNMPCollector(snmp.NewWalker(agent, nil, nil), vlans, cfg.Discovery, nil)
}

func newTestOrchestrator(agent *snmptest.Agent, sweeper Sweeper, cfg Config) *Orchestrator {
	return NewOrchestrator(newTestCollector(agent, cfg), sweeper, nil, cfg, nil)
}
