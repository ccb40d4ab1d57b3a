package models

import (
	"net/netip"
)

// DeviceRole is the part a host plays in a zone.
type DeviceRole string

const (
	RoleGateway      DeviceRole = "gateway"
	RoleAccessSwitch DeviceRole = "access_switch"
)

// Interface is one row of a device's interface table.
type Interface struct {
	Index int    `json:"index" example:"10101"`
	Name  string `json:"name" example:"GigabitEthernet0/1"`
}

// SubnetBinding is one IPv4 address configured on an interface. An
// interface with secondary addresses has several bindings.
type SubnetBinding struct {
	IfIndex int        `json:"if_index" example:"42"`
	IP      netip.Addr `json:"ip" example:"10.20.0.1"`
	Mask    netip.Addr `json:"mask" example:"255.255.255.0"`
}

// Prefix returns the subnet the binding belongs to. ok is false for a
// non-contiguous or non-IPv4 mask.
func (b SubnetBinding) Prefix() (netip.Prefix, bool) {
	if !b.IP.Is4() || !b.Mask.Is4() {
		return netip.Prefix{}, false
	}
	m := b.Mask.As4()
	bits := 0
	seenZero := false
	for _, octet := range m {
		for i := 7; i >= 0; i-- {
			if octet&(1<<i) != 0 {
				if seenZero {
					return netip.Prefix{}, false
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	p, err := b.IP.Prefix(bits)
	if err != nil {
		return netip.Prefix{}, false
	}
	return p, true
}

// ARPEntry is one ipNetToMedia row.
type ARPEntry struct {
	IP      netip.Addr `json:"ip"`
	MAC     string     `json:"mac"`
	IfIndex int        `json:"if_index"`
}

// CDPNeighbor is one CDP cache row. DeviceID is cut at the first "." or "(".
type CDPNeighbor struct {
	IfIndex    int    `json:"if_index"`
	DeviceID   string `json:"device_id" example:"dist-sw2"`
	RemotePort string `json:"remote_port" example:"TenGigabitEthernet1/0/1"`
}

// VLAN is one VTP VLAN table row.
type VLAN struct {
	ID    int    `json:"id" example:"10"`
	State int    `json:"state"`
	Type  int    `json:"type"`
	Name  string `json:"name" example:"users"`
}

// HSRPGroup is an HSRP group for which the device is the active router.
type HSRPGroup struct {
	IfIndex   int        `json:"if_index"`
	Group     int        `json:"group"`
	VirtualIP netip.Addr `json:"virtual_ip"`
}

// FDBEntry is one bridge forwarding table row in a VLAN.
type FDBEntry struct {
	MAC        string `json:"mac"`
	BridgePort int    `json:"bridge_port"`
}

// MACBinding is a forwarding entry resolved to an interface index. IfIndex
// 0 means the bridge port had no interface mapping.
type MACBinding struct {
	MAC     string `json:"mac"`
	IfIndex int    `json:"if_index"`
}

// TableError records a table read that failed for one device.
type TableError struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

// DeviceTopology is everything learned about one host during a run.
type DeviceTopology struct {
	Address       string                      `json:"address" example:"10.0.0.1"`
	Roles         []DeviceRole                `json:"roles"`
	Hostname      string                      `json:"hostname,omitempty" example:"core-gw1"`
	Interfaces    []Interface                 `json:"interfaces,omitempty"`
	Aliases       map[string]string           `json:"aliases,omitempty"`
	Bindings      []SubnetBinding             `json:"subnet_bindings,omitempty"`
	RoutedSubnets []string                    `json:"routed_subnets,omitempty"`
	HSRP          []HSRPGroup                 `json:"hsrp_active,omitempty"`
	ARPEntries    int                         `json:"arp_entries"`
	Neighbors     map[string][]CDPNeighbor    `json:"neighbors,omitempty"`
	VLANs         []VLAN                      `json:"vlans,omitempty"`
	MACTable      map[int]map[string][]string `json:"mac_table,omitempty"`
	Partial       bool                        `json:"partial,omitempty"`
	Errors        []TableError                `json:"errors,omitempty"`
}

// ZoneTopology is the point-in-time view of one zone. It carries no run
// identity or timestamps, so identical device tables encode identically.
type ZoneTopology struct {
	Zone    string                     `json:"zone" example:"campus-a"`
	Subnets []string                   `json:"subnets"`
	Devices map[string]*DeviceTopology `json:"devices"`
}
