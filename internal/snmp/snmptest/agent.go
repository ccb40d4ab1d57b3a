// Package snmptest provides an in-memory snmp.Transport for tests.
package snmptest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"

	"github.com/HerbHall/zonemap/internal/snmp"
)

// Compile-time interface guard.
var _ snmp.Transport = (*Agent)(nil)

// Call records one request made against the Agent.
type Call struct {
	Device    string
	Community string
	OID       string
	Bulk      bool
}

type failure struct {
	prefix string
	err    error
}

// Agent answers Get and GetBulk from per-device, per-community OID trees.
// A device/community pair with no objects times out, as real agents stay
// silent on a wrong community.
type Agent struct {
	mu       sync.Mutex
	views    map[string]map[string]gosnmp.SnmpPDU // device|community -> oid -> pdu
	failures map[string][]failure                 // device -> failures
	calls    []Call
}

// NewAgent creates an empty Agent.
func NewAgent() *Agent {
	return &Agent{
		views:    make(map[string]map[string]gosnmp.SnmpPDU),
		failures: make(map[string][]failure),
	}
}

// Set stores one object in the view of device under community.
func (a *Agent) Set(device, community, oid string, typ gosnmp.Asn1BER, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := device + "|" + community
	view, ok := a.views[key]
	if !ok {
		view = make(map[string]gosnmp.SnmpPDU)
		a.views[key] = view
	}
	name := strings.TrimPrefix(oid, ".")
	view[name] = gosnmp.SnmpPDU{Name: "." + name, Type: typ, Value: value}
}

// AddCommunity makes the agent answer community on device with an empty
// view.
func (a *Agent) AddCommunity(device, community string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.views[device+"|"+community]; !ok {
		a.views[device+"|"+community] = make(map[string]gosnmp.SnmpPDU)
	}
}

// SetInt stores an Integer object.
func (a *Agent) SetInt(device, community, oid string, v int) {
	a.Set(device, community, oid, gosnmp.Integer, v)
}

// SetString stores an OctetString object.
func (a *Agent) SetString(device, community, oid, v string) {
	a.Set(device, community, oid, gosnmp.OctetString, []byte(v))
}

// SetIP stores an IpAddress object.
func (a *Agent) SetIP(device, community, oid, v string) {
	a.Set(device, community, oid, gosnmp.IPAddress, v)
}

// Fail makes every request to device whose OID starts with prefix return
// err. An empty prefix fails every request.
func (a *Agent) Fail(device, prefix string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[device] = append(a.failures[device], failure{prefix: strings.TrimPrefix(prefix, "."), err: err})
}

// FailTransport makes every request to device fail as unreachable.
func (a *Agent) FailTransport(device string) {
	a.Fail(device, "", &snmp.TransportError{Device: device, Cause: errors.New("request timeout")})
}

// FailStatus makes requests under prefix return a device error status.
func (a *Agent) FailStatus(device, prefix string, status gosnmp.SNMPError) {
	a.Fail(device, prefix, &snmp.DeviceError{Device: device, OID: prefix, Status: status})
}

// Calls returns the requests made so far.
func (a *Agent) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, len(a.calls))
	copy(out, a.calls)
	return out
}

func (a *Agent) Get(_ context.Context, dev snmp.Device, community string, oids []string) ([]gosnmp.SnmpPDU, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]gosnmp.SnmpPDU, 0, len(oids))
	for _, oid := range oids {
		name := strings.TrimPrefix(oid, ".")
		a.calls = append(a.calls, Call{Device: dev.Address, Community: community, OID: name})
		if err := a.failureFor(dev.Address, name); err != nil {
			return nil, err
		}
		view, ok := a.views[dev.Address+"|"+community]
		if !ok {
			return nil, &snmp.TransportError{Device: dev.Address, Cause: errors.New("request timeout")}
		}
		pdu, ok := view[name]
		if !ok {
			pdu = gosnmp.SnmpPDU{Name: "." + name, Type: gosnmp.NoSuchObject}
		}
		out = append(out, pdu)
	}
	return out, nil
}

func (a *Agent) GetBulk(_ context.Context, dev snmp.Device, community string, oids []string, _ uint8, maxRepetitions uint32) ([]gosnmp.SnmpPDU, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []gosnmp.SnmpPDU
	for _, oid := range oids {
		cursor := strings.TrimPrefix(oid, ".")
		a.calls = append(a.calls, Call{Device: dev.Address, Community: community, OID: cursor, Bulk: true})
		if err := a.failureFor(dev.Address, cursor); err != nil {
			return nil, err
		}

		view, ok := a.views[dev.Address+"|"+community]
		if !ok {
			return nil, &snmp.TransportError{Device: dev.Address, Cause: errors.New("request timeout")}
		}

		names := sortedAfter(view, cursor)
		if len(names) == 0 {
			out = append(out, gosnmp.SnmpPDU{Name: "." + cursor, Type: gosnmp.EndOfMibView})
			continue
		}
		if uint32(len(names)) > maxRepetitions {
			names = names[:maxRepetitions]
		}
		for _, n := range names {
			out = append(out, view[n])
		}
	}
	return out, nil
}

func (a *Agent) failureFor(device, oid string) error {
	for _, f := range a.failures[device] {
		if f.prefix == "" || oid == f.prefix || strings.HasPrefix(oid, f.prefix+".") {
			return f.err
		}
	}
	return nil
}

func sortedAfter(view map[string]gosnmp.SnmpPDU, cursor string) []string {
	var names []string
	for n := range view {
		if snmp.CompareOID(n, cursor) > 0 {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return snmp.CompareOID(names[i], names[j]) < 0 })
	return names
}
