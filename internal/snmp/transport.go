package snmp

import (
	"context"

	"github.com/gosnmp/gosnmp"
)

// Transport performs single SNMP round trips. The community is supplied per
// call so VLAN-scoped reads can swap it without touching the Device.
//
// Implementations return *TransportError when the device cannot be reached
// and *DeviceError when the response carries a non-zero error status.
type Transport interface {
	Get(ctx context.Context, dev Device, community string, oids []string) ([]gosnmp.SnmpPDU, error)
	GetBulk(ctx context.Context, dev Device, community string, oids []string, nonRepeaters uint8, maxRepetitions uint32) ([]gosnmp.SnmpPDU, error)
}
