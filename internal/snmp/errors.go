package snmp

import (
	"errors"
	"fmt"

	"github.com/gosnmp/gosnmp"
)

// ErrOIDNotIncreasing is returned when an agent answers a walk with an OID
// that does not sort after the one requested.
var ErrOIDNotIncreasing = errors.New("oid not increasing")

// TransportError means the device could not be reached: timeout, retries
// exhausted, or a socket failure. Callers stop querying the device.
type TransportError struct {
	Device string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmp transport to %s: %v", e.Device, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// DeviceError means the device answered with a non-zero error status for
// a request. Only the affected table read is lost.
type DeviceError struct {
	Device string
	OID    string
	Status gosnmp.SNMPError
	Index  int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("snmp device %s returned error status %v (index %d) for %s",
		e.Device, e.Status, e.Index, e.OID)
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
