package snmp

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the standard SNMP agent port.
const DefaultPort = 161

// Device identifies one SNMP agent. It is passed by value and never mutated
// after NewDevice; per-query credentials are handed to the transport
// separately.
type Device struct {
	Address   string
	Port      uint16
	Community string
	Timeout   time.Duration
	Retries   int
}

// NewDevice builds a Device from a "host" or "host:port" target.
func NewDevice(target, community string, timeout time.Duration, retries int) (Device, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		host = target
		portStr = strconv.Itoa(DefaultPort)
	}
	if host == "" {
		return Device{}, fmt.Errorf("empty host in target %q", target)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Device{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	if retries < 0 {
		retries = 0
	}

	return Device{
		Address:   host,
		Port:      uint16(port),
		Community: community,
		Timeout:   timeout,
		Retries:   retries,
	}, nil
}

// RoundTripBudget is the longest a single request may block:
// timeout x (retries+1).
func (d Device) RoundTripBudget() time.Duration {
	return d.Timeout * time.Duration(d.Retries+1)
}

func (d Device) String() string {
	if d.Port == 0 || d.Port == DefaultPort {
		return d.Address
	}
	return net.JoinHostPort(d.Address, strconv.Itoa(int(d.Port)))
}
