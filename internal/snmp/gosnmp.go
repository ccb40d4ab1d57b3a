package snmp

import (
	"context"
	"strings"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Transport = (*GoSNMPTransport)(nil)

// GoSNMPTransport is a v2c Transport backed by gosnmp. Each call opens its
// own UDP session, so one instance is safe for concurrent use across
// devices.
type GoSNMPTransport struct {
	logger *zap.Logger
}

// NewGoSNMPTransport creates a gosnmp transport.
func NewGoSNMPTransport(logger *zap.Logger) *GoSNMPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoSNMPTransport{logger: logger}
}

// newGoSNMP builds an unconnected session for one request.
func (t *GoSNMPTransport) newGoSNMP(dev Device, community string) *gosnmp.GoSNMP {
	port := dev.Port
	if port == 0 {
		port = DefaultPort
	}
	return &gosnmp.GoSNMP{
		Target:    dev.Address,
		Port:      port,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   dev.Timeout,
		Retries:   dev.Retries,
		MaxOids:   gosnmp.MaxOids,
	}
}

func (t *GoSNMPTransport) Get(ctx context.Context, dev Device, community string, oids []string) ([]gosnmp.SnmpPDU, error) {
	return t.roundTrip(ctx, dev, community, oids, func(g *gosnmp.GoSNMP) (*gosnmp.SnmpPacket, error) {
		return g.Get(oids)
	})
}

func (t *GoSNMPTransport) GetBulk(ctx context.Context, dev Device, community string, oids []string, nonRepeaters uint8, maxRepetitions uint32) ([]gosnmp.SnmpPDU, error) {
	return t.roundTrip(ctx, dev, community, oids, func(g *gosnmp.GoSNMP) (*gosnmp.SnmpPacket, error) {
		return g.GetBulk(oids, nonRepeaters, maxRepetitions)
	})
}

// roundTrip connects, runs one request and classifies the outcome. A request
// already on the wire is not abandoned when ctx is cancelled; ctx is only
// checked before connecting.
func (t *GoSNMPTransport) roundTrip(
	ctx context.Context,
	dev Device,
	community string,
	oids []string,
	do func(g *gosnmp.GoSNMP) (*gosnmp.SnmpPacket, error),
) ([]gosnmp.SnmpPDU, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := t.newGoSNMP(dev, community)
	if err := g.Connect(); err != nil {
		return nil, &TransportError{Device: dev.String(), Cause: err}
	}
	defer func() { _ = g.Conn.Close() }()

	result, err := do(g)
	if err != nil {
		return nil, &TransportError{Device: dev.String(), Cause: err}
	}

	if result.Error != gosnmp.NoError {
		return nil, &DeviceError{
			Device: dev.String(),
			OID:    strings.Join(oids, ","),
			Status: result.Error,
			Index:  int(result.ErrorIndex),
		}
	}

	t.logger.Debug("snmp round trip",
		zap.String("device", dev.String()),
		zap.Strings("oids", oids),
		zap.Int("varbinds", len(result.Variables)),
	)

	return result.Variables, nil
}
