package snmp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

// DefaultMaxRepetitions is the GETBULK max-repetitions used when a Table
// does not set one.
const DefaultMaxRepetitions = 20

// Table describes one MIB column to walk.
type Table struct {
	Name           string
	OID            string
	Arity          int
	Format         Format
	MaxRepetitions uint32
}

// Row is one decoded table row.
type Row struct {
	Index []int
	Value Value
}

// WalkResult summarizes one table read for observers.
type WalkResult struct {
	Device   string
	Table    string
	Rows     int
	Duration time.Duration
	Err      error
	Rejected bool // device answered with an error status
}

// Observer receives a WalkResult after every Walk and Get.
type Observer interface {
	ObserveWalk(r WalkResult)
}

// Walker reads whole tables over a Transport.
type Walker struct {
	transport Transport
	observer  Observer
	logger    *zap.Logger
}

// NewWalker creates a Walker. observer may be nil.
func NewWalker(transport Transport, observer Observer, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{transport: transport, observer: observer, logger: logger}
}

// Walk reads every row of t. Rows are returned in agent order until the
// first OID outside the table or an end-of-view marker. An OID that does
// not sort after the previous one fails the walk with ErrOIDNotIncreasing.
// A device error status is logged and yields an empty result;
// a TransportError is returned wrapped.
func (w *Walker) Walk(ctx context.Context, dev Device, community string, t Table) ([]Row, error) {
	start := time.Now()
	rows, err := w.walk(ctx, dev, community, t)

	rejected := w.absorbDeviceError(dev, t.Name, err)
	if rejected {
		rows, err = nil, nil
	}

	w.observe(WalkResult{
		Device:   dev.String(),
		Table:    t.Name,
		Rows:     len(rows),
		Duration: time.Since(start),
		Err:      err,
		Rejected: rejected,
	})

	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", t.Name, err)
	}
	return rows, nil
}

func (w *Walker) walk(ctx context.Context, dev Device, community string, t Table) ([]Row, error) {
	reps := t.MaxRepetitions
	if reps == 0 {
		reps = DefaultMaxRepetitions
	}

	var rows []Row
	cursor := normalizeOID(t.OID)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pdus, err := w.transport.GetBulk(ctx, dev, community, []string{cursor}, 0, reps)
		if err != nil {
			return nil, err
		}
		if len(pdus) == 0 {
			return rows, nil
		}

		for _, pdu := range pdus {
			if endOfTable(pdu.Type) {
				return rows, nil
			}
			index, ok := SplitIndex(pdu.Name, t.OID, t.Arity)
			if !ok {
				return rows, nil
			}
			name := normalizeOID(pdu.Name)
			if CompareOID(name, cursor) <= 0 {
				return nil, fmt.Errorf("%w: %s after %s", ErrOIDNotIncreasing, name, cursor)
			}
			rows = append(rows, Row{Index: index, Value: Decode(pdu, t.Format)})
			cursor = name
		}
	}
}

// Get reads a single scalar. ok is false when the agent has no such object
// or rejected the request.
func (w *Walker) Get(ctx context.Context, dev Device, community, name, oid string, f Format) (v Value, ok bool, err error) {
	start := time.Now()
	pdus, err := w.transport.Get(ctx, dev, community, []string{oid})

	rejected := w.absorbDeviceError(dev, name, err)
	if rejected {
		err = nil
	}

	rows := 0
	if err == nil && len(pdus) > 0 && !endOfTable(pdus[0].Type) && pdus[0].Type != gosnmp.Null {
		v, ok = Decode(pdus[0], f), true
		rows = 1
	}

	w.observe(WalkResult{
		Device:   dev.String(),
		Table:    name,
		Rows:     rows,
		Duration: time.Since(start),
		Err:      err,
		Rejected: rejected,
	})

	if err != nil {
		return Value{}, false, fmt.Errorf("get %s: %w", name, err)
	}
	return v, ok, nil
}

// absorbDeviceError logs a device error status and reports whether err was
// one.
func (w *Walker) absorbDeviceError(dev Device, table string, err error) bool {
	var de *DeviceError
	if !errors.As(err, &de) {
		return false
	}
	w.logger.Warn("device rejected table read",
		zap.String("device", dev.String()),
		zap.String("table", table),
		zap.String("oid", de.OID),
		zap.Any("status", de.Status),
	)
	return true
}

func (w *Walker) observe(r WalkResult) {
	if w.observer != nil {
		w.observer.ObserveWalk(r)
	}
}

func endOfTable(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.EndOfMibView, gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
		return true
	default:
		return false
	}
}
