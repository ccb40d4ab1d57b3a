package testutil

import (
	"net/netip"
	"sort"
	"testing"

	"github.com/HerbHall/zonemap/internal/store"
	"github.com/HerbHall/zonemap/pkg/models"
)

// NewStore opens an in-memory store that is closed when the test ends.
func NewStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewDeviceTopology returns a complete gateway entry for addr. Override
// individual fields with options as needed.
func NewDeviceTopology(addr string, opts ...func(*models.DeviceTopology)) *models.DeviceTopology {
	d := &models.DeviceTopology{
		Address:  addr,
		Roles:    []models.DeviceRole{models.RoleGateway},
		Hostname: "test-gw",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithHostname sets the device hostname.
func WithHostname(name string) func(*models.DeviceTopology) {
	return func(d *models.DeviceTopology) { d.Hostname = name }
}

// WithBinding adds an address binding on ifIndex. ip and mask must parse.
func WithBinding(ifIndex int, ip, mask string) func(*models.DeviceTopology) {
	return func(d *models.DeviceTopology) {
		d.Bindings = append(d.Bindings, models.SubnetBinding{
			IfIndex: ifIndex,
			IP:      netip.MustParseAddr(ip),
			Mask:    netip.MustParseAddr(mask),
		})
	}
}

// WithFailure marks the device partial with one failed table.
func WithFailure(table, msg string) func(*models.DeviceTopology) {
	return func(d *models.DeviceTopology) {
		d.Hostname = ""
		d.Partial = true
		d.Errors = append(d.Errors, models.TableError{Table: table, Error: msg})
	}
}

// NewZoneTopology assembles a zone from devices, keyed by address.
func NewZoneTopology(zone string, subnets []string, devices ...*models.DeviceTopology) *models.ZoneTopology {
	z := &models.ZoneTopology{
		Zone:    zone,
		Subnets: append([]string(nil), subnets...),
		Devices: make(map[string]*models.DeviceTopology, len(devices)),
	}
	sort.Strings(z.Subnets)
	for _, d := range devices {
		z.Devices[d.Address] = d
	}
	return z
}
