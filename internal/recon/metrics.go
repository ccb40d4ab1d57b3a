package recon

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/zonemap/internal/snmp"
	"github.com/HerbHall/zonemap/pkg/models"
)

// Prometheus discovery metrics.
var (
	snmpWalksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonemap_snmp_walks_total",
			Help: "Total number of SNMP table reads by outcome.",
		},
		[]string{"table", "outcome"},
	)
	snmpWalkRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonemap_snmp_walk_rows_total",
			Help: "Total number of SNMP table rows decoded.",
		},
		[]string{"table"},
	)
	snmpWalkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zonemap_snmp_walk_duration_seconds",
			Help:    "SNMP table read duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)
	discoveredDevicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonemap_devices_total",
			Help: "Total number of devices visited by role and outcome.",
		},
		[]string{"zone", "role", "outcome"},
	)
	zoneDiscoveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zonemap_zone_discovery_duration_seconds",
			Help:    "Zone discovery duration in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"zone"},
	)
)

func init() {
	prometheus.MustRegister(snmpWalksTotal)
	prometheus.MustRegister(snmpWalkRowsTotal)
	prometheus.MustRegister(snmpWalkDuration)
	prometheus.MustRegister(discoveredDevicesTotal)
	prometheus.MustRegister(zoneDiscoveryDuration)
}

// Walk outcomes.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeComplete = "complete"
	outcomePartial  = "partial"
)

// WalkMetrics records every table read on the package collectors.
type WalkMetrics struct{}

// Compile-time interface guard.
var _ snmp.Observer = WalkMetrics{}

// ObserveWalk implements snmp.Observer.
func (WalkMetrics) ObserveWalk(r snmp.WalkResult) {
	outcome := outcomeOK
	switch {
	case r.Rejected:
		outcome = outcomeRejected
	case r.Err != nil:
		outcome = outcomeFailed
	}
	snmpWalksTotal.WithLabelValues(r.Table, outcome).Inc()
	snmpWalkRowsTotal.WithLabelValues(r.Table).Add(float64(r.Rows))
	snmpWalkDuration.WithLabelValues(r.Table).Observe(r.Duration.Seconds())
}

func observeDevice(zone string, role models.DeviceRole, partial bool) {
	outcome := outcomeComplete
	if partial {
		outcome = outcomePartial
	}
	discoveredDevicesTotal.WithLabelValues(zone, string(role), outcome).Inc()
}

// WriteMetricsTextfile writes the default registry in the node exporter
// textfile format. An empty path is a no-op.
func WriteMetricsTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
