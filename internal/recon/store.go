package recon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/zonemap/pkg/models"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// startedAtLayout sorts lexically in time order.
const startedAtLayout = "2006-01-02T15:04:05.000000Z"

// ReconStore persists discovery snapshots.
type ReconStore struct {
	db *sql.DB
}

// NewReconStore creates a new ReconStore backed by the given database.
func NewReconStore(db *sql.DB) *ReconStore {
	return &ReconStore{db: db}
}

// SnapshotSummary is a stored snapshot without its topology.
type SnapshotSummary struct {
	ID        string        `json:"id"`
	Zone      string        `json:"zone"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Devices   int           `json:"devices"`
	Partial   int           `json:"partial"`
	Subnets   int           `json:"subnets"`
}

// SaveSnapshot stores a snapshot.
func (s *ReconStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	topo, err := json.Marshal(snap.Topology)
	if err != nil {
		return fmt.Errorf("marshal topology: %w", err)
	}

	partial := 0
	for _, dt := range snap.Topology.Devices {
		if dt.Partial {
			partial++
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recon_snapshots (id, zone, started_at, duration_ms, devices, partial, subnets, topology)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Zone, snap.StartedAt.UTC().Format(startedAtLayout), snap.Duration.Milliseconds(),
		len(snap.Topology.Devices), partial, len(snap.Topology.Subnets), string(topo),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the newest snapshots first. An empty zone lists
// every zone.
func (s *ReconStore) ListSnapshots(ctx context.Context, zone string, limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, zone, started_at, duration_ms, devices, partial, subnets
		FROM recon_snapshots
		WHERE (? = '' OR zone = ?)
		ORDER BY started_at DESC LIMIT ?`,
		zone, zone, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var summaries []SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&sum.ID, &sum.Zone, &startedAt, &durationMS, &sum.Devices, &sum.Partial, &sum.Subnets); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if sum.StartedAt, err = time.Parse(startedAtLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetSnapshot loads one snapshot with its topology.
func (s *ReconStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	return s.snapshot(s.db.QueryRowContext(ctx, `
		SELECT id, zone, started_at, duration_ms, topology
		FROM recon_snapshots WHERE id = ?`, id,
	))
}

// LatestSnapshot loads the newest snapshot of a zone.
func (s *ReconStore) LatestSnapshot(ctx context.Context, zone string) (*Snapshot, error) {
	return s.snapshot(s.db.QueryRowContext(ctx, `
		SELECT id, zone, started_at, duration_ms, topology
		FROM recon_snapshots WHERE zone = ?
		ORDER BY started_at DESC LIMIT 1`, zone,
	))
}

func (s *ReconStore) snapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var startedAt, topo string
	var durationMS int64
	err := row.Scan(&snap.ID, &snap.Zone, &startedAt, &durationMS, &topo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if snap.StartedAt, err = time.Parse(startedAtLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	snap.Duration = time.Duration(durationMS) * time.Millisecond
	snap.Topology = &models.ZoneTopology{}
	if err := json.Unmarshal([]byte(topo), snap.Topology); err != nil {
		return nil, fmt.Errorf("unmarshal topology: %w", err)
	}
	return &snap, nil
}
