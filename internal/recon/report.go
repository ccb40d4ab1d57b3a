package recon

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/zonemap/pkg/models"
)

// Snapshot is a stored discovery run. Identity and timing live here so the
// topology itself stays identical across runs over unchanged devices.
type Snapshot struct {
	ID        string               `json:"id"`
	Zone      string               `json:"zone"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
	Topology  *models.ZoneTopology `json:"topology"`
}

// NewSnapshot wraps a topology with a fresh run id.
func NewSnapshot(topo *models.ZoneTopology, startedAt time.Time, duration time.Duration) *Snapshot {
	return &Snapshot{
		ID:        uuid.New().String(),
		Zone:      topo.Zone,
		StartedAt: startedAt.UTC(),
		Duration:  duration,
		Topology:  topo,
	}
}

// WriteReport encodes topologies as indented JSON, one document per call.
// A single topology is written bare; several are written as an array.
func WriteReport(w io.Writer, topos []*models.ZoneTopology) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var v any = topos
	if len(topos) == 1 {
		v = topos[0]
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
