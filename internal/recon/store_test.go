package recon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/HerbHall/zonemap/internal/testutil"
	"github.com/HerbHall/zonemap/pkg/models"
)

func testStore(t *testing.T) *ReconStore {
	t.Helper()
	db := testutil.NewStore(t)
	if err := db.Migrate(context.Background(), "recon", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewReconStore(db.DB())
}

func sampleTopology(zone string) *models.ZoneTopology {
	return testutil.NewZoneTopology(zone, []string{"10.20.0.0/24"},
		testutil.NewDeviceTopology(gwHost,
			testutil.WithHostname("core-gw1"),
			testutil.WithBinding(42, "10.20.0.1", "255.255.255.0"),
		),
		testutil.NewDeviceTopology("10.0.0.9", testutil.WithFailure("sysName", "request timeout")),
	)
}

func TestSaveAndGetSnapshot(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	snap := NewSnapshot(sampleTopology("campus-a"), started, 1500*time.Millisecond)
	if snap.ID == "" {
		t.Fatal("NewSnapshot returned empty ID")
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.GetSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got.Duration)
	}

	want, _ := json.Marshal(snap.Topology)
	have, _ := json.Marshal(got.Topology)
	if !bytes.Equal(want, have) {
		t.Errorf("topology round trip differs:\n%s\n%s", want, have)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("GetSnapshot error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestListSnapshots(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, zone := range []string{"campus-a", "campus-b", "campus-a"} {
		snap := NewSnapshot(sampleTopology(zone), base.Add(time.Duration(i)*time.Hour), time.Second)
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		zone      string
		limit     int
		wantCount int
		wantFirst time.Time
	}{
		{"all zones", "", 0, 3, base.Add(2 * time.Hour)},
		{"one zone", "campus-b", 0, 1, base.Add(time.Hour)},
		{"limited", "campus-a", 1, 1, base.Add(2 * time.Hour)},
		{"unknown zone", "nowhere", 0, 0, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSnapshots(ctx, tt.zone, tt.limit)
			if err != nil {
				t.Fatalf("ListSnapshots: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("ListSnapshots returned %d, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			if !got[0].StartedAt.Equal(tt.wantFirst) {
				t.Errorf("first StartedAt = %v, want %v", got[0].StartedAt, tt.wantFirst)
			}
			if got[0].Devices != 2 || got[0].Partial != 1 || got[0].Subnets != 1 {
				t.Errorf("summary = %+v, want 2 devices, 1 partial, 1 subnet", got[0])
			}
		})
	}
}

func TestLatestSnapshot(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var last *Snapshot
	for i := 0; i < 3; i++ {
		last = NewSnapshot(sampleTopology("campus-a"), base.Add(time.Duration(i)*time.Minute), time.Second)
		if err := s.SaveSnapshot(ctx, last); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	got, err := s.LatestSnapshot(ctx, "campus-a")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got.ID != last.ID {
		t.Errorf("LatestSnapshot ID = %s, want %s", got.ID, last.ID)
	}

	if _, err := s.LatestSnapshot(ctx, "campus-b"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LatestSnapshot(campus-b) error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name       string
		topos      []*models.ZoneTopology
		wantPrefix string
	}{
		{"single zone is an object", []*models.ZoneTopology{sampleTopology("a")}, "{"},
		{"several zones are an array", []*models.ZoneTopology{sampleTopology("a"), sampleTopology("b")}, "["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReport(&buf, tt.topos); err != nil {
				t.Fatalf("WriteReport: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte(tt.wantPrefix)) {
				t.Errorf("report starts with %q, want %q", buf.String()[:1], tt.wantPrefix)
			}
		})
	}
}
