package recon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsQuietHours(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		start     string
		end       string
		wantQuiet bool
	}{
		{
			name:      "empty strings returns false",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "",
			end:       "",
			wantQuiet: false,
		},
		{
			name:      "only start set returns false",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "",
			wantQuiet: false,
		},
		{
			name:      "only end set returns false",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "",
			end:       "06:00",
			wantQuiet: false,
		},
		{
			name:      "same-day range: inside quiet hours",
			now:       time.Date(2026, 2, 16, 10, 30, 0, 0, time.UTC),
			start:     "09:00",
			end:       "17:00",
			wantQuiet: true,
		},
		{
			name:      "same-day range: before quiet hours",
			now:       time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC),
			start:     "09:00",
			end:       "17:00",
			wantQuiet: false,
		},
		{
			name:      "same-day range: after quiet hours",
			now:       time.Date(2026, 2, 16, 18, 0, 0, 0, time.UTC),
			start:     "09:00",
			end:       "17:00",
			wantQuiet: false,
		},
		{
			name:      "same-day range: at start boundary",
			now:       time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC),
			start:     "09:00",
			end:       "17:00",
			wantQuiet: true,
		},
		{
			name:      "same-day range: at end boundary (exclusive)",
			now:       time.Date(2026, 2, 16, 17, 0, 0, 0, time.UTC),
			start:     "09:00",
			end:       "17:00",
			wantQuiet: false,
		},
		{
			name:      "overnight range: late at night (inside)",
			now:       time.Date(2026, 2, 16, 23, 30, 0, 0, time.UTC),
			start:     "23:00",
			end:       "06:00",
			wantQuiet: true,
		},
		{
			name:      "overnight range: early morning (inside)",
			now:       time.Date(2026, 2, 16, 3, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "06:00",
			wantQuiet: true,
		},
		{
			name:      "overnight range: afternoon (outside)",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "06:00",
			wantQuiet: false,
		},
		{
			name:      "overnight range: at start boundary",
			now:       time.Date(2026, 2, 16, 23, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "06:00",
			wantQuiet: true,
		},
		{
			name:      "overnight range: at end boundary (exclusive)",
			now:       time.Date(2026, 2, 16, 6, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "06:00",
			wantQuiet: false,
		},
		{
			name:      "invalid start format returns false",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "not-a-time",
			end:       "06:00",
			wantQuiet: false,
		},
		{
			name:      "invalid end format returns false",
			now:       time.Date(2026, 2, 16, 14, 0, 0, 0, time.UTC),
			start:     "23:00",
			end:       "bad",
			wantQuiet: false,
		},
		{
			name:      "midnight to midnight is always quiet",
			now:       time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC),
			start:     "00:00",
			end:       "00:00",
			wantQuiet: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isQuietHours(tt.now, tt.start, tt.end)
			if got != tt.wantQuiet {
				t.Errorf("isQuietHours(%s, %q, %q) = %v, want %v",
					tt.now.Format("15:04"), tt.start, tt.end, got, tt.wantQuiet)
			}
		})
	}
}

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		input   string
		wantMin int
		wantOK  bool
	}{
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"12:30", 750, true},
		{"06:00", 360, true},
		{"bad", 0, false},
		{"25:00", 0, false},
		{"12:60", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			gotMin, gotOK := parseHHMM(tt.input)
			if gotOK != tt.wantOK {
				t.Errorf("parseHHMM(%q) ok = %v, want %v", tt.input, gotOK, tt.wantOK)
			}
			if gotOK && gotMin != tt.wantMin {
				t.Errorf("parseHHMM(%q) = %d, want %d", tt.input, gotMin, tt.wantMin)
			}
		})
	}
}

// countingRun returns a run func and a counter of its calls. Each call
// blocks until block is closed, when block is non-nil.
func countingRun(block <-chan struct{}) (func(context.Context), *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) {
		calls.Add(1)
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
			}
		}
	}, &calls
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	run, calls := countingRun(nil)
	sched := NewScheduler(ScheduleConfig{Interval: 20 * time.Millisecond}, run, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop within 2 seconds after context cancellation")
	}
	if calls.Load() == 0 {
		t.Error("run was never called")
	}
}

func TestScheduler_StopMethodTerminatesRun(t *testing.T) {
	run, _ := countingRun(nil)
	sched := NewScheduler(ScheduleConfig{Interval: 20 * time.Millisecond}, run, nil)

	done := make(chan struct{})
	go func() {
		sched.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	sched.Stop()
	sched.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop within 2 seconds after Stop()")
	}
}

func TestScheduler_SkipsQuietHours(t *testing.T) {
	run, calls := countingRun(nil)
	sched := NewScheduler(ScheduleConfig{
		Interval:   time.Hour,
		QuietStart: "00:00",
		QuietEnd:   "23:59",
	}, run, nil)
	sched.nowFunc = func() time.Time {
		return time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	}

	if sched.tick(context.Background()) {
		t.Error("tick() inside quiet hours started a run")
	}
	sched.wg.Wait()
	if got := calls.Load(); got != 0 {
		t.Errorf("run calls = %d, want 0", got)
	}
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	block := make(chan struct{})
	run, calls := countingRun(block)
	sched := NewScheduler(ScheduleConfig{Interval: time.Hour}, run, nil)
	ctx := context.Background()

	if !sched.tick(ctx) {
		t.Fatal("first tick() did not start a run")
	}
	if sched.tick(ctx) {
		t.Error("second tick() started a run while one was in progress")
	}

	close(block)
	sched.wg.Wait()

	if !sched.tick(ctx) {
		t.Error("tick() after the run finished did not start a run")
	}
	sched.wg.Wait()
	if got := calls.Load(); got != 2 {
		t.Errorf("run calls = %d, want 2", got)
	}
}
