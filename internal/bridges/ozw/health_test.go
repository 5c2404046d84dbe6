package ozw

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/zwave-core/internal/process"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// fakeStats is a StatsSource with settable counters.
type fakeStats struct {
	mu    sync.Mutex
	stats zwave.Stats
}

func (f *fakeStats) Stats() zwave.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeStats) setDeliveryErrors(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.DeliveryErrors = n
}

// recordingObserver counts ObserveStats calls.
type recordingObserver struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingObserver) ObserveStats(zwave.Stats) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	m := NewMockMQTTClient()
	stats := &fakeStats{}
	h := NewHealthReporter(HealthReporterConfig{Publisher: m, Stats: stats, Topic: "zwave/health"})

	tests := []struct {
		name       string
		connected  bool
		errors     uint64
		wantStatus HealthStatus
	}{
		{"healthy", true, 0, HealthHealthy},
		{"delivery errors since last report", true, 2, HealthDegraded},
		{"no new delivery errors", true, 2, HealthHealthy},
		{"broker disconnected", false, 2, HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetConnected(tt.connected)
			stats.setDeliveryErrors(tt.errors)

			status, reason := h.determineStatus()
			if status != tt.wantStatus {
				t.Errorf("status = %s (%s), want %s", status, reason, tt.wantStatus)
			}
			if status == HealthDegraded && reason == "" {
				t.Error("degraded status without reason")
			}
		})
	}
}

type fakeProcess struct {
	mu    sync.Mutex
	stats process.Stats
}

func (f *fakeProcess) Stats() process.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeProcess) setState(s process.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.State = s
}

func TestHealthReporter_DriverProcess(t *testing.T) {
	m := NewMockMQTTClient()
	proc := &fakeProcess{stats: process.Stats{Name: "zwave-driver", PID: 4242, Restarts: 1}}
	h := NewHealthReporter(HealthReporterConfig{Publisher: m, Stats: &fakeStats{}, Process: proc, Topic: "zwave/health"})

	tests := []struct {
		state      process.State
		wantStatus HealthStatus
		wantReason string
	}{
		{process.StateRunning, HealthHealthy, ""},
		{process.StateBackoff, HealthDegraded, "driver process backoff"},
		{process.StateFailed, HealthDegraded, "driver process failed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			proc.setState(tt.state)
			status, reason := h.determineStatus()
			if status != tt.wantStatus || reason != tt.wantReason {
				t.Errorf("determineStatus() = %s, %q; want %s, %q", status, reason, tt.wantStatus, tt.wantReason)
			}
		})
	}

	proc.setState(process.StateRunning)
	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
	msgs := m.PublishedOn("zwave/health")
	if len(msgs) != 1 {
		t.Fatalf("health publishes = %d, want 1", len(msgs))
	}
	var msg HealthMessage
	if err := json.Unmarshal(msgs[0].Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.DriverProcess == nil || msg.DriverProcess.PID != 4242 || msg.DriverProcess.State != process.StateRunning {
		t.Errorf("driver_process = %+v", msg.DriverProcess)
	}
}

func TestHealthReporter_PublishContents(t *testing.T) {
	m := NewMockMQTTClient()
	obs := &recordingObserver{}
	active := &zwave.ActiveCommand{ID: uuid.New(), Name: "AddDevice", LastState: zwave.ControllerStateWaiting}
	stats := &fakeStats{stats: zwave.Stats{
		HomeID:        testHome,
		Queue:         zwave.QueueStats{Depth: 2, HighWater: 40, Enqueued: 300},
		Dispatched:    298,
		Nodes:         6,
		Scenes:        1,
		ActiveCommand: active,
	}}

	h := NewHealthReporter(HealthReporterConfig{
		Version:   "1.2.3",
		Topic:     "zwave/health",
		Publisher: m,
		Stats:     stats,
		Observer:  obs,
	})

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msgs := m.PublishedOn("zwave/health")
	if len(msgs) != 1 || !msgs[0].Retained || msgs[0].QoS != 1 {
		t.Fatalf("health publishes = %+v", msgs)
	}

	var msg HealthMessage
	if err := json.Unmarshal(msgs[0].Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Status != HealthHealthy || msg.Version != "1.2.3" {
		t.Errorf("status=%s version=%s", msg.Status, msg.Version)
	}
	if msg.HomeID != "0xc0ffee01" || msg.Queue.HighWater != 40 || msg.Nodes != 6 {
		t.Errorf("message = %+v", msg)
	}
	if msg.ActiveCommand == nil || msg.ActiveCommand.Name != "AddDevice" || msg.ActiveCommand.LastState != zwave.ControllerStateWaiting {
		t.Errorf("active command = %+v", msg.ActiveCommand)
	}
	if obs.count() != 1 {
		t.Errorf("observer calls = %d, want 1", obs.count())
	}
	if msg.DriverProcess != nil {
		t.Errorf("driver_process = %+v, want omitted when unsupervised", msg.DriverProcess)
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	m := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		Interval:  10 * time.Millisecond,
		Topic:     "zwave/health",
		Publisher: m,
		Stats:     &fakeStats{},
	})

	h.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for len(m.PublishedOn("zwave/health")) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.Stop()
	h.Stop()

	msgs := m.PublishedOn("zwave/health")
	if len(msgs) < 3 {
		t.Fatalf("health publishes = %d, want >= 3", len(msgs))
	}
	var last HealthMessage
	json.Unmarshal(msgs[len(msgs)-1].Payload, &last) //nolint:errcheck
	if last.Status != HealthStopping {
		t.Errorf("last status = %s, want stopping", last.Status)
	}
}

func TestHealthReporter_DefaultInterval(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher error = %v", err)
	}
}
