package ozw

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/zwave-core/internal/process"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

const defaultHealthInterval = 30 * time.Second

// StatsSource provides the counters reported in health messages.
// *zwave.Core satisfies it.
type StatsSource interface {
	Stats() zwave.Stats
}

// StatsObserver is notified with every stats snapshot the reporter takes.
type StatsObserver interface {
	ObserveStats(stats zwave.Stats)
}

// ProcessSource reports on a supervised driver daemon.
// *process.Supervisor satisfies it.
type ProcessSource interface {
	Stats() process.Stats
}

// HealthReporter publishes the bridge's health, retained, at a fixed interval.
type HealthReporter struct {
	version   string
	startTime time.Time
	interval  time.Duration
	topic     string
	publisher MessagePublisher
	stats     StatsSource
	observer  StatsObserver
	process   ProcessSource

	// lastErrors is the delivery error count at the previous report.
	lastErrors uint64
	lastMu     sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	Version string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	// Topic is the retained health topic.
	Topic string

	Publisher MessagePublisher
	Stats     StatsSource

	// Observer is optional; it receives each snapshot (e.g. for metrics).
	Observer StatsObserver

	// Process is set when the driver daemon runs under supervision.
	Process ProcessSource
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		topic:     cfg.Topic,
		publisher: cfg.Publisher,
		stats:     cfg.Stats,
		observer:  cfg.Observer,
		process:   cfg.Process,
		done:      make(chan struct{}),
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow evaluates and publishes the current status.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus is degraded when the broker is unreachable, a supervised
// driver daemon is down, or deliveries failed since the previous report.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}

	if h.process != nil {
		if ps := h.process.Stats(); ps.State != process.StateRunning {
			return HealthDegraded, "driver process " + string(ps.State)
		}
	}

	if h.stats != nil {
		current := h.stats.Stats().DeliveryErrors

		h.lastMu.Lock()
		previous := h.lastErrors
		h.lastErrors = current
		h.lastMu.Unlock()

		if current > previous {
			return HealthDegraded, "event delivery failing"
		}
	}

	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	var stats zwave.Stats
	if h.stats != nil {
		stats = h.stats.Stats()
		if h.observer != nil {
			h.observer.ObserveStats(stats)
		}
	}

	msg := NewHealthMessage(status, h.version, h.startTime, stats)
	msg.Reason = reason
	if h.process != nil {
		ps := h.process.Stats()
		msg.DriverProcess = &ps
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
