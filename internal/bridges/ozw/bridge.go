package ozw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/zwave-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zwave-core/internal/nodestore"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// requestTimeout bounds the driver call made while serving one request.
const requestTimeout = 10 * time.Second

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessagePublisher publishes MQTT messages.
type MessagePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// MQTTClient is the interface for MQTT operations. *mqtt.Client satisfies it.
type MQTTClient interface {
	MessagePublisher

	// Subscribe registers a handler for a topic pattern. A returned error is
	// logged by the client.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// NodeHistory serves persisted node history. *nodestore.Store satisfies it.
type NodeHistory interface {
	Get(ctx context.Context, homeID uint32, nodeID uint8) (nodestore.NodeRecord, error)
	List(ctx context.Context, homeID uint32) ([]nodestore.NodeRecord, error)
}

// Bridge connects the core to the broker. It:
//   - decodes driver notifications and controller callbacks and hands them
//     to the core's sinks
//   - serves requests on zwave/request/{id}
//   - runs the core's dispatch loop and the health reporter
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	core    *zwave.Core
	mqtt    MQTTClient
	topics  mqtt.Topics
	qos     byte
	health  *HealthReporter
	history NodeHistory

	ctx      context.Context
	cancel   context.CancelFunc
	ctxMu    sync.RWMutex
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Core is the event core the bridge feeds and serves.
	Core *zwave.Core

	// MQTTClient is the broker connection.
	MQTTClient MQTTClient

	Topics mqtt.Topics
	QoS    byte

	// Version is reported in health messages.
	Version string

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration

	// Metrics optionally receives each health snapshot.
	Metrics StatsObserver

	// History optionally serves the node_history action.
	History NodeHistory

	// DriverProcess is set when the driver daemon is supervised; its state
	// is included in health reports.
	DriverProcess ProcessSource

	// Logger is an optional structured logger.
	Logger Logger
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Core == nil {
		return nil, fmt.Errorf("core is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	b := &Bridge{
		core:    opts.Core,
		mqtt:    opts.MQTTClient,
		topics:  opts.Topics,
		qos:     opts.QoS,
		history: opts.History,
		logger:  opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Topic:     opts.Topics.Health(),
		Publisher: opts.MQTTClient,
		Stats:     opts.Core,
		Observer:  opts.Metrics,
		Process:   opts.DriverProcess,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to the driver and request topics, starts the dispatch
// loop and begins health reporting. Everything stops when ctx is cancelled
// or Stop is called.
func (b *Bridge) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.ctxMu.Lock()
	b.ctx, b.cancel = runCtx, cancel
	b.ctxMu.Unlock()

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	subs := []struct {
		topic   string
		handler func(string, []byte) error
	}{
		{b.topics.DriverNotification(), b.handleNotification},
		{b.topics.DriverController(), b.handleController},
		{b.topics.AllRequests(), b.handleRequest},
	}
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, b.qos, s.handler); err != nil {
			cancel()
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		b.logInfo("subscribed", "topic", s.topic)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.core.Run(runCtx)
	}()

	b.health.Start(runCtx)

	b.logInfo("bridge started",
		"driver_prefix", b.topics.DriverNotification(),
		"commands", len(b.core.CommandNames()))
	return nil
}

// Stop cancels the dispatch loop, waits for it to flush pending records and
// publishes a final health status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxMu.RLock()
		cancel := b.cancel
		b.ctxMu.RUnlock()

		if cancel != nil {
			cancel()
		}
		b.wg.Wait()
		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// runContext returns the context of the running bridge.
func (b *Bridge) runContext() context.Context {
	b.ctxMu.RLock()
	defer b.ctxMu.RUnlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// =============================================================================
// Driver ingress
// =============================================================================

// handleNotification runs on a paho goroutine, which acts as the driver
// context: it never blocks on the consumer.
func (b *Bridge) handleNotification(_ string, payload []byte) error {
	var msg NotificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	b.core.Notify(msg.Record())
	return nil
}

func (b *Bridge) handleController(_ string, payload []byte) error {
	var msg ControllerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	b.core.ControllerStateChanged(*msg.State, msg.Error)
	return nil
}

// =============================================================================
// Request surface
// =============================================================================

// handleRequest serves one request and publishes the response on
// zwave/response/{request_id}.
func (b *Bridge) handleRequest(topic string, payload []byte) error {
	requestID := mqtt.LastSegment(topic)
	if requestID == "" {
		return fmt.Errorf("%w: empty request id on %s", ErrInvalidRequest, topic)
	}

	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return b.respond(NewErrorResponse(requestID, "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)))
	}

	ctx, cancel := context.WithTimeout(b.runContext(), requestTimeout)
	defer cancel()

	data, err := b.serve(ctx, req)
	if err != nil {
		b.logDebug("request failed", "request_id", requestID, "action", req.Action, "error", err)
		return b.respond(NewErrorResponse(requestID, req.Action, err))
	}
	return b.respond(NewSuccessResponse(requestID, req.Action, data))
}

// serve executes one request action.
func (b *Bridge) serve(ctx context.Context, req RequestMessage) (any, error) {
	switch req.Action {
	case ActionBeginControllerCommand:
		if req.Command == "" {
			return nil, fmt.Errorf("%w: command is required", ErrInvalidRequest)
		}
		id, err := b.core.BeginControllerCommand(ctx, req.Command, req.NodeID)
		if err != nil {
			return nil, err
		}
		return CommandStarted{CommandID: id, Command: req.Command, NodeID: req.NodeID}, nil

	case ActionCancelControllerCommand:
		err := b.core.CancelControllerCommand(ctx)
		if errors.Is(err, zwave.ErrNoCommandInProgress) {
			return CancelResult{Reason: "no command in progress"}, nil
		}
		if err != nil {
			return nil, err
		}
		return CancelResult{Cancelled: true}, nil

	case ActionGetNode:
		homeID := req.HomeID
		if homeID == 0 {
			homeID = b.core.HomeID()
		}
		node, ok := b.core.LookupNode(homeID, req.NodeID)
		if !ok {
			return nil, fmt.Errorf("%w: node %d in home %s", ErrNotFound, req.NodeID, FormatHomeID(homeID))
		}
		return node, nil

	case ActionListNodes:
		return b.core.ListNodes(), nil

	case ActionGetScene:
		scene, ok := b.core.LookupScene(req.SceneID)
		if !ok {
			return nil, fmt.Errorf("%w: scene %d", ErrNotFound, req.SceneID)
		}
		return scene, nil

	case ActionListScenes:
		return b.core.ListScenes(), nil

	case ActionCreateScene:
		id, err := b.core.CreateScene(req.Label)
		if err != nil {
			return nil, err
		}
		return map[string]uint8{"scene_id": id}, nil

	case ActionRemoveScene:
		if !b.core.RemoveScene(req.SceneID) {
			return nil, fmt.Errorf("%w: scene %d", ErrNotFound, req.SceneID)
		}
		return nil, nil

	case ActionAddSceneValue, ActionRemoveSceneValue:
		if req.Value == nil {
			return nil, fmt.Errorf("%w: value is required", ErrInvalidRequest)
		}
		apply := b.core.AddSceneValue
		if req.Action == ActionRemoveSceneValue {
			apply = b.core.RemoveSceneValue
		}
		if !apply(req.SceneID, *req.Value) {
			return nil, fmt.Errorf("%w: scene %d", ErrNotFound, req.SceneID)
		}
		return nil, nil

	case ActionResolveCommand:
		cmd, err := b.core.ResolveCommandName(req.Command)
		if err != nil {
			return nil, err
		}
		return ResolvedCommand{Command: req.Command, Code: uint8(cmd)}, nil

	case ActionListCommands:
		return b.core.CommandNames(), nil

	case ActionQueueStats:
		return b.core.Stats(), nil

	case ActionNodeHistory:
		return b.nodeHistory(ctx, req)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func (b *Bridge) nodeHistory(ctx context.Context, req RequestMessage) (any, error) {
	if b.history == nil {
		return nil, fmt.Errorf("%w: node history is disabled", ErrUnknownAction)
	}
	homeID := req.HomeID
	if homeID == 0 {
		homeID = b.core.HomeID()
	}
	if req.NodeID == 0 {
		return b.history.List(ctx, homeID)
	}

	rec, err := b.history.Get(ctx, homeID, req.NodeID)
	if errors.Is(err, nodestore.ErrNodeNotFound) {
		return nil, fmt.Errorf("%w: no history for node %d", ErrNotFound, req.NodeID)
	}
	return rec, err
}

func (b *Bridge) respond(resp ResponseMessage) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := b.mqtt.Publish(b.topics.Response(resp.RequestID), payload, b.qos, false); err != nil {
		return fmt.Errorf("%w: response %s: %w", ErrPublishFailed, resp.RequestID, err)
	}
	return nil
}

// =============================================================================
// Logging helpers
// =============================================================================

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if b.logger != nil {
		b.logger.Error(msg, "error", err)
	}
}
