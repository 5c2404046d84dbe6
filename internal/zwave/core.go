package zwave

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the core.
// It is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NotificationSink is the capability handed to the driver for raw
// notifications. Notify never blocks on the consumer and never fails.
type NotificationSink interface {
	Notify(rec EventRecord)
}

// ControllerStateSink is the capability handed to the driver for controller
// command progress callbacks.
type ControllerStateSink interface {
	ControllerStateChanged(state ControllerState, cerr ControllerError)
}

// Driver is the part of the Z-Wave stack the core calls into.
type Driver interface {
	// BeginControllerCommand starts a long-running controller command.
	// Progress is reported later through the ControllerStateSink.
	BeginControllerCommand(ctx context.Context, cmd ControllerCommand, nodeID uint8) error

	// CancelControllerCommand asks the controller to abort the running command.
	CancelControllerCommand(ctx context.Context) error
}

// Options holds the collaborators of a Core.
type Options struct {
	// Driver receives controller commands. Optional; without it controller
	// commands fail with ErrDriverUnavailable.
	Driver Driver

	// Deliverer receives every dispatched event. Optional.
	Deliverer Deliverer

	// Logger is an optional structured logger.
	Logger Logger

	// Commands is the driver's command enumeration. Defaults to DefaultCommands().
	Commands []CommandEntry

	// QueueWarnDepth logs a warning when a single wake drains at least this
	// many records. Zero disables the warning. It never limits the queue.
	QueueWarnDepth int
}

// Core is the context object for one driver connection. It owns the
// notification queue, wakeup signal, node and scene caches, command tracker
// and command table.
//
// The driver side talks to it through NotificationSink and
// ControllerStateSink; a single consumer goroutine runs Run (or calls
// DispatchPending) to drain and dispatch.
//
// Thread Safety: All methods are safe for concurrent use. Run must only be
// active in one goroutine at a time.
type Core struct {
	queue    *Queue
	wakeup   *Wakeup
	nodes    *NodeCache
	scenes   *SceneCache
	tracker  *CommandTracker
	commands *CommandTable

	driver    Driver
	deliverer Deliverer
	logger    Logger
	warnDepth int

	homeID         atomic.Uint32
	sequence       atomic.Uint64
	dispatched     atomic.Uint64
	deliveryErrors atomic.Uint64
}

// New creates a core with empty caches and an idle tracker.
func New(opts Options) *Core {
	commands := opts.Commands
	if commands == nil {
		commands = DefaultCommands()
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Core{
		queue:     NewQueue(),
		wakeup:    NewWakeup(),
		nodes:     NewNodeCache(),
		scenes:    NewSceneCache(),
		tracker:   NewCommandTracker(),
		commands:  NewCommandTable(commands),
		driver:    opts.Driver,
		deliverer: opts.Deliverer,
		logger:    logger,
		warnDepth: opts.QueueWarnDepth,
	}
}

// =============================================================================
// Driver-facing sinks
// =============================================================================

// Notify implements NotificationSink. It enqueues the record and raises the
// wakeup signal.
func (c *Core) Notify(rec EventRecord) {
	c.queue.Enqueue(rec)
	c.wakeup.Signal()
}

// ControllerStateChanged implements ControllerStateSink. The callback is
// turned into a controller-command record so it is ordered with every other
// notification.
func (c *Core) ControllerStateChanged(state ControllerState, cerr ControllerError) {
	c.Notify(NewControllerRecord(c.homeID.Load(), state, cerr))
}

// NotificationSink returns the notification capability for the driver.
func (c *Core) NotificationSink() NotificationSink { return c }

// ControllerStateSink returns the controller-state capability for the driver.
func (c *Core) ControllerStateSink() ControllerStateSink { return c }

// =============================================================================
// Consumer side
// =============================================================================

// Run dispatches notifications until ctx is cancelled. Records still queued
// at cancellation are dispatched before Run returns.
func (c *Core) Run(ctx context.Context) {
	c.logger.Info("dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			if n := c.DispatchPending(context.WithoutCancel(ctx)); n > 0 {
				c.logger.Info("dispatched pending records on shutdown", "count", n)
			}
			c.logger.Info("dispatch loop stopped")
			return
		case <-c.wakeup.C():
			c.DispatchPending(ctx)
		}
	}
}

// DispatchPending drains the queue and dispatches every record in order.
// It is one wake cycle of the dispatch loop.
//
// Returns:
//   - int: number of records dispatched
func (c *Core) DispatchPending(ctx context.Context) int {
	records := c.queue.DrainAll()
	if len(records) == 0 {
		return 0
	}

	if c.warnDepth > 0 && len(records) >= c.warnDepth {
		c.logger.Warn("notification backlog",
			"records", len(records),
			"warn_depth", c.warnDepth)
	}

	for i := range records {
		c.dispatch(ctx, records[i])
		records[i] = EventRecord{}
	}
	return len(records)
}

// dispatch applies one record and hands it to the deliverer.
func (c *Core) dispatch(ctx context.Context, rec EventRecord) {
	ev := c.apply(rec)
	c.dispatched.Add(1)

	if c.deliverer == nil {
		return
	}
	if err := c.deliverer.Deliver(ctx, ev); err != nil {
		c.deliveryErrors.Add(1)
		c.logger.Error("event delivery failed",
			"event", ev.Name,
			"sequence", ev.Sequence,
			"error", err)
	}
}

// =============================================================================
// Request surface
// =============================================================================

// BeginControllerCommand resolves name and starts it on the driver.
//
// Parameters:
//   - ctx: Context for the driver call
//   - name: Command name from the command table (e.g., "AddDevice")
//   - nodeID: Target node for node-specific commands, 0 otherwise
//
// Returns:
//   - uuid.UUID: correlation ID reported with the command's progress events
//   - error: ErrUnknownCommand, ErrAlreadyInProgress, ErrDriverUnavailable,
//     or the driver's error
func (c *Core) BeginControllerCommand(ctx context.Context, name string, nodeID uint8) (uuid.UUID, error) {
	cmd, err := c.commands.Resolve(name)
	if err != nil {
		return uuid.Nil, err
	}
	// "None" is the driver's idle marker, not a runnable command.
	if cmd == CommandNone {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	if c.driver == nil {
		return uuid.Nil, ErrDriverUnavailable
	}

	id, err := c.tracker.Begin(name)
	if err != nil {
		return uuid.Nil, err
	}

	if err := c.driver.BeginControllerCommand(ctx, cmd, nodeID); err != nil {
		c.tracker.Abort(id)
		return uuid.Nil, fmt.Errorf("beginning %s: %w", name, err)
	}

	c.logger.Info("controller command started",
		"command", name,
		"command_id", id.String(),
		"node_id", nodeID)
	return id, nil
}

// CancelControllerCommand asks the driver to cancel the in-flight command.
// When idle it returns ErrNoCommandInProgress, which callers should report
// rather than treat as a failure.
func (c *Core) CancelControllerCommand(ctx context.Context) error {
	active, err := c.tracker.Cancel()
	if err != nil {
		c.logger.Debug("cancel requested while idle")
		return err
	}

	if c.driver == nil {
		return ErrDriverUnavailable
	}

	if err := c.driver.CancelControllerCommand(ctx); err != nil {
		return fmt.Errorf("cancelling %s: %w", active.Name, err)
	}

	c.logger.Info("controller command cancel requested",
		"command", active.Name,
		"command_id", active.ID.String())
	return nil
}

// ResolveCommandName returns the identifier for a command name.
func (c *Core) ResolveCommandName(name string) (ControllerCommand, error) {
	return c.commands.Resolve(name)
}

// CommandNames returns every known command name, sorted.
func (c *Core) CommandNames() []string {
	return c.commands.Names()
}

// ActiveCommand returns the in-flight controller command, if any.
func (c *Core) ActiveCommand() (ActiveCommand, bool) {
	return c.tracker.Current()
}

// LookupNode returns a snapshot of the node, or false if it is not tracked.
func (c *Core) LookupNode(homeID uint32, nodeID uint8) (NodeEntry, bool) {
	return c.nodes.Lookup(homeID, nodeID)
}

// ListNodes returns snapshots of all tracked nodes.
func (c *Core) ListNodes() []NodeEntry {
	return c.nodes.List()
}

// LookupScene returns a snapshot of the scene, or false if it is not tracked.
func (c *Core) LookupScene(sceneID uint8) (SceneEntry, bool) {
	return c.scenes.Lookup(sceneID)
}

// ListScenes returns snapshots of all scenes.
func (c *Core) ListScenes() []SceneEntry {
	return c.scenes.List()
}

// CreateScene stores a new scene with the lowest free ID.
func (c *Core) CreateScene(label string) (uint8, error) {
	return c.scenes.Create(0, label)
}

// RemoveScene deletes a scene. Unknown IDs return false.
func (c *Core) RemoveScene(sceneID uint8) bool {
	return c.scenes.Remove(sceneID)
}

// AddSceneValue adds a value to a scene. Unknown IDs return false.
func (c *Core) AddSceneValue(sceneID uint8, v ValueID) bool {
	return c.scenes.AddValue(sceneID, v)
}

// RemoveSceneValue removes a value from a scene. Unknown IDs return false.
func (c *Core) RemoveSceneValue(sceneID uint8, v ValueID) bool {
	return c.scenes.RemoveValue(sceneID, v)
}

// HomeID returns the home ID reported by the last DriverReady notification.
func (c *Core) HomeID() uint32 {
	return c.homeID.Load()
}

// Stats contains counters for health reporting.
type Stats struct {
	HomeID         uint32         `json:"home_id"`
	Queue          QueueStats     `json:"queue"`
	Dispatched     uint64         `json:"dispatched"`
	DeliveryErrors uint64         `json:"delivery_errors"`
	Nodes          int            `json:"nodes"`
	Scenes         int            `json:"scenes"`
	ActiveCommand  *ActiveCommand `json:"active_command,omitempty"`
}

// Stats returns a snapshot of the core's counters.
func (c *Core) Stats() Stats {
	s := Stats{
		HomeID:         c.homeID.Load(),
		Queue:          c.queue.Stats(),
		Dispatched:     c.dispatched.Load(),
		DeliveryErrors: c.deliveryErrors.Load(),
		Nodes:          c.nodes.Len(),
		Scenes:         c.scenes.Len(),
	}
	if active, ok := c.tracker.Current(); ok {
		s.ActiveCommand = &active
	}
	return s
}
