package zwave

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActiveCommand describes the controller command currently in flight.
type ActiveCommand struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	StartedAt time.Time       `json:"started_at"`
	LastState ControllerState `json:"last_state"`
}

// CommandTracker correlates controller state callbacks with the single
// in-flight controller command.
//
// States are Idle and InProgress(name). Begin moves Idle → InProgress; any
// terminal controller state, or any state carrying an error, moves back to
// Idle. There is no timeout: a driver that never reports a terminal state
// keeps the tracker busy.
//
// Thread Safety: All methods are safe for concurrent use.
type CommandTracker struct {
	mu     sync.Mutex
	active *ActiveCommand
	now    func() time.Time
}

// NewCommandTracker creates an idle tracker.
func NewCommandTracker() *CommandTracker {
	return &CommandTracker{now: time.Now}
}

// Begin marks name as the in-flight command.
//
// Returns:
//   - uuid.UUID: correlation ID for the new command
//   - error: ErrAlreadyInProgress if another command is in flight
func (t *CommandTracker) Begin(name string) (uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrAlreadyInProgress, t.active.Name)
	}

	t.active = &ActiveCommand{
		ID:        uuid.New(),
		Name:      name,
		StartedAt: t.now(),
		LastState: ControllerStateStarting,
	}
	return t.active.ID, nil
}

// Abort returns to Idle if id is the in-flight command. It is used when the
// driver refuses to start a command that Begin already accepted.
func (t *CommandTracker) Abort(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil && t.active.ID == id {
		t.active = nil
	}
}

// Cancel checks that a command is in flight so the caller can ask the driver
// to cancel it. The tracker itself stays InProgress until the driver reports
// the terminal Cancel state.
//
// Returns:
//   - ActiveCommand: the command being cancelled
//   - error: ErrNoCommandInProgress when idle
func (t *CommandTracker) Cancel() (ActiveCommand, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return ActiveCommand{}, ErrNoCommandInProgress
	}
	return *t.active, nil
}

// OnControllerState applies a controller state callback.
//
// Callbacks that arrive while Idle are ignored.
//
// Returns:
//   - ActiveCommand: the command the callback belongs to (zero when idle)
//   - bool: true if this callback finished the command
func (t *CommandTracker) OnControllerState(state ControllerState, cerr ControllerError) (ActiveCommand, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return ActiveCommand{}, false
	}

	t.active.LastState = state
	cmd := *t.active

	if state.IsTerminal() || cerr != ControllerErrorNone {
		t.active = nil
		return cmd, true
	}
	return cmd, false
}

// Current returns the in-flight command, or false when idle.
func (t *CommandTracker) Current() (ActiveCommand, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return ActiveCommand{}, false
	}
	return *t.active, true
}

// Busy reports whether a command is in flight.
func (t *CommandTracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}
