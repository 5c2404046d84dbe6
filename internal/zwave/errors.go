package zwave

import "errors"

// Domain errors for the event core.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyInProgress is returned when a controller command is started
	// while another one is still in flight. Callers should retry later.
	ErrAlreadyInProgress = errors.New("zwave: controller command already in progress")

	// ErrNoCommandInProgress is returned when cancelling while no controller
	// command is in flight. It is informational, never fatal.
	ErrNoCommandInProgress = errors.New("zwave: no controller command in progress")

	// ErrUnknownCommand is returned when a controller command name is not in
	// the command table.
	ErrUnknownCommand = errors.New("zwave: unknown controller command")

	// ErrUnknownNotification is returned when a notification name cannot be
	// mapped to a NotificationType.
	ErrUnknownNotification = errors.New("zwave: unknown notification type")

	// ErrSceneExists is returned when creating a scene whose ID is taken.
	ErrSceneExists = errors.New("zwave: scene already exists")

	// ErrSceneLimit is returned when every scene ID is in use.
	ErrSceneLimit = errors.New("zwave: no free scene id")

	// ErrDriverUnavailable is returned when a driver call is needed but no
	// driver has been attached to the core.
	ErrDriverUnavailable = errors.New("zwave: driver not attached")
)
