package ozw

import "errors"

// Domain errors for the OpenZWave bridge package.
var (
	// ErrInvalidRequest is returned when a request payload cannot be parsed
	// or is missing a required field.
	ErrInvalidRequest = errors.New("ozw: invalid request")

	// ErrUnknownAction is returned for a request action the bridge does not serve.
	ErrUnknownAction = errors.New("ozw: unknown action")

	// ErrNotFound is returned when a requested node or scene is not tracked.
	ErrNotFound = errors.New("ozw: not found")

	// ErrInvalidNotification is returned when a driver payload cannot be decoded.
	ErrInvalidNotification = errors.New("ozw: invalid driver notification")

	// ErrPublishFailed wraps MQTT publish failures.
	ErrPublishFailed = errors.New("ozw: publish failed")
)
