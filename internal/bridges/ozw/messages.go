package ozw

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/zwave-core/internal/process"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// MQTT message types exchanged with the driver daemon and with consumers.
// Enumerations (notification type, controller state and error) travel as
// their driver names, e.g. "ValueChanged" or "InProgress".

// NotificationMessage is published by the driver for every raw notification.
// Topic: zwave/driver/notification
type NotificationMessage struct {
	Type   *zwave.NotificationType `json:"type"`
	HomeID uint32                  `json:"home_id"`
	NodeID uint8                   `json:"node_id"`

	// GroupIndex is only present on Group notifications.
	GroupIndex *uint8 `json:"group_index,omitempty"`

	Event        uint8 `json:"event,omitempty"`
	ButtonID     uint8 `json:"button_id,omitempty"`
	SceneID      uint8 `json:"scene_id,omitempty"`
	Notification uint8 `json:"notification,omitempty"`

	Values []zwave.ValueID `json:"values,omitempty"`
}

// Validate checks the fields every notification must carry.
func (m *NotificationMessage) Validate() error {
	if m.Type == nil {
		return fmt.Errorf("%w: missing type", ErrInvalidNotification)
	}
	return nil
}

// Record converts a validated message into the core's EventRecord.
func (m *NotificationMessage) Record() zwave.EventRecord {
	rec := zwave.EventRecord{
		Type:             *m.Type,
		HomeID:           m.HomeID,
		NodeID:           m.NodeID,
		Event:            m.Event,
		ButtonID:         m.ButtonID,
		SceneID:          m.SceneID,
		NotificationCode: m.Notification,
		Values:           m.Values,
	}
	if m.GroupIndex != nil {
		rec.GroupIndex = *m.GroupIndex
		rec.HasGroup = true
	}
	// The driver reports controller progress in the event byte and the
	// controller error in the notification byte.
	if rec.Type == zwave.NotificationControllerCommand {
		rec.ControllerState = zwave.ControllerState(m.Event)
		rec.ControllerError = zwave.ControllerError(m.Notification)
	}
	return rec
}

// ControllerMessage is published by the driver for controller command
// progress callbacks.
// Topic: zwave/driver/controller
type ControllerMessage struct {
	State *zwave.ControllerState `json:"state"`
	Error zwave.ControllerError  `json:"error"`
}

// Validate checks that a state is present; a missing error means None.
func (m *ControllerMessage) Validate() error {
	if m.State == nil {
		return fmt.Errorf("%w: missing controller state", ErrInvalidNotification)
	}
	return nil
}

// Driver command actions.
const (
	DriverActionBegin  = "begin"
	DriverActionCancel = "cancel"
)

// DriverCommandMessage is published by the core to start or cancel a
// controller command on the driver.
// Topic: zwave/driver/command
type DriverCommandMessage struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Command     string    `json:"command,omitempty"`
	CommandCode uint8     `json:"command_code,omitempty"`
	NodeID      uint8     `json:"node_id,omitempty"`
}

// Request actions served on zwave/request/{request_id}.
const (
	ActionBeginControllerCommand  = "begin_controller_command"
	ActionCancelControllerCommand = "cancel_controller_command"
	ActionGetNode                 = "get_node"
	ActionListNodes               = "list_nodes"
	ActionGetScene                = "get_scene"
	ActionListScenes              = "list_scenes"
	ActionCreateScene             = "create_scene"
	ActionRemoveScene             = "remove_scene"
	ActionAddSceneValue           = "add_scene_value"
	ActionRemoveSceneValue        = "remove_scene_value"
	ActionResolveCommand          = "resolve_command"
	ActionListCommands            = "list_commands"
	ActionQueueStats              = "queue_stats"
	ActionNodeHistory             = "node_history"
)

// RequestMessage is published by a consumer to query or drive the core.
// Which fields matter depends on Action.
type RequestMessage struct {
	Action  string         `json:"action"`
	Command string         `json:"command,omitempty"`
	HomeID  uint32         `json:"home_id,omitempty"`
	NodeID  uint8          `json:"node_id,omitempty"`
	SceneID uint8          `json:"scene_id,omitempty"`
	Label   string         `json:"label,omitempty"`
	Value   *zwave.ValueID `json:"value,omitempty"`
}

// ResponseMessage answers a request.
// Topic: zwave/response/{request_id}
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action,omitempty"`
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError carries the failure of a request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed requests.
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUnknownAction     = "UNKNOWN_ACTION"
	ErrCodeUnknownCommand    = "UNKNOWN_COMMAND"
	ErrCodeBusy              = "ALREADY_IN_PROGRESS"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeSceneLimit        = "SCENE_LIMIT"
	ErrCodeDriverUnavailable = "DRIVER_UNAVAILABLE"
	ErrCodeDriverError       = "DRIVER_ERROR"
)

// errorCode maps an error to its response code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return ErrCodeInvalidRequest
	case errors.Is(err, ErrUnknownAction):
		return ErrCodeUnknownAction
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, zwave.ErrUnknownCommand):
		return ErrCodeUnknownCommand
	case errors.Is(err, zwave.ErrAlreadyInProgress):
		return ErrCodeBusy
	case errors.Is(err, zwave.ErrSceneLimit):
		return ErrCodeSceneLimit
	case errors.Is(err, zwave.ErrDriverUnavailable):
		return ErrCodeDriverUnavailable
	default:
		return ErrCodeDriverError
	}
}

// NewSuccessResponse builds a successful response.
func NewSuccessResponse(requestID, action string, data any) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Success:   true,
		Data:      data,
	}
}

// NewErrorResponse builds a failed response from err.
func NewErrorResponse(requestID, action string, err error) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Error: &ResponseError{
			Code:    errorCode(err),
			Message: err.Error(),
		},
	}
}

// CommandStarted is the data of a successful begin_controller_command.
type CommandStarted struct {
	CommandID uuid.UUID `json:"command_id"`
	Command   string    `json:"command"`
	NodeID    uint8     `json:"node_id,omitempty"`
}

// CancelResult is the data of cancel_controller_command. Cancelled is false
// when nothing was in flight.
type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	Reason    string `json:"reason,omitempty"`
}

// ResolvedCommand is the data of resolve_command.
type ResolvedCommand struct {
	Command string `json:"command"`
	Code    uint8  `json:"code"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the broker link or delivery is failing.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is initialising.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published periodically, retained.
// Topic: zwave/health
type HealthMessage struct {
	Status         HealthStatus         `json:"status"`
	Timestamp      time.Time            `json:"timestamp"`
	Version        string               `json:"version"`
	UptimeSeconds  int64                `json:"uptime_seconds"`
	Reason         string               `json:"reason,omitempty"`
	HomeID         string               `json:"home_id,omitempty"`
	Queue          zwave.QueueStats     `json:"queue"`
	Dispatched     uint64               `json:"dispatched"`
	DeliveryErrors uint64               `json:"delivery_errors"`
	Nodes          int                  `json:"nodes"`
	Scenes         int                  `json:"scenes"`
	ActiveCommand  *zwave.ActiveCommand `json:"active_command,omitempty"`
	DriverProcess  *process.Stats       `json:"driver_process,omitempty"`
}

// NewHealthMessage builds a health message from core stats.
func NewHealthMessage(status HealthStatus, version string, startTime time.Time, stats zwave.Stats) HealthMessage {
	msg := HealthMessage{
		Status:         status,
		Timestamp:      time.Now().UTC(),
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		Queue:          stats.Queue,
		Dispatched:     stats.Dispatched,
		DeliveryErrors: stats.DeliveryErrors,
		Nodes:          stats.Nodes,
		Scenes:         stats.Scenes,
	}
	if stats.HomeID != 0 {
		msg.HomeID = FormatHomeID(stats.HomeID)
	}
	msg.ActiveCommand = stats.ActiveCommand
	return msg
}

// FormatHomeID renders a home ID the way the driver prints it.
func FormatHomeID(id uint32) string {
	return fmt.Sprintf("0x%08x", id)
}
