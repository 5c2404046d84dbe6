package zwave

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event names handed to the delivery collaborator.
const (
	EventValueAdded        = "value added"
	EventValueRemoved      = "value removed"
	EventValueChanged      = "value changed"
	EventValueRefreshed    = "value refreshed"
	EventGroup             = "group"
	EventNodeAdded         = "node added"
	EventNodeRemoved       = "node removed"
	EventNodeAvailable     = "node available"
	EventNodeNaming        = "node naming"
	EventNodeEvent         = "node event"
	EventNodeReady         = "node ready"
	EventPollingDisabled   = "polling disabled"
	EventPollingEnabled    = "polling enabled"
	EventSceneEvent        = "scene event"
	EventCreateButton      = "create button"
	EventDeleteButton      = "delete button"
	EventButtonOn          = "button on"
	EventButtonOff         = "button off"
	EventDriverReady       = "driver ready"
	EventDriverFailed      = "driver failed"
	EventDriverReset       = "driver reset"
	EventDriverRemoved     = "driver removed"
	EventScanComplete      = "scan complete"
	EventNotification      = "notification"
	EventControllerCommand = "controller command"
)

// EventName returns the delivery name for a notification type.
func EventName(t NotificationType) string {
	switch t {
	case NotificationValueAdded:
		return EventValueAdded
	case NotificationValueRemoved:
		return EventValueRemoved
	case NotificationValueChanged:
		return EventValueChanged
	case NotificationValueRefreshed:
		return EventValueRefreshed
	case NotificationGroup:
		return EventGroup
	case NotificationNodeNew, NotificationNodeAdded:
		return EventNodeAdded
	case NotificationNodeRemoved:
		return EventNodeRemoved
	case NotificationNodeProtocolInfo:
		return EventNodeAvailable
	case NotificationNodeNaming:
		return EventNodeNaming
	case NotificationNodeEvent:
		return EventNodeEvent
	case NotificationPollingDisabled:
		return EventPollingDisabled
	case NotificationPollingEnabled:
		return EventPollingEnabled
	case NotificationSceneEvent:
		return EventSceneEvent
	case NotificationCreateButton:
		return EventCreateButton
	case NotificationDeleteButton:
		return EventDeleteButton
	case NotificationButtonOn:
		return EventButtonOn
	case NotificationButtonOff:
		return EventButtonOff
	case NotificationDriverReady:
		return EventDriverReady
	case NotificationDriverFailed:
		return EventDriverFailed
	case NotificationDriverReset:
		return EventDriverReset
	case NotificationDriverRemoved:
		return EventDriverRemoved
	case NotificationEssentialNodeQueriesComplete, NotificationNodeQueriesComplete:
		return EventNodeReady
	case NotificationAwakeNodesQueried, NotificationAllNodesQueried, NotificationAllNodesQueriedSomeDead:
		return EventScanComplete
	case NotificationNotification:
		return EventNotification
	case NotificationControllerCommand:
		return EventControllerCommand
	default:
		return "unknown"
	}
}

// ControllerProgress is the controller-command part of an Event.
type ControllerProgress struct {
	State     ControllerState `json:"state" cbor:"1,keyasint"`
	Error     ControllerError `json:"error" cbor:"2,keyasint"`
	Command   string          `json:"command,omitempty" cbor:"3,keyasint,omitempty"`
	CommandID uuid.UUID       `json:"command_id,omitempty" cbor:"4,keyasint,omitempty"`
	Finished  bool            `json:"finished" cbor:"5,keyasint"`
}

// Event is the representation of one dispatched record handed to the
// delivery collaborator. It is built after caches and tracker are updated, so
// Node reflects the state as of this record.
type Event struct {
	Sequence  uint64           `json:"sequence" cbor:"1,keyasint"`
	Timestamp time.Time        `json:"timestamp" cbor:"2,keyasint"`
	Name      string           `json:"event" cbor:"3,keyasint"`
	Type      NotificationType `json:"type" cbor:"4,keyasint"`
	HomeID    uint32           `json:"home_id" cbor:"5,keyasint"`
	NodeID    uint8            `json:"node_id,omitempty" cbor:"6,keyasint,omitempty"`

	GroupIndex       *uint8 `json:"group_index,omitempty" cbor:"7,keyasint,omitempty"`
	NodeEvent        uint8  `json:"node_event,omitempty" cbor:"8,keyasint,omitempty"`
	ButtonID         uint8  `json:"button_id,omitempty" cbor:"9,keyasint,omitempty"`
	SceneID          uint8  `json:"scene_id,omitempty" cbor:"10,keyasint,omitempty"`
	NotificationCode uint8  `json:"notification,omitempty" cbor:"11,keyasint,omitempty"`

	Values []ValueID `json:"values,omitempty" cbor:"12,keyasint,omitempty"`

	// Node is a snapshot of the node entry after this record was applied.
	// It is nil for records without a tracked node, including node removal.
	Node *NodeEntry `json:"node,omitempty" cbor:"13,keyasint,omitempty"`

	Controller *ControllerProgress `json:"controller,omitempty" cbor:"14,keyasint,omitempty"`
}

// Deliverer receives each dispatched event exactly once, in order, from the
// consumer goroutine. Implementations must not call back into the core's
// dispatch path.
type Deliverer interface {
	Deliver(ctx context.Context, ev Event) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, ev Event) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiDeliverer hands each event to every deliverer in order.
// A failing deliverer does not stop the rest; errors are joined.
type MultiDeliverer []Deliverer

// Deliver implements Deliverer.
func (m MultiDeliverer) Deliver(ctx context.Context, ev Event) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
