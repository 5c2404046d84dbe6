package zwave

import (
	"fmt"
	"strings"
)

// NotificationType discriminates the kind of event carried by an EventRecord.
// Values follow the Z-Wave stack's notification enumeration order so that
// numeric codes received from the driver map directly.
type NotificationType uint8

// Notification types produced by the driver.
const (
	NotificationValueAdded NotificationType = iota
	NotificationValueRemoved
	NotificationValueChanged
	NotificationValueRefreshed
	NotificationGroup
	NotificationNodeNew
	NotificationNodeAdded
	NotificationNodeRemoved
	NotificationNodeProtocolInfo
	NotificationNodeNaming
	NotificationNodeEvent
	NotificationPollingDisabled
	NotificationPollingEnabled
	NotificationSceneEvent
	NotificationCreateButton
	NotificationDeleteButton
	NotificationButtonOn
	NotificationButtonOff
	NotificationDriverReady
	NotificationDriverFailed
	NotificationDriverReset
	NotificationEssentialNodeQueriesComplete
	NotificationNodeQueriesComplete
	NotificationAwakeNodesQueried
	NotificationAllNodesQueriedSomeDead
	NotificationAllNodesQueried
	NotificationNotification
	NotificationDriverRemoved
	NotificationControllerCommand
)

var notificationTypeNames = [...]string{
	NotificationValueAdded:                   "ValueAdded",
	NotificationValueRemoved:                 "ValueRemoved",
	NotificationValueChanged:                 "ValueChanged",
	NotificationValueRefreshed:               "ValueRefreshed",
	NotificationGroup:                        "Group",
	NotificationNodeNew:                      "NodeNew",
	NotificationNodeAdded:                    "NodeAdded",
	NotificationNodeRemoved:                  "NodeRemoved",
	NotificationNodeProtocolInfo:             "NodeProtocolInfo",
	NotificationNodeNaming:                   "NodeNaming",
	NotificationNodeEvent:                    "NodeEvent",
	NotificationPollingDisabled:              "PollingDisabled",
	NotificationPollingEnabled:               "PollingEnabled",
	NotificationSceneEvent:                   "SceneEvent",
	NotificationCreateButton:                 "CreateButton",
	NotificationDeleteButton:                 "DeleteButton",
	NotificationButtonOn:                     "ButtonOn",
	NotificationButtonOff:                    "ButtonOff",
	NotificationDriverReady:                  "DriverReady",
	NotificationDriverFailed:                 "DriverFailed",
	NotificationDriverReset:                  "DriverReset",
	NotificationEssentialNodeQueriesComplete: "EssentialNodeQueriesComplete",
	NotificationNodeQueriesComplete:          "NodeQueriesComplete",
	NotificationAwakeNodesQueried:            "AwakeNodesQueried",
	NotificationAllNodesQueriedSomeDead:      "AllNodesQueriedSomeDead",
	NotificationAllNodesQueried:              "AllNodesQueried",
	NotificationNotification:                 "Notification",
	NotificationDriverRemoved:                "DriverRemoved",
	NotificationControllerCommand:            "ControllerCommand",
}

// String returns the driver's name for the notification type.
func (t NotificationType) String() string {
	if int(t) < len(notificationTypeNames) {
		return notificationTypeNames[t]
	}
	return fmt.Sprintf("NotificationType(%d)", uint8(t))
}

// ParseNotificationType converts a driver notification name (case-insensitive,
// with or without a "Type_" prefix) into a NotificationType.
func ParseNotificationType(name string) (NotificationType, error) {
	if i, ok := lookupName(notificationTypeNames[:], strings.TrimPrefix(name, "Type_")); ok {
		return NotificationType(i), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNotification, name)
}

// MarshalText encodes the type by name.
func (t NotificationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any name understood by ParseNotificationType.
func (t *NotificationType) UnmarshalText(text []byte) error {
	parsed, err := ParseNotificationType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ValueGenre classifies a value the way the driver does.
type ValueGenre uint8

// Value genres.
const (
	GenreBasic ValueGenre = iota
	GenreUser
	GenreConfig
	GenreSystem
)

// ValueType is the data type of a value.
type ValueType uint8

// Value types.
const (
	ValueTypeBool ValueType = iota
	ValueTypeByte
	ValueTypeDecimal
	ValueTypeInt
	ValueTypeList
	ValueTypeSchedule
	ValueTypeShort
	ValueTypeString
	ValueTypeButton
	ValueTypeRaw
)

// ValueID identifies a single value on a node. It is comparable, so two
// ValueIDs are the same value exactly when they are ==.
type ValueID struct {
	HomeID       uint32     `json:"home_id" cbor:"1,keyasint"`
	NodeID       uint8      `json:"node_id" cbor:"2,keyasint"`
	Genre        ValueGenre `json:"genre" cbor:"3,keyasint"`
	CommandClass uint8      `json:"class_id" cbor:"4,keyasint"`
	Instance     uint8      `json:"instance" cbor:"5,keyasint"`
	Index        uint8      `json:"index" cbor:"6,keyasint"`
	Type         ValueType  `json:"type" cbor:"7,keyasint"`
}

// String returns the short value key "node-class-instance-index".
func (v ValueID) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", v.NodeID, v.CommandClass, v.Instance, v.Index)
}

// ControllerState reports progress of a controller command.
type ControllerState uint8

// Controller states.
const (
	ControllerStateNormal ControllerState = iota
	ControllerStateStarting
	ControllerStateCancel
	ControllerStateError
	ControllerStateWaiting
	ControllerStateSleeping
	ControllerStateInProgress
	ControllerStateCompleted
	ControllerStateFailed
	ControllerStateNodeOK
	ControllerStateNodeFailed
)

var controllerStateNames = [...]string{
	ControllerStateNormal:     "Normal",
	ControllerStateStarting:   "Starting",
	ControllerStateCancel:     "Cancel",
	ControllerStateError:      "Error",
	ControllerStateWaiting:    "Waiting",
	ControllerStateSleeping:   "Sleeping",
	ControllerStateInProgress: "InProgress",
	ControllerStateCompleted:  "Completed",
	ControllerStateFailed:     "Failed",
	ControllerStateNodeOK:     "NodeOK",
	ControllerStateNodeFailed: "NodeFailed",
}

func (s ControllerState) String() string {
	if int(s) < len(controllerStateNames) {
		return controllerStateNames[s]
	}
	return fmt.Sprintf("ControllerState(%d)", uint8(s))
}

func (s ControllerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ControllerState) UnmarshalText(text []byte) error {
	i, ok := lookupName(controllerStateNames[:], string(text))
	if !ok {
		return fmt.Errorf("zwave: unknown controller state %q", text)
	}
	*s = ControllerState(i)
	return nil
}

// IsTerminal reports whether the state ends a controller command.
// Starting, Waiting, Sleeping and InProgress are the only intermediate states.
func (s ControllerState) IsTerminal() bool {
	switch s {
	case ControllerStateStarting, ControllerStateWaiting,
		ControllerStateSleeping, ControllerStateInProgress:
		return false
	default:
		return true
	}
}

// ControllerError is the error detail attached to a controller state callback.
type ControllerError uint8

// Controller errors.
const (
	ControllerErrorNone ControllerError = iota
	ControllerErrorButtonNotFound
	ControllerErrorNodeNotFound
	ControllerErrorNotBridge
	ControllerErrorNotSUC
	ControllerErrorNotSecondary
	ControllerErrorNotPrimary
	ControllerErrorIsPrimary
	ControllerErrorNotFound
	ControllerErrorBusy
	ControllerErrorFailed
	ControllerErrorDisabled
	ControllerErrorOverflow
)

var controllerErrorNames = [...]string{
	ControllerErrorNone:           "None",
	ControllerErrorButtonNotFound: "ButtonNotFound",
	ControllerErrorNodeNotFound:   "NodeNotFound",
	ControllerErrorNotBridge:      "NotBridge",
	ControllerErrorNotSUC:         "NotSUC",
	ControllerErrorNotSecondary:   "NotSecondary",
	ControllerErrorNotPrimary:     "NotPrimary",
	ControllerErrorIsPrimary:      "IsPrimary",
	ControllerErrorNotFound:       "NotFound",
	ControllerErrorBusy:           "Busy",
	ControllerErrorFailed:         "Failed",
	ControllerErrorDisabled:       "Disabled",
	ControllerErrorOverflow:       "Overflow",
}

func (e ControllerError) String() string {
	if int(e) < len(controllerErrorNames) {
		return controllerErrorNames[e]
	}
	return fmt.Sprintf("ControllerError(%d)", uint8(e))
}

func (e ControllerError) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *ControllerError) UnmarshalText(text []byte) error {
	i, ok := lookupName(controllerErrorNames[:], string(text))
	if !ok {
		return fmt.Errorf("zwave: unknown controller error %q", text)
	}
	*e = ControllerError(i)
	return nil
}

// lookupName finds name in a name table, ignoring case.
func lookupName(names []string, name string) (int, bool) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}
