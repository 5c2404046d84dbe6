package mqtt

import (
	"fmt"
	"strings"
)

// Default topic roots.
const (
	// DefaultPrefix is the root of all topics published by the core.
	DefaultPrefix = "zwave"

	// DefaultDriverPrefix is where the driver daemon publishes raw
	// notifications and listens for controller commands.
	DefaultDriverPrefix = "zwave/driver"
)

// Topics builds the core's MQTT topics.
//
// The zero value uses DefaultPrefix and DefaultDriverPrefix:
//
//	topics := mqtt.Topics{}
//	topics.Event("node added")     // "zwave/event/node_added"
//	topics.NodeState(0xC0FFEE01, 5) // "zwave/node/c0ffee01/5/state"
type Topics struct {
	Prefix       string
	DriverPrefix string
}

// NewTopics returns a topic builder for the given roots. Empty roots fall
// back to the defaults.
func NewTopics(prefix, driverPrefix string) Topics {
	return Topics{
		Prefix:       strings.TrimSuffix(prefix, "/"),
		DriverPrefix: strings.TrimSuffix(driverPrefix, "/"),
	}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return t.Prefix
}

func (t Topics) driverPrefix() string {
	if t.DriverPrefix == "" {
		return DefaultDriverPrefix
	}
	return t.DriverPrefix
}

// =============================================================================
// Driver Topics
// =============================================================================

// DriverNotification is where the driver publishes raw notifications.
//
// Example: zwave/driver/notification
func (t Topics) DriverNotification() string {
	return t.driverPrefix() + "/notification"
}

// DriverController is where the driver publishes controller state callbacks.
//
// Example: zwave/driver/controller
func (t Topics) DriverController() string {
	return t.driverPrefix() + "/controller"
}

// DriverCommand is where the core publishes controller commands for the driver.
//
// Example: zwave/driver/command
func (t Topics) DriverCommand() string {
	return t.driverPrefix() + "/command"
}

// =============================================================================
// Core Topics
// =============================================================================

// Event returns the topic for a dispatched event. Spaces in the event name
// become underscores.
//
// Example: zwave/event/value_changed
func (t Topics) Event(name string) string {
	return fmt.Sprintf("%s/event/%s", t.prefix(), strings.ReplaceAll(name, " ", "_"))
}

// NodeState returns the retained node snapshot topic. The home ID is
// rendered as eight hex digits.
//
// Example: zwave/node/c0ffee01/5/state
func (t Topics) NodeState(homeID uint32, nodeID uint8) string {
	return fmt.Sprintf("%s/node/%08x/%d/state", t.prefix(), homeID, nodeID)
}

// Request returns the topic a client publishes a request on.
//
// Example: zwave/request/req-abc123
func (t Topics) Request(requestID string) string {
	return fmt.Sprintf("%s/request/%s", t.prefix(), requestID)
}

// Response returns the topic the core answers a request on.
//
// Example: zwave/response/req-abc123
func (t Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/response/%s", t.prefix(), requestID)
}

// Health returns the bridge health topic.
//
// Example: zwave/health
func (t Topics) Health() string {
	return t.prefix() + "/health"
}

// Status returns the connection status (LWT) topic.
//
// Example: zwave/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllRequests matches every request topic.
//
// Pattern: zwave/request/+
func (t Topics) AllRequests() string {
	return t.prefix() + "/request/+"
}

// AllEvents matches every event topic.
//
// Pattern: zwave/event/+
func (t Topics) AllEvents() string {
	return t.prefix() + "/event/+"
}

// AllNodeStates matches every retained node snapshot.
//
// Pattern: zwave/node/+/+/state
func (t Topics) AllNodeStates() string {
	return t.prefix() + "/node/+/+/state"
}

// LastSegment returns the final level of a topic, e.g. the request ID of a
// request topic.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
