// Package ozw bridges the OpenZWave driver daemon and the Z-Wave core over MQTT.
//
// The driver daemon publishes raw notifications and controller callbacks as
// JSON; the bridge decodes them on paho's handler goroutines and hands them
// to the core's sinks. The core's dispatch loop, started by the bridge, then
// delivers each event through a zwave.Deliverer chain built in main:
//
//	driver ──MQTT──▶ Bridge ──Notify──▶ zwave.Core ──Deliver──▶ Publisher
//	                                                          ├▶ MetricsDeliverer
//	                                                          ├▶ journal.Writer
//	                                                          └▶ nodestore.Store
//
// # Topics
//
//	zwave/driver/notification   driver → core   raw notifications
//	zwave/driver/controller     driver → core   controller state callbacks
//	zwave/driver/command        core → driver   begin / cancel commands
//	zwave/event/{name}          core → clients  dispatched events
//	zwave/node/{home}/{node}/state              retained node snapshots
//	zwave/request/{id}          client → core   requests
//	zwave/response/{id}         core → client   responses
//	zwave/health                                retained health
//
// # Requests
//
// A request names an action and its arguments:
//
//	{"action": "begin_controller_command", "command": "AddDevice"}
//	{"action": "get_node", "node_id": 5}
//	{"action": "add_scene_value", "scene_id": 1, "value": {...}}
//
// The response carries success, data or an error code such as
// ALREADY_IN_PROGRESS or UNKNOWN_COMMAND.
package ozw
