// Package mqtt provides the broker connection for the Z-Wave core.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Publishing with QoS and payload size checks
//   - Subscriptions that survive reconnects
//   - A retained status topic backed by a Last Will
//   - The core's topic layout (see Topics)
//
// # Architecture
//
// The driver daemon and the core talk over the broker. The daemon publishes
// raw notifications and controller callbacks under the driver prefix; the
// core publishes dispatched events, node snapshots and request responses
// under its own prefix.
//
//	OZW driver ↔ MQTT Broker ↔ Z-Wave core ↔ consumers
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.ZWave.TopicPrefix, cfg.ZWave.DriverTopicPrefix)
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.DriverNotification(), 1, handleNotification)
package mqtt
