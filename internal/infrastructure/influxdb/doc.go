// Package influxdb writes Z-Wave telemetry to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Three measurements
// are written:
//   - zwave_events: one point per dispatched event, tagged by home, node and event
//   - zwave_queue: periodic samples of queue depth and dispatch counters
//   - zwave_controller: controller command state changes
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteNodeEvent(influxdb.NodeEvent{Name: "value changed", HomeID: home, NodeID: 5})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are reported through SetOnError.
package influxdb
