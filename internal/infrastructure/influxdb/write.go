package influxdb

import (
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEvents     = "zwave_events"
	MeasurementQueue      = "zwave_queue"
	MeasurementController = "zwave_controller"
)

// NodeEvent is one dispatched event, reduced to what is worth charting.
type NodeEvent struct {
	Name       string
	HomeID     uint32
	NodeID     uint8
	Sequence   uint64
	ValueCount int
	Timestamp  time.Time
}

// QueueSample is a point-in-time view of the notification pipeline.
type QueueSample struct {
	Depth          int
	HighWater      int
	Enqueued       uint64
	Dispatched     uint64
	DeliveryErrors uint64
	Nodes          int
	Scenes         int
}

// WriteNodeEvent records a dispatched event tagged by home, node and event
// name. Node 0 is the controller itself.
func (c *Client) WriteNodeEvent(ev NodeEvent) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	c.writePoint(write.NewPoint(
		MeasurementEvents,
		map[string]string{
			"home_id": formatHomeID(ev.HomeID),
			"node_id": strconv.Itoa(int(ev.NodeID)),
			"event":   ev.Name,
		},
		map[string]any{
			"sequence":    ev.Sequence,
			"value_count": ev.ValueCount,
		},
		ts,
	))
}

// WriteQueueSample records queue depth and dispatch counters.
func (c *Client) WriteQueueSample(homeID uint32, s QueueSample) {
	c.writePoint(write.NewPoint(
		MeasurementQueue,
		map[string]string{"home_id": formatHomeID(homeID)},
		map[string]any{
			"depth":           s.Depth,
			"high_water":      s.HighWater,
			"enqueued":        s.Enqueued,
			"dispatched":      s.Dispatched,
			"delivery_errors": s.DeliveryErrors,
			"nodes":           s.Nodes,
			"scenes":          s.Scenes,
		},
		time.Now(),
	))
}

// WriteControllerState records a controller command state change. command
// is empty when no command was being tracked.
func (c *Client) WriteControllerState(homeID uint32, command, state, cerr string, finished bool) {
	tags := map[string]string{
		"home_id": formatHomeID(homeID),
		"state":   state,
	}
	if command != "" {
		tags["command"] = command
	}
	c.writePoint(write.NewPoint(
		MeasurementController,
		tags,
		map[string]any{
			"error":    cerr,
			"finished": finished,
		},
		time.Now(),
	))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.writePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() || c.writeAPI == nil {
		return
	}
	c.writeAPI.WritePoint(p)
}

func formatHomeID(id uint32) string {
	return fmt.Sprintf("%08x", id)
}
