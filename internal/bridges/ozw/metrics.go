package ozw

import (
	"context"

	"github.com/nerrad567/zwave-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// MetricsWriter is the subset of *influxdb.Client the metrics deliverer uses.
type MetricsWriter interface {
	WriteNodeEvent(ev influxdb.NodeEvent)
	WriteQueueSample(homeID uint32, s influxdb.QueueSample)
	WriteControllerState(homeID uint32, command, state, cerr string, finished bool)
}

// MetricsDeliverer writes a time-series point for every delivered event and
// a queue sample for every health snapshot. Writes are batched by the
// client and never fail synchronously.
type MetricsDeliverer struct {
	writer MetricsWriter
}

// NewMetricsDeliverer creates a deliverer writing through w.
func NewMetricsDeliverer(w MetricsWriter) *MetricsDeliverer {
	return &MetricsDeliverer{writer: w}
}

// Deliver implements zwave.Deliverer.
func (m *MetricsDeliverer) Deliver(_ context.Context, ev zwave.Event) error {
	m.writer.WriteNodeEvent(influxdb.NodeEvent{
		Name:       ev.Name,
		HomeID:     ev.HomeID,
		NodeID:     ev.NodeID,
		Sequence:   ev.Sequence,
		ValueCount: len(ev.Values),
		Timestamp:  ev.Timestamp,
	})

	if c := ev.Controller; c != nil {
		m.writer.WriteControllerState(ev.HomeID, c.Command, c.State.String(), c.Error.String(), c.Finished)
	}
	return nil
}

// ObserveStats implements StatsObserver.
func (m *MetricsDeliverer) ObserveStats(s zwave.Stats) {
	m.writer.WriteQueueSample(s.HomeID, influxdb.QueueSample{
		Depth:          s.Queue.Depth,
		HighWater:      s.Queue.HighWater,
		Enqueued:       s.Queue.Enqueued,
		Dispatched:     s.Dispatched,
		DeliveryErrors: s.DeliveryErrors,
		Nodes:          s.Nodes,
		Scenes:         s.Scenes,
	})
}
