package zwave

import "sync"

// Queue is the unbounded FIFO between the driver and the consumer.
//
// Thread Safety:
//   - Enqueue may be called from any number of driver goroutines.
//   - DrainAll is meant for the single consumer goroutine, but is safe anywhere.
//
// The queue never applies backpressure: a slow consumer grows it instead of
// stalling the driver. Depth and HighWater expose the growth for monitoring.
type Queue struct {
	mu        sync.Mutex
	records   []EventRecord
	highWater int
	enqueued  uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a record. It only holds the queue lock for an append and
// cannot fail. The record's Values slice is copied so later changes by the
// producer are not visible to the consumer.
func (q *Queue) Enqueue(rec EventRecord) {
	rec = rec.clone()

	q.mu.Lock()
	q.records = append(q.records, rec)
	q.enqueued++
	if n := len(q.records); n > q.highWater {
		q.highWater = n
	}
	q.mu.Unlock()
}

// DrainAll removes and returns every pending record in enqueue order.
// It returns nil when nothing is pending.
func (q *Queue) DrainAll() []EventRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return nil
	}

	// Hand the backing array to the caller and start a fresh one, so the
	// producer never writes into a slice the consumer is reading.
	drained := q.records
	q.records = nil
	return drained
}

// Depth returns the number of records currently queued.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// QueueStats is a point-in-time snapshot of queue counters.
type QueueStats struct {
	Depth     int    `json:"depth"`
	HighWater int    `json:"high_water"`
	Enqueued  uint64 `json:"enqueued"`
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Depth:     len(q.records),
		HighWater: q.highWater,
		Enqueued:  q.enqueued,
	}
}
