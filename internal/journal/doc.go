// Package journal keeps an append-only record of delivered Z-Wave events.
//
// Events are written as a CBOR sequence: one canonical CBOR item per event,
// integer map keys, RFC 3339 timestamps with nanoseconds. The file can be
// read back with Reader, optionally filtered by event name, node or time.
//
// A journal outlives process restarts but event sequence numbers do not:
// each run numbers its events from 1, so a file written across restarts
// holds repeated sequence numbers and is ordered by position, not sequence.
//
//	w, err := journal.Open(cfg.ZWave.Journal.Path)
//	...
//	core := zwave.New(zwave.Options{Deliverer: zwave.MultiDeliverer{publisher, w}})
package journal
