// Package nodestore keeps a persistent history of the Z-Wave nodes seen by
// the core.
//
// The in-memory node cache only knows about nodes since the last start. The
// store sits on the delivery path and records, per home and node, when the
// node was first and last seen, the last event name, how many events it
// produced and the size of its value list at the last snapshot. Rows live in
// the zwave_nodes table created by the embedded migrations.
package nodestore
