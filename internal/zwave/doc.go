// Package zwave is the event core between a Z-Wave driver and its consumers.
//
// The driver delivers notifications on its own goroutines. The core queues
// them, wakes a single consumer goroutine, and dispatches each record in
// order: caches and the controller command tracker are updated first, then
// the record is handed to a Deliverer exactly once.
//
// # Architecture
//
//	driver goroutines                          consumer goroutine
//
//	NotificationSink ──┐                   ┌──► Core.Run
//	                   ├─► Queue + Wakeup ─┤      apply (caches, tracker)
//	ControllerStateSink┘                   └──►   Deliverer.Deliver
//
// # Locking
//
// Four independent lock domains exist: the queue, the node cache, the scene
// cache and the command tracker. Every operation takes at most one of them,
// for the duration of a map or slice operation, and never calls out while
// holding it. The command table is immutable after construction.
//
// # Controller Commands
//
// At most one controller command is in flight. BeginControllerCommand fails
// with ErrAlreadyInProgress while another command runs; the tracker returns to
// idle when the driver reports a terminal state or an error.
//
// Example:
//
//	core := zwave.New(zwave.Options{Driver: drv, Deliverer: pub})
//	go core.Run(ctx)
//	id, err := core.BeginControllerCommand(ctx, "AddDevice", 0)
//	if errors.Is(err, zwave.ErrAlreadyInProgress) {
//	    // retry later
//	}
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Core.Run must have a
// single caller.
package zwave
