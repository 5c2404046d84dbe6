package zwave

import "time"

// apply updates caches and tracker for one record and builds the Event
// handed to the deliverer. Each cache call takes and releases its own lock;
// no two lock domains are ever held together.
func (c *Core) apply(rec EventRecord) Event {
	ev := Event{
		Sequence:         c.sequence.Add(1),
		Timestamp:        time.Now().UTC(),
		Name:             EventName(rec.Type),
		Type:             rec.Type,
		HomeID:           rec.HomeID,
		NodeID:           rec.NodeID,
		NodeEvent:        rec.Event,
		ButtonID:         rec.ButtonID,
		SceneID:          rec.SceneID,
		NotificationCode: rec.NotificationCode,
		Values:           rec.Values,
	}
	if rec.HasGroup {
		idx := rec.GroupIndex
		ev.GroupIndex = &idx
	}

	switch rec.Type {
	case NotificationDriverReady:
		c.homeID.Store(rec.HomeID)
		c.logger.Info("driver ready", "home_id", rec.HomeID)

	case NotificationDriverFailed:
		c.logger.Warn("driver failed", "home_id", rec.HomeID)

	case NotificationDriverReset, NotificationDriverRemoved:
		c.nodes.Clear()
		c.logger.Info("node cache cleared", "reason", ev.Name)

	case NotificationNodeNew, NotificationNodeAdded:
		entry, _ := c.nodes.Upsert(rec.HomeID, rec.NodeID, nil)
		ev.Node = &entry

	case NotificationNodeRemoved:
		c.nodes.Remove(rec.HomeID, rec.NodeID)

	case NotificationValueAdded, NotificationValueChanged, NotificationValueRefreshed:
		entry, ok := c.nodes.Update(rec.HomeID, rec.NodeID, func(n *NodeEntry) {
			n.AddValues(rec.Values...)
		})
		if ok {
			ev.Node = &entry
		} else {
			c.logger.Debug("value for untracked node",
				"home_id", rec.HomeID,
				"node_id", rec.NodeID,
				"event", ev.Name)
		}

	case NotificationValueRemoved:
		entry, ok := c.nodes.Update(rec.HomeID, rec.NodeID, func(n *NodeEntry) {
			n.RemoveValues(rec.Values...)
		})
		if ok {
			ev.Node = &entry
		}
		for _, v := range rec.Values {
			c.scenes.RemoveValueEverywhere(v)
		}

	case NotificationPollingEnabled, NotificationPollingDisabled:
		polled := rec.Type == NotificationPollingEnabled
		entry, ok := c.nodes.Update(rec.HomeID, rec.NodeID, func(n *NodeEntry) {
			n.Polled = polled
		})
		if ok {
			ev.Node = &entry
		}

	case NotificationControllerCommand:
		ev.Controller = c.applyControllerState(rec)

	default:
		if entry, ok := c.nodes.Lookup(rec.HomeID, rec.NodeID); ok {
			ev.Node = &entry
		}
	}

	return ev
}

// applyControllerState feeds a controller-command record to the tracker.
func (c *Core) applyControllerState(rec EventRecord) *ControllerProgress {
	progress := &ControllerProgress{
		State: rec.ControllerState,
		Error: rec.ControllerError,
	}

	active, finished := c.tracker.OnControllerState(rec.ControllerState, rec.ControllerError)
	if active.Name == "" {
		c.logger.Debug("controller state while idle",
			"state", rec.ControllerState.String(),
			"error", rec.ControllerError.String())
		return progress
	}

	progress.Command = active.Name
	progress.CommandID = active.ID
	progress.Finished = finished

	if finished {
		c.logger.Info("controller command finished",
			"command", active.Name,
			"command_id", active.ID.String(),
			"state", rec.ControllerState.String(),
			"error", rec.ControllerError.String())
	}
	return progress
}
