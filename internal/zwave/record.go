package zwave

// EventRecord is one notification handed from the driver to the consumer.
//
// Records are plain values: the producer builds one, Enqueue copies it into
// the queue, and DrainAll hands the queued copies to the consumer, which drops
// them once dispatch finishes. Nothing retains a record after dispatch.
type EventRecord struct {
	Type   NotificationType
	HomeID uint32
	NodeID uint8

	// GroupIndex is only set for Group notifications (HasGroup reports it).
	GroupIndex uint8
	HasGroup   bool

	Event            uint8
	ButtonID         uint8
	SceneID          uint8
	NotificationCode uint8

	// Values lists the value identifiers the notification refers to, in the
	// order the driver reported them.
	Values []ValueID

	// ControllerState and ControllerError carry the payload of
	// NotificationControllerCommand records.
	ControllerState ControllerState
	ControllerError ControllerError
}

// NewValueRecord builds a value notification for a single value.
// HomeID and NodeID are taken from the value itself.
func NewValueRecord(t NotificationType, v ValueID) EventRecord {
	return EventRecord{
		Type:   t,
		HomeID: v.HomeID,
		NodeID: v.NodeID,
		Values: []ValueID{v},
	}
}

// NewControllerRecord builds the record for a controller state callback.
func NewControllerRecord(homeID uint32, state ControllerState, cerr ControllerError) EventRecord {
	return EventRecord{
		Type:            NotificationControllerCommand,
		HomeID:          homeID,
		ControllerState: state,
		ControllerError: cerr,
	}
}

// clone returns a copy whose Values slice does not alias the original.
func (r EventRecord) clone() EventRecord {
	if r.Values != nil {
		vals := make([]ValueID, len(r.Values))
		copy(vals, r.Values)
		r.Values = vals
	}
	return r
}
