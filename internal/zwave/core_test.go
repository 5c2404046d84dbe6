package zwave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const testHome uint32 = 0xC0FFEE01

// mockDriver implements Driver for testing.
type mockDriver struct {
	mu        sync.Mutex
	begun     []ControllerCommand
	nodes     []uint8
	cancelled int
	beginErr  error
}

func (m *mockDriver) BeginControllerCommand(_ context.Context, cmd ControllerCommand, nodeID uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beginErr != nil {
		return m.beginErr
	}
	m.begun = append(m.begun, cmd)
	m.nodes = append(m.nodes, nodeID)
	return nil
}

func (m *mockDriver) CancelControllerCommand(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
	return nil
}

// recordingDeliverer collects delivered events.
type recordingDeliverer struct {
	mu     sync.Mutex
	events []Event
	err    error
	notify chan struct{}
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{notify: make(chan struct{}, 1024)}
}

func (r *recordingDeliverer) Deliver(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return r.err
}

func (r *recordingDeliverer) getEvents() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Event, len(r.events))
	copy(result, r.events)
	return result
}

func (r *recordingDeliverer) waitFor(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-r.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d events, have %d", n, len(r.getEvents()))
		}
	}
}

func newTestCore(t *testing.T) (*Core, *mockDriver, *recordingDeliverer) {
	t.Helper()
	drv := &mockDriver{}
	rec := newRecordingDeliverer()
	return New(Options{Driver: drv, Deliverer: rec}), drv, rec
}

func TestCore_NodeAddedThenValueChanged(t *testing.T) {
	core, _, rec := newTestCore(t)
	v1 := testValue(5, 0x25, 0)

	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 5})
	core.Notify(NewValueRecord(NotificationValueChanged, v1))

	if n := core.DispatchPending(context.Background()); n != 2 {
		t.Fatalf("DispatchPending() = %d, want 2", n)
	}

	node, ok := core.LookupNode(testHome, 5)
	if !ok {
		t.Fatal("LookupNode(5) ok = false")
	}
	if len(node.Values) != 1 || !node.HasValue(v1) {
		t.Errorf("node values = %v, want [%v]", node.Values, v1)
	}

	events := rec.getEvents()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	if events[0].Name != EventNodeAdded || events[1].Name != EventValueChanged {
		t.Errorf("event order = %q, %q", events[0].Name, events[1].Name)
	}
	if events[0].Sequence >= events[1].Sequence {
		t.Errorf("sequence not increasing: %d, %d", events[0].Sequence, events[1].Sequence)
	}
	if events[1].Node == nil || !events[1].Node.HasValue(v1) {
		t.Errorf("value event snapshot = %+v", events[1].Node)
	}
}

func TestCore_NotifyCoalescesWakeups(t *testing.T) {
	core, _, rec := newTestCore(t)
	const k = 5

	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 5})
	for i := uint8(0); i < k-1; i++ {
		core.Notify(NewValueRecord(NotificationValueChanged, testValue(5, 0x25, i)))
	}

	select {
	case <-core.wakeup.C():
	default:
		t.Fatal("no wakeup pending after Notify")
	}
	select {
	case <-core.wakeup.C():
		t.Fatal("second wakeup pending, want one signal for the batch")
	default:
	}

	if n := core.DispatchPending(context.Background()); n != k {
		t.Fatalf("DispatchPending() = %d, want %d", n, k)
	}
	if got := len(rec.getEvents()); got != k {
		t.Errorf("delivered %d events, want %d", got, k)
	}
	if n := core.DispatchPending(context.Background()); n != 0 {
		t.Errorf("second DispatchPending() = %d, want 0", n)
	}
}

func TestCore_ValueForUntrackedNode(t *testing.T) {
	core, _, rec := newTestCore(t)

	core.Notify(NewValueRecord(NotificationValueChanged, testValue(9, 0x25, 0)))
	core.DispatchPending(context.Background())

	if _, ok := core.LookupNode(testHome, 9); ok {
		t.Error("value notification created a node entry")
	}
	events := rec.getEvents()
	if len(events) != 1 || events[0].Node != nil {
		t.Errorf("events = %+v", events)
	}
}

func TestCore_NodeLifecycle(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()
	v := testValue(5, 0x25, 0)

	core.Notify(EventRecord{Type: NotificationDriverReady, HomeID: testHome})
	core.Notify(EventRecord{Type: NotificationNodeNew, HomeID: testHome, NodeID: 5})
	core.Notify(NewValueRecord(NotificationValueAdded, v))
	core.Notify(EventRecord{Type: NotificationPollingEnabled, HomeID: testHome, NodeID: 5})
	core.DispatchPending(ctx)

	if core.HomeID() != testHome {
		t.Errorf("HomeID() = %#x, want %#x", core.HomeID(), testHome)
	}
	node, _ := core.LookupNode(testHome, 5)
	if !node.Polled || len(node.Values) != 1 {
		t.Errorf("node = %+v", node)
	}

	core.Notify(NewValueRecord(NotificationValueRemoved, v))
	core.Notify(EventRecord{Type: NotificationPollingDisabled, HomeID: testHome, NodeID: 5})
	core.DispatchPending(ctx)

	node, _ = core.LookupNode(testHome, 5)
	if node.Polled || len(node.Values) != 0 {
		t.Errorf("node after removal = %+v", node)
	}

	core.Notify(EventRecord{Type: NotificationNodeRemoved, HomeID: testHome, NodeID: 5})
	core.DispatchPending(ctx)
	if _, ok := core.LookupNode(testHome, 5); ok {
		t.Error("node still cached after NodeRemoved")
	}
}

func TestCore_DriverResetClearsNodes(t *testing.T) {
	core, _, _ := newTestCore(t)
	ctx := context.Background()

	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 1})
	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 2})
	core.Notify(EventRecord{Type: NotificationDriverReset, HomeID: testHome})
	core.DispatchPending(ctx)

	if n := len(core.ListNodes()); n != 0 {
		t.Errorf("ListNodes() len = %d after reset, want 0", n)
	}
}

func TestCore_ValueRemovedLeavesScenes(t *testing.T) {
	core, _, _ := newTestCore(t)
	v := testValue(5, 0x26, 0)

	id, err := core.CreateScene("Movie")
	if err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}
	core.AddSceneValue(id, v)

	core.Notify(NewValueRecord(NotificationValueRemoved, v))
	core.DispatchPending(context.Background())

	scene, _ := core.LookupScene(id)
	if len(scene.Values) != 0 {
		t.Errorf("scene values = %v, want empty", scene.Values)
	}
}

func TestCore_GroupIndex(t *testing.T) {
	core, _, rec := newTestCore(t)

	core.Notify(EventRecord{Type: NotificationGroup, HomeID: testHome, NodeID: 3, GroupIndex: 0, HasGroup: true})
	core.Notify(EventRecord{Type: NotificationNodeEvent, HomeID: testHome, NodeID: 3, Event: 255})
	core.DispatchPending(context.Background())

	events := rec.getEvents()
	if events[0].GroupIndex == nil || *events[0].GroupIndex != 0 {
		t.Errorf("group event GroupIndex = %v", events[0].GroupIndex)
	}
	if events[1].GroupIndex != nil || events[1].NodeEvent != 255 {
		t.Errorf("node event = %+v", events[1])
	}
}

func TestCore_ControllerCommandLifecycle(t *testing.T) {
	core, drv, rec := newTestCore(t)
	ctx := context.Background()

	id, err := core.BeginControllerCommand(ctx, "AddDevice", 0)
	if err != nil {
		t.Fatalf("BeginControllerCommand() error = %v", err)
	}
	if len(drv.begun) != 1 || drv.begun[0] != CommandAddDevice {
		t.Errorf("driver calls = %v", drv.begun)
	}

	if _, err := core.BeginControllerCommand(ctx, "RemoveDevice", 0); !errors.Is(err, ErrAlreadyInProgress) {
		t.Errorf("second Begin error = %v, want ErrAlreadyInProgress", err)
	}

	core.ControllerStateChanged(ControllerStateWaiting, ControllerErrorNone)
	core.ControllerStateChanged(ControllerStateCompleted, ControllerErrorNone)
	core.DispatchPending(ctx)

	events := rec.getEvents()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Name != EventControllerCommand || ev.Controller == nil {
			t.Fatalf("event %d = %+v", i, ev)
		}
		if ev.Controller.CommandID != id || ev.Controller.Command != "AddDevice" {
			t.Errorf("event %d attributed to %q/%s", i, ev.Controller.Command, ev.Controller.CommandID)
		}
	}
	if events[0].Controller.Finished || !events[1].Controller.Finished {
		t.Errorf("finished flags = %v, %v", events[0].Controller.Finished, events[1].Controller.Finished)
	}

	if _, ok := core.ActiveCommand(); ok {
		t.Error("tracker still busy after Completed")
	}
	if _, err := core.BeginControllerCommand(ctx, "RemoveDevice", 0); err != nil {
		t.Errorf("Begin after completion error = %v", err)
	}
}

func TestCore_BeginControllerCommandErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown command", func(t *testing.T) {
		core, drv, _ := newTestCore(t)
		if _, err := core.BeginControllerCommand(ctx, "NotARealCommand", 0); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("error = %v, want ErrUnknownCommand", err)
		}
		if len(drv.begun) != 0 {
			t.Error("driver called for unknown command")
		}
	})

	t.Run("none is not runnable", func(t *testing.T) {
		core, drv, _ := newTestCore(t)
		if _, err := core.BeginControllerCommand(ctx, "None", 0); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("error = %v, want ErrUnknownCommand", err)
		}
		if len(drv.begun) != 0 {
			t.Error("driver called for None")
		}
		if _, ok := core.ActiveCommand(); ok {
			t.Error("tracker busy after None was rejected")
		}
	})

	t.Run("driver refuses", func(t *testing.T) {
		core, drv, _ := newTestCore(t)
		drv.beginErr = errors.New("controller busy")
		if _, err := core.BeginControllerCommand(ctx, "AddDevice", 0); err == nil {
			t.Fatal("error = nil, want driver error")
		}
		if _, ok := core.ActiveCommand(); ok {
			t.Error("tracker busy after driver refused")
		}
	})

	t.Run("no driver", func(t *testing.T) {
		core := New(Options{})
		if _, err := core.BeginControllerCommand(ctx, "AddDevice", 0); !errors.Is(err, ErrDriverUnavailable) {
			t.Errorf("error = %v, want ErrDriverUnavailable", err)
		}
	})
}

func TestCore_CancelControllerCommand(t *testing.T) {
	core, drv, _ := newTestCore(t)
	ctx := context.Background()

	if err := core.CancelControllerCommand(ctx); !errors.Is(err, ErrNoCommandInProgress) {
		t.Errorf("Cancel while idle error = %v", err)
	}
	if drv.cancelled != 0 {
		t.Error("driver cancelled while idle")
	}

	core.BeginControllerCommand(ctx, "RequestNodeNeighborUpdate", 7)
	if err := core.CancelControllerCommand(ctx); err != nil {
		t.Fatalf("Cancel error = %v", err)
	}
	if drv.cancelled != 1 || drv.nodes[0] != 7 {
		t.Errorf("driver cancelled=%d nodes=%v", drv.cancelled, drv.nodes)
	}

	core.ControllerStateChanged(ControllerStateCancel, ControllerErrorNone)
	core.DispatchPending(ctx)
	if _, ok := core.ActiveCommand(); ok {
		t.Error("tracker busy after Cancel state")
	}
}

func TestCore_DeliveryErrorCounted(t *testing.T) {
	core, _, rec := newTestCore(t)
	rec.err = errors.New("broker down")

	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 1})
	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 2})
	core.DispatchPending(context.Background())

	s := core.Stats()
	if s.Dispatched != 2 || s.DeliveryErrors != 2 {
		t.Errorf("Stats = %+v", s)
	}
	// Caches are updated even when delivery fails.
	if s.Nodes != 2 {
		t.Errorf("Nodes = %d, want 2", s.Nodes)
	}
}

func TestCore_RunDeliversFromManyProducers(t *testing.T) {
	core, _, rec := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		core.Run(ctx)
		close(done)
	}()

	const producers, perProd = 4, 50
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(node uint8) {
			defer wg.Done()
			for i := range perProd {
				core.Notify(EventRecord{Type: NotificationNodeEvent, HomeID: testHome, NodeID: node, Event: uint8(i)})
			}
		}(uint8(p + 1))
	}
	wg.Wait()

	rec.waitFor(t, producers*perProd)
	cancel()
	<-done

	next := map[uint8]uint8{}
	for _, ev := range rec.getEvents() {
		if ev.NodeEvent != next[ev.NodeID] {
			t.Fatalf("node %d: event %d out of order, want %d", ev.NodeID, ev.NodeEvent, next[ev.NodeID])
		}
		next[ev.NodeID]++
	}
}

func TestCore_RunFlushesOnShutdown(t *testing.T) {
	core, _, rec := newTestCore(t)

	core.Notify(EventRecord{Type: NotificationNodeAdded, HomeID: testHome, NodeID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	core.Run(ctx)

	// Either branch of Run's select may fire first; both drain the queue.
	if got := len(rec.getEvents()); got != 1 {
		t.Errorf("delivered %d events, want 1", got)
	}
}

func TestMultiDeliverer(t *testing.T) {
	a := newRecordingDeliverer()
	b := newRecordingDeliverer()
	a.err = errors.New("a failed")

	m := MultiDeliverer{a, nil, b}
	err := m.Deliver(context.Background(), Event{Name: EventNodeAdded})
	if err == nil || err.Error() != "a failed" {
		t.Errorf("Deliver() error = %v", err)
	}
	if len(a.getEvents()) != 1 || len(b.getEvents()) != 1 {
		t.Error("every deliverer should see the event")
	}
}
