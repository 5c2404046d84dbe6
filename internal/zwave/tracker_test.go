package zwave

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCommandTracker_Exclusive(t *testing.T) {
	tr := NewCommandTracker()

	id, err := tr.Begin("HardReset")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if _, err := tr.Begin("SoftReset"); !errors.Is(err, ErrAlreadyInProgress) {
		t.Fatalf("second Begin() error = %v, want ErrAlreadyInProgress", err)
	}

	cur, ok := tr.Current()
	if !ok || cur.Name != "HardReset" || cur.ID != id {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestCommandTracker_StateTransitions(t *testing.T) {
	tests := []struct {
		name         string
		states       []ControllerState
		cerr         ControllerError
		wantFinished bool
	}{
		{"completed", []ControllerState{ControllerStateStarting, ControllerStateWaiting, ControllerStateCompleted}, ControllerErrorNone, true},
		{"failed", []ControllerState{ControllerStateInProgress, ControllerStateFailed}, ControllerErrorNone, true},
		{"cancelled", []ControllerState{ControllerStateCancel}, ControllerErrorNone, true},
		{"node ok", []ControllerState{ControllerStateNodeOK}, ControllerErrorNone, true},
		{"still waiting", []ControllerState{ControllerStateStarting, ControllerStateSleeping}, ControllerErrorNone, false},
		{"error on intermediate", []ControllerState{ControllerStateInProgress}, ControllerErrorBusy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewCommandTracker()
			if _, err := tr.Begin("AddDevice"); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}

			var finished bool
			for i, s := range tt.states {
				cerr := ControllerErrorNone
				if i == len(tt.states)-1 {
					cerr = tt.cerr
				}
				var cmd ActiveCommand
				cmd, finished = tr.OnControllerState(s, cerr)
				if cmd.Name != "AddDevice" {
					t.Errorf("callback %d attributed to %q", i, cmd.Name)
				}
			}

			if finished != tt.wantFinished {
				t.Errorf("finished = %v, want %v", finished, tt.wantFinished)
			}
			if tr.Busy() == tt.wantFinished {
				t.Errorf("Busy() = %v after finished=%v", tr.Busy(), finished)
			}
		})
	}
}

func TestCommandTracker_IdleCallbackIgnored(t *testing.T) {
	tr := NewCommandTracker()
	cmd, finished := tr.OnControllerState(ControllerStateCompleted, ControllerErrorNone)
	if cmd.Name != "" || finished {
		t.Errorf("OnControllerState() while idle = %+v, %v", cmd, finished)
	}
	if tr.Busy() {
		t.Error("Busy() = true")
	}
}

func TestCommandTracker_Cancel(t *testing.T) {
	tr := NewCommandTracker()

	if _, err := tr.Cancel(); !errors.Is(err, ErrNoCommandInProgress) {
		t.Errorf("Cancel() while idle error = %v, want ErrNoCommandInProgress", err)
	}

	tr.Begin("RemoveDevice")
	cmd, err := tr.Cancel()
	if err != nil || cmd.Name != "RemoveDevice" {
		t.Fatalf("Cancel() = %+v, %v", cmd, err)
	}
	if !tr.Busy() {
		t.Error("tracker went idle before the driver confirmed cancellation")
	}

	tr.OnControllerState(ControllerStateCancel, ControllerErrorNone)
	if tr.Busy() {
		t.Error("tracker still busy after Cancel state")
	}
}

func TestCommandTracker_Abort(t *testing.T) {
	tr := NewCommandTracker()
	id, _ := tr.Begin("AddDevice")

	tr.Abort(id)
	if tr.Busy() {
		t.Error("Busy() after Abort")
	}

	// Aborting a stale id must not clear a newer command.
	tr.Begin("RemoveDevice")
	tr.Abort(id)
	if !tr.Busy() {
		t.Error("stale Abort cleared the active command")
	}
}

func TestCommandTracker_ConcurrentBegin(t *testing.T) {
	tr := NewCommandTracker()
	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)

	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Begin("AddDevice"); err == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	if started.Load() != 1 {
		t.Errorf("%d Begin calls succeeded, want exactly 1", started.Load())
	}
}
