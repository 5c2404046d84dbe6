package ozw

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

func TestNotificationMessage_Record(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantType  zwave.NotificationType
		wantGroup bool
		wantVals  int
	}{
		{
			name:     "value changed by name",
			payload:  `{"type":"ValueChanged","home_id":1,"node_id":2,"values":[{"home_id":1,"node_id":2,"class_id":37}]}`,
			wantType: zwave.NotificationValueChanged,
			wantVals: 1,
		},
		{
			name:     "driver prefix accepted",
			payload:  `{"type":"Type_NodeEvent","home_id":1,"node_id":2,"event":255}`,
			wantType: zwave.NotificationNodeEvent,
		},
		{
			name:      "group index zero is kept",
			payload:   `{"type":"group","home_id":1,"node_id":2,"group_index":0}`,
			wantType:  zwave.NotificationGroup,
			wantGroup: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg NotificationMessage
			if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if err := msg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			rec := msg.Record()
			if rec.Type != tt.wantType || rec.HasGroup != tt.wantGroup || len(rec.Values) != tt.wantVals {
				t.Errorf("record = %+v", rec)
			}
			if rec.HomeID != 1 || rec.NodeID != 2 {
				t.Errorf("ids = %d/%d", rec.HomeID, rec.NodeID)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", ErrInvalidRequest), ErrCodeInvalidRequest},
		{fmt.Errorf("%w: x", ErrUnknownAction), ErrCodeUnknownAction},
		{fmt.Errorf("%w: node 3", ErrNotFound), ErrCodeNotFound},
		{fmt.Errorf("%w: Nope", zwave.ErrUnknownCommand), ErrCodeUnknownCommand},
		{zwave.ErrAlreadyInProgress, ErrCodeBusy},
		{zwave.ErrSceneLimit, ErrCodeSceneLimit},
		{zwave.ErrDriverUnavailable, ErrCodeDriverUnavailable},
		{errors.New("serial port closed"), ErrCodeDriverError},
	}

	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestNewHealthMessage(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)

	msg := NewHealthMessage(HealthHealthy, "v1", start, zwave.Stats{})
	if msg.HomeID != "" {
		t.Errorf("HomeID = %q before driver ready, want empty", msg.HomeID)
	}
	if msg.UptimeSeconds < 89 {
		t.Errorf("UptimeSeconds = %d, want ~90", msg.UptimeSeconds)
	}
	if msg.ActiveCommand != nil {
		t.Error("ActiveCommand set while idle")
	}
}

func TestResponseMessages(t *testing.T) {
	ok := NewSuccessResponse("r1", ActionListNodes, []int{})
	if !ok.Success || ok.Error != nil {
		t.Errorf("success response = %+v", ok)
	}

	fail := NewErrorResponse("r2", ActionGetNode, fmt.Errorf("%w: node 4", ErrNotFound))
	if fail.Success || fail.Error.Code != ErrCodeNotFound || fail.Error.Message == "" {
		t.Errorf("error response = %+v", fail)
	}
}
