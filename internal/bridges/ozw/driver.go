package ozw

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/zwave-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// MQTTDriver implements zwave.Driver by publishing controller commands to
// the driver daemon. Progress comes back asynchronously on the driver's
// controller topic.
type MQTTDriver struct {
	publisher MessagePublisher
	topic     string
	qos       byte
}

// NewMQTTDriver creates a driver that publishes on topics.DriverCommand().
func NewMQTTDriver(publisher MessagePublisher, topics mqtt.Topics, qos byte) *MQTTDriver {
	return &MQTTDriver{
		publisher: publisher,
		topic:     topics.DriverCommand(),
		qos:       qos,
	}
}

// BeginControllerCommand implements zwave.Driver.
func (d *MQTTDriver) BeginControllerCommand(ctx context.Context, cmd zwave.ControllerCommand, nodeID uint8) error {
	return d.send(ctx, DriverCommandMessage{
		Action:      DriverActionBegin,
		Command:     cmd.String(),
		CommandCode: uint8(cmd),
		NodeID:      nodeID,
	})
}

// CancelControllerCommand implements zwave.Driver.
func (d *MQTTDriver) CancelControllerCommand(ctx context.Context) error {
	return d.send(ctx, DriverCommandMessage{Action: DriverActionCancel})
}

func (d *MQTTDriver) send(ctx context.Context, msg DriverCommandMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.publisher.IsConnected() {
		return fmt.Errorf("%w: broker disconnected", ErrPublishFailed)
	}

	msg.ID = uuid.New()
	msg.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding driver command: %w", err)
	}
	if err := d.publisher.Publish(d.topic, payload, d.qos, false); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
