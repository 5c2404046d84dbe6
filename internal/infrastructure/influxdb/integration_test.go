//go:build integration

package influxdb

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/zwave-core/internal/infrastructure/config"
)

// Integration tests need InfluxDB at 127.0.0.1:8086.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/influxdb/...

func integrationConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "zwavecore-dev-token",
		Org:           "zwavecore",
		Bucket:        "zwave",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestIntegration_WriteAndFlush(t *testing.T) {
	client, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteNodeEvent(NodeEvent{Name: "value changed", HomeID: 0xC0FFEE01, NodeID: 3, ValueCount: 1})
	client.WriteQueueSample(0xC0FFEE01, QueueSample{Depth: 1})
	client.Flush()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
