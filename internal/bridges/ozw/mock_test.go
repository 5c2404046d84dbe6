package ozw

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/zwave-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

const testHome uint32 = 0xC0FFEE01

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	publishErr    error
	handlers      map[string]func(topic string, payload []byte) error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte) error),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockSubscription, len(m.subscriptions))
	copy(out, m.subscriptions)
	return out
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SimulateMessage delivers a message to the handler subscribed on topic.
// Wildcard subscriptions are matched by their prefix before the "+".
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	if !ok {
		for pattern, h := range m.handlers {
			if prefix, found := strings.CutSuffix(pattern, "+"); found && strings.HasPrefix(topic, prefix) {
				handler, ok = h, true
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return handler(topic, payload)
}

// PublishedOn returns every message published on topic, in order.
func (m *MockMQTTClient) PublishedOn(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// waitForTopic polls until something is published on topic.
func (m *MockMQTTClient) waitForTopic(t *testing.T, topic string) mockPublish {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := m.PublishedOn(topic); len(msgs) > 0 {
			return msgs[len(msgs)-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("nothing published on %s", topic)
	return mockPublish{}
}

// testBridge bundles a bridge with its core and collaborators.
type testBridge struct {
	bridge    *Bridge
	core      *zwave.Core
	mqtt      *MockMQTTClient
	publisher *Publisher
	topics    mqtt.Topics
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()

	m := NewMockMQTTClient()
	topics := mqtt.Topics{}
	pub := NewPublisher(PublisherOptions{MQTT: m, Topics: topics, QoS: 1, RetainNodes: true})
	core := zwave.New(zwave.Options{
		Driver:    NewMQTTDriver(m, topics, 1),
		Deliverer: pub,
	})

	b, err := NewBridge(BridgeOptions{
		Core:       core,
		MQTTClient: m,
		Topics:     topics,
		QoS:        1,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Stop)

	return &testBridge{bridge: b, core: core, mqtt: m, publisher: pub, topics: topics}
}

// notify feeds a driver notification through the bridge's ingress handler.
func (tb *testBridge) notify(t *testing.T, payload string) {
	t.Helper()
	if err := tb.bridge.handleNotification(tb.topics.DriverNotification(), []byte(payload)); err != nil {
		t.Fatalf("handleNotification(%s) error = %v", payload, err)
	}
}

// controller feeds a controller callback through the bridge.
func (tb *testBridge) controller(t *testing.T, payload string) {
	t.Helper()
	if err := tb.bridge.handleController(tb.topics.DriverController(), []byte(payload)); err != nil {
		t.Fatalf("handleController(%s) error = %v", payload, err)
	}
}

// testResponse mirrors ResponseMessage with raw data for assertions.
type testResponse struct {
	RequestID string          `json:"request_id"`
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *ResponseError  `json:"error"`
}

// request serves payload as request id and returns the published response.
func (tb *testBridge) request(t *testing.T, id, payload string) testResponse {
	t.Helper()
	if err := tb.bridge.handleRequest(tb.topics.Request(id), []byte(payload)); err != nil {
		t.Fatalf("handleRequest() error = %v", err)
	}

	msgs := tb.mqtt.PublishedOn(tb.topics.Response(id))
	if len(msgs) == 0 {
		t.Fatalf("no response published for %s", id)
	}
	var resp testResponse
	if err := json.Unmarshal(msgs[len(msgs)-1].Payload, &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if resp.RequestID != id {
		t.Errorf("response request_id = %q, want %q", resp.RequestID, id)
	}
	return resp
}
