package ozw

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/zwave-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// Publisher is a zwave.Deliverer that publishes each event on
// zwave/event/{name} and keeps a retained snapshot of every tracked node on
// zwave/node/{home_id}/{node_id}/state.
//
// Removing a node clears its retained snapshot; a driver reset or removal
// clears all of them.
type Publisher struct {
	mqtt        MessagePublisher
	topics      mqtt.Topics
	qos         byte
	retainNodes bool

	// retained is the set of node topics holding a retained snapshot.
	retained map[zwave.NodeKey]struct{}
	mu       sync.Mutex
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	MQTT        MessagePublisher
	Topics      mqtt.Topics
	QoS         byte
	RetainNodes bool
}

// NewPublisher creates an event publisher.
func NewPublisher(opts PublisherOptions) *Publisher {
	return &Publisher{
		mqtt:        opts.MQTT,
		topics:      opts.Topics,
		qos:         opts.QoS,
		retainNodes: opts.RetainNodes,
		retained:    make(map[zwave.NodeKey]struct{}),
	}
}

// Deliver implements zwave.Deliverer.
func (p *Publisher) Deliver(_ context.Context, ev zwave.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", ev.Name, err)
	}
	if err := p.mqtt.Publish(p.topics.Event(ev.Name), payload, p.qos, false); err != nil {
		return fmt.Errorf("%w: event %q: %w", ErrPublishFailed, ev.Name, err)
	}

	if !p.retainNodes {
		return nil
	}

	switch {
	case ev.Type == zwave.NotificationNodeRemoved:
		return p.clearNode(zwave.NodeKey{HomeID: ev.HomeID, NodeID: ev.NodeID})
	case ev.Type == zwave.NotificationDriverReset || ev.Type == zwave.NotificationDriverRemoved:
		return p.clearAll()
	case ev.Node != nil:
		return p.publishNode(ev.Node)
	}
	return nil
}

func (p *Publisher) publishNode(node *zwave.NodeEntry) error {
	payload, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encoding node %d: %w", node.NodeID, err)
	}

	key := node.Key()
	if err := p.mqtt.Publish(p.topics.NodeState(key.HomeID, key.NodeID), payload, p.qos, true); err != nil {
		return fmt.Errorf("%w: node %d state: %w", ErrPublishFailed, key.NodeID, err)
	}

	p.mu.Lock()
	p.retained[key] = struct{}{}
	p.mu.Unlock()
	return nil
}

// clearNode publishes an empty retained message, which removes the
// broker's retained copy.
func (p *Publisher) clearNode(key zwave.NodeKey) error {
	p.mu.Lock()
	delete(p.retained, key)
	p.mu.Unlock()

	if err := p.mqtt.Publish(p.topics.NodeState(key.HomeID, key.NodeID), nil, p.qos, true); err != nil {
		return fmt.Errorf("%w: clearing node %d: %w", ErrPublishFailed, key.NodeID, err)
	}
	return nil
}

func (p *Publisher) clearAll() error {
	p.mu.Lock()
	keys := make([]zwave.NodeKey, 0, len(p.retained))
	for k := range p.retained {
		keys = append(keys, k)
	}
	p.mu.Unlock()

	var firstErr error
	for _, k := range keys {
		if err := p.clearNode(k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RetainedNodes returns how many node snapshots are currently retained.
func (p *Publisher) RetainedNodes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.retained)
}
