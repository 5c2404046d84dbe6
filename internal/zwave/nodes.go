package zwave

import (
	"slices"
	"sync"
)

// NodeKey identifies a node within a Z-Wave network.
type NodeKey struct {
	HomeID uint32
	NodeID uint8
}

// NodeEntry is the cached state of one node.
type NodeEntry struct {
	HomeID uint32    `json:"home_id"`
	NodeID uint8     `json:"node_id"`
	Polled bool      `json:"polled"`
	Values []ValueID `json:"values"`
}

// Key returns the cache key of the entry.
func (n *NodeEntry) Key() NodeKey {
	return NodeKey{HomeID: n.HomeID, NodeID: n.NodeID}
}

// AddValues appends each value that is not already present, keeping the
// existing order. It returns the number of values added.
func (n *NodeEntry) AddValues(vals ...ValueID) int {
	added := 0
	for _, v := range vals {
		if slices.Contains(n.Values, v) {
			continue
		}
		n.Values = append(n.Values, v)
		added++
	}
	return added
}

// RemoveValues drops the given values. It returns the number removed.
func (n *NodeEntry) RemoveValues(vals ...ValueID) int {
	before := len(n.Values)
	n.Values = slices.DeleteFunc(n.Values, func(v ValueID) bool {
		return slices.Contains(vals, v)
	})
	return before - len(n.Values)
}

// HasValue reports whether v is in the node's value set.
func (n *NodeEntry) HasValue(v ValueID) bool {
	return slices.Contains(n.Values, v)
}

// DeepCopy returns an independent copy of the entry.
func (n *NodeEntry) DeepCopy() *NodeEntry {
	if n == nil {
		return nil
	}
	cpy := *n
	if n.Values != nil {
		cpy.Values = slices.Clone(n.Values)
	}
	return &cpy
}

// NodeCache holds per-node state populated by notifications.
//
// Thread Safety:
//   - All methods hold the cache lock for their whole duration.
//   - Mutators run under the lock and must not call back into the cache or
//     into any other lock domain.
//   - Lookup and List return copies, so no caller ever holds a reference into
//     the cache after the lock is released.
type NodeCache struct {
	mu    sync.Mutex
	nodes map[NodeKey]*NodeEntry
}

// NewNodeCache creates an empty node cache.
func NewNodeCache() *NodeCache {
	return &NodeCache{nodes: make(map[NodeKey]*NodeEntry)}
}

// Upsert applies mutate to the entry for (homeID, nodeID), creating an empty
// entry first if the node is unknown. mutate may be nil.
//
// Returns:
//   - NodeEntry: copy of the entry after mutation
//   - bool: true if the entry was created by this call
func (c *NodeCache) Upsert(homeID uint32, nodeID uint8, mutate func(*NodeEntry)) (NodeEntry, bool) {
	key := NodeKey{HomeID: homeID, NodeID: nodeID}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.nodes[key]
	if !ok {
		entry = &NodeEntry{HomeID: homeID, NodeID: nodeID}
		c.nodes[key] = entry
	}
	if mutate != nil {
		mutate(entry)
	}
	return *entry.DeepCopy(), !ok
}

// Update applies mutate only if the node is already cached.
// Unknown nodes are left alone and Update returns false.
func (c *NodeCache) Update(homeID uint32, nodeID uint8, mutate func(*NodeEntry)) (NodeEntry, bool) {
	key := NodeKey{HomeID: homeID, NodeID: nodeID}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.nodes[key]
	if !ok {
		return NodeEntry{}, false
	}
	if mutate != nil {
		mutate(entry)
	}
	return *entry.DeepCopy(), true
}

// Remove deletes the node. It returns false if the node was not cached.
func (c *NodeCache) Remove(homeID uint32, nodeID uint8) bool {
	key := NodeKey{HomeID: homeID, NodeID: nodeID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[key]; !ok {
		return false
	}
	delete(c.nodes, key)
	return true
}

// Lookup returns a copy of the node entry, or false if the node is unknown.
func (c *NodeCache) Lookup(homeID uint32, nodeID uint8) (NodeEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.nodes[NodeKey{HomeID: homeID, NodeID: nodeID}]
	if !ok {
		return NodeEntry{}, false
	}
	return *entry.DeepCopy(), true
}

// List returns copies of all cached nodes ordered by home ID then node ID.
func (c *NodeCache) List() []NodeEntry {
	c.mu.Lock()
	out := make([]NodeEntry, 0, len(c.nodes))
	for _, entry := range c.nodes {
		out = append(out, *entry.DeepCopy())
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b NodeEntry) int {
		if a.HomeID != b.HomeID {
			if a.HomeID < b.HomeID {
				return -1
			}
			return 1
		}
		return int(a.NodeID) - int(b.NodeID)
	})
	return out
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// Clear drops every entry. Used when the driver is reset or removed.
func (c *NodeCache) Clear() {
	c.mu.Lock()
	c.nodes = make(map[NodeKey]*NodeEntry)
	c.mu.Unlock()
}
