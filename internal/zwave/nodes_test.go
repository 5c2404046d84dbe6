package zwave

import (
	"sync"
	"testing"
)

func TestNodeCache_UpsertLookupRemove(t *testing.T) {
	c := NewNodeCache()

	entry, created := c.Upsert(1, 5, nil)
	if !created {
		t.Error("first Upsert() created = false")
	}
	if entry.NodeID != 5 || entry.HomeID != 1 || len(entry.Values) != 0 {
		t.Errorf("Upsert() = %+v, want empty node 5", entry)
	}

	_, created = c.Upsert(1, 5, func(n *NodeEntry) { n.AddValues(testValue(5, 0x25, 0)) })
	if created {
		t.Error("second Upsert() created = true")
	}

	got, ok := c.Lookup(1, 5)
	if !ok {
		t.Fatal("Lookup() ok = false")
	}
	if len(got.Values) != 1 {
		t.Errorf("Values = %v, want one value", got.Values)
	}

	if !c.Remove(1, 5) {
		t.Error("Remove() = false for cached node")
	}
	if _, ok := c.Lookup(1, 5); ok {
		t.Error("Lookup() after Remove ok = true")
	}
	if c.Remove(1, 5) {
		t.Error("Remove() = true for absent node")
	}
}

func TestNodeCache_UpdateUnknownIsNoop(t *testing.T) {
	c := NewNodeCache()

	called := false
	_, ok := c.Update(1, 9, func(*NodeEntry) { called = true })
	if ok || called {
		t.Errorf("Update() on unknown node: ok=%v called=%v", ok, called)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestNodeCache_LookupReturnsCopy(t *testing.T) {
	c := NewNodeCache()
	c.Upsert(1, 5, func(n *NodeEntry) { n.AddValues(testValue(5, 0x25, 0)) })

	got, _ := c.Lookup(1, 5)
	got.Values[0].Index = 42
	got.Polled = true

	again, _ := c.Lookup(1, 5)
	if again.Values[0].Index != 0 || again.Polled {
		t.Errorf("cache entry modified through snapshot: %+v", again)
	}
}

func TestNodeEntry_Values(t *testing.T) {
	v1 := testValue(5, 0x25, 0)
	v2 := testValue(5, 0x26, 0)

	n := &NodeEntry{NodeID: 5}
	if added := n.AddValues(v1, v2, v1); added != 2 {
		t.Errorf("AddValues() = %d, want 2", added)
	}
	if !n.HasValue(v2) {
		t.Error("HasValue(v2) = false")
	}
	if removed := n.RemoveValues(v1, testValue(5, 0x70, 3)); removed != 1 {
		t.Errorf("RemoveValues() = %d, want 1", removed)
	}
	if n.HasValue(v1) {
		t.Error("HasValue(v1) = true after removal")
	}
}

func TestNodeCache_ListSorted(t *testing.T) {
	c := NewNodeCache()
	c.Upsert(2, 1, nil)
	c.Upsert(1, 7, nil)
	c.Upsert(1, 3, nil)

	got := c.List()
	want := []NodeKey{{1, 3}, {1, 7}, {2, 1}}
	if len(got) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key() != want[i] {
			t.Errorf("List()[%d] = %v, want %v", i, got[i].Key(), want[i])
		}
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestNodeCache_ConcurrentAccess(t *testing.T) {
	c := NewNodeCache()
	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(2)
		go func(id uint8) {
			defer wg.Done()
			for j := range 100 {
				c.Upsert(1, id, func(n *NodeEntry) { n.AddValues(testValue(id, uint8(j), 0)) })
			}
		}(uint8(i))
		go func(id uint8) {
			defer wg.Done()
			for range 100 {
				c.Lookup(1, id)
				c.List()
			}
		}(uint8(i))
	}
	wg.Wait()

	for i := range 16 {
		n, ok := c.Lookup(1, uint8(i))
		if !ok || len(n.Values) != 100 {
			t.Errorf("node %d: ok=%v values=%d", i, ok, len(n.Values))
		}
	}
}
