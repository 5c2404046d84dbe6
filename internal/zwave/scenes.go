package zwave

import (
	"fmt"
	"slices"
	"sync"
)

// maxSceneID is the largest scene identifier the driver supports.
const maxSceneID = 255

// SceneEntry is the cached state of one stored scene.
type SceneEntry struct {
	SceneID uint8     `json:"scene_id"`
	Label   string    `json:"label"`
	Values  []ValueID `json:"values"`
}

// DeepCopy returns an independent copy of the entry.
func (s *SceneEntry) DeepCopy() *SceneEntry {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.Values != nil {
		cpy.Values = slices.Clone(s.Values)
	}
	return &cpy
}

// SceneCache holds scenes created through the scene management surface.
// It has the same locking contract as NodeCache, keyed by scene ID.
// Operations on unknown scene IDs are silent no-ops.
type SceneCache struct {
	mu     sync.Mutex
	scenes map[uint8]*SceneEntry
}

// NewSceneCache creates an empty scene cache.
func NewSceneCache() *SceneCache {
	return &SceneCache{scenes: make(map[uint8]*SceneEntry)}
}

// Create stores a new scene. A sceneID of 0 picks the lowest free ID.
//
// Returns:
//   - uint8: the scene ID used
//   - error: ErrSceneExists if the ID is taken, ErrSceneLimit if none is free
func (c *SceneCache) Create(sceneID uint8, label string) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sceneID == 0 {
		for id := 1; id <= maxSceneID; id++ {
			if _, ok := c.scenes[uint8(id)]; !ok {
				sceneID = uint8(id)
				break
			}
		}
		if sceneID == 0 {
			return 0, ErrSceneLimit
		}
	}

	if _, ok := c.scenes[sceneID]; ok {
		return 0, fmt.Errorf("%w: %d", ErrSceneExists, sceneID)
	}

	c.scenes[sceneID] = &SceneEntry{SceneID: sceneID, Label: label}
	return sceneID, nil
}

// Upsert applies mutate to the scene, creating it if needed.
func (c *SceneCache) Upsert(sceneID uint8, mutate func(*SceneEntry)) SceneEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.scenes[sceneID]
	if !ok {
		entry = &SceneEntry{SceneID: sceneID}
		c.scenes[sceneID] = entry
	}
	if mutate != nil {
		mutate(entry)
	}
	return *entry.DeepCopy()
}

// Remove deletes the scene. It returns false if the scene was not cached.
func (c *SceneCache) Remove(sceneID uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.scenes[sceneID]; !ok {
		return false
	}
	delete(c.scenes, sceneID)
	return true
}

// Lookup returns a copy of the scene, or false if the scene is unknown.
func (c *SceneCache) Lookup(sceneID uint8) (SceneEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.scenes[sceneID]
	if !ok {
		return SceneEntry{}, false
	}
	return *entry.DeepCopy(), true
}

// AddValue adds v to the scene's value set if it is not already there.
// It returns false for unknown scenes.
func (c *SceneCache) AddValue(sceneID uint8, v ValueID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.scenes[sceneID]
	if !ok {
		return false
	}
	if !slices.Contains(entry.Values, v) {
		entry.Values = append(entry.Values, v)
	}
	return true
}

// RemoveValue drops v from the scene's value set.
// It returns false for unknown scenes.
func (c *SceneCache) RemoveValue(sceneID uint8, v ValueID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.scenes[sceneID]
	if !ok {
		return false
	}
	entry.Values = slices.DeleteFunc(entry.Values, func(x ValueID) bool { return x == v })
	return true
}

// RemoveValueEverywhere drops v from every scene, used when the driver
// removes a value from the network. It returns the number of scenes touched.
func (c *SceneCache) RemoveValueEverywhere(v ValueID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	touched := 0
	for _, entry := range c.scenes {
		before := len(entry.Values)
		entry.Values = slices.DeleteFunc(entry.Values, func(x ValueID) bool { return x == v })
		if len(entry.Values) != before {
			touched++
		}
	}
	return touched
}

// List returns copies of all scenes ordered by scene ID.
func (c *SceneCache) List() []SceneEntry {
	c.mu.Lock()
	out := make([]SceneEntry, 0, len(c.scenes))
	for _, entry := range c.scenes {
		out = append(out, *entry.DeepCopy())
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b SceneEntry) int {
		return int(a.SceneID) - int(b.SceneID)
	})
	return out
}

// Len returns the number of cached scenes.
func (c *SceneCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scenes)
}
