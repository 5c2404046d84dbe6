package zwave

import (
	"errors"
	"testing"
)

func TestSceneCache_Create(t *testing.T) {
	c := NewSceneCache()

	id, err := c.Create(0, "Evening")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != 1 {
		t.Errorf("first auto ID = %d, want 1", id)
	}

	if _, err := c.Create(1, "Dup"); !errors.Is(err, ErrSceneExists) {
		t.Errorf("Create(existing) error = %v, want ErrSceneExists", err)
	}

	if _, err := c.Create(3, "Night"); err != nil {
		t.Fatalf("Create(3) error = %v", err)
	}
	id, _ = c.Create(0, "Morning")
	if id != 2 {
		t.Errorf("auto ID = %d, want lowest free 2", id)
	}
}

func TestSceneCache_Limit(t *testing.T) {
	c := NewSceneCache()
	for range maxSceneID {
		if _, err := c.Create(0, "s"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := c.Create(0, "one too many"); !errors.Is(err, ErrSceneLimit) {
		t.Errorf("Create() error = %v, want ErrSceneLimit", err)
	}
}

func TestSceneCache_Values(t *testing.T) {
	c := NewSceneCache()
	id, _ := c.Create(0, "Movie")
	v1 := testValue(5, 0x26, 0)
	v2 := testValue(6, 0x26, 0)

	if !c.AddValue(id, v1) || !c.AddValue(id, v1) || !c.AddValue(id, v2) {
		t.Fatal("AddValue() = false for known scene")
	}
	s, _ := c.Lookup(id)
	if len(s.Values) != 2 {
		t.Errorf("Values = %v, want 2 distinct", s.Values)
	}

	c.RemoveValue(id, v1)
	s, _ = c.Lookup(id)
	if len(s.Values) != 1 || s.Values[0] != v2 {
		t.Errorf("Values after RemoveValue = %v", s.Values)
	}
}

func TestSceneCache_UnknownIsNoop(t *testing.T) {
	c := NewSceneCache()
	v := testValue(5, 0x26, 0)

	if c.AddValue(9, v) {
		t.Error("AddValue(unknown) = true")
	}
	if c.RemoveValue(9, v) {
		t.Error("RemoveValue(unknown) = true")
	}
	if c.Remove(9) {
		t.Error("Remove(unknown) = true")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestSceneCache_RemoveValueEverywhere(t *testing.T) {
	c := NewSceneCache()
	v := testValue(5, 0x26, 0)
	other := testValue(7, 0x25, 0)

	a, _ := c.Create(0, "A")
	b, _ := c.Create(0, "B")
	d, _ := c.Create(0, "C")
	c.AddValue(a, v)
	c.AddValue(b, v)
	c.AddValue(b, other)
	c.AddValue(d, other)

	if n := c.RemoveValueEverywhere(v); n != 2 {
		t.Errorf("RemoveValueEverywhere() = %d, want 2", n)
	}

	list := c.List()
	if len(list) != 3 || list[0].SceneID != a || list[2].SceneID != d {
		t.Fatalf("List() = %+v", list)
	}
	if len(list[0].Values) != 0 || len(list[1].Values) != 1 {
		t.Errorf("values left: A=%v B=%v", list[0].Values, list[1].Values)
	}
}

func TestSceneCache_Upsert(t *testing.T) {
	c := NewSceneCache()
	got := c.Upsert(4, func(s *SceneEntry) { s.Label = "Away" })
	if got.SceneID != 4 || got.Label != "Away" {
		t.Errorf("Upsert() = %+v", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
