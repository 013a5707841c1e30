package storage

import (
	"testing"

	ecs "github.com/DangerosoDavo/simecs"
)

func TestDenseStoreCRUD(t *testing.T) {
	strategy := NewDenseStrategy()
	store := strategy.NewStore(ecs.ComponentType("comp")).(*denseStore)

	reg := ecs.NewEntityRegistry()
	id := reg.Create()

	if err := store.Set(id, 42); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !store.Has(id) {
		t.Fatalf("expected Has to be true")
	}
	if got, ok := store.Get(id); !ok || got.(int) != 42 {
		t.Fatalf("unexpected get result: %#v, ok=%v", got, ok)
	}

	called := false
	store.Iterate(func(e ecs.EntityID, v any) bool {
		called = true
		if e != id {
			t.Fatalf("unexpected entity: %v", e)
		}
		if v.(int) != 42 {
			t.Fatalf("unexpected value: %v", v)
		}
		return true
	})
	if !called {
		t.Fatalf("expected iterate to visit entity")
	}

	if !store.Remove(id) {
		t.Fatalf("remove failed")
	}
	if store.Has(id) {
		t.Fatalf("value should be removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestDenseStoreRejectsZeroEntity(t *testing.T) {
	store := NewDenseStrategy().NewStore(ecs.ComponentType("comp"))
	if err := store.Set(ecs.EntityID{}, 10); err == nil {
		t.Fatalf("expected error for zero entity")
	}
}

func TestDenseStoreRejectsStaleGeneration(t *testing.T) {
	store := NewDenseStrategy().NewStore(ecs.ComponentType("comp"))
	live := ecs.EntityIDFromParts(3, 2)
	if err := store.Set(live, "x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if store.Has(ecs.EntityIDFromParts(3, 1)) {
		t.Fatalf("stale generation must not match")
	}
}

func TestDenseStoreRangesPartitionSlots(t *testing.T) {
	store := NewDenseStrategy().NewStore(ecs.ComponentType("comp")).(*denseStore)
	for i := 1; i <= 10; i++ {
		if i%3 == 0 {
			continue
		}
		if err := store.Set(ecs.EntityIDFromParts(uint32(i), 1), i); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if store.Span() != 11 {
		t.Fatalf("expected span 11, got %d", store.Span())
	}

	seen := make(map[int]int)
	for start := 0; start < store.Span(); start += 4 {
		store.IterateRange(start, start+4, func(id ecs.EntityID, v any) bool {
			seen[v.(int)]++
			if int(id.Index()) < start || int(id.Index()) >= start+4 {
				t.Fatalf("entity %v outside range [%d,%d)", id, start, start+4)
			}
			return true
		})
	}
	if len(seen) != store.Len() {
		t.Fatalf("expected %d values across ranges, got %d", store.Len(), len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("value %d visited %d times", v, n)
		}
	}
}

func TestDenseStoreClearKeepsSpan(t *testing.T) {
	store := NewDenseStrategy().NewStore(ecs.ComponentType("comp")).(*denseStore)
	_ = store.Set(ecs.EntityIDFromParts(5, 1), 1)
	store.Clear()
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	visited := false
	store.Iterate(func(ecs.EntityID, any) bool { visited = true; return true })
	if visited {
		t.Fatalf("expected no occupied slots after clear")
	}
}
