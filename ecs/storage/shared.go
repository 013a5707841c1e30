package storage

import (
	"fmt"
	"reflect"
	"sync"

	ecs "github.com/DangerosoDavo/simecs"
)

// sharedStrategy creates stores where entities with equal component values
// reference one stored instance. Populations spawned from a handful of
// templates (orbit rates, spawn profiles) collapse to a few values.
//
// Shared values are immutable per entity: to change one entity's value, set a
// new value, which re-points only that entity.
type sharedStrategy struct{}

// NewSharedStrategy constructs a shared storage strategy.
func NewSharedStrategy() ecs.StorageStrategy {
	return sharedStrategy{}
}

func (sharedStrategy) Name() string {
	return "shared"
}

func (sharedStrategy) NewStore(t ecs.ComponentType) ecs.ComponentStore {
	s := &sharedStore{typ: t}
	s.reset()
	return s
}

type sharedValue struct {
	data     any
	refCount int
}

// sharedStore deduplicates values. Comparable values are found through a
// hash index; everything else falls back to a reflect.DeepEqual scan.
type sharedStore struct {
	mu       sync.RWMutex
	typ      ecs.ComponentType
	entities map[ecs.EntityID]uint32
	values   map[uint32]*sharedValue
	byKey    map[any]uint32
	nextID   uint32
}

func (s *sharedStore) reset() {
	s.entities = make(map[ecs.EntityID]uint32)
	s.values = make(map[uint32]*sharedValue)
	s.byKey = make(map[any]uint32)
	s.nextID = 1
}

func (s *sharedStore) ComponentType() ecs.ComponentType {
	return s.typ
}

func (s *sharedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func (s *sharedStore) Has(id ecs.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok
}

func (s *sharedStore) Get(id ecs.EntityID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	valueID, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	v, ok := s.values[valueID]
	if !ok {
		return nil, false
	}
	return v.data, true
}

func (s *sharedStore) Iterate(fn func(ecs.EntityID, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, valueID := range s.entities {
		v, ok := s.values[valueID]
		if !ok {
			continue
		}
		if !fn(id, v.data) {
			return
		}
	}
}

func (s *sharedStore) Set(id ecs.EntityID, value any) error {
	if id.IsZero() {
		return fmt.Errorf("shared: cannot set zero entity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	valueID := s.internLocked(value)
	if old, ok := s.entities[id]; ok {
		s.releaseLocked(old)
	}
	s.entities[id] = valueID
	return nil
}

func (s *sharedStore) Remove(id ecs.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	valueID, ok := s.entities[id]
	if !ok {
		return false
	}
	delete(s.entities, id)
	s.releaseLocked(valueID)
	return true
}

func (s *sharedStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// internLocked returns the id of a stored value equal to value, adding one
// reference, or stores value under a fresh id.
func (s *sharedStore) internLocked(value any) uint32 {
	key, hashable := hashKey(value)
	if hashable {
		if valueID, ok := s.byKey[key]; ok {
			s.values[valueID].refCount++
			return valueID
		}
	} else {
		for valueID, v := range s.values {
			if reflect.DeepEqual(v.data, value) {
				v.refCount++
				return valueID
			}
		}
	}

	valueID := s.nextID
	s.nextID++
	s.values[valueID] = &sharedValue{data: value, refCount: 1}
	if hashable {
		s.byKey[key] = valueID
	}
	return valueID
}

func (s *sharedStore) releaseLocked(valueID uint32) {
	v, ok := s.values[valueID]
	if !ok {
		return
	}
	v.refCount--
	if v.refCount > 0 {
		return
	}
	delete(s.values, valueID)
	if key, hashable := hashKey(v.data); hashable {
		delete(s.byKey, key)
	}
}

// hashKey reports whether value can be used as a map key without panicking.
func hashKey(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	if !reflect.ValueOf(value).Comparable() {
		return nil, false
	}
	return value, true
}

// Stats returns sharing statistics for the store.
func (s *sharedStore) Stats() SharedStorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SharedStorageStats{
		EntityCount:      len(s.entities),
		UniqueValueCount: len(s.values),
		SharingRatio:     float64(len(s.entities)) / float64(max(len(s.values), 1)),
	}
}

// SharedStorageStats reports how effectively a shared store deduplicates.
type SharedStorageStats struct {
	EntityCount      int
	UniqueValueCount int
	SharingRatio     float64 // entities per unique value
}

// SharedStats returns statistics when view is backed by shared storage.
func SharedStats(view ecs.ComponentView) (SharedStorageStats, bool) {
	store, ok := view.(*sharedStore)
	if !ok {
		return SharedStorageStats{}, false
	}
	return store.Stats(), true
}

var _ ecs.ComponentStore = (*sharedStore)(nil)
