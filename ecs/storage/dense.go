package storage

import (
	"fmt"

	ecs "github.com/DangerosoDavo/simecs"
)

type denseStrategy struct{}

// NewDenseStrategy constructs a dense storage strategy. Slots are indexed by
// entity index, so the store supports disjoint range iteration for parallel jobs.
func NewDenseStrategy() ecs.StorageStrategy {
	return denseStrategy{}
}

func (denseStrategy) Name() string {
	return "dense"
}

func (denseStrategy) NewStore(t ecs.ComponentType) ecs.ComponentStore {
	return &denseStore{typ: t}
}

// denseStore is not synchronised. Mutation happens through deferred commands
// at the frame boundary; during a frame jobs only read slots, and may mutate
// pointer values in place within their own index range.
type denseStore struct {
	typ   ecs.ComponentType
	slots []denseSlot
	count int
}

type denseSlot struct {
	generation uint32
	value      any
	occupied   bool
}

func (s *denseStore) ComponentType() ecs.ComponentType {
	return s.typ
}

func (s *denseStore) Len() int {
	return s.count
}

// Span is one past the highest slot index ever used.
func (s *denseStore) Span() int {
	return len(s.slots)
}

func (s *denseStore) Has(id ecs.EntityID) bool {
	idx := int(id.Index())
	if idx >= len(s.slots) {
		return false
	}
	slot := s.slots[idx]
	return slot.occupied && slot.generation == id.Generation()
}

func (s *denseStore) Get(id ecs.EntityID) (any, bool) {
	if !s.Has(id) {
		return nil, false
	}
	return s.slots[int(id.Index())].value, true
}

func (s *denseStore) Iterate(fn func(ecs.EntityID, any) bool) {
	s.IterateRange(0, len(s.slots), fn)
}

func (s *denseStore) IterateRange(start, end int, fn func(ecs.EntityID, any) bool) {
	if start < 0 {
		start = 0
	}
	if end > len(s.slots) {
		end = len(s.slots)
	}
	for idx := start; idx < end; idx++ {
		slot := &s.slots[idx]
		if !slot.occupied {
			continue
		}
		if !fn(ecs.EntityIDFromParts(uint32(idx), slot.generation), slot.value) {
			return
		}
	}
}

func (s *denseStore) Set(id ecs.EntityID, value any) error {
	if id.IsZero() {
		return fmt.Errorf("dense: cannot set zero entity")
	}
	s.ensureCapacity(int(id.Index()) + 1)
	slot := &s.slots[int(id.Index())]
	if !slot.occupied {
		s.count++
	}
	slot.occupied = true
	slot.generation = id.Generation()
	slot.value = value
	return nil
}

func (s *denseStore) Remove(id ecs.EntityID) bool {
	if !s.Has(id) {
		return false
	}
	slot := &s.slots[int(id.Index())]
	slot.occupied = false
	slot.value = nil
	s.count--
	return true
}

func (s *denseStore) Clear() {
	clear(s.slots)
	s.count = 0
}

func (s *denseStore) ensureCapacity(size int) {
	if size <= len(s.slots) {
		return
	}
	if size <= cap(s.slots) {
		s.slots = s.slots[:size]
		return
	}
	grown := make([]denseSlot, size, max(size, 2*cap(s.slots)))
	copy(grown, s.slots)
	s.slots = grown
}

var _ ecs.IndexedView = (*denseStore)(nil)
var _ ecs.ComponentStore = (*denseStore)(nil)
