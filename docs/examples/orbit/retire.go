// Package orbit shows a gameplay system layered on top of the simulation
// clock. RetireSystem consumes the revolution events the frame scheduler
// writes into the per-worker buffers and removes entities that have turned
// often enough.
package orbit

import (
	"context"
	"sync"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/simclock"
)

// Retirement records an entity removed by RetireSystem.
type Retirement struct {
	Entity      ecs.EntityID
	Revolutions uint32
	SimSeconds  float64
}

// RetireSystem destroys entities once they complete Limit revolutions.
// Register it after the frame scheduler so its job is ordered behind the
// clock update.
type RetireSystem struct {
	Limit uint32

	mu      sync.Mutex
	retired []Retirement
}

func (s *RetireSystem) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{Name: "retire", Tags: []string{"orbit"}}
}

func (s *RetireSystem) Init(*ecs.World) error { return nil }

func (s *RetireSystem) Update(ctx context.Context, frame ecs.FrameContext, deps *ecs.JobHandle) (*ecs.JobHandle, error) {
	clock, err := simclock.ClockOf(frame.World())
	if err != nil {
		return nil, err
	}
	desc := ecs.JobDescriptor{
		Name:      "retire",
		Resources: []ecs.ResourceAccess{{Name: simclock.ClockResource, Mode: ecs.AccessModeRead}},
	}
	return frame.Jobs().Schedule(ctx, desc, func(context.Context) error {
		now := clock.Seconds()
		simclock.EachRevolution(frame.Buffers(), func(ev simclock.RevolutionEvent) bool {
			if ev.Revolutions < s.Limit {
				return true
			}
			frame.Defer(ecs.NewDestroyEntityCommand(ev.Entity))
			s.mu.Lock()
			s.retired = append(s.retired, Retirement{Entity: ev.Entity, Revolutions: ev.Revolutions, SimSeconds: now})
			s.mu.Unlock()
			return true
		})
		return nil
	}, deps)
}

// Retired returns a copy of the retirements so far.
func (s *RetireSystem) Retired() []Retirement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Retirement(nil), s.retired...)
}
