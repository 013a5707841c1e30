package simclock

import (
	"errors"
	"math"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/storage"
	"github.com/DangerosoDavo/simecs/ecs/vmath"
)

const (
	TransformComponent ecs.ComponentType = "transform"
	OrbitRateComponent ecs.ComponentType = "orbit_rate"
)

// Transform is the movable state of an orbiting entity. It is stored by
// pointer so the orbit job can update it in place within its partition.
type Transform struct {
	Position    vmath.Vec3
	Orientation vmath.Quat
	// Angle is the total rotation applied so far, in radians.
	Angle float64
}

// Revolutions returns the number of full turns in t.Angle.
func (t *Transform) Revolutions() uint32 {
	return uint32(math.Abs(t.Angle) / (2 * math.Pi))
}

// OrbitRate is the angular speed of an entity about vmath.OrbitAxis.
type OrbitRate struct {
	RadiansPerSecond float64
}

// RegisterComponents registers dense transform storage and shared orbit rate
// storage. Components that are already registered are left as they are.
func RegisterComponents(world *ecs.World) error {
	if err := world.RegisterComponent(TransformComponent, storage.NewDenseStrategy()); err != nil && !errors.Is(err, ecs.ErrComponentAlreadyRegistered) {
		return err
	}
	if err := world.RegisterComponent(OrbitRateComponent, storage.NewSharedStrategy()); err != nil && !errors.Is(err, ecs.ErrComponentAlreadyRegistered) {
		return err
	}
	return nil
}

// Spawn creates an orbiting entity at position. Call it outside a frame; inside
// one, defer the equivalent commands instead.
func Spawn(world *ecs.World, position vmath.Vec3, radiansPerSecond float64) (ecs.EntityID, error) {
	id := world.Registry().Create()
	transform := &Transform{Position: position, Orientation: vmath.QuatIdentity}
	if err := world.SetComponent(id, TransformComponent, transform); err != nil {
		return ecs.EntityID{}, err
	}
	if err := world.SetComponent(id, OrbitRateComponent, OrbitRate{RadiansPerSecond: radiansPerSecond}); err != nil {
		return ecs.EntityID{}, err
	}
	return id, nil
}

// TransformOf returns the transform of id.
func TransformOf(world *ecs.World, id ecs.EntityID) (*Transform, bool) {
	view, err := world.ViewComponent(TransformComponent)
	if err != nil {
		return nil, false
	}
	value, ok := view.Get(id)
	if !ok {
		return nil, false
	}
	t, ok := value.(*Transform)
	return t, ok
}
