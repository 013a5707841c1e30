// Package scenario loads orbit ring layouts and spawns them into a world.
package scenario

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/simclock"
	"github.com/DangerosoDavo/simecs/ecs/vmath"
)

// Ring is a set of entities evenly spaced on a circle around the orbit axis.
type Ring struct {
	Name   string  `yaml:"name"`
	Count  int     `yaml:"count"`
	Radius float64 `yaml:"radius"`
	Height float64 `yaml:"height"` // offset along the orbit axis
	Rate   float64 `yaml:"rate"`   // radians per second; negative orbits the other way
}

type scenarioFile struct {
	Rings []Ring `yaml:"rings"`
}

// Scenario is a loaded ring table.
type Scenario struct {
	Rings []Ring
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a scenario document.
func Parse(raw []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, ring := range f.Rings {
		if ring.Count < 0 {
			return nil, fmt.Errorf("scenario ring %d (%s): negative count", i, ring.Name)
		}
		if ring.Radius < 0 {
			return nil, fmt.Errorf("scenario ring %d (%s): negative radius", i, ring.Name)
		}
	}
	return &Scenario{Rings: f.Rings}, nil
}

// Entities returns the number of entities Spawn creates.
func (s *Scenario) Entities() int {
	n := 0
	for _, ring := range s.Rings {
		n += ring.Count
	}
	return n
}

// Spawn creates every ring in world. Components must already be registered,
// which registering a simclock.FrameScheduler does.
func (s *Scenario) Spawn(world *ecs.World) ([]ecs.EntityID, error) {
	ids := make([]ecs.EntityID, 0, s.Entities())
	for _, ring := range s.Rings {
		start := len(ids)
		ids = world.Registry().CreateBatch(ring.Count, ids)
		rate := simclock.OrbitRate{RadiansPerSecond: ring.Rate}
		for i, id := range ids[start:] {
			theta := 2 * math.Pi * float64(i) / float64(ring.Count)
			transform := &simclock.Transform{
				Position:    vmath.Vec3{X: ring.Radius * math.Cos(theta), Y: ring.Height, Z: ring.Radius * math.Sin(theta)},
				Orientation: vmath.QuatIdentity,
			}
			if err := world.SetComponent(id, simclock.TransformComponent, transform); err != nil {
				return nil, fmt.Errorf("spawn ring %s: %w", ring.Name, err)
			}
			if err := world.SetComponent(id, simclock.OrbitRateComponent, rate); err != nil {
				return nil, fmt.Errorf("spawn ring %s: %w", ring.Name, err)
			}
		}
	}
	return ids, nil
}
