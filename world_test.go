package ecs_test

import (
	"errors"
	"testing"

	ecs "github.com/DangerosoDavo/simecs"
	ecsstorage "github.com/DangerosoDavo/simecs/ecs/storage"
)

func TestWorldRegisterComponent(t *testing.T) {
	world := ecs.NewWorld()

	strategy := ecsstorage.NewDenseStrategy()
	compType := ecs.ComponentType("position")

	if err := world.RegisterComponent(compType, strategy); err != nil {
		t.Fatalf("register component: %v", err)
	}

	if err := world.RegisterComponent(compType, strategy); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	view, err := world.ViewComponent(compType)
	if err != nil {
		t.Fatalf("view component: %v", err)
	}
	if view.ComponentType() != compType {
		t.Fatalf("unexpected component type: %v", view.ComponentType())
	}
}

func TestResourceContainer(t *testing.T) {
	world := ecs.NewWorld()
	world.Resources().Set("frame_budget", 123)

	value, ok := world.Resources().Get("frame_budget")
	if !ok {
		t.Fatalf("expected resource")
	}
	if value.(int) != 123 {
		t.Fatalf("unexpected resource value: %v", value)
	}

	seen := 0
	world.Resources().Range(func(k string, v any) bool {
		seen++
		return true
	})
	if seen == 0 {
		t.Fatalf("expected Range to visit entries")
	}

	world.Resources().Delete("frame_budget")
	if _, ok := world.Resources().Get("frame_budget"); ok {
		t.Fatalf("resource should be deleted")
	}
}

func TestWorldSingletonRoundTrip(t *testing.T) {
	world := ecs.NewWorld()
	if _, err := ecs.Singleton[*int](world, "counter"); !errors.Is(err, ecs.ErrSingletonMissing) {
		t.Fatalf("expected ErrSingletonMissing, got %v", err)
	}

	value := 7
	ecs.SetSingleton(world, "counter", &value)
	got, err := ecs.Singleton[*int](world, "counter")
	if err != nil {
		t.Fatalf("singleton: %v", err)
	}
	if got != &value {
		t.Fatalf("expected the stored pointer back")
	}

	if _, err := ecs.Singleton[string](world, "counter"); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestWorldIndexedComponent(t *testing.T) {
	world := ecs.NewWorld()
	if err := world.RegisterComponent("dense", ecsstorage.NewDenseStrategy()); err != nil {
		t.Fatalf("register dense: %v", err)
	}
	if err := world.RegisterComponent("shared", ecsstorage.NewSharedStrategy()); err != nil {
		t.Fatalf("register shared: %v", err)
	}

	if _, err := world.IndexedComponent("dense"); err != nil {
		t.Fatalf("dense store should be indexed: %v", err)
	}
	if _, err := world.IndexedComponent("shared"); !errors.Is(err, ecs.ErrNotIndexed) {
		t.Fatalf("expected ErrNotIndexed for shared store, got %v", err)
	}
	if _, err := world.IndexedComponent("missing"); !errors.Is(err, ecs.ErrComponentNotRegistered) {
		t.Fatalf("expected ErrComponentNotRegistered, got %v", err)
	}
}
