package ecs

import "errors"

var (
	// ErrComponentAlreadyRegistered indicates an attempt to register the same component twice.
	ErrComponentAlreadyRegistered = errors.New("ecs: component already registered")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrNilStorageStrategy is returned when storage registration receives a nil strategy.
	ErrNilStorageStrategy = errors.New("ecs: nil storage strategy")
	// ErrNilComponentStore is returned when a strategy produces a nil store.
	ErrNilComponentStore = errors.New("ecs: strategy returned nil store")
	// ErrWorkerPoolClosed indicates jobs cannot be scheduled because the pool closed.
	ErrWorkerPoolClosed = errors.New("ecs: worker pool closed")
	// ErrAccessConflict indicates a job was scheduled alongside a running job that
	// touches the same component or resource without a dependency between them.
	ErrAccessConflict = errors.New("ecs: conflicting access without dependency")
	// ErrDuplicateWriteAccess indicates a descriptor claims the same write twice.
	ErrDuplicateWriteAccess = errors.New("ecs: duplicate write access in descriptor")
	// ErrDependencyFailed wraps the error of a predecessor job that prevented a job from running.
	ErrDependencyFailed = errors.New("ecs: dependency failed")
	// ErrNotIndexed indicates a component store cannot be partitioned by index range.
	ErrNotIndexed = errors.New("ecs: component store does not support range iteration")
	// ErrSingletonMissing indicates a singleton resource was read before it was created.
	ErrSingletonMissing = errors.New("ecs: singleton not present")
)
