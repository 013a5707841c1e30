package ecs

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/trace"
	"sort"
	"sync"

	"github.com/DangerosoDavo/simecs/ecs/buffer"
)

const defaultBufferBlockSize = 4096

// NewScheduler constructs a frame scheduler bound to the provided world.
func NewScheduler(world *World) (Scheduler, error) {
	if world == nil {
		world = NewWorld()
	}
	s := &basicScheduler{
		world:         world,
		names:         make(map[string]struct{}),
		pool:          NewCommandBufferPool(),
		logger:        noopLogger{},
		observer:      noopObserver{},
		errorPolicies: make(map[string]ErrorPolicy),
		workers:       runtime.NumCPU(),
		blockSize:     defaultBufferBlockSize,
	}
	s.applyInstrumentation(InstrumentationConfig{})
	return s, nil
}

type basicScheduler struct {
	mu              sync.RWMutex
	world           *World
	systems         []*systemState
	names           map[string]struct{}
	jobs            *JobGraph
	buffers         *buffer.Pool
	workers         int
	blockSize       int
	pool            *CommandBufferPool
	logger          Logger
	instrumentation InstrumentationConfig
	observer        JobObserver
	errorPolicies   map[string]ErrorPolicy
	frameIndex      uint64
}

type systemState struct {
	system System
	desc   SystemDescriptor
	policy ErrorPolicy
}

type schedulerBuilder struct {
	scheduler *basicScheduler
}

// Builder returns a builder that can mutate the scheduler configuration.
func (s *basicScheduler) Builder() SchedulerBuilder {
	return &schedulerBuilder{scheduler: s}
}

func (b *schedulerBuilder) WithWorkers(count int) SchedulerBuilder {
	if count < 0 {
		count = 0
	}
	b.scheduler.mu.Lock()
	b.scheduler.workers = count
	b.scheduler.resetJobsLocked()
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithBufferBlockSize(size int) SchedulerBuilder {
	b.scheduler.mu.Lock()
	if size > 0 {
		b.scheduler.blockSize = size
		b.scheduler.buffers = nil
	}
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithErrorPolicy(system string, policy ErrorPolicy) SchedulerBuilder {
	b.scheduler.mu.Lock()
	if policy != 0 {
		b.scheduler.errorPolicies[system] = policy
	} else {
		delete(b.scheduler.errorPolicies, system)
	}
	for _, state := range b.scheduler.systems {
		if state.desc.Name == system {
			state.policy = b.scheduler.resolvePolicy(system)
		}
	}
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithLogger(logger Logger) SchedulerBuilder {
	b.scheduler.mu.Lock()
	if logger == nil {
		logger = noopLogger{}
	}
	b.scheduler.logger = logger
	b.scheduler.applyInstrumentation(b.scheduler.instrumentation)
	b.scheduler.resetJobsLocked()
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder {
	b.scheduler.mu.Lock()
	b.scheduler.applyInstrumentation(cfg)
	if b.scheduler.jobs != nil {
		b.scheduler.jobs.setObserver(b.scheduler.observer)
	}
	b.scheduler.mu.Unlock()
	return b
}

func (b *schedulerBuilder) Build(world *World) (Scheduler, error) {
	b.scheduler.mu.Lock()
	defer b.scheduler.mu.Unlock()
	if world != nil && world != b.scheduler.world {
		if len(b.scheduler.systems) > 0 {
			return nil, fmt.Errorf("ecs: cannot rebind world after systems were registered")
		}
		b.scheduler.world = world
	}
	return b.scheduler, nil
}

func (s *basicScheduler) applyInstrumentation(cfg InstrumentationConfig) {
	s.instrumentation = cfg
	s.observer = buildObserverChain(s.logger, cfg)
}

// resetJobsLocked drops the current graph so the next frame starts one with the
// current worker count. Called between frames only.
func (s *basicScheduler) resetJobsLocked() {
	if s.jobs != nil {
		s.jobs.Close()
		s.jobs = nil
	}
	s.buffers = nil
}

func (s *basicScheduler) ensureJobsLocked() (*JobGraph, *buffer.Pool) {
	if s.jobs == nil {
		s.jobs = NewJobGraph(s.workers, WithJobObserver(s.observer), WithJobLogger(s.logger))
	}
	if s.buffers == nil || s.buffers.Lanes() != s.jobs.Workers() {
		s.buffers = buffer.NewPool(s.jobs.Workers(), s.blockSize)
	}
	return s.jobs, s.buffers
}

// Register initialises the system against the world and appends it to the frame order.
func (s *basicScheduler) Register(sys System) error {
	if sys == nil {
		return fmt.Errorf("ecs: nil system")
	}
	desc := sys.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("ecs: system requires non-empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[desc.Name]; exists {
		return fmt.Errorf("ecs: system %s already registered", desc.Name)
	}
	if err := sys.Init(s.world); err != nil {
		return fmt.Errorf("ecs: init system %s: %w", desc.Name, err)
	}
	s.names[desc.Name] = struct{}{}
	s.systems = append(s.systems, &systemState{
		system: sys,
		desc:   desc,
		policy: s.resolvePolicy(desc.Name),
	})
	return nil
}

func (s *basicScheduler) resolvePolicy(name string) ErrorPolicy {
	if policy, ok := s.errorPolicies[name]; ok {
		return policy
	}
	return ErrorPolicyAbort
}

// Jobs exposes the job graph so callers can schedule work outside the system list.
func (s *basicScheduler) Jobs() *JobGraph {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs, _ := s.ensureJobsLocked()
	return jobs
}

// Buffers exposes the per-worker output lanes. Their content is valid between
// the end of one frame and the start of the next.
func (s *basicScheduler) Buffers() *buffer.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, buffers := s.ensureJobsLocked()
	return buffers
}

type scheduledSystem struct {
	state  *systemState
	handle *JobHandle
}

// Tick builds one frame: it resets the output lanes, lets every due system
// schedule its jobs chained on the previous system's handle, waits for the
// frame to finish, and applies deferred commands.
func (s *basicScheduler) Tick(ctx context.Context) error {
	buf := s.pool.Get()
	defer s.pool.Put(buf)

	s.mu.Lock()
	jobs, buffers := s.ensureJobsLocked()
	systems := append([]*systemState(nil), s.systems...)
	logger := s.logger
	world := s.world
	frame := s.frameIndex
	s.mu.Unlock()

	jobs.setFrame(frame)
	// The previous Tick waited for all of its handles, so no worker holds a lane here.
	buffers.Reset()

	exec := &frameContext{
		world:    world,
		frame:    frame,
		logger:   logger,
		jobs:     jobs,
		buffers:  buffers,
		commands: buf,
	}

	scheduled := make([]scheduledSystem, 0, len(systems))
	var deps *JobHandle
	var scheduleErr error
	for _, state := range systems {
		if err := ctx.Err(); err != nil {
			scheduleErr = err
			break
		}
		if !shouldRunTick(frame, state.desc.RunEvery) {
			continue
		}
		snapshot := buf.Snapshot()
		// Jobs of earlier systems may still read their context, so each system gets its own.
		sysCtx := *exec
		sysCtx.logger = logger.With("system", state.desc.Name)
		handle, err := state.system.Update(ctx, &sysCtx, deps)
		if handle != nil {
			// Work already queued is awaited even when Update fails.
			scheduled = append(scheduled, scheduledSystem{state: state, handle: handle})
		}
		if err != nil {
			err = fmt.Errorf("ecs: system %s failed: %w", state.desc.Name, err)
			buf.Restore(snapshot)
			if state.policy == ErrorPolicyContinue {
				logger.Error("system error", "system", state.desc.Name, "frame", frame, "err", err)
				continue
			}
			scheduleErr = err
			break
		}
		if handle != nil {
			deps = handle
		}
	}

	// Every handle is awaited even on failure so the next frame starts with idle workers.
	var frameErr error
	for _, entry := range scheduled {
		err := entry.handle.Wait()
		if err == nil || frameErr != nil {
			continue
		}
		if entry.state.policy == ErrorPolicyContinue {
			logger.Error("system jobs failed", "system", entry.state.desc.Name, "frame", frame, "err", err)
			continue
		}
		frameErr = fmt.Errorf("ecs: system %s jobs failed: %w", entry.state.desc.Name, err)
	}
	if scheduleErr != nil {
		return scheduleErr
	}
	if frameErr != nil {
		return frameErr
	}

	if drained := buf.Drain(); len(drained) > 0 {
		if err := world.ApplyCommands(drained); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.frameIndex++
	s.mu.Unlock()
	return nil
}

func shouldRunTick(tick uint64, interval TickInterval) bool {
	every := uint64(interval.Every)
	if every == 0 {
		return true
	}
	offset := uint64(interval.Offset % interval.Every)
	return (tick+offset)%every == 0
}

func (s *basicScheduler) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := s.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *basicScheduler) RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error {
	s.mu.RLock()
	enabled := s.instrumentation.EnableTrace
	s.mu.RUnlock()
	if enabled && w != nil {
		if err := trace.Start(w); err != nil {
			return err
		}
		defer trace.Stop()
	}
	return fn()
}

func (s *basicScheduler) FrameIndex() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameIndex
}

// Close stops the worker pool. Pending frames must have completed.
func (s *basicScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetJobsLocked()
}

// frameContext is handed to systems while a frame is being built.
type frameContext struct {
	world    *World
	frame    uint64
	logger   Logger
	jobs     *JobGraph
	buffers  *buffer.Pool
	commands *CommandBuffer
}

func (c *frameContext) World() *World { return c.world }

func (c *frameContext) FrameIndex() uint64 { return c.frame }

func (c *frameContext) Logger() Logger { return c.logger }

func (c *frameContext) Jobs() *JobGraph { return c.jobs }

func (c *frameContext) Buffers() *buffer.Pool { return c.buffers }

func (c *frameContext) Defer(cmd Command) { c.commands.Push(cmd) }

func componentSetToSlice(set map[ComponentType]struct{}) []ComponentType {
	if len(set) == 0 {
		return nil
	}
	out := make([]ComponentType, 0, len(set))
	for comp := range set {
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func stringSetToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for val := range set {
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}

// noopLogger is used until a real logger is supplied.
type noopLogger struct{}

func (noopLogger) With(string, any) Logger { return noopLogger{} }
func (noopLogger) Info(string, ...any)     {}
func (noopLogger) Error(string, ...any)    {}

type noopObserver struct{}

func (noopObserver) JobCompleted(JobSummary) {}
