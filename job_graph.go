package ecs

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"
)

// JobHandle represents the completion of a scheduled job. A nil handle is
// treated as already complete, so it can be passed as a dependency freely.
type JobHandle struct {
	name string
	done chan struct{}

	mu        sync.Mutex
	completed bool
	err       error
	next      []func()
	deps      []*JobHandle
	access    *accessSet
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func newJobHandle(name string, deps []*JobHandle, access *accessSet) *JobHandle {
	return &JobHandle{
		name:   name,
		done:   make(chan struct{}),
		deps:   deps,
		access: access,
	}
}

// Name returns the job name the handle was scheduled under.
func (h *JobHandle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Wait blocks until the job completes and returns its error.
func (h *JobHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.Err()
}

// Done returns a channel closed on completion.
func (h *JobHandle) Done() <-chan struct{} {
	if h == nil {
		return closedDone
	}
	return h.done
}

// Completed reports whether the job has finished.
func (h *JobHandle) Completed() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Err returns the job error once completed, nil before that.
func (h *JobHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// whenDone runs fn once the handle completes, immediately if it already has.
func (h *JobHandle) whenDone(fn func()) {
	if h == nil {
		fn()
		return
	}
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		fn()
		return
	}
	h.next = append(h.next, fn)
	h.mu.Unlock()
}

func (h *JobHandle) complete(err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	h.err = err
	next := h.next
	h.next = nil
	h.deps = nil
	h.access = nil
	close(h.done)
	h.mu.Unlock()
	for _, fn := range next {
		fn()
	}
}

// parents returns the predecessors of a handle that is still running.
func (h *JobHandle) parents() []*JobHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completed {
		return nil
	}
	return h.deps
}

// Combine joins handles into one that completes when all of them have.
// Errors from the inputs are joined.
func Combine(handles ...*JobHandle) *JobHandle {
	deps := compactHandles(handles)
	switch len(deps) {
	case 0:
		return nil
	case 1:
		return deps[0]
	}
	h := newJobHandle("combine", deps, nil)
	afterAll(deps, func(err error) { h.complete(err) })
	return h
}

func compactHandles(handles []*JobHandle) []*JobHandle {
	out := make([]*JobHandle, 0, len(handles))
	for _, h := range handles {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// afterAll calls fn once every dep has completed, passing their joined errors.
func afterAll(deps []*JobHandle, fn func(error)) {
	var pending atomic.Int32
	pending.Store(int32(len(deps)) + 1)
	release := func() {
		if pending.Add(-1) != 0 {
			return
		}
		var errs []error
		for _, d := range deps {
			if err := d.Err(); err != nil {
				errs = append(errs, err)
			}
		}
		fn(errors.Join(errs...))
	}
	for _, d := range deps {
		d.whenDone(release)
	}
	release()
}

// JobGraph schedules jobs onto a worker pool. Edges between jobs are explicit
// predecessor handles; a job becomes runnable once all of them completed.
type JobGraph struct {
	pool     *workerPool
	observer JobObserver
	logger   Logger
	frame    atomic.Uint64

	mu       sync.Mutex
	closed   bool
	inflight map[*JobHandle]struct{}
}

// JobGraphOption customises a job graph.
type JobGraphOption func(*JobGraph)

// WithJobObserver publishes a summary for every completed job.
func WithJobObserver(observer JobObserver) JobGraphOption {
	return func(g *JobGraph) {
		if observer != nil {
			g.observer = observer
		}
	}
}

// WithJobLogger sets the logger used for job failures.
func WithJobLogger(logger Logger) JobGraphOption {
	return func(g *JobGraph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewJobGraph starts workers goroutines. workers <= 0 runs every job inline on
// the scheduling goroutine, which keeps tests deterministic.
func NewJobGraph(workers int, opts ...JobGraphOption) *JobGraph {
	g := &JobGraph{
		pool:     newWorkerPool(workers),
		observer: noopObserver{},
		logger:   noopLogger{},
		inflight: make(map[*JobHandle]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Workers reports the parallelism degree, which is also the number of buffer lanes a frame needs.
func (g *JobGraph) Workers() int {
	return g.pool.Size()
}

// Close rejects further scheduling and waits for queued work to drain.
func (g *JobGraph) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.pool.Close()
}

func (g *JobGraph) setFrame(frame uint64) {
	g.frame.Store(frame)
}

func (g *JobGraph) setObserver(observer JobObserver) {
	if observer == nil {
		observer = noopObserver{}
	}
	g.observer = observer
}

// Schedule queues fn to run once every dep has completed. The returned handle
// is available immediately; scheduling never waits on other jobs.
func (g *JobGraph) Schedule(ctx context.Context, desc JobDescriptor, fn func(ctx context.Context) error, deps ...*JobHandle) (*JobHandle, error) {
	h, access, err := g.register(desc, deps)
	if err != nil {
		return nil, err
	}
	afterAll(h.deps, func(depErr error) {
		if ok := g.ready(ctx, h, desc, access, depErr); !ok {
			return
		}
		accepted := g.pool.submit(func(worker int) {
			start := time.Now()
			err := runJob(ctx, desc.Name, func() error { return fn(ctx) })
			g.finish(h, err, g.summarize(desc, access, 1, 1, time.Since(start), err))
		})
		if !accepted {
			g.finish(h, ErrWorkerPoolClosed, g.summarize(desc, access, 0, 0, 0, ErrWorkerPoolClosed))
		}
	})
	return h, nil
}

// ScheduleParallel splits [0, n) into partitions of at most batch items and
// runs fn over each partition on the pool. worker identifies the executing
// worker so fn can write to per-worker state without locking. batch <= 0
// picks a size that yields a few partitions per worker.
func (g *JobGraph) ScheduleParallel(ctx context.Context, desc JobDescriptor, n, batch int, fn func(ctx context.Context, worker, start, end int) error, deps ...*JobHandle) (*JobHandle, error) {
	h, access, err := g.register(desc, deps)
	if err != nil {
		return nil, err
	}
	if batch <= 0 {
		batch = defaultBatch(n, g.Workers())
	}
	afterAll(h.deps, func(depErr error) {
		if ok := g.ready(ctx, h, desc, access, depErr); !ok {
			return
		}
		start := time.Now()
		if n <= 0 {
			g.finish(h, nil, g.summarize(desc, access, 0, 0, time.Since(start), nil))
			return
		}
		partitions := (n + batch - 1) / batch
		var remaining atomic.Int32
		remaining.Store(int32(partitions))
		var firstErr error
		var errOnce sync.Once
		for p := 0; p < partitions; p++ {
			lo := p * batch
			hi := min(lo+batch, n)
			accepted := g.pool.submit(func(worker int) {
				err := runJob(ctx, desc.Name, func() error { return fn(ctx, worker, lo, hi) })
				if err != nil {
					errOnce.Do(func() { firstErr = err })
				}
				if remaining.Add(-1) == 0 {
					g.finish(h, firstErr, g.summarize(desc, access, partitions, n, time.Since(start), firstErr))
				}
			})
			if !accepted {
				errOnce.Do(func() { firstErr = ErrWorkerPoolClosed })
				if remaining.Add(-1) == 0 {
					g.finish(h, firstErr, g.summarize(desc, access, partitions, n, time.Since(start), firstErr))
				}
			}
		}
	})
	return h, nil
}

func defaultBatch(n, workers int) int {
	if workers <= 0 {
		workers = 1
	}
	batch := n / (workers * 4)
	if batch < 1 {
		batch = 1
	}
	return batch
}

// register validates the descriptor against running jobs and records the new handle.
func (g *JobGraph) register(desc JobDescriptor, deps []*JobHandle) (*JobHandle, *accessSet, error) {
	access, err := newAccessSet(desc)
	if err != nil {
		return nil, nil, err
	}
	compact := compactHandles(deps)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, nil, ErrWorkerPoolClosed
	}
	if !access.empty() {
		for running := range g.inflight {
			running.mu.Lock()
			other := running.access
			running.mu.Unlock()
			what, clash := access.conflicts(other)
			if !clash || reaches(compact, running) {
				continue
			}
			return nil, nil, fmt.Errorf("%w: %s and %s both use %s", ErrAccessConflict, desc.Name, running.name, what)
		}
	}
	h := newJobHandle(desc.Name, compact, access)
	if !access.empty() {
		g.inflight[h] = struct{}{}
	}
	return h, access, nil
}

// ready reports whether the job should run, completing it otherwise.
func (g *JobGraph) ready(ctx context.Context, h *JobHandle, desc JobDescriptor, access *accessSet, depErr error) bool {
	if depErr != nil {
		err := fmt.Errorf("%w: %s: %w", ErrDependencyFailed, desc.Name, depErr)
		g.finish(h, err, g.summarize(desc, access, 0, 0, 0, err))
		return false
	}
	if err := ctx.Err(); err != nil {
		g.finish(h, err, g.summarize(desc, access, 0, 0, 0, err))
		return false
	}
	return true
}

func (g *JobGraph) finish(h *JobHandle, err error, summary JobSummary) {
	g.mu.Lock()
	delete(g.inflight, h)
	g.mu.Unlock()
	if err != nil {
		g.logger.With("job", h.name).Error("job failed", "err", err)
	}
	g.observer.JobCompleted(summary)
	h.complete(err)
}

func (g *JobGraph) summarize(desc JobDescriptor, access *accessSet, partitions, items int, d time.Duration, err error) JobSummary {
	return JobSummary{
		Job:             desc.Name,
		Frame:           g.frame.Load(),
		Partitions:      partitions,
		Items:           items,
		Duration:        d,
		Error:           err,
		ComponentReads:  componentSetToSlice(access.reads),
		ComponentWrites: componentSetToSlice(access.writes),
		ResourceReads:   stringSetToSlice(access.resourceReads),
		ResourceWrites:  stringSetToSlice(access.resourceWrites),
	}
}

// reaches reports whether target is deps or a still-running ancestor of deps.
// Completed handles drop their parents, and every ancestor of a completed
// handle has itself completed, so the walk stays within the live graph.
func reaches(deps []*JobHandle, target *JobHandle) bool {
	stack := append([]*JobHandle(nil), deps...)
	seen := make(map[*JobHandle]struct{}, len(stack))
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == target {
			return true
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		stack = append(stack, h.parents()...)
	}
	return false
}

func runJob(ctx context.Context, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ecs: job %s panicked: %v", name, r)
		}
	}()
	trace.WithRegion(ctx, name, func() { err = fn() })
	return err
}

// accessSet is the declared footprint of a job.
type accessSet struct {
	reads          map[ComponentType]struct{}
	writes         map[ComponentType]struct{}
	resourceReads  map[string]struct{}
	resourceWrites map[string]struct{}
}

func newAccessSet(desc JobDescriptor) (*accessSet, error) {
	name := desc.Name
	if name == "" {
		name = "<unnamed>"
	}
	set := &accessSet{
		reads:          make(map[ComponentType]struct{}, len(desc.Reads)),
		writes:         make(map[ComponentType]struct{}, len(desc.Writes)),
		resourceReads:  make(map[string]struct{}),
		resourceWrites: make(map[string]struct{}),
	}
	for _, comp := range desc.Reads {
		set.reads[comp] = struct{}{}
	}
	for _, comp := range desc.Writes {
		if _, dup := set.writes[comp]; dup {
			return nil, fmt.Errorf("%w: %s writes component %s multiple times", ErrDuplicateWriteAccess, name, comp)
		}
		set.writes[comp] = struct{}{}
	}
	for _, res := range desc.Resources {
		if res.Name == "" {
			continue
		}
		if res.Mode != AccessModeWrite {
			set.resourceReads[res.Name] = struct{}{}
			continue
		}
		if _, dup := set.resourceWrites[res.Name]; dup {
			return nil, fmt.Errorf("%w: %s writes resource %s multiple times", ErrDuplicateWriteAccess, name, res.Name)
		}
		set.resourceWrites[res.Name] = struct{}{}
	}
	return set, nil
}

func (a *accessSet) empty() bool {
	return len(a.reads) == 0 && len(a.writes) == 0 && len(a.resourceReads) == 0 && len(a.resourceWrites) == 0
}

// conflicts reports the first component or resource that one set writes and the other touches.
func (a *accessSet) conflicts(b *accessSet) (string, bool) {
	if b == nil {
		return "", false
	}
	for comp := range a.writes {
		if _, ok := b.writes[comp]; ok {
			return "component " + string(comp), true
		}
		if _, ok := b.reads[comp]; ok {
			return "component " + string(comp), true
		}
	}
	for comp := range b.writes {
		if _, ok := a.reads[comp]; ok {
			return "component " + string(comp), true
		}
	}
	for res := range a.resourceWrites {
		if _, ok := b.resourceWrites[res]; ok {
			return "resource " + res, true
		}
		if _, ok := b.resourceReads[res]; ok {
			return "resource " + res, true
		}
	}
	for res := range b.resourceWrites {
		if _, ok := a.resourceReads[res]; ok {
			return "resource " + res, true
		}
	}
	return "", false
}
