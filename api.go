package ecs

import (
	"context"
	"io"
	"time"

	"github.com/DangerosoDavo/simecs/ecs/buffer"
)

// Scheduler drives registered systems once per frame.
type Scheduler interface {
	Tick(ctx context.Context) error
	Run(ctx context.Context, steps int) error
	RunWithTrace(ctx context.Context, w io.Writer, fn func() error) error
	Register(sys System) error
	Builder() SchedulerBuilder
	Jobs() *JobGraph
	Buffers() *buffer.Pool
	FrameIndex() uint64
	Close()
}

// SchedulerBuilder configures scheduler options prior to running frames.
type SchedulerBuilder interface {
	WithWorkers(count int) SchedulerBuilder
	WithBufferBlockSize(size int) SchedulerBuilder
	WithErrorPolicy(system string, policy ErrorPolicy) SchedulerBuilder
	WithLogger(logger Logger) SchedulerBuilder
	WithInstrumentation(cfg InstrumentationConfig) SchedulerBuilder
	Build(world *World) (Scheduler, error)
}

// TickInterval controls how frequently a system runs.
type TickInterval struct {
	Every  uint32
	Offset uint32
}

// ErrorPolicy defines how the scheduler responds to system failures.
type ErrorPolicy uint8

const (
	ErrorPolicyAbort ErrorPolicy = iota + 1
	ErrorPolicyContinue
)

// InstrumentationConfig configures logging, tracing, and metrics sinks.
type InstrumentationConfig struct {
	EnableTrace bool
	Observer    JobObserver
	Observation ObservationSettings
}

// ObservationSettings toggles built-in observer integrations.
type ObservationSettings struct {
	EnableStructuredLogging bool
	LoggingFormat           ObservationLogFormat
	StructuredLogger        Logger
	EnablePrometheus        bool
	PrometheusCollector     PrometheusCollector
	PrometheusOptions       *PrometheusCollectorOptions
	EnableSigNoz            bool
	SigNozExporter          SigNozExporter
	SigNozOptions           *SigNozOptions
}

// ObservationLogFormat controls structured logging encoding.
type ObservationLogFormat uint8

const (
	ObservationLogFormatJSON ObservationLogFormat = iota
	ObservationLogFormatKeyValue
)

// JobObserver receives a summary after every job completes.
// Implementations are called from worker goroutines and must be safe for concurrent use.
type JobObserver interface {
	JobCompleted(summary JobSummary)
}

// PrometheusCollector handles job summaries for Prometheus-style metrics.
type PrometheusCollector interface {
	ObserveJob(summary JobSummary)
}

type PrometheusCollectorOptions struct {
	Writer          io.Writer
	DurationBuckets []time.Duration
}

// SigNozExporter handles job summaries for SigNoz platforms.
type SigNozExporter interface {
	ExportJob(summary JobSummary)
}

type SigNozOptions struct {
	Writer      io.Writer
	ServiceName string
}

// JobSummary captures execution metadata for a completed job.
type JobSummary struct {
	Job             string
	Frame           uint64
	Partitions      int
	Items           int
	Duration        time.Duration
	Error           error
	ComponentReads  []ComponentType
	ComponentWrites []ComponentType
	ResourceReads   []string
	ResourceWrites  []string
}

// System is a frame participant. Update schedules the system's work and returns
// a handle that completes when that work has finished. deps is the handle of the
// systems that ran before it in the same frame and may be nil. A handle returned
// together with an error covers work that was queued before the failure; the
// scheduler waits on it before the frame ends.
type System interface {
	Descriptor() SystemDescriptor
	Init(world *World) error
	Update(ctx context.Context, frame FrameContext, deps *JobHandle) (*JobHandle, error)
}

// SystemDescriptor describes scheduling metadata for a system.
type SystemDescriptor struct {
	Name     string
	Tags     []string
	RunEvery TickInterval
}

// JobDescriptor declares the component and resource access of a job.
type JobDescriptor struct {
	Name      string
	Reads     []ComponentType
	Writes    []ComponentType
	Resources []ResourceAccess
}

// FrameContext supplies a system with scoped access to the frame being built.
type FrameContext interface {
	World() *World
	FrameIndex() uint64
	Logger() Logger
	Jobs() *JobGraph
	Buffers() *buffer.Pool
	Defer(cmd Command)
}

// World encapsulates entity/component storage and resources.
type World struct {
	registry  *EntityRegistry
	storage   StorageProvider
	resources ResourceContainer
}

// StorageProvider manages component storage backends.
type StorageProvider interface {
	RegisterComponent(ComponentType, StorageStrategy) error
	View(ComponentType) (ComponentView, error)
	Apply(*World, []Command) error
}

// StorageStrategy describes how a component type is stored internally.
type StorageStrategy interface {
	Name() string
	NewStore(ComponentType) ComponentStore
}

// ComponentType identifies a component storage bucket.
type ComponentType string

// ResourceAccess declares mutable or immutable access to a resource.
type ResourceAccess struct {
	Name string
	Mode AccessMode
}

// AccessMode indicates read or write intent when using a resource.
type AccessMode uint8

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

// ComponentStore permits read/write access to component instances.
type ComponentStore interface {
	ComponentView
	Set(EntityID, any) error
	Remove(EntityID) bool
	Clear()
}

// ComponentView exposes read-only iteration over stored components.
type ComponentView interface {
	ComponentType() ComponentType
	Len() int
	Has(EntityID) bool
	Get(EntityID) (any, bool)
	Iterate(func(EntityID, any) bool)
}

// IndexedView is implemented by stores whose slots can be split into disjoint
// index ranges, which is what parallel passes partition over.
// IterateRange visits occupied slots in [start, end).
type IndexedView interface {
	ComponentView
	Span() int
	IterateRange(start, end int, fn func(EntityID, any) bool)
}

// Command represents a deferred mutation applied at the frame boundary.
type Command interface {
	Apply(world *World) error
}

// Logger captures structured log output from systems and jobs.
type Logger interface {
	With(key string, value any) Logger
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ResourceContainer holds shared resources accessible to systems.
type ResourceContainer interface {
	Get(name string) (any, bool)
	Set(name string, value any)
	Delete(name string)
	Range(func(string, any) bool)
}
