package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/simclock"
	"github.com/DangerosoDavo/simecs/ecs/zaplog"
	"github.com/DangerosoDavo/simecs/internal/config"
	"github.com/DangerosoDavo/simecs/internal/logging"
	"github.com/DangerosoDavo/simecs/internal/scenario"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config/orbitsim.toml", "path to the TOML config; empty uses built-in defaults")
	maxFrames := flag.Uint64("frames", 0, "stop after this many frames; 0 runs until interrupted")
	speedFlag := flag.String("speed", "", "override clock.initial_speed")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *speedFlag != "" {
		speed, err := simclock.ParseSpeed(*speedFlag)
		if err != nil {
			return err
		}
		cfg.Clock.InitialSpeed = speed
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	printer := message.NewPrinter(language.English)

	workers := cfg.Frame.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	world := ecs.NewWorld()
	sched, err := ecs.NewScheduler(world)
	if err != nil {
		return err
	}
	defer sched.Close()

	var collector *ecs.PrometheusJobCollector
	if cfg.Observability.MetricsPath != "" {
		collector = ecs.NewPrometheusJobCollector(&ecs.PrometheusCollectorOptions{
			DurationBuckets: []time.Duration{100 * time.Microsecond, time.Millisecond, 5 * time.Millisecond, 16 * time.Millisecond},
		}).(*ecs.PrometheusJobCollector)
	}
	observation := ecs.ObservationSettings{
		EnableStructuredLogging: cfg.Observability.LogJobs,
		LoggingFormat:           ecs.ObservationLogFormatJSON,
	}
	if cfg.Observability.LogFormat == "kv" {
		observation.LoggingFormat = ecs.ObservationLogFormatKeyValue
	}
	if collector != nil {
		observation.EnablePrometheus = true
		observation.PrometheusCollector = collector
	}
	if _, err := sched.Builder().
		WithWorkers(workers).
		WithBufferBlockSize(cfg.Buffers.BlockSize).
		WithLogger(zaplog.New(log)).
		WithInstrumentation(ecs.InstrumentationConfig{Observation: observation}).
		Build(nil); err != nil {
		return err
	}

	frame := simclock.NewFrameScheduler(simclock.WithBatchSize(cfg.Frame.BatchSize))
	if err := sched.Register(frame); err != nil {
		return err
	}
	frame.ChangeSpeed(cfg.Clock.InitialSpeed)

	entities := 0
	if cfg.Scenario.Path != "" {
		sc, err := scenario.Load(cfg.Scenario.Path)
		if err != nil {
			return err
		}
		ids, err := sc.Spawn(world)
		if err != nil {
			return err
		}
		entities = len(ids)
		log.Info(printer.Sprintf("spawned %d entities in %d rings", entities, len(sc.Rings)),
			zap.String("scenario", cfg.Scenario.Path))
	}

	log.Info("orbitsim running",
		zap.Int("workers", workers),
		zap.Duration("interval", cfg.Frame.Interval),
		zap.Stringer("speed", cfg.Clock.InitialSpeed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return frameLoop(ctx, log, printer, sched, frame, cfg.Frame.Interval, *maxFrames)
	})
	if collector != nil {
		g.Go(func() error {
			return flushMetrics(ctx, collector, cfg.Observability.MetricsPath, 10*time.Second)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info(printer.Sprintf("stopped after %d frames", frame.Frames()),
		zap.Float64("clock_seconds", frame.Clock().Seconds()))
	return nil
}

// frameLoop ticks the scheduler on a fixed interval and reports progress
// about once per wall-clock second.
func frameLoop(ctx context.Context, log *zap.Logger, printer *message.Printer, sched ecs.Scheduler, frame *simclock.FrameScheduler, interval time.Duration, maxFrames uint64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reportEvery := uint64(time.Second / interval)
	if reportEvery == 0 {
		reportEvery = 1
	}
	var revolutions uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := sched.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frame %d: %w", sched.FrameIndex(), err)
		}
		simclock.EachRevolution(sched.Buffers(), func(simclock.RevolutionEvent) bool {
			revolutions++
			return true
		})

		n := sched.FrameIndex()
		if n%reportEvery == 0 {
			log.Info(printer.Sprintf("frame %d", n),
				zap.Float64("clock_seconds", frame.Clock().Seconds()),
				zap.Float64("speed", frame.SpeedFactor()),
				zap.Uint64("revolutions", revolutions),
			)
		}
		if maxFrames > 0 && n >= maxFrames {
			return nil
		}
	}
}

// flushMetrics rewrites the metrics file periodically and once more on shutdown.
func flushMetrics(ctx context.Context, collector *ecs.PrometheusJobCollector, path string, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return writeMetrics(collector, path)
		case <-ticker.C:
			if err := writeMetrics(collector, path); err != nil {
				return err
			}
		}
	}
}

func writeMetrics(collector *ecs.PrometheusJobCollector, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := collector.WriteMetrics(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write metrics: %w", errors.Join(err, os.Remove(tmp.Name())))
	}
	return nil
}
