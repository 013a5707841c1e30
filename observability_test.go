package ecs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPrometheusJobCollectorWritesMetrics(t *testing.T) {
	collector := NewPrometheusJobCollector(&PrometheusCollectorOptions{
		DurationBuckets: []time.Duration{time.Millisecond, 10 * time.Millisecond},
	})
	cimpl, ok := collector.(*PrometheusJobCollector)
	if !ok {
		t.Fatalf("expected PrometheusJobCollector implementation")
	}

	collector.ObserveJob(JobSummary{Job: "orbit", Frame: 42, Partitions: 4, Items: 1000, Duration: 5 * time.Millisecond})
	collector.ObserveJob(JobSummary{Job: "orbit", Frame: 43, Partitions: 4, Items: 1000, Duration: 2 * time.Millisecond, Error: errors.New("boom")})

	var buf bytes.Buffer
	if err := cimpl.WriteMetrics(&buf); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
	metrics := buf.String()
	for _, want := range []string{
		`simecs_job_duration_seconds_count{job="orbit"} 2.000000`,
		`simecs_job_items_total{job="orbit"} 2000.000000`,
		`simecs_job_partitions_total{job="orbit"} 8.000000`,
		`simecs_job_errors_total{job="orbit"} 1.000000`,
		`simecs_job_duration_seconds_bucket{job="orbit",le="0.010000"} 2.000000`,
	} {
		if !strings.Contains(metrics, want) {
			t.Fatalf("expected %q in %q", want, metrics)
		}
	}
}

func TestSigNozSpanExporterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewSigNozSpanExporter(&SigNozOptions{Writer: &buf, ServiceName: "simecs-test"})

	exporter.ExportJob(JobSummary{
		Job:           "clock",
		Frame:         13,
		Partitions:    1,
		Items:         1,
		Duration:      10 * time.Millisecond,
		ResourceReads: []string{"sim_clock"},
	})

	if buf.Len() == 0 {
		t.Fatalf("expected exporter to write output")
	}

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["name"] != "job:clock" {
		t.Fatalf("unexpected span name: %v", payload["name"])
	}
	attrs, ok := payload["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes missing in payload: %v", payload)
	}
	if attrs["job"] != "clock" {
		t.Fatalf("unexpected job attribute: %v", attrs["job"])
	}
}

type capturingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *capturingLogger) With(string, any) Logger { return l }

func (l *capturingLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *capturingLogger) Error(msg string, args ...any) { l.Info(msg, args...) }

func TestBuildObserverChainComposes(t *testing.T) {
	logger := &capturingLogger{}
	var spans bytes.Buffer
	observer := buildObserverChain(logger, InstrumentationConfig{
		Observation: ObservationSettings{
			EnableStructuredLogging: true,
			LoggingFormat:           ObservationLogFormatJSON,
			EnableSigNoz:            true,
			SigNozOptions:           &SigNozOptions{Writer: &spans},
		},
	})
	if _, ok := observer.(compositeObserver); !ok {
		t.Fatalf("expected composite observer, got %T", observer)
	}

	observer.JobCompleted(JobSummary{Job: "orbit", Items: 3})
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], `"job":"orbit"`) {
		t.Fatalf("unexpected log lines: %v", logger.lines)
	}
	if spans.Len() == 0 {
		t.Fatalf("expected signoz span output")
	}

	if _, ok := buildObserverChain(logger, InstrumentationConfig{}).(noopObserver); !ok {
		t.Fatalf("expected noop observer without configuration")
	}
}
