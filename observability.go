package ecs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type compositeObserver struct {
	observers []JobObserver
}

func (c compositeObserver) JobCompleted(summary JobSummary) {
	for _, observer := range c.observers {
		observer.JobCompleted(summary)
	}
}

type loggingObserver struct {
	logger Logger
	format ObservationLogFormat
}

func newLoggingObserver(logger Logger, format ObservationLogFormat) JobObserver {
	if logger == nil {
		return noopObserver{}
	}
	if format != ObservationLogFormatKeyValue {
		format = ObservationLogFormatJSON
	}
	return loggingObserver{logger: logger, format: format}
}

func (o loggingObserver) JobCompleted(summary JobSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		o.logKeyValue(summary)
	default:
		o.logJSON(summary)
	}
}

func (o loggingObserver) logJSON(summary JobSummary) {
	payload := map[string]any{
		"job":              summary.Job,
		"frame":            summary.Frame,
		"partitions":       summary.Partitions,
		"items":            summary.Items,
		"duration_ms":      float64(summary.Duration) / float64(time.Millisecond),
		"component_reads":  summary.ComponentReads,
		"component_writes": summary.ComponentWrites,
		"resource_reads":   summary.ResourceReads,
		"resource_writes":  summary.ResourceWrites,
	}
	if summary.Error != nil {
		payload["error"] = summary.Error.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.With("job", summary.Job).Error("job summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

func (o loggingObserver) logKeyValue(summary JobSummary) {
	builder := o.logger.With("job", summary.Job)
	args := []any{
		"frame", summary.Frame,
		"partitions", summary.Partitions,
		"items", summary.Items,
		"duration", summary.Duration,
		"component_reads", strings.Join(convertComponentTypes(summary.ComponentReads), ","),
		"component_writes", strings.Join(convertComponentTypes(summary.ComponentWrites), ","),
		"resource_reads", strings.Join(summary.ResourceReads, ","),
		"resource_writes", strings.Join(summary.ResourceWrites, ","),
	}
	if summary.Error != nil {
		args = append(args, "error", summary.Error.Error())
	}
	builder.Info("job summary", args...)
}

type prometheusObserver struct {
	collector PrometheusCollector
}

func newPrometheusObserver(collector PrometheusCollector) JobObserver {
	if collector == nil {
		return noopObserver{}
	}
	return prometheusObserver{collector: collector}
}

func (o prometheusObserver) JobCompleted(summary JobSummary) {
	o.collector.ObserveJob(summary)
}

type sigNozObserver struct {
	exporter SigNozExporter
}

func newSigNozObserver(exporter SigNozExporter) JobObserver {
	if exporter == nil {
		return noopObserver{}
	}
	return sigNozObserver{exporter: exporter}
}

func (o sigNozObserver) JobCompleted(summary JobSummary) {
	o.exporter.ExportJob(summary)
}

func convertComponentTypes(types []ComponentType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

func buildObserverChain(logger Logger, cfg InstrumentationConfig) JobObserver {
	var observers []JobObserver

	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}

	obs := cfg.Observation

	if obs.EnableStructuredLogging {
		structuredLogger := obs.StructuredLogger
		if structuredLogger == nil {
			structuredLogger = logger
		}
		observers = append(observers, newLoggingObserver(structuredLogger, obs.LoggingFormat))
	}

	if obs.EnablePrometheus {
		collector := obs.PrometheusCollector
		if collector == nil {
			collector = NewPrometheusJobCollector(obs.PrometheusOptions)
		}
		observers = append(observers, newPrometheusObserver(collector))
	}

	if obs.EnableSigNoz {
		exporter := obs.SigNozExporter
		if exporter == nil {
			exporter = NewSigNozSpanExporter(obs.SigNozOptions)
		}
		observers = append(observers, newSigNozObserver(exporter))
	}

	switch len(observers) {
	case 0:
		return noopObserver{}
	case 1:
		return observers[0]
	}
	return compositeObserver{observers: observers}
}

// PrometheusJobCollector aggregates job summaries into Prometheus text exposition.
type PrometheusJobCollector struct {
	options *PrometheusCollectorOptions
	mu      sync.Mutex
	samples map[string]*prometheusSample
}

type prometheusSample struct {
	durationSum   float64
	durationCount float64
	buckets       []float64
	items         float64
	partitions    float64
	errors        float64
}

func NewPrometheusJobCollector(opts *PrometheusCollectorOptions) PrometheusCollector {
	if opts == nil {
		opts = &PrometheusCollectorOptions{}
	}
	return &PrometheusJobCollector{
		options: opts,
		samples: make(map[string]*prometheusSample),
	}
}

func (c *PrometheusJobCollector) ObserveJob(summary JobSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample, ok := c.samples[summary.Job]
	if !ok {
		sample = &prometheusSample{}
		if buckets := c.options.DurationBuckets; len(buckets) > 0 {
			sample.buckets = make([]float64, len(buckets))
		}
		c.samples[summary.Job] = sample
	}
	durSeconds := summary.Duration.Seconds()
	sample.durationSum += durSeconds
	sample.durationCount++
	for i := range sample.buckets {
		if durSeconds <= c.options.DurationBuckets[i].Seconds() {
			sample.buckets[i]++
		}
	}
	sample.items += float64(summary.Items)
	sample.partitions += float64(summary.Partitions)
	if summary.Error != nil {
		sample.errors++
	}

	if writer := c.options.Writer; writer != nil {
		_ = c.writeMetricsLocked(writer)
	}
}

func (c *PrometheusJobCollector) WriteMetrics(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMetricsLocked(w)
}

func (c *PrometheusJobCollector) writeMetricsLocked(w io.Writer) error {
	if w == nil {
		return nil
	}
	keys := make([]string, 0, len(c.samples))
	for key := range c.samples {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("# HELP simecs_job_duration_seconds Job execution duration.\n")
	buf.WriteString("# TYPE simecs_job_duration_seconds summary\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("job=%q", key)
		fmt.Fprintf(&buf, "simecs_job_duration_seconds_sum{%s} %f\n", labels, sample.durationSum)
		fmt.Fprintf(&buf, "simecs_job_duration_seconds_count{%s} %f\n", labels, sample.durationCount)
		for i, bucket := range sample.buckets {
			le := c.options.DurationBuckets[i].Seconds()
			fmt.Fprintf(&buf, "simecs_job_duration_seconds_bucket{%s,le=\"%.6f\"} %f\n", labels, le, bucket)
		}
	}

	writeCounter := func(name, help string, value func(*prometheusSample) float64) {
		fmt.Fprintf(&buf, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&buf, "# TYPE %s counter\n", name)
		for _, key := range keys {
			fmt.Fprintf(&buf, "%s{job=%q} %f\n", name, key, value(c.samples[key]))
		}
	}
	writeCounter("simecs_job_items_total", "Items processed per job.", func(s *prometheusSample) float64 { return s.items })
	writeCounter("simecs_job_partitions_total", "Partitions executed per job.", func(s *prometheusSample) float64 { return s.partitions })
	writeCounter("simecs_job_errors_total", "Job error count.", func(s *prometheusSample) float64 { return s.errors })

	_, err := w.Write(buf.Bytes())
	return err
}

// SigNozSpanExporter writes one JSON span per job to the configured writer.
type SigNozSpanExporter struct {
	opts *SigNozOptions
	mu   sync.Mutex
}

func NewSigNozSpanExporter(opts *SigNozOptions) SigNozExporter {
	if opts == nil {
		opts = &SigNozOptions{}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "simecs"
	}
	return &SigNozSpanExporter{opts: opts}
}

func (e *SigNozSpanExporter) ExportJob(summary JobSummary) {
	if e.opts.Writer == nil {
		return
	}
	span := map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         fmt.Sprintf("job:%s", summary.Job),
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"job":              summary.Job,
			"frame":            summary.Frame,
			"partitions":       summary.Partitions,
			"items":            summary.Items,
			"component_reads":  summary.ComponentReads,
			"component_writes": summary.ComponentWrites,
			"resource_reads":   summary.ResourceReads,
			"resource_writes":  summary.ResourceWrites,
		},
	}
	if summary.Error != nil {
		span["error"] = summary.Error.Error()
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.opts.Writer.Write(append(payload, '\n'))
}
