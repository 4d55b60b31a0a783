package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the execution engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay execution.
type Observer interface {
	// OnRunStarted is called once when a workflow run begins, before
	// the first node is executed.
	OnRunStarted(ctx context.Context, runID, workflowName string)

	// OnRunCompleted is called when a run reaches a terminal status,
	// whatever that status is.
	OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, duration time.Duration)

	// OnStepStarted is called before a leaf step invokes its work.
	// idx is the step's hierarchical position in the tree.
	OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex)

	// OnStepCompleted is called after a leaf step produced its output,
	// for both successes and soft failures.
	OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStarted(ctx context.Context, runID, workflowName string) {}
func (NoopObserver) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
}
func (NoopObserver) OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
}

// CompositeObserver fans out callbacks to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards callbacks to
// each non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStarted(ctx context.Context, runID, workflowName string) {
	for _, o := range c.observers {
		o.OnRunStarted(ctx, runID, workflowName)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, runID, workflowName, status, d)
	}
}

func (c *CompositeObserver) OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex) {
	for _, o := range c.observers {
		o.OnStepStarted(ctx, runID, stepName, idx)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, runID, stepName, idx, out, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// callbacks using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStarted(ctx context.Context, runID, workflowName string) {
	o.Logger.InfoContext(ctx, "run_started",
		slog.String("workflow", workflowName),
		slog.String("run_id", runID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
	level := slog.LevelInfo
	if status == RunStatusError {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "run_completed",
		slog.String("workflow", workflowName),
		slog.String("run_id", runID),
		slog.String("status", string(status)),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex) {
	o.Logger.DebugContext(ctx, "step_started",
		slog.String("run_id", runID),
		slog.String("step", stepName),
		slog.String("step_index", idx.String()),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
	level := slog.LevelDebug
	if !out.Success {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("run_id", runID),
		slog.String("step", stepName),
		slog.String("step_index", idx.String()),
		slog.Bool("success", out.Success),
		slog.Duration("duration", d),
		slog.String("error", out.Error),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	runsCancelled     atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCancelled int64
	PendingRuns   int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStarted(ctx context.Context, runID, workflowName string) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
	switch status {
	case RunStatusError:
		m.runsFailed.Add(1)
	case RunStatusCancelled:
		m.runsCancelled.Add(1)
	default:
		m.runsCompleted.Add(1)
	}
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
	// Only count successful steps for average duration.
	if out.Success {
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(d.Nanoseconds())
	} else {
		m.stepsFailed.Add(1)
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	cancelled := m.runsCancelled.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		RunsCancelled:   cancelled,
		PendingRuns:     started - completed - failed - cancelled,
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		AvgStepDuration: avg,
	}
}
