package workflow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures callback names for assertions.
type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recordingObserver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingObserver) OnRunStarted(ctx context.Context, runID, workflowName string) {
	r.record("run_started")
}

func (r *recordingObserver) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
	r.record("run_completed")
}

func (r *recordingObserver) OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex) {
	r.record("step_started:" + stepName)
}

func (r *recordingObserver) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
	r.record("step_completed:" + stepName)
}

// TestObserverCallbacks verifies the driver invokes run and step hooks
// in order.
func TestObserverCallbacks(t *testing.T) {
	t.Parallel()

	rec := &recordingObserver{}
	wf := New("observed", []Node{echoStep("a"), echoStep("b")}, WithObserver(rec))

	_, err := wf.Run(context.Background(), "m")
	require.NoError(t, err)

	require.Equal(t, []string{
		"run_started",
		"step_started:a", "step_completed:a",
		"step_started:b", "step_completed:b",
		"run_completed",
	}, rec.snapshot())
}

// TestBasicMetrics verifies counters across mixed run outcomes.
func TestBasicMetrics(t *testing.T) {
	t.Parallel()

	metrics := &BasicMetrics{}

	ok := New("ok", []Node{echoStep("a")}, WithObserver(metrics))
	cancelled := New("cancelled", []Node{stoppingFailureStep("fatal")}, WithObserver(metrics))

	_, err := ok.Run(context.Background(), "m")
	require.NoError(t, err)
	_, err = cancelled.Run(context.Background(), "m")
	require.NoError(t, err)

	snap := metrics.Snapshot()
	require.Equal(t, int64(2), snap.RunsStarted)
	require.Equal(t, int64(1), snap.RunsCompleted)
	require.Equal(t, int64(1), snap.RunsCancelled)
	require.Equal(t, int64(0), snap.PendingRuns)
	require.Equal(t, int64(1), snap.StepsCompleted)
	require.Equal(t, int64(1), snap.StepsFailed)
}

// TestCompositeObserver verifies fan-out and the nil-filtering
// constructor.
func TestCompositeObserver(t *testing.T) {
	t.Parallel()

	require.IsType(t, NoopObserver{}, NewCompositeObserver())
	require.IsType(t, NoopObserver{}, NewCompositeObserver(nil, nil))

	single := &recordingObserver{}
	require.Same(t, single, NewCompositeObserver(nil, single))

	a, b := &recordingObserver{}, &recordingObserver{}
	combined := NewCompositeObserver(a, b)
	combined.OnRunStarted(context.Background(), "r", "wf")
	require.Equal(t, []string{"run_started"}, a.snapshot())
	require.Equal(t, []string{"run_started"}, b.snapshot())
}

// TestLoggingObserverSmoke exercises every logging path.
func TestLoggingObserverSmoke(t *testing.T) {
	t.Parallel()

	obs := NewLoggingObserver(slog.New(slog.NewTextHandler(io.Discard, nil)))
	wf := New("logged", []Node{echoStep("a"), failingStep("b", nil)}, WithObserver(obs))

	resp, err := wf.Run(context.Background(), "m")
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, resp.Status)
}

// TestPrometheusObserver verifies metrics register and count against a
// private registry.
func TestPrometheusObserver(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	obs := NewPrometheusObserver(reg)

	wf := New("prom", []Node{echoStep("a"), failingStep("b", nil)}, WithObserver(obs))
	_, err := wf.Run(context.Background(), "m")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, f := range families {
		byName[f.GetName()] = true
	}
	require.True(t, byName["stepflow_runs_started_total"])
	require.True(t, byName["stepflow_runs_finished_total"])
	require.True(t, byName["stepflow_step_duration_seconds"])
	require.True(t, byName["stepflow_step_failures_total"])
}
