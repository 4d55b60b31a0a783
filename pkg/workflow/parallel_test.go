package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParallelSubmissionOrder verifies merged results follow branch
// declaration order even when branches finish out of order.
func TestParallelSubmissionOrder(t *testing.T) {
	t.Parallel()

	slow := NewStep("slow", func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		time.Sleep(30 * time.Millisecond)
		out := NewStepOutput("slow", "s")
		return &out, nil
	})
	fast := constStep("fast", "f")

	par := NewParallel("par", slow, fast)
	outs := Execute(context.Background(), par, nil, Session{})

	require.Equal(t, []string{"slow", "fast"}, stepNames(outs))
}

// TestParallelBranchesShareInput verifies every branch sees the same
// starting input, not each other's results.
func TestParallelBranchesShareInput(t *testing.T) {
	t.Parallel()

	par := NewParallel("par", echoStep("a"), echoStep("b"))
	outs := Execute(context.Background(), par, &StepInput{Message: "seed"}, Session{})

	require.Len(t, outs, 2)
	require.Equal(t, "a: seed", outs[0].Content)
	require.Equal(t, "b: seed", outs[1].Content)
}

// TestParallelWaitsForAllOnStop verifies a stopping branch does not
// cut its siblings short; the stop flag survives the merge instead.
func TestParallelWaitsForAllOnStop(t *testing.T) {
	t.Parallel()

	var slowDone atomic.Bool
	slow := NewStep("slow", func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		time.Sleep(30 * time.Millisecond)
		slowDone.Store(true)
		out := NewStepOutput("slow", "done")
		return &out, nil
	})

	par := NewParallel("par", successfulStopStep("halt", "stop now"), slow)
	outs := Execute(context.Background(), par, nil, Session{})

	require.Len(t, outs, 2)
	require.True(t, outs.HasStop())
	require.True(t, slowDone.Load())
}

// TestParallelStopPropagates verifies the merged stop flag halts the
// enclosing sequence.
func TestParallelStopPropagates(t *testing.T) {
	t.Parallel()

	var after atomic.Int32
	group := NewSteps("seq",
		NewParallel("par", echoStep("a"), successfulStopStep("halt", "x")),
		countingStep("never", &after),
	)

	Execute(context.Background(), group, nil, Session{})
	require.Equal(t, int32(0), after.Load())
}

// TestParallelFailureIsolated verifies one failing branch leaves the
// others successful.
func TestParallelFailureIsolated(t *testing.T) {
	t.Parallel()

	par := NewParallel("par", failingStep("bad", nil), constStep("good", "ok"))
	outs := Execute(context.Background(), par, nil, Session{})

	require.Len(t, outs, 2)
	require.False(t, outs[0].Success)
	require.True(t, outs[1].Success)
}

// TestParallelConcurrencyLimit verifies the cap bounds simultaneous
// branches.
func TestParallelConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	branch := func(name string) *Step {
		return NewStep(name, func(ctx context.Context, input *StepInput) (*StepOutput, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			out := NewStepOutput(name, nil)
			return &out, nil
		})
	}

	par := NewParallel("par", branch("b1"), branch("b2"), branch("b3"), branch("b4")).
		WithConcurrencyLimit(2)

	outs := Execute(context.Background(), par, nil, Session{})
	require.Len(t, outs, 4)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

// TestParallelEvents verifies the composite brackets its branches with
// start and completion events.
func TestParallelEvents(t *testing.T) {
	t.Parallel()

	par := NewParallel("par", echoStep("a"), echoStep("b"))
	events, outputs := collect(Stream(context.Background(), par, nil, Session{}, WithIntermediateEvents()))

	require.Len(t, outputs, 2)
	types := eventTypes(events)
	require.Equal(t, EventParallelExecutionStarted, types[0])
	require.Equal(t, EventParallelExecutionCompleted, types[len(types)-1])

	completed, ok := events[len(events)-1].(ParallelExecutionCompletedEvent)
	require.True(t, ok)
	require.Equal(t, 2, completed.ParallelStepCount)
	require.Equal(t, []string{"a", "b"}, stepNames(completed.StepResults))
}
