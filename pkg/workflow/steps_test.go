package workflow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStepsSequencing verifies children run in order and each sees the
// previous child's content.
func TestStepsSequencing(t *testing.T) {
	t.Parallel()

	group := NewSteps("seq", echoStep("a"), echoStep("b"), echoStep("c"))
	outs := Execute(context.Background(), group, &StepInput{Message: "in"}, Session{})

	require.Len(t, outs, 3)
	require.Equal(t, "a: in", outs[0].Content)
	require.Equal(t, "b: a: in", outs[1].Content)
	require.Equal(t, "c: b: a: in", outs[2].Content)
}

// TestStepsScopeByName verifies later children can look up earlier
// outputs by producer name.
func TestStepsScopeByName(t *testing.T) {
	t.Parallel()

	probe := NewStep("probe", func(ctx context.Context, input *StepInput) (*StepOutput, error) {
		out := NewStepOutput("probe", input.Content("first"))
		return &out, nil
	})
	group := NewSteps("seq", constStep("first", "value-1"), constStep("second", "value-2"), probe)

	outs := Execute(context.Background(), group, nil, Session{})
	require.Len(t, outs, 3)
	require.Equal(t, "value-1", outs[2].Content)
}

// TestStepsStopHaltsSequence verifies a stop output skips every
// remaining child.
func TestStepsStopHaltsSequence(t *testing.T) {
	t.Parallel()

	var after atomic.Int32
	group := NewSteps("seq",
		echoStep("a"),
		successfulStopStep("halt", "stopping"),
		countingStep("never", &after),
	)

	outs := Execute(context.Background(), group, &StepInput{Message: "go"}, Session{})
	require.Len(t, outs, 2)
	require.True(t, outs[1].Stop)
	require.Equal(t, int32(0), after.Load())
}

// TestStepsSoftFailureContinues verifies a failing child does not halt
// the sequence.
func TestStepsSoftFailureContinues(t *testing.T) {
	t.Parallel()

	group := NewSteps("seq", failingStep("broken", nil), echoStep("after"))
	outs := Execute(context.Background(), group, &StepInput{Message: "m"}, Session{})

	require.Len(t, outs, 2)
	require.False(t, outs[0].Success)
	require.True(t, outs[1].Success)
	// The failed step's content still chains forward.
	require.Contains(t, outs[1].ContentString(), "broken failed")
}

// TestStepsEmptyGroup verifies an empty group is a no-op.
func TestStepsEmptyGroup(t *testing.T) {
	t.Parallel()

	outs := Execute(context.Background(), NewSteps("empty"), &StepInput{Message: "m"}, Session{})
	require.Empty(t, outs)
}

// TestStepsNested verifies composites nest and the inner group's
// outputs flatten into the outer result.
func TestStepsNested(t *testing.T) {
	t.Parallel()

	inner := NewSteps("inner", echoStep("i1"), echoStep("i2"))
	outer := NewSteps("outer", echoStep("o1"), inner, echoStep("o2"))

	outs := Execute(context.Background(), outer, &StepInput{Message: "x"}, Session{})
	require.Len(t, outs, 4)
	require.Equal(t, []string{"o1", "i1", "i2", "o2"}, stepNames(outs))
	// The step after the inner group chains from its last output.
	require.Equal(t, "o2: i2: i1: o1: x", outs[3].Content)
}

// TestStepsEvents verifies the composite emits start and completion
// events around its children when streaming with intermediate events.
func TestStepsEvents(t *testing.T) {
	t.Parallel()

	group := NewSteps("seq", echoStep("a"), echoStep("b"))
	events, outputs := collect(Stream(context.Background(), group, nil, Session{}, WithIntermediateEvents()))

	require.Len(t, outputs, 2)
	types := eventTypes(events)
	require.Equal(t, EventStepsExecutionStarted, types[0])
	require.Equal(t, EventStepsExecutionCompleted, types[len(types)-1])

	completed, ok := events[len(events)-1].(StepsExecutionCompletedEvent)
	require.True(t, ok)
	require.Equal(t, 2, completed.StepsCount)
	require.Equal(t, 2, completed.ExecutedSteps)
	require.Len(t, completed.StepResults, 2)
}

func stepNames(outs Outputs) []string {
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.StepName
	}
	return names
}
