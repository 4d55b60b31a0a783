package workflow

import (
	"strconv"
	"strings"
	"time"
)

// StepIndex locates a node in the tree. A top-level node at position i
// has index {i}; a node nested inside composites extends its parent's
// index with its own position, so {2, 1} is the second branch of the
// composite that is the third top-level step.
type StepIndex []int

// Child returns the index of the i-th nested node.
func (idx StepIndex) Child(i int) StepIndex {
	child := make(StepIndex, len(idx), len(idx)+1)
	copy(child, idx)
	return append(child, i)
}

// Depth returns how many composites enclose the node.
func (idx StepIndex) Depth() int {
	if len(idx) == 0 {
		return 0
	}
	return len(idx) - 1
}

func (idx StepIndex) String() string {
	if len(idx) == 0 {
		return ""
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// EventType identifies a lifecycle event emitted during streaming.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunError     EventType = "run.error"
	EventRunCancelled EventType = "run.cancelled"

	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepError     EventType = "step.error"

	EventStepsExecutionStarted   EventType = "steps.execution.started"
	EventStepsExecutionCompleted EventType = "steps.execution.completed"

	EventLoopExecutionStarted   EventType = "loop.execution.started"
	EventLoopIterationStarted   EventType = "loop.iteration.started"
	EventLoopIterationCompleted EventType = "loop.iteration.completed"
	EventLoopExecutionCompleted EventType = "loop.execution.completed"

	EventParallelExecutionStarted   EventType = "parallel.execution.started"
	EventParallelExecutionCompleted EventType = "parallel.execution.completed"

	EventConditionExecutionStarted   EventType = "condition.execution.started"
	EventConditionExecutionCompleted EventType = "condition.execution.completed"

	EventRouterExecutionStarted   EventType = "router.execution.started"
	EventRouterExecutionCompleted EventType = "router.execution.completed"
)

// StreamItem is either an Event or a StepOutput flowing through a
// streaming run. The stream terminates by channel closure, never by a
// sentinel value.
type StreamItem interface {
	streamItem()
}

func (StepOutput) streamItem() {}

// Event is the common view of every lifecycle event.
type Event interface {
	StreamItem
	Type() EventType
	Meta() EventMeta
}

// EventMeta carries the fields shared by all events.
type EventMeta struct {
	RunID        string    `json:"run_id,omitempty"`
	WorkflowName string    `json:"workflow_name,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	StepName     string    `json:"step_name,omitempty"`
	StepIndex    StepIndex `json:"step_index,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m EventMeta) Meta() EventMeta { return m }
func (EventMeta) streamItem()       {}

// RunStartedEvent opens a streaming run.
type RunStartedEvent struct {
	EventMeta
}

func (RunStartedEvent) Type() EventType { return EventRunStarted }

// RunCompletedEvent closes a streaming run, carrying the aggregated
// content and every top-level output.
type RunCompletedEvent struct {
	EventMeta
	Content       any     `json:"content,omitempty"`
	StepResponses Outputs `json:"step_responses,omitempty"`
}

func (RunCompletedEvent) Type() EventType { return EventRunCompleted }

// RunErrorEvent reports a hard driver-level failure terminating the run.
type RunErrorEvent struct {
	EventMeta
	Error string `json:"error,omitempty"`
}

func (RunErrorEvent) Type() EventType { return EventRunError }

// RunCancelledEvent reports a run halted early by a failing output that
// also set the stop flag.
type RunCancelledEvent struct {
	EventMeta
	Reason string `json:"reason,omitempty"`
}

func (RunCancelledEvent) Type() EventType { return EventRunCancelled }

// StepStartedEvent precedes a leaf step's execution.
type StepStartedEvent struct {
	EventMeta
}

func (StepStartedEvent) Type() EventType { return EventStepStarted }

// StepCompletedEvent follows a leaf step, carrying its output.
type StepCompletedEvent struct {
	EventMeta
	Output StepOutput `json:"output"`
}

func (StepCompletedEvent) Type() EventType { return EventStepCompleted }

// StepErrorEvent reports a leaf soft failure.
type StepErrorEvent struct {
	EventMeta
	Error string `json:"error,omitempty"`
}

func (StepErrorEvent) Type() EventType { return EventStepError }

// StepsExecutionStartedEvent opens a sequential composite.
type StepsExecutionStartedEvent struct {
	EventMeta
	StepsCount int `json:"steps_count"`
}

func (StepsExecutionStartedEvent) Type() EventType { return EventStepsExecutionStarted }

// StepsExecutionCompletedEvent closes a sequential composite.
type StepsExecutionCompletedEvent struct {
	EventMeta
	StepsCount    int     `json:"steps_count"`
	ExecutedSteps int     `json:"executed_steps"`
	StepResults   Outputs `json:"step_results,omitempty"`
}

func (StepsExecutionCompletedEvent) Type() EventType { return EventStepsExecutionCompleted }

// LoopExecutionStartedEvent opens a loop composite.
type LoopExecutionStartedEvent struct {
	EventMeta
	MaxIterations int `json:"max_iterations"`
}

func (LoopExecutionStartedEvent) Type() EventType { return EventLoopExecutionStarted }

// LoopIterationStartedEvent precedes one loop iteration. Iterations are
// numbered from 1.
type LoopIterationStartedEvent struct {
	EventMeta
	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`
}

func (LoopIterationStartedEvent) Type() EventType { return EventLoopIterationStarted }

// LoopIterationCompletedEvent follows one loop iteration.
type LoopIterationCompletedEvent struct {
	EventMeta
	Iteration        int     `json:"iteration"`
	MaxIterations    int     `json:"max_iterations"`
	IterationResults Outputs `json:"iteration_results,omitempty"`
	ShouldContinue   bool    `json:"should_continue"`
}

func (LoopIterationCompletedEvent) Type() EventType { return EventLoopIterationCompleted }

// LoopExecutionCompletedEvent closes a loop composite with every
// iteration's results.
type LoopExecutionCompletedEvent struct {
	EventMeta
	TotalIterations int       `json:"total_iterations"`
	MaxIterations   int       `json:"max_iterations"`
	AllResults      []Outputs `json:"all_results,omitempty"`
}

func (LoopExecutionCompletedEvent) Type() EventType { return EventLoopExecutionCompleted }

// ParallelExecutionStartedEvent opens a parallel composite.
type ParallelExecutionStartedEvent struct {
	EventMeta
	ParallelStepCount int `json:"parallel_step_count"`
}

func (ParallelExecutionStartedEvent) Type() EventType { return EventParallelExecutionStarted }

// ParallelExecutionCompletedEvent closes a parallel composite with the
// submission-ordered merged results.
type ParallelExecutionCompletedEvent struct {
	EventMeta
	ParallelStepCount int     `json:"parallel_step_count"`
	StepResults       Outputs `json:"step_results,omitempty"`
}

func (ParallelExecutionCompletedEvent) Type() EventType { return EventParallelExecutionCompleted }

// ConditionExecutionStartedEvent opens a condition composite, carrying
// the evaluator's result.
type ConditionExecutionStartedEvent struct {
	EventMeta
	ConditionResult bool `json:"condition_result"`
}

func (ConditionExecutionStartedEvent) Type() EventType { return EventConditionExecutionStarted }

// ConditionExecutionCompletedEvent closes a condition composite.
type ConditionExecutionCompletedEvent struct {
	EventMeta
	ConditionResult bool    `json:"condition_result"`
	ExecutedSteps   int     `json:"executed_steps"`
	StepResults     Outputs `json:"step_results,omitempty"`
}

func (ConditionExecutionCompletedEvent) Type() EventType { return EventConditionExecutionCompleted }

// RouterExecutionStartedEvent opens a router composite, listing the
// selected node names before any of them execute.
type RouterExecutionStartedEvent struct {
	EventMeta
	SelectedSteps []string `json:"selected_steps,omitempty"`
}

func (RouterExecutionStartedEvent) Type() EventType { return EventRouterExecutionStarted }

// RouterExecutionCompletedEvent closes a router composite.
type RouterExecutionCompletedEvent struct {
	EventMeta
	SelectedSteps []string `json:"selected_steps,omitempty"`
	ExecutedSteps int      `json:"executed_steps"`
	StepResults   Outputs  `json:"step_results,omitempty"`
}

func (RouterExecutionCompletedEvent) Type() EventType { return EventRouterExecutionCompleted }
