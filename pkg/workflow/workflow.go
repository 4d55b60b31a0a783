package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// now is stubbed in tests that assert on timestamps.
var now = time.Now

// RunStatus is the terminal (or in-flight) state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
	RunStatusCancelled RunStatus = "cancelled"
)

// ErrRunNotFound is returned by stores when no run matches the
// requested ID.
var ErrRunNotFound = errors.New("workflow: run not found")

// RunFilter narrows a ListRuns query. Zero-value fields match
// everything; Limit of zero or less means no limit.
type RunFilter struct {
	WorkflowName string
	SessionID    string
	Status       RunStatus
	Limit        int
}

// RunStore persists completed runs. Implementations live in the
// persistence packages; the engine only needs this boundary.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunResponse) error
	GetRun(ctx context.Context, runID string) (*RunResponse, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunResponse, error)
}

// RunResponse is the aggregated result of one workflow run.
type RunResponse struct {
	RunID        string    `json:"run_id"`
	WorkflowName string    `json:"workflow_name,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Status       RunStatus `json:"status"`

	// Content is the last top-level output's content, the value a
	// caller usually wants.
	Content any `json:"content,omitempty"`

	// StepResponses holds every output produced at the top level of
	// the tree, in completion order.
	StepResponses Outputs `json:"step_responses,omitempty"`

	// OutputsByName maps each named producer to its last output,
	// preserving first-recorded order.
	OutputsByName *StepOutputs `json:"outputs_by_name,omitempty"`

	Images []Artifact `json:"images,omitempty"`
	Videos []Artifact `json:"videos,omitempty"`
	Audio  []Artifact `json:"audio,omitempty"`

	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// ContentString renders the run's content as text the way
// StepOutput.ContentString does.
func (r *RunResponse) ContentString() string {
	return StepOutput{Content: r.Content}.ContentString()
}

// Output returns the recorded output of the named producer.
func (r *RunResponse) Output(name string) (StepOutput, bool) {
	if r.OutputsByName == nil {
		return StepOutput{}, false
	}
	return r.OutputsByName.Get(name)
}

// Workflow is the driver that owns a tree of nodes and executes runs
// against it. A Workflow is immutable after construction and safe for
// concurrent runs.
type Workflow struct {
	name        string
	description string
	nodes       []Node

	obs      Observer
	store    RunStore
	logger   *slog.Logger
	newRunID func() string
}

// Option configures a Workflow at construction.
type Option func(*Workflow)

// WithDescription attaches a human-readable description.
func WithDescription(desc string) Option {
	return func(w *Workflow) { w.description = desc }
}

// WithObserver attaches an observer for run and step lifecycle
// callbacks.
func WithObserver(obs Observer) Option {
	return func(w *Workflow) {
		if obs != nil {
			w.obs = obs
		}
	}
}

// WithStore persists completed runs to the given store.
func WithStore(store RunStore) Option {
	return func(w *Workflow) { w.store = store }
}

// WithLogger sets the structured logger used by the engine. Without it
// logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New builds a workflow over the given top-level nodes. It panics on an
// empty name, matching builder validation.
func New(name string, nodes []Node, opts ...Option) *Workflow {
	if name == "" {
		panic("stepflow: workflow name must not be empty")
	}
	w := &Workflow{
		name:     name,
		nodes:    nodes,
		obs:      NoopObserver{},
		logger:   discardLogger(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Description returns the workflow description.
func (w *Workflow) Description() string { return w.description }

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	message      any
	sess         Session
	additional   map[string]any
	images       []Artifact
	videos       []Artifact
	audio        []Artifact
	intermediate bool
}

// WithSession attributes the run to a session and user.
func WithSession(sess Session) RunOption {
	return func(c *runConfig) { c.sess = sess }
}

// WithAdditionalData attaches out-of-band data visible to every node
// via StepInput.AdditionalData.
func WithAdditionalData(data map[string]any) RunOption {
	return func(c *runConfig) { c.additional = data }
}

// WithImages seeds the run input with image artifacts.
func WithImages(images ...Artifact) RunOption {
	return func(c *runConfig) { c.images = append(c.images, images...) }
}

// WithVideos seeds the run input with video artifacts.
func WithVideos(videos ...Artifact) RunOption {
	return func(c *runConfig) { c.videos = append(c.videos, videos...) }
}

// WithAudio seeds the run input with audio artifacts.
func WithAudio(audio ...Artifact) RunOption {
	return func(c *runConfig) { c.audio = append(c.audio, audio...) }
}

// WithStreamIntermediateSteps enables step and composite lifecycle
// events on a streaming run. Run-boundary events and outputs flow
// either way. It has no effect on blocking runs.
func WithStreamIntermediateSteps() RunOption {
	return func(c *runConfig) { c.intermediate = true }
}

// Run executes the workflow to completion and returns the aggregated
// response. Leaf failures surface as failing outputs inside the
// response; the returned error is reserved for driver-level faults.
func (w *Workflow) Run(ctx context.Context, message any, opts ...RunOption) (*RunResponse, error) {
	cfg := buildRunConfig(opts)
	cfg.message = message
	resp := w.newResponse(cfg)

	ec := newExecContext(cfg.sess, w.obs, w.logger)
	ec.runID = resp.RunID
	ec.workflowName = w.name

	w.obs.OnRunStarted(ctx, resp.RunID, w.name)
	start := now()

	results, runErr := w.execute(ctx, ec, cfg)
	w.finishResponse(resp, results, runErr)

	w.obs.OnRunCompleted(ctx, resp.RunID, w.name, resp.Status, now().Sub(start))
	w.persist(ctx, resp)

	if runErr != nil {
		return resp, runErr
	}
	return resp, nil
}

// RunStream executes the workflow and returns a channel of events and
// outputs. The channel closes when the run reaches a terminal state;
// closure is the only termination signal. Run-boundary events always
// flow; step and composite events require WithStreamIntermediateSteps.
func (w *Workflow) RunStream(ctx context.Context, message any, opts ...RunOption) <-chan StreamItem {
	cfg := buildRunConfig(opts)
	cfg.message = message
	resp := w.newResponse(cfg)

	ch := make(chan StreamItem)
	go func() {
		defer close(ch)

		ec := newExecContext(cfg.sess, w.obs, w.logger)
		ec.runID = resp.RunID
		ec.workflowName = w.name
		ec.intermediate = cfg.intermediate
		ec.emit = func(item StreamItem) bool {
			select {
			case ch <- item:
				return true
			case <-ctx.Done():
				return false
			}
		}

		w.obs.OnRunStarted(ctx, resp.RunID, w.name)
		start := now()
		ec.emit(RunStartedEvent{EventMeta: ec.meta(w.name, nil)})

		results, runErr := w.execute(ctx, ec, cfg)
		w.finishResponse(resp, results, runErr)

		switch resp.Status {
		case RunStatusError:
			ec.emit(RunErrorEvent{EventMeta: ec.meta(w.name, nil), Error: resp.Error})
		case RunStatusCancelled:
			ec.emit(RunCancelledEvent{EventMeta: ec.meta(w.name, nil), Reason: resp.Error})
		default:
			ec.emit(RunCompletedEvent{
				EventMeta:     ec.meta(w.name, nil),
				Content:       resp.Content,
				StepResponses: resp.StepResponses,
			})
		}

		w.obs.OnRunCompleted(ctx, resp.RunID, w.name, resp.Status, now().Sub(start))
		w.persist(ctx, resp)
	}()
	return ch
}

// GetRun loads a previously persisted run.
func (w *Workflow) GetRun(ctx context.Context, runID string) (*RunResponse, error) {
	if w.store == nil {
		return nil, fmt.Errorf("workflow %q has no run store: %w", w.name, ErrRunNotFound)
	}
	return w.store.GetRun(ctx, runID)
}

// ListRuns queries persisted runs of this workflow.
func (w *Workflow) ListRuns(ctx context.Context, filter RunFilter) ([]*RunResponse, error) {
	if w.store == nil {
		return nil, nil
	}
	filter.WorkflowName = w.name
	return w.store.ListRuns(ctx, filter)
}

func buildRunConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (w *Workflow) newResponse(cfg *runConfig) *RunResponse {
	return &RunResponse{
		RunID:        w.newRunID(),
		WorkflowName: w.name,
		SessionID:    cfg.sess.SessionID,
		UserID:       cfg.sess.UserID,
		Status:       RunStatusRunning,
		CreatedAt:    now(),
	}
}

// execute runs the top-level sequence with the same chaining and stop
// semantics as a Steps composite, converting a panic into a
// driver-level error.
func (w *Workflow) execute(ctx context.Context, ec *execContext, cfg *runConfig) (results Outputs, err error) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if err, ok = r.(error); !ok {
				err = fmt.Errorf("%v", r)
			}
			ec.logger.Error("workflow run failed",
				slog.String("workflow", w.name),
				slog.String("run_id", ec.runID),
				slog.Any("error", err),
			)
		}
	}()

	input := &StepInput{
		Message:        cfg.message,
		AdditionalData: cfg.additional,
		Images:         cfg.images,
		Videos:         cfg.videos,
		Audio:          cfg.audio,
	}
	results, _ = runSequence(ctx, ec, nil, input, w.nodes)
	return results, nil
}

func (w *Workflow) finishResponse(resp *RunResponse, results Outputs, runErr error) {
	resp.StepResponses = results
	resp.CompletedAt = now()

	byName := NewStepOutputs()
	for _, out := range results {
		if out.StepName != "" {
			byName.Set(out.StepName, out)
		}
		resp.Images = append(resp.Images, out.Images...)
		resp.Videos = append(resp.Videos, out.Videos...)
		resp.Audio = append(resp.Audio, out.Audio...)
	}
	if byName.Len() > 0 {
		resp.OutputsByName = byName
	}
	if last, ok := results.Last(); ok {
		resp.Content = last.Content
	}

	switch {
	case runErr != nil:
		resp.Status = RunStatusError
		resp.Error = runErr.Error()
	case cancelledBy(results) != nil:
		out := cancelledBy(results)
		resp.Status = RunStatusCancelled
		resp.Error = out.Error
	default:
		resp.Status = RunStatusCompleted
	}
}

// cancelledBy returns the output that halted the run as a failure, if
// any. A successful stop is an ordinary completion.
func cancelledBy(results Outputs) *StepOutput {
	for i := range results {
		if results[i].Stop && !results[i].Success {
			return &results[i]
		}
	}
	return nil
}

func (w *Workflow) persist(ctx context.Context, resp *RunResponse) {
	if w.store == nil {
		return
	}
	if err := w.store.SaveRun(ctx, resp); err != nil {
		w.logger.Warn("failed to persist run",
			slog.String("workflow", w.name),
			slog.String("run_id", resp.RunID),
			slog.Any("error", err),
		)
	}
}
