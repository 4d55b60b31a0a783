package stepflow

import (
	"database/sql"

	"github.com/averho/stepflow/internal/persistence"
	"github.com/averho/stepflow/pkg/workflow"
)

// Re-export key types so users don't need to dig into pkg/workflow.

type (
	Workflow     = workflow.Workflow
	Node         = workflow.Node
	Step         = workflow.Step
	Steps        = workflow.Steps
	Loop         = workflow.Loop
	Parallel     = workflow.Parallel
	Condition    = workflow.Condition
	Router       = workflow.Router
	StepFunc     = workflow.StepFunc
	Runner       = workflow.Runner
	Predicate    = workflow.Predicate
	Selector     = workflow.Selector
	EndCondition = workflow.EndCondition

	StepInput   = workflow.StepInput
	StepOutput  = workflow.StepOutput
	StepOutputs = workflow.StepOutputs
	Outputs     = workflow.Outputs
	Session     = workflow.Session
	Artifact    = workflow.Artifact

	RunResponse = workflow.RunResponse
	RunStatus   = workflow.RunStatus
	RunStore    = workflow.RunStore
	RunFilter   = workflow.RunFilter

	StreamItem = workflow.StreamItem
	Event      = workflow.Event
	EventMeta  = workflow.EventMeta
	EventType  = workflow.EventType
	StepIndex  = workflow.StepIndex

	Observer             = workflow.Observer
	NoopObserver         = workflow.NoopObserver
	LoggingObserver      = workflow.LoggingObserver
	CompositeObserver    = workflow.CompositeObserver
	BasicMetrics         = workflow.BasicMetrics
	BasicMetricsSnapshot = workflow.BasicMetricsSnapshot
	PrometheusObserver   = workflow.PrometheusObserver
)

// Re-export common constructors and helpers.

var (
	NewStepOutput = workflow.NewStepOutput
	ErrorOutput   = workflow.ErrorOutput
	StopOutput    = workflow.StopOutput

	NewStep       = workflow.NewStep
	NewRunnerStep = workflow.NewRunnerStep
	NewSteps      = workflow.NewSteps
	NewLoop       = workflow.NewLoop
	NewParallel   = workflow.NewParallel
	NewCondition  = workflow.NewCondition
	NewRouter     = workflow.NewRouter

	Execute = workflow.Execute
	Stream  = workflow.Stream

	WithSession                 = workflow.WithSession
	WithAdditionalData          = workflow.WithAdditionalData
	WithImages                  = workflow.WithImages
	WithVideos                  = workflow.WithVideos
	WithAudio                   = workflow.WithAudio
	WithStreamIntermediateSteps = workflow.WithStreamIntermediateSteps

	NewLoggingObserver    = workflow.NewLoggingObserver
	NewCompositeObserver  = workflow.NewCompositeObserver
	NewPrometheusObserver = workflow.NewPrometheusObserver

	ErrRunNotFound = workflow.ErrRunNotFound
)

// Re-export run status values for convenience.

const (
	RunStatusPending   = workflow.RunStatusPending
	RunStatusRunning   = workflow.RunStatusRunning
	RunStatusCompleted = workflow.RunStatusCompleted
	RunStatusError     = workflow.RunStatusError
	RunStatusCancelled = workflow.RunStatusCancelled
)

// Store constructors
// These wrap the internal/persistence package so external callers
// never need to import internal packages.

// NewInMemoryRunStore returns a RunStore backed entirely by memory.
// Best for tests and ephemeral use.
func NewInMemoryRunStore() RunStore {
	return persistence.NewInMemoryRunStore()
}

// NewSQLiteRunStore returns a RunStore that persists runs in a SQLite
// database. The caller imports the driver, e.g. modernc.org/sqlite.
func NewSQLiteRunStore(db *sql.DB) (RunStore, error) {
	return persistence.NewSQLiteRunStore(db)
}

// NewPostgresRunStore returns a RunStore that persists runs in
// PostgreSQL. The caller imports the driver, e.g.
// github.com/jackc/pgx/v5/stdlib.
func NewPostgresRunStore(db *sql.DB) (RunStore, error) {
	return persistence.NewPostgresRunStore(db)
}
