// Package stepflow provides a lightweight, embeddable step-tree
// execution engine for Go.
//
// Stepflow is designed for backend services that orchestrate
// multi-stage pipelines such as agentic or content-processing
// workflows. Pipelines are assembled from a small set of composable
// parts, run fully in-process, and can stream their progress as typed
// events.
//
// # Core Concepts
//
// The stepflow programming model is intentionally small:
//
//  1. Node
//  2. Workflow
//  3. WorkflowBuilder
//  4. Observer
//  5. RunStore
//
// # Node
//
// Everything executable is a Node. The leaf is a Step wrapping a
// function or an external Runner; the composites are Steps
// (sequential), Loop (bounded repetition), Parallel (fan-out),
// Condition (predicate gate), and Router (dynamic dispatch). Since
// composites hold nodes, arbitrary trees compose from the same parts.
//
// Between consecutive nodes the engine chains state forward: each node
// sees the previous node's content, the union of media produced so
// far, and an ordered record of every named step's last output.
//
// # Workflow
//
// A Workflow owns a tree of top-level nodes and drives runs against
// it. Run executes to completion and returns an aggregated
// RunResponse; RunStream delivers outputs, and optionally lifecycle
// events, over a channel that closes when the run reaches a terminal
// state.
//
// Failures stay inside the data: a step fault becomes an output with
// Success set to false and the run continues, while an output carrying
// the Stop flag halts the enclosing sequences cooperatively.
//
// # WorkflowBuilder
//
// The builder provides the declarative API used to assemble
// workflows:
//
//	wf := stepflow.New("pipeline").
//	    Step("fetch", fetch).
//	    Parallel("enrich", classify, summarize).
//	    Step("publish", publish).
//	    Build()
//
//	resp, err := wf.Run(ctx, "hello")
//
// # Observer
//
// Observers receive run and step lifecycle callbacks for logging and
// metrics. The package ships slog-based logging, in-process counters,
// a Prometheus exporter, and a composite that fans out to several
// observers.
//
// # RunStore
//
// Completed runs can be persisted through a RunStore. Stores are
// available in-memory, on SQLite, and on PostgreSQL; the SQL stores
// initialize their schema on construction.
package stepflow
