// Package workflow contains the core execution engine behind the
// higher-level stepflow package: the node contract, the composite
// types, the event protocol, and the run driver.
//
// Most users interact with the stepflow package, which re-exports the
// types here and adds a fluent builder. This package is intended for
// advanced use cases, custom integrations, or contributors extending
// the engine itself.
//
// # Nodes
//
// Everything executable is a Node: the leaf Step and the composites
// Steps, Loop, Parallel, Condition, and Router. Composites hold nodes
// themselves, so arbitrary trees can be assembled from the same small
// set of parts. The node set is closed; nodes are built from the
// constructors in this package and executed through Execute, Stream,
// or a Workflow.
//
// # Execution
//
// Execute runs a node tree to completion and returns its outputs.
// Stream runs the same tree while delivering outputs, and optionally
// lifecycle events, over a channel that closes when the work is done.
// Both forms produce the same set of outputs for the same tree and
// input.
//
// Between consecutive nodes the engine applies a chaining rule: the
// next node sees the previous node's content, the union of all media
// produced so far, and an ordered record of every named producer's
// last output.
//
// # Failure and termination
//
// A leaf fault becomes an output with Success set to false; execution
// continues. A fault in a composite's own control flow collapses the
// composite into a single failing output. Early termination is
// cooperative: any output carrying the Stop flag halts the enclosing
// sequences, and a stopping failure marks the run cancelled.
//
// # Observability
//
// An Observer receives run and step lifecycle callbacks. The package
// ships logging, metrics, Prometheus, and composite implementations;
// all logging goes through log/slog.
package workflow
