// Package persistence provides RunStore implementations for keeping
// completed workflow runs: an in-memory store for tests and ephemeral
// use, and SQL-backed stores for SQLite and PostgreSQL.
//
// All stores implement workflow.RunStore and are safe for concurrent
// use. The SQL stores initialize their schema on construction.
package persistence

import (
	"sort"

	"github.com/averho/stepflow/pkg/workflow"
)

// matches reports whether a run satisfies every set field of a filter.
// Limit is applied by the caller after sorting.
func matches(run *workflow.RunResponse, f workflow.RunFilter) bool {
	if f.WorkflowName != "" && run.WorkflowName != f.WorkflowName {
		return false
	}
	if f.SessionID != "" && run.SessionID != f.SessionID {
		return false
	}
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	return true
}

// sortNewestFirst orders runs by creation time, newest first, so every
// store lists in the same order.
func sortNewestFirst(runs []*workflow.RunResponse) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}

func applyLimit(runs []*workflow.RunResponse, limit int) []*workflow.RunResponse {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}
