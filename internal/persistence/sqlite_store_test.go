package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/averho/stepflow/pkg/workflow"
)

func newTestSQLiteStore(t *testing.T) *SQLiteRunStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteRunStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore failed: %v", err)
	}

	return store
}

func TestSQLiteRunStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	run := sampleRun("r-1", "wf", "s-1", workflow.RunStatusCompleted, time.Now().UTC())
	run.StepResponses = workflow.Outputs{
		workflow.NewStepOutput("a", "first"),
		workflow.NewStepOutput("b", "second"),
	}

	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.WorkflowName != "wf" || got.Status != workflow.RunStatusCompleted {
		t.Fatalf("unexpected run: %+v", got)
	}
	if len(got.StepResponses) != 2 || got.StepResponses[1].Content != "second" {
		t.Fatalf("unexpected step responses: %+v", got.StepResponses)
	}
}

func TestSQLiteRunStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	run := sampleRun("r-1", "wf", "", workflow.RunStatusRunning, time.Now().UTC())
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run.Status = workflow.RunStatusCompleted
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != workflow.RunStatusCompleted {
		t.Fatalf("expected overwritten status, got %s", got.Status)
	}
}

func TestSQLiteRunStore_GetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, workflow.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteRunStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	base := time.Now().UTC()

	runs := []*workflow.RunResponse{
		sampleRun("r-1", "alpha", "s-1", workflow.RunStatusCompleted, base.Add(1*time.Second)),
		sampleRun("r-2", "alpha", "s-2", workflow.RunStatusError, base.Add(2*time.Second)),
		sampleRun("r-3", "beta", "s-1", workflow.RunStatusCompleted, base.Add(3*time.Second)),
	}
	for _, r := range runs {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", r.RunID, err)
		}
	}

	all, err := store.ListRuns(ctx, workflow.RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "r-3" {
		t.Fatalf("unexpected listing: %+v", all)
	}

	alpha, err := store.ListRuns(ctx, workflow.RunFilter{WorkflowName: "alpha", Status: workflow.RunStatusError})
	if err != nil {
		t.Fatalf("filtered ListRuns failed: %v", err)
	}
	if len(alpha) != 1 || alpha[0].RunID != "r-2" {
		t.Fatalf("unexpected filtered listing: %+v", alpha)
	}

	limited, err := store.ListRuns(ctx, workflow.RunFilter{Limit: 1})
	if err != nil {
		t.Fatalf("limited ListRuns failed: %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != "r-3" {
		t.Fatalf("unexpected limited listing: %+v", limited)
	}
}
