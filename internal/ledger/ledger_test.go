// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// --- test helpers ---

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunLifecycle(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := l.StartRun(ctx, "run-1", 2, start); err != nil {
		t.Fatal(err)
	}

	rec, err := l.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.RunRunning || rec.FinishedAt != nil {
		t.Errorf("fresh run = %+v, want running with no finish time", rec)
	}
	if !rec.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", rec.StartedAt, start)
	}

	outcomes := []types.Outcome{
		{Identifier: "10.1/a", Source: "parsed/10.1_a.xml", Fetch: types.DegradedNoCredential, Parse: types.DegradedSourceMissing, Records: 3},
		{Identifier: "10.1/b", Records: 3, Errors: []string{"writing info: disk full"}},
	}
	for _, o := range outcomes {
		if err := l.RecordOutcome(ctx, "run-1", o); err != nil {
			t.Fatal(err)
		}
	}

	finish := start.Add(90 * time.Second)
	if err := l.FinishRun(ctx, "run-1", finish, 6, "xlsx/extracted_20260301_120130.xlsx", ""); err != nil {
		t.Fatal(err)
	}

	rec, err = l.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.RunFinished {
		t.Errorf("Status = %s, want finished", rec.Status)
	}
	if rec.FinishedAt == nil || !rec.FinishedAt.Equal(finish) {
		t.Errorf("FinishedAt = %v, want %v", rec.FinishedAt, finish)
	}
	if rec.Rows != 6 || rec.Identifiers != 2 {
		t.Errorf("rows/identifiers = %d/%d, want 6/2", rec.Rows, rec.Identifiers)
	}

	got, err := l.Outcomes(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(got))
	}
	if got[0].Identifier != "10.1/a" || got[0].Parse != types.DegradedSourceMissing || got[0].Fetch != types.DegradedNoCredential {
		t.Errorf("first outcome = %+v", got[0])
	}
	if got[1].Parse.Degraded() || len(got[1].Errors) != 1 {
		t.Errorf("second outcome = %+v", got[1])
	}
}

func TestFinishRunFailed(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	if err := l.StartRun(ctx, "run-x", 1, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := l.FinishRun(ctx, "run-x", time.Now(), 0, "", "export failed"); err != nil {
		t.Fatal(err)
	}
	rec, err := l.Run(ctx, "run-x")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != types.RunFailed || rec.Error != "export failed" {
		t.Errorf("got %+v, want failed run with error", rec)
	}

	if err := l.FinishRun(ctx, "missing", time.Now(), 0, "", ""); err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestLastRunAndRuns(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	if _, err := l.LastRun(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("empty ledger: err = %v, want ErrNoRuns", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		// Fractional seconds of varying width must still sort correctly.
		started := base.Add(time.Duration(i)*time.Second + time.Duration(i)*100*time.Millisecond)
		if err := l.StartRun(ctx, id, 1, started); err != nil {
			t.Fatal(err)
		}
	}

	last, err := l.LastRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.ID != "c" {
		t.Errorf("LastRun = %s, want c", last.ID)
	}

	runs, err := l.Runs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("Runs = %+v, want c then b", runs)
	}

	if _, err := l.Run(ctx, "zzz"); !errors.Is(err, ErrNoRuns) {
		t.Errorf("unknown run: err = %v, want ErrNoRuns", err)
	}
}

func TestOpenReusesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.StartRun(ctx, "persisted", 1, time.Now()); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if _, err := l.Run(ctx, "persisted"); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}
