package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/johns/sitewise/internal/resolve"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func edge(act, pred string) resolve.Edge {
	return resolve.Edge{Activity: act, Predecessor: pred, Relation: "FS", TaskType: "Construct"}
}

func TestRecordAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run1 := Run{ID: "r1", CreatedAt: time.Now().Add(-time.Hour), Activities: 10, WithoutPredecessors: 4, EdgeCount: 2, AuditPath: "/data/a.md"}
	run2 := Run{ID: "r2", CreatedAt: time.Now(), Activities: 12, WithoutPredecessors: 3, EdgeCount: 3}

	if err := s.RecordRun(ctx, run1, []resolve.Edge{edge("a", "b"), edge("a", "c")}); err != nil {
		t.Fatalf("RecordRun r1: %v", err)
	}
	if err := s.RecordRun(ctx, run2, []resolve.Edge{edge("a", "b"), edge("d", "e"), edge("f", "g")}); err != nil {
		t.Fatalf("RecordRun r2: %v", err)
	}

	runs, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "r2" || runs[1].ID != "r1" {
		t.Errorf("order = %s, %s, want r2, r1", runs[0].ID, runs[1].ID)
	}
	if runs[1].Activities != 10 || runs[1].WithoutPredecessors != 4 || runs[1].AuditPath != "/data/a.md" {
		t.Errorf("r1 = %+v", runs[1])
	}

	limited, err := s.Runs(ctx, 1)
	if err != nil {
		t.Fatalf("Runs limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited len = %d, want 1", len(limited))
	}
}

func TestEdges_PreserveOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := []resolve.Edge{edge("z", "a"), edge("a", "b"), edge("m", "n")}
	if err := s.RecordRun(ctx, Run{ID: "r1", CreatedAt: time.Now(), EdgeCount: 3}, want); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := s.Edges(ctx, "r1")
	if err != nil {
		t.Fatalf("Edges: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiffEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, Run{ID: "r1", CreatedAt: time.Now()}, []resolve.Edge{edge("a", "b"), edge("c", "d")}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, Run{ID: "r2", CreatedAt: time.Now()}, []resolve.Edge{edge("a", "b"), edge("e", "f")}); err != nil {
		t.Fatal(err)
	}

	added, removed, err := s.DiffEdges(ctx, "r1", "r2")
	if err != nil {
		t.Fatalf("DiffEdges: %v", err)
	}
	if len(added) != 1 || added[0].Activity != "e" {
		t.Errorf("added = %+v, want [e <- f]", added)
	}
	if len(removed) != 1 || removed[0].Activity != "c" {
		t.Errorf("removed = %+v, want [c <- d]", removed)
	}
}

func TestDiffEdges_Identical(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edges := []resolve.Edge{edge("a", "b")}
	s.RecordRun(ctx, Run{ID: "r1", CreatedAt: time.Now()}, edges)
	s.RecordRun(ctx, Run{ID: "r2", CreatedAt: time.Now()}, edges)

	added, removed, err := s.DiffEdges(ctx, "r1", "r2")
	if err != nil {
		t.Fatalf("DiffEdges: %v", err)
	}
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("diff of identical runs: added %v, removed %v", added, removed)
	}
}

func TestRecordRun_DuplicateIDFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := Run{ID: "r1", CreatedAt: time.Now()}
	if err := s.RecordRun(ctx, run, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, run, nil); err == nil {
		t.Error("duplicate run ID accepted")
	}
}
