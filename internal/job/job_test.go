package job

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/johns/sitewise/internal/activity"
	"github.com/johns/sitewise/internal/config"
	"github.com/johns/sitewise/internal/resolve"
	"github.com/johns/sitewise/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Workers = 2
	cfg.Archive.Compress = false
	return cfg
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// durationInput builds a resolved-duration input: one concrete foundation
// and one equipment set directly on top of it, in the same CWA.
func durationInput() []activity.Activity {
	foundation := activity.Activity{
		Name: "CWA_ASU-1A01_-_Install_Concrete", CWA: "1A01", Type: "Concrete", Duration: 3,
		MinX: activity.Float(0), MaxX: activity.Float(10),
		MinY: activity.Float(0), MaxY: activity.Float(10),
		MinZ: activity.Float(0), MaxZ: activity.Float(2),
	}
	equip := activity.Activity{
		Name: "CWA_ASU-1A01_-_Set_101-V135", CWA: "1A01", Type: "Equipment", Duration: 1,
		MinX: activity.Float(0), MaxX: activity.Float(10),
		MinY: activity.Float(0), MaxY: activity.Float(10),
		MinZ: activity.Float(2), MaxZ: activity.Float(3),
	}
	return []activity.Activity{foundation, equip}
}

func TestRunSequence_WritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	writeJSON(t, filepath.Join(cfg.DataDir, DurationOutput), durationInput())

	runner := NewRunner(cfg, nil, nil)
	result, err := runner.RunSequence(context.Background())
	if err != nil {
		t.Fatalf("RunSequence: %v", err)
	}

	if result.Activities != 2 {
		t.Errorf("Activities = %d, want 2", result.Activities)
	}
	if result.Edges != 1 {
		t.Errorf("Edges = %d, want 1", result.Edges)
	}
	if result.WithoutPredecessors != 1 {
		t.Errorf("WithoutPredecessors = %d, want 1", result.WithoutPredecessors)
	}

	// Edge file holds the equipment -> concrete dependency.
	var edges []resolve.Edge
	data, err := os.ReadFile(filepath.Join(cfg.DataDir, EdgesOutput))
	if err != nil {
		t.Fatalf("read edges: %v", err)
	}
	if err := json.Unmarshal(data, &edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Activity != "CWA_ASU-1A01_-_Set_101-V135" ||
		edges[0].Predecessor != "CWA_ASU-1A01_-_Install_Concrete" {
		t.Errorf("edges = %+v", edges)
	}

	// Audit report names the accepted predecessor.
	report, err := os.ReadFile(result.AuditPath)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	if !strings.Contains(string(report), "Concrete: accepted CWA_ASU-1A01_-_Install_Concrete") {
		t.Errorf("audit report missing acceptance line:\n%s", report)
	}
	if !strings.Contains(string(report), "Total activities: 2") {
		t.Error("audit report missing counters")
	}

	// Sequence output preserves input order.
	seq, err := activity.ReadFile(filepath.Join(cfg.DataDir, SequenceOutput))
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 2 || seq[0].Name != "CWA_ASU-1A01_-_Install_Concrete" {
		t.Errorf("sequence output order = %v", []string{seq[0].Name, seq[1].Name})
	}

	// Archive copies exist.
	entries, err := os.ReadDir(cfg.ArchiveDir())
	if err != nil {
		t.Fatalf("read archive dir: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("archive entries = %d, want sequence + edges copies", len(entries))
	}
}

func TestRunSequence_RecordsRun(t *testing.T) {
	cfg := testConfig(t)
	writeJSON(t, filepath.Join(cfg.DataDir, DurationOutput), durationInput())

	st, err := store.Open(filepath.Join(cfg.DataDir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	runner := NewRunner(cfg, st, nil)
	result, err := runner.RunSequence(context.Background())
	if err != nil {
		t.Fatalf("RunSequence: %v", err)
	}

	runs, err := st.Runs(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != result.RunID {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", runs[0].EdgeCount)
	}
}

func TestRunSequence_RuleOverrides(t *testing.T) {
	cfg := testConfig(t)
	writeJSON(t, filepath.Join(cfg.DataDir, DurationOutput), durationInput())

	rulesPath := filepath.Join(cfg.DataDir, "rules.toml")
	// Equipment may only follow Piling: the concrete below no longer counts.
	if err := os.WriteFile(rulesPath, []byte("Equipment = [\"Piling\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.RulesPath = rulesPath

	runner := NewRunner(cfg, nil, nil)
	result, err := runner.RunSequence(context.Background())
	if err != nil {
		t.Fatalf("RunSequence: %v", err)
	}
	if result.Edges != 0 {
		t.Errorf("Edges = %d, want 0 under override", result.Edges)
	}
}

func TestRunSequence_MissingInput(t *testing.T) {
	runner := NewRunner(testConfig(t), nil, nil)
	if _, err := runner.RunSequence(context.Background()); err == nil {
		t.Error("RunSequence without input returned nil error")
	}
}

func TestRunAll_FullPipeline(t *testing.T) {
	cfg := testConfig(t)

	raw := []map[string]any{
		{
			"Category/Class": "Layer",
			"Element Name":   "CWA_ASU-1A01_-_Install_Concrete",
			"Item.Layer":     "CWA_ASU-1A01_-_Install_Concrete",
		},
		{
			"Category/Class":              "3D Solid",
			"Item.Layer":                  "CWA_ASU-1A01_-_Install_Concrete",
			"AutoCAD Geometry.Position X": 5.0,
			"AutoCAD Geometry.Position Y": 5.0,
			"AutoCAD Geometry.Position Z": 0.0,
			"AutoCAD Geometry.Height":     2.0,
			"AutoCAD Geometry.Length":     10.0,
			"AutoCAD Geometry.Width":      10.0,
		},
		{
			"Category/Class": "Layer",
			"Element Name":   "CWA_ASU-1A01_-_Set_101-V135",
			"Item.Layer":     "CWA_ASU-1A01_-_Set_101-V135",
		},
		{
			"Category/Class":              "3D Solid",
			"Item.Layer":                  "CWA_ASU-1A01_-_Set_101-V135",
			"AutoCAD Geometry.Position X": 5.0,
			"AutoCAD Geometry.Position Y": 5.0,
			"AutoCAD Geometry.Position Z": 2.0,
			"AutoCAD Geometry.Height":     1.0,
			"AutoCAD Geometry.Length":     10.0,
			"AutoCAD Geometry.Width":      10.0,
		},
	}
	writeJSON(t, filepath.Join(cfg.DataDir, RawInput), raw)

	runner := NewRunner(cfg, nil, nil)
	result, err := runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	if result.Activities != 2 {
		t.Errorf("Activities = %d, want 2", result.Activities)
	}
	if result.Edges != 1 {
		t.Errorf("Edges = %d, want 1 (equipment on its foundation)", result.Edges)
	}

	// Each stage left its output behind.
	for _, name := range []string{CleanOutput, DurationOutput, SequenceOutput, EdgesOutput, AuditOutput} {
		if _, err := os.Stat(filepath.Join(cfg.DataDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
