// Package job runs the data-dir pipeline: clean the raw CAD export, assign
// durations, resolve predecessors, and write the latest outputs alongside
// timestamped archive copies. File names are the contract with the
// surrounding tooling, so they are fixed here.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johns/sitewise/internal/activity"
	"github.com/johns/sitewise/internal/archive"
	"github.com/johns/sitewise/internal/audit"
	"github.com/johns/sitewise/internal/clean"
	"github.com/johns/sitewise/internal/config"
	"github.com/johns/sitewise/internal/duration"
	"github.com/johns/sitewise/internal/resolve"
	"github.com/johns/sitewise/internal/rules"
	"github.com/johns/sitewise/internal/store"
)

// Data-dir file names.
const (
	RawInput       = "raw_export_latest.json"
	CleanOutput    = "clean_output_latest.json"
	DurationOutput = "duration_output_latest.json"
	SequenceOutput = "sequence_output_latest.json"
	EdgesOutput    = "sequence_edges_latest.json"
	AuditOutput    = "sequence_audit_latest.md"
)

// Runner executes pipeline stages against a data directory.
type Runner struct {
	cfg   config.Config
	store *store.Store // nil disables run history
	log   *zap.Logger
}

// NewRunner builds a Runner. Both store and log may be nil.
func NewRunner(cfg config.Config, st *store.Store, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, store: st, log: log}
}

// SequenceResult summarizes a sequence stage run.
type SequenceResult struct {
	RunID               string
	Activities          int
	WithoutPredecessors int
	Edges               int
	AuditPath           string
}

// RunClean reads the raw export and writes cleaned activity records.
func (r *Runner) RunClean(ctx context.Context) (int, error) {
	srcPath := filepath.Join(r.cfg.DataDir, RawInput)
	records, err := clean.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}

	cleaned := clean.Clean(records)
	outPath := filepath.Join(r.cfg.DataDir, CleanOutput)
	if err := activity.WriteFile(outPath, cleaned); err != nil {
		return 0, err
	}
	if err := r.archiveOutput(outPath, "clean_output"); err != nil {
		return 0, err
	}

	r.log.Info("clean stage complete",
		zap.Int("raw_records", len(records)),
		zap.Int("cleaned", len(cleaned)))
	return len(cleaned), nil
}

// RunDuration classifies types and assigns durations to cleaned records.
func (r *Runner) RunDuration(ctx context.Context) (int, error) {
	srcPath := filepath.Join(r.cfg.DataDir, CleanOutput)
	acts, err := activity.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}

	enriched, err := duration.Assign(acts)
	if err != nil {
		return 0, fmt.Errorf("assign durations: %w", err)
	}
	outPath := filepath.Join(r.cfg.DataDir, DurationOutput)
	if err := activity.WriteFile(outPath, enriched); err != nil {
		return 0, err
	}
	if err := r.archiveOutput(outPath, "duration_output"); err != nil {
		return 0, err
	}

	r.log.Info("duration stage complete", zap.Int("activities", len(enriched)))
	return len(enriched), nil
}

// RunSequence resolves predecessors for the duration output, writes the
// sequence outputs and the audit report, and records the run in the store.
func (r *Runner) RunSequence(ctx context.Context) (*SequenceResult, error) {
	srcPath := filepath.Join(r.cfg.DataDir, DurationOutput)
	acts, err := activity.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}

	table, err := r.loadTable()
	if err != nil {
		return nil, err
	}

	run := resolve.Run(ctx, acts, resolve.Options{
		Table:   table,
		Workers: r.cfg.Workers,
	})
	log := audit.Build(run.Results)

	// The sequence output is the activity list in input order; ordering the
	// timeline itself belongs to the downstream scheduler.
	if err := activity.WriteFile(filepath.Join(r.cfg.DataDir, SequenceOutput), acts); err != nil {
		return nil, err
	}
	if err := r.archiveOutput(filepath.Join(r.cfg.DataDir, SequenceOutput), "sequence_output"); err != nil {
		return nil, err
	}

	edgesPath := filepath.Join(r.cfg.DataDir, EdgesOutput)
	edgesJSON, err := json.MarshalIndent(run.Edges, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal edges: %w", err)
	}
	if err := os.WriteFile(edgesPath, edgesJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write edges: %w", err)
	}
	if err := r.archiveOutput(edgesPath, "sequence_edges"); err != nil {
		return nil, err
	}

	auditPath := filepath.Join(r.cfg.DataDir, AuditOutput)
	if err := os.WriteFile(auditPath, []byte(log.Render(r.cfg.DataDir)), 0o644); err != nil {
		return nil, fmt.Errorf("write audit report: %w", err)
	}

	result := &SequenceResult{
		RunID:               uuid.NewString(),
		Activities:          log.Total,
		WithoutPredecessors: log.WithoutPredecessors,
		Edges:               len(run.Edges),
		AuditPath:           auditPath,
	}

	if r.store != nil {
		err := r.store.RecordRun(ctx, store.Run{
			ID:                  result.RunID,
			CreatedAt:           time.Now(),
			Activities:          result.Activities,
			WithoutPredecessors: result.WithoutPredecessors,
			EdgeCount:           result.Edges,
			AuditPath:           auditPath,
		}, run.Edges)
		if err != nil {
			// Run history is an observability aid; the outputs on disk are
			// already complete.
			r.log.Warn("could not record run", zap.Error(err))
		}
	}

	r.log.Info("sequence stage complete",
		zap.String("run_id", result.RunID),
		zap.Int("activities", result.Activities),
		zap.Int("without_predecessors", result.WithoutPredecessors),
		zap.Int("edges", result.Edges))
	return result, nil
}

// RunAll executes clean, duration, and sequence in order.
func (r *Runner) RunAll(ctx context.Context) (*SequenceResult, error) {
	if _, err := r.RunClean(ctx); err != nil {
		return nil, err
	}
	if _, err := r.RunDuration(ctx); err != nil {
		return nil, err
	}
	return r.RunSequence(ctx)
}

func (r *Runner) loadTable() (*rules.Table, error) {
	table := rules.Default()
	if r.cfg.RulesPath == "" {
		return table, nil
	}
	overrides, err := rules.LoadOverrides(r.cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	return table.WithOverrides(overrides), nil
}

func (r *Runner) archiveOutput(srcPath, prefix string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read %s for archive: %w", srcPath, err)
	}
	_, err = archive.Write(r.cfg.ArchiveDir(), prefix, time.Now(), data, r.cfg.Archive.Compress)
	return err
}
