package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/johns/sitewise/internal/config"
	"github.com/johns/sitewise/internal/job"
	"github.com/johns/sitewise/internal/store"
	"github.com/johns/sitewise/internal/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "clean":
		runner := job.NewRunner(cfg, nil, nil)
		n, err := runner.RunClean(ctx)
		if err != nil {
			fatal("clean: %v", err)
		}
		fmt.Printf("cleaned: %d activities → %s\n", n, job.CleanOutput)

	case "duration":
		runner := job.NewRunner(cfg, nil, nil)
		n, err := runner.RunDuration(ctx)
		if err != nil {
			fatal("duration: %v", err)
		}
		fmt.Printf("durations assigned: %d activities → %s\n", n, job.DurationOutput)

	case "sequence":
		st := openStore(cfg)
		defer closeStore(st)
		runner := job.NewRunner(cfg, st, nil)
		result, err := runner.RunSequence(ctx)
		if err != nil {
			fatal("sequence: %v", err)
		}
		printSequence(result)

	case "run":
		st := openStore(cfg)
		defer closeStore(st)
		runner := job.NewRunner(cfg, st, nil)
		result, err := runner.RunAll(ctx)
		if err != nil {
			fatal("run: %v", err)
		}
		printSequence(result)

	case "runs":
		st := openStore(cfg)
		defer closeStore(st)
		if st == nil {
			fatal("runs: no run store at %s", cfg.StorePath)
		}
		limit := 20
		if v := flagValue(os.Args[2:], "--limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		runs, err := st.Runs(ctx, limit)
		if err != nil {
			fatal("runs: %v", err)
		}
		for _, r := range runs {
			fmt.Printf("%s  %s  activities=%d no-pred=%d edges=%d\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ID,
				r.Activities, r.WithoutPredecessors, r.EdgeCount)
		}

	case "diff":
		if len(os.Args) < 4 {
			fatal("usage: sw diff <run-a> <run-b>")
		}
		st := openStore(cfg)
		defer closeStore(st)
		if st == nil {
			fatal("diff: no run store at %s", cfg.StorePath)
		}
		added, removed, err := st.DiffEdges(ctx, os.Args[2], os.Args[3])
		if err != nil {
			fatal("diff: %v", err)
		}
		for _, e := range added {
			fmt.Printf("+ %s <- %s\n", e.Activity, e.Predecessor)
		}
		for _, e := range removed {
			fmt.Printf("- %s <- %s\n", e.Activity, e.Predecessor)
		}
		fmt.Printf("%d added, %d removed\n", len(added), len(removed))

	case "watch":
		log, err := zap.NewProduction()
		if err != nil {
			fatal("watch: %v", err)
		}
		defer log.Sync()

		st := openStore(cfg)
		defer closeStore(st)
		runner := job.NewRunner(cfg, st, log)

		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := watch.Watch(ctx, cfg, runner, log); err != nil && ctx.Err() == nil {
			fatal("watch: %v", err)
		}

	case "version":
		fmt.Printf("sw v%s (sitewise)\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func printSequence(result *job.SequenceResult) {
	fmt.Printf("sequenced: %d activities, %d edges, %d without predecessors\n",
		result.Activities, result.Edges, result.WithoutPredecessors)
	fmt.Printf("audit: %s\n", result.AuditPath)
}

// openStore opens the run store; a failure degrades to no history rather
// than blocking the pipeline.
func openStore(cfg config.Config) *store.Store {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sw: warning: run store unavailable: %v\n", err)
		return nil
	}
	return st
}

func closeStore(st *store.Store) {
	if st != nil {
		st.Close()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `sw v%s — construction sequence inference

Usage:
  sw clean                 Clean the raw CAD export into activity records
  sw duration              Classify types and assign durations
  sw sequence              Resolve predecessors and write the audit report
  sw run                   Full pipeline: clean, duration, sequence
  sw runs [--limit N]      List recorded runs
  sw diff <run-a> <run-b>  Diff the edge sets of two runs
  sw watch                 Re-run the pipeline when the raw export changes
  sw version               Print version
  sw help                  Show this help

Configuration: ~/.config/sitewise/config.toml
`, version)
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sw: "+format+"\n", args...)
	os.Exit(1)
}
