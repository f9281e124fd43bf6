// Package resolve infers, for each activity, which other activities must
// precede it. Candidates are scoped to the activity's CWA, filtered by the
// rule table's allowed predecessor types, and accepted or rejected by
// spatial tests. Every decision is recorded as data; nothing in this
// package returns an error or aborts the run for one activity's anomaly.
package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/johns/sitewise/internal/activity"
	"github.com/johns/sitewise/internal/rules"
	"github.com/johns/sitewise/internal/spatial"
)

// OutcomeKind tags the result of one predecessor-type check.
type OutcomeKind int

const (
	// NoCandidates: zero same-CWA activities of the predecessor type exist.
	NoCandidates OutcomeKind = iota
	// RejectedHorizontal: candidates exist, none met the horizontal threshold.
	RejectedHorizontal
	// RejectedVertical: candidates passed horizontally, none sat inside the
	// vertical window.
	RejectedVertical
	// Accepted: one or more candidates qualified as predecessors.
	Accepted
)

// Match is one accepted predecessor with its horizontal score.
type Match struct {
	Name  string
	Score float64
}

// Check records the outcome of evaluating one allowed predecessor type,
// with the payload the outcome needs: candidate count and thresholds for
// rejections, the full qualifying set for acceptance.
type Check struct {
	PredecessorType string
	Kind            OutcomeKind
	Candidates      int            // candidates examined at the failing stage
	Horizontal      float64        // threshold applied
	Vertical        *rules.Vertical // window applied, when the rule has one
	Matches         []Match        // Accepted only
}

// Result is the complete resolution outcome for one activity. Checks appear
// in rule-table order and have exactly one entry per configured predecessor
// type; RuleConfigured is false when the activity's type has no entry.
type Result struct {
	Index          int // position in the input, preserves report order
	Name           string
	Type           string
	CWA            string
	RuleConfigured bool
	Checks         []Check
}

// Predecessors returns the accepted predecessor names across all checks,
// in check order.
func (r *Result) Predecessors() []string {
	var names []string
	for _, c := range r.Checks {
		for _, m := range c.Matches {
			names = append(names, m.Name)
		}
	}
	return names
}

// Edge is a directed finish-to-start dependency between two activities,
// shaped for the downstream scheduling import.
type Edge struct {
	Activity    string `json:"ScheduleActivityID"`
	Predecessor string `json:"Predecessor"`
	Relation    string `json:"Rel"`
	TaskType    string `json:"TaskType"`
}

// ScoreFunc scores the horizontal proximity of two footprints in [0, 1].
// It must be symmetric and monotonically decreasing with separation.
type ScoreFunc func(a, b activity.Box) float64

// Options tunes a resolution run. Zero values select the shipped rule
// table, the bounding-box overlap score, and serial execution.
type Options struct {
	Table   *rules.Table
	Score   ScoreFunc
	Workers int
}

// RunResult holds every activity's resolution outcome, in input order, and
// the aggregated predecessor edges.
type RunResult struct {
	Results []Result
	Edges   []Edge
}

// Run resolves predecessors for every activity. The computation is a pure
// batch over an immutable snapshot: per-activity resolution is independent
// and runs on up to opts.Workers goroutines, with results written into an
// index-addressed slice so the output is deterministic regardless of
// worker count.
func Run(ctx context.Context, acts []activity.Activity, opts Options) *RunResult {
	table := opts.Table
	if table == nil {
		table = rules.Default()
	}
	score := opts.Score
	if score == nil {
		score = spatial.OverlapRatio
	}

	zones := BuildZones(acts)
	results := make([]Result, len(acts))

	if opts.Workers > 1 {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range acts {
			i := i
			g.Go(func() error {
				results[i] = resolveOne(acts, zones, table, score, i)
				return nil
			})
		}
		g.Wait() // workers never return errors
	} else {
		for i := range acts {
			results[i] = resolveOne(acts, zones, table, score, i)
		}
	}

	run := &RunResult{Results: results}
	for _, res := range results {
		for _, name := range res.Predecessors() {
			run.Edges = append(run.Edges, Edge{
				Activity:    res.Name,
				Predecessor: name,
				Relation:    "FS",
				TaskType:    "Construct",
			})
		}
	}
	return run
}

func resolveOne(acts []activity.Activity, zones *Zones, table *rules.Table, score ScoreFunc, i int) Result {
	a := &acts[i]
	res := Result{Index: i, Name: a.Name, Type: a.Type, CWA: a.CWA}

	ruleList, ok := table.Lookup(a.Type)
	if !ok || len(ruleList) == 0 {
		return res
	}
	res.RuleConfigured = true
	res.Checks = make([]Check, 0, len(ruleList))

	box, hasBox := a.HorizontalBox()
	for _, rule := range ruleList {
		res.Checks = append(res.Checks, runCheck(acts, zones, score, i, a, box, hasBox, rule))
	}
	return res
}

// runCheck evaluates one (type, predecessorType) rule. A candidate with a
// missing footprint scores 0, so malformed geometry degrades to a
// rejection rather than an error.
func runCheck(acts []activity.Activity, zones *Zones, score ScoreFunc, self int, a *activity.Activity, box activity.Box, hasBox bool, rule rules.Rule) Check {
	check := Check{
		PredecessorType: rule.Type,
		Horizontal:      rule.Horizontal,
		Vertical:        rule.Vertical,
	}

	cands := zones.Candidates(a.CWA, rule.Type, self)
	if len(cands) == 0 {
		check.Kind = NoCandidates
		return check
	}

	type scored struct {
		idx   int
		score float64
	}
	var horizPass []scored
	for _, j := range cands {
		s := 0.0
		if hasBox {
			if candBox, ok := acts[j].HorizontalBox(); ok {
				s = score(box, candBox)
			}
		}
		if s >= rule.Horizontal {
			horizPass = append(horizPass, scored{idx: j, score: s})
		}
	}
	if len(horizPass) == 0 {
		check.Kind = RejectedHorizontal
		check.Candidates = len(cands)
		return check
	}

	if rule.Vertical != nil {
		var vertPass []scored
		for _, c := range horizPass {
			cand := &acts[c.idx]
			if cand.MaxZ == nil || a.MinZ == nil {
				continue
			}
			if spatial.WithinVerticalWindow(*cand.MaxZ, *a.MinZ, rule.Vertical.Below, rule.Vertical.Above) {
				vertPass = append(vertPass, c)
			}
		}
		if len(vertPass) == 0 {
			check.Kind = RejectedVertical
			check.Candidates = len(horizPass)
			return check
		}
		horizPass = vertPass
	}

	check.Kind = Accepted
	check.Candidates = len(cands)
	check.Matches = make([]Match, 0, len(horizPass))
	for _, c := range horizPass {
		check.Matches = append(check.Matches, Match{Name: acts[c.idx].Name, Score: c.score})
	}
	return check
}
