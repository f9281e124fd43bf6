// Package audit turns resolution results into a human-reviewable report.
// The report lists one section per activity in input order, so two runs
// over identical input render byte-identical output and diff cleanly.
package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/johns/sitewise/internal/resolve"
)

// Log aggregates a run's resolution results with the run-level counters.
// Build a fresh Log per run; counters are run-scoped, never process-wide.
type Log struct {
	Results             []resolve.Result
	Total               int
	WithoutPredecessors int
}

// Build collects results into a Log and computes the counters. An activity
// counts as "without predecessors" when no check across all its predecessor
// types accepted a candidate.
func Build(results []resolve.Result) *Log {
	l := &Log{Results: results, Total: len(results)}
	for _, r := range results {
		if len(r.Predecessors()) == 0 {
			l.WithoutPredecessors++
		}
	}
	return l
}

// Render produces the markdown audit report. dataDir is informational and
// omitted when empty.
func (l *Log) Render(dataDir string) string {
	var b strings.Builder

	b.WriteString("# Sequence Audit Log\n\n")
	if dataDir != "" {
		fmt.Fprintf(&b, "Data directory: `%s`\n", dataDir)
	}
	fmt.Fprintf(&b, "Total activities: %d\n", l.Total)
	fmt.Fprintf(&b, "Activities without predecessors: %d\n\n", l.WithoutPredecessors)

	for _, r := range l.Results {
		b.WriteString(section(r))
	}

	return b.String()
}

func section(r resolve.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", r.Name)
	fmt.Fprintf(&b, "- Type: %s\n", r.Type)
	fmt.Fprintf(&b, "- CWA: %s\n", r.CWA)

	if !r.RuleConfigured {
		b.WriteString("- No allowed predecessor types configured (skipping checks).\n\n")
		return b.String()
	}

	for _, c := range r.Checks {
		b.WriteString("- ")
		b.WriteString(checkLine(c))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// checkLine renders one predecessor-type outcome. Each rejection names the
// concrete numeric reason so a reviewer can trace it back to the rule table.
func checkLine(c resolve.Check) string {
	switch c.Kind {
	case resolve.NoCandidates:
		return fmt.Sprintf("%s: no candidates of this type in same CWA", c.PredecessorType)
	case resolve.RejectedHorizontal:
		return fmt.Sprintf("%s: %d candidates found, none pass horizontal >= %s",
			c.PredecessorType, c.Candidates, formatThreshold(c.Horizontal))
	case resolve.RejectedVertical:
		return fmt.Sprintf("%s: %d passed horizontal but vertical not within (%s, %s)",
			c.PredecessorType, c.Candidates,
			formatThreshold(c.Vertical.Below), formatThreshold(c.Vertical.Above))
	case resolve.Accepted:
		parts := make([]string, 0, len(c.Matches))
		for _, m := range c.Matches {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", m.Name, m.Score))
		}
		return fmt.Sprintf("%s: accepted %s", c.PredecessorType, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s: unknown outcome", c.PredecessorType)
	}
}

// formatThreshold prints thresholds without trailing zeros (0.8, not 0.80),
// matching how they are written in the rule table.
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
