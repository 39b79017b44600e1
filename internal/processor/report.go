package processor

import (
	"sort"

	"github.com/example/analysis-worker/internal/plugin"
)

// SignaturesKey is the report entry holding the ordered signature matches.
// Processing plugins may not use it as their results key.
const SignaturesKey = "signatures"

// Report is the final outcome of one analysis run: every processing result
// plus the ordered signature matches.
type Report map[string]any

// Finalize merges results and matches into a Report. Matches are ordered by
// severity ascending; equal severities keep their collection order. Neither
// argument is modified.
func Finalize(results plugin.Results, matches []plugin.Match) Report {
	report := make(Report, len(results)+1)
	for k, v := range results {
		report[k] = v
	}

	sorted := make([]plugin.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity < sorted[j].Severity
	})

	report[SignaturesKey] = sorted
	return report
}

// Signatures returns the ordered matches attached to the report.
func (r Report) Signatures() []plugin.Match {
	matches, _ := r[SignaturesKey].([]plugin.Match)
	return matches
}
