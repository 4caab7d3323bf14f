package formatter

import (
	"fmt"
	"io"

	"github.com/johnsaigle/ghstars/pkg/lookup"
)

// GitHubActionsFormatter formats output for GitHub Actions annotations
type GitHubActionsFormatter struct {
	opts Options
}

// Format writes results in GitHub Actions annotations format
// https://docs.github.com/en/actions/using-workflows/workflow-commands-for-github-actions
func (f *GitHubActionsFormatter) Format(w io.Writer, results []lookup.Result) error {
	for _, r := range results {
		var severity, detail string
		switch r.Status() {
		case lookup.StatusArchived:
			severity, detail = "error", "repository is archived"
		case lookup.StatusNotFound:
			severity, detail = "error", "repository not found"
		case lookup.StatusInactive:
			severity, detail = "warning", fmt.Sprintf("no push for %d days", r.DaysSinceLastPush)
		case lookup.StatusUnknown:
			severity, detail = "warning", "lookup failed: "+r.Message
		default:
			if f.opts.Verbose {
				fmt.Fprintf(w, "::notice title=Repository Status::%s has %d stars - %s\n", r.Key, r.Stars, repositoryURL(r))
			}
			continue
		}

		// Format: ::{severity} title={title}::{message}
		fmt.Fprintf(w, "::%s title=Repository Status::%s: %s - %s\n", severity, r.Key, detail, repositoryURL(r))
	}

	summary := lookup.Summarize(results)
	if flagged := summary.Archived + summary.Inactive + summary.NotFound; flagged > 0 {
		fmt.Fprintf(w, "::warning::Found %d archived, inactive or missing repositories out of %d\n", flagged, summary.Total)
	} else if summary.Unknown == 0 {
		fmt.Fprintln(w, "::notice::All repositories are active")
	}

	return nil
}

// ShouldExit returns the exit code based on results
func (f *GitHubActionsFormatter) ShouldExit(results []lookup.Result) int {
	return exitCode(f.opts, results)
}
