package formatter

import (
	"fmt"
	"io"

	"github.com/johnsaigle/ghstars/pkg/lookup"
)

// Formatter defines the interface for output formatters
type Formatter interface {
	// Format writes results to output in the specific format
	Format(w io.Writer, results []lookup.Result) error

	// ShouldExit returns the exit code based on results
	// 0 = all active, 1 = archived, inactive or missing repositories, 2 = lookup failures
	ShouldExit(results []lookup.Result) int
}

// Options holds configuration options for formatters
type Options struct {
	Verbose    bool
	NoExitCode bool
	// Locale selects digit grouping for star counts, e.g. "en" or "de".
	Locale string
}

// New creates a formatter based on the format string
func New(format string, opts Options) (Formatter, error) {
	switch format {
	case "console", "":
		return &ConsoleFormatter{opts: opts}, nil
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "github-actions":
		return &GitHubActionsFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func exitCode(opts Options, results []lookup.Result) int {
	if opts.NoExitCode {
		return 0
	}

	code := 0
	for _, r := range results {
		switch r.Status() {
		case lookup.StatusUnknown:
			return 2
		case lookup.StatusArchived, lookup.StatusInactive, lookup.StatusNotFound:
			code = 1
		}
	}
	return code
}

func repositoryURL(r lookup.Result) string {
	return fmt.Sprintf("https://github.com/%s", r.Key)
}
