package formatter

import (
	"encoding/json"
	"io"
	"time"

	"github.com/johnsaigle/ghstars/pkg/lookup"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts Options
}

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	Timestamp time.Time      `json:"timestamp"`
	Results   []JSONResult   `json:"results"`
	Summary   lookup.Summary `json:"summary"`
}

// JSONResult pairs a repository with the response a badge client would receive.
type JSONResult struct {
	Repo     string        `json:"repo"`
	Status   lookup.Status `json:"status"`
	URL      string        `json:"url"`
	Response lookup.Result `json:"response"`
}

// Format writes results in JSON format
func (f *JSONFormatter) Format(w io.Writer, results []lookup.Result) error {
	jsonResults := make([]JSONResult, len(results))
	for i, r := range results {
		jsonResults[i] = JSONResult{
			Repo:     r.Key.String(),
			Status:   r.Status(),
			URL:      repositoryURL(r),
			Response: r,
		}
	}

	output := JSONOutput{
		Timestamp: time.Now().UTC(),
		Results:   jsonResults,
		Summary:   lookup.Summarize(results),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// ShouldExit returns the exit code based on results
func (f *JSONFormatter) ShouldExit(results []lookup.Result) int {
	return exitCode(f.opts, results)
}
