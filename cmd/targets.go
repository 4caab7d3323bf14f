package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/johnsaigle/ghstars/pkg/parser"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// targetSources are the inputs shared by lookup and cache warm.
type targetSources struct {
	fromFile        string
	goMod           string
	includeIndirect bool
}

// collect resolves args and the configured sources into distinct keys.
// Targets that do not name a repository are logged and skipped.
func (s targetSources) collect(args []string) ([]types.RepoKey, error) {
	targets := append([]string(nil), args...)

	if s.fromFile != "" {
		lines, err := readTargetFile(s.fromFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, lines...)
	}

	var keys []types.RepoKey
	seen := make(map[types.RepoKey]bool)
	add := func(key types.RepoKey) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for _, t := range targets {
		key, err := parser.ParseTarget(t)
		if err != nil {
			logger.Warn("skipping target", "target", t, "err", err)
			continue
		}
		add(key)
	}

	if s.goMod != "" {
		mod, err := parser.ParseGoMod(s.goMod)
		if err != nil {
			return nil, err
		}
		logger.Debug("reading module requirements",
			"module", mod.Path, "go", mod.GoVersion, "requirements", len(mod.Dependencies))
		modKeys, skipped := mod.Repositories(s.includeIndirect)
		for _, path := range skipped {
			logger.Debug("no GitHub repository for module", "module", path)
		}
		for _, key := range modKeys {
			add(key)
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no repositories to look up")
	}
	return keys, nil
}

// readTargetFile reads one target per line. Blank lines and lines starting
// with '#' are ignored. "-" reads standard input.
func readTargetFile(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open target file: %w", err)
		}
		defer f.Close()
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target file: %w", err)
	}
	return lines, nil
}
