// Package parser turns user-supplied targets into repository keys.
//
// A target may be a plain "owner/name", a github.com URL, or a Go import
// path. Import paths on vanity hosts that are known to be served from GitHub
// are mapped to their repository. A go.mod file can be expanded into the
// repositories of its requirements.
package parser

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/johnsaigle/ghstars/pkg/types"
)

// ErrNotRepository is returned when a target does not name a repository.
var ErrNotRepository = errors.New("not a repository")

// excludedPaths are github.com path prefixes that are never owner/name pairs.
var excludedPaths = []string{
	"topics/",
	"contact/",
	"orgs/",
	"settings/",
	"notifications/",
	"explore/",
	"marketplace/",
	"pricing/",
	"features/",
	"enterprise/",
	"security/",
	"sponsors/",
	"about/",
	"blog/",
	"developer/",
	"support/",
	"community/",
	"events/",
	"collections/",
	"discussions/",
	"new/",
	"organizations/",
	"login",
	"logout",
	"signup",
	"join",
	"apps/",
	"oauth/",
	"search",
	"in-product-messaging/",
	"account/",
	"site/",
	"codespaces/",
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseTarget resolves any supported target form.
func ParseTarget(target string) (types.RepoKey, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return types.RepoKey{}, fmt.Errorf("empty target: %w", ErrNotRepository)
	}

	if strings.Contains(target, "://") {
		if key, ok := ParseURL(target); ok {
			return key, nil
		}
		return types.RepoKey{}, fmt.Errorf("%s: %w", target, ErrNotRepository)
	}

	first, _, _ := strings.Cut(target, "/")
	if strings.HasSuffix(strings.ToLower(first), ".github.com") {
		if key, ok := ParseURL("https://" + target); ok {
			return key, nil
		}
	}
	if strings.Contains(first, ".") {
		if key, ok := ParseModulePath(target); ok {
			return key, nil
		}
		return types.RepoKey{}, fmt.Errorf("%s: no GitHub repository for import path: %w", target, ErrNotRepository)
	}

	owner, name, ok := strings.Cut(target, "/")
	if !ok || strings.Contains(name, "/") || !validName.MatchString(owner) || !validName.MatchString(name) {
		return types.RepoKey{}, fmt.Errorf("%s: expected owner/name: %w", target, ErrNotRepository)
	}
	return types.NewRepoKey(owner, name)
}

// ParseURL extracts owner/name from a link to github.com or one of its
// subdomains. Site pages such as /settings or /topics/... are rejected.
func ParseURL(raw string) (types.RepoKey, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return types.RepoKey{}, false
	}

	host := strings.ToLower(u.Hostname())
	if host != "github.com" && !strings.HasSuffix(host, ".github.com") {
		return types.RepoKey{}, false
	}

	clean := strings.TrimPrefix(strings.ToLower(u.Path), "/")
	for _, prefix := range excludedPaths {
		if strings.HasPrefix(clean, prefix) {
			return types.RepoKey{}, false
		}
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return types.RepoKey{}, false
	}

	owner, name := parts[0], parts[1]
	if !validName.MatchString(owner) || !validName.MatchString(name) {
		return types.RepoKey{}, false
	}
	return types.RepoKey{Owner: owner, Name: name}, true
}

// ParseModulePath maps a Go import path to the GitHub repository hosting it.
func ParseModulePath(path string) (types.RepoKey, bool) {
	if module.CheckImportPath(path) != nil {
		return types.RepoKey{}, false
	}

	if rest, ok := strings.CutPrefix(path, "github.com/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) < 2 || !validName.MatchString(parts[0]) || !validName.MatchString(parts[1]) {
			return types.RepoKey{}, false
		}
		return types.RepoKey{Owner: parts[0], Name: parts[1]}, true
	}

	return vanityRepo(path)
}

// Dependency represents a single module requirement
type Dependency struct {
	Path     string
	Version  string
	Indirect bool

	// ReplacedBy is the new path from a replace directive, if any. It may be
	// a local directory.
	ReplacedBy string
}

// Module represents a parsed go.mod file
type Module struct {
	Path         string
	GoVersion    string
	Dependencies []Dependency
}

// ParseGoMod parses the go.mod file in projectPath. projectPath may also
// name the go.mod file itself.
func ParseGoMod(projectPath string) (*Module, error) {
	goModPath := projectPath
	if filepath.Base(projectPath) != "go.mod" {
		goModPath = filepath.Join(projectPath, "go.mod")
	}

	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod file: %w", err)
	}

	modFile, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod file: %w", err)
	}
	if modFile.Module == nil {
		return nil, fmt.Errorf("failed to parse go.mod file: %s has no module directive", goModPath)
	}

	mod := &Module{
		Path: modFile.Module.Mod.Path,
	}
	if modFile.Go != nil {
		mod.GoVersion = modFile.Go.Version
	}

	for _, req := range modFile.Require {
		mod.Dependencies = append(mod.Dependencies, Dependency{
			Path:     req.Mod.Path,
			Version:  req.Mod.Version,
			Indirect: req.Indirect,
		})
	}

	for _, replace := range modFile.Replace {
		for i, dep := range mod.Dependencies {
			if dep.Path == replace.Old.Path {
				mod.Dependencies[i].ReplacedBy = replace.New.Path
				break
			}
		}
	}

	return mod, nil
}

// Repositories returns the distinct repositories behind the module's
// requirements, following replace directives that point at other modules.
// Requirements that cannot be mapped to GitHub are returned as skipped.
func (m *Module) Repositories(includeIndirect bool) (keys []types.RepoKey, skipped []string) {
	seen := make(map[types.RepoKey]bool)
	for _, dep := range m.Dependencies {
		if dep.Indirect && !includeIndirect {
			continue
		}

		path := dep.Path
		if dep.ReplacedBy != "" {
			if modfile.IsDirectoryPath(dep.ReplacedBy) {
				skipped = append(skipped, dep.Path)
				continue
			}
			path = dep.ReplacedBy
		}

		key, ok := ParseModulePath(path)
		if !ok {
			skipped = append(skipped, dep.Path)
			continue
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, skipped
}
