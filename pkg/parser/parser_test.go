package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/johnsaigle/ghstars/pkg/types"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   types.RepoKey
		wantOK bool
	}{
		{name: "repository root", url: "https://github.com/octocat/Hello-World", want: types.RepoKey{Owner: "octocat", Name: "Hello-World"}, wantOK: true},
		{name: "deep link", url: "https://github.com/golang/go/issues/123", want: types.RepoKey{Owner: "golang", Name: "go"}, wantOK: true},
		{name: "www subdomain", url: "https://www.github.com/a/b", want: types.RepoKey{Owner: "a", Name: "b"}, wantOK: true},
		{name: "uppercase host", url: "https://GitHub.com/a/b?tab=readme", want: types.RepoKey{Owner: "a", Name: "b"}, wantOK: true},
		{name: "dots and underscores", url: "https://github.com/some_org/repo.js", want: types.RepoKey{Owner: "some_org", Name: "repo.js"}, wantOK: true},
		{name: "other host", url: "https://gitlab.com/a/b"},
		{name: "lookalike host", url: "https://notgithub.com/a/b"},
		{name: "owner only", url: "https://github.com/octocat"},
		{name: "topics", url: "https://github.com/topics/go"},
		{name: "settings", url: "https://github.com/settings/tokens"},
		{name: "marketplace case-insensitive", url: "https://github.com/Marketplace/actions"},
		{name: "search prefix", url: "https://github.com/search?q=x"},
		{name: "login", url: "https://github.com/login/oauth"},
		{name: "invalid characters", url: "https://github.com/a%20b/c"},
		{name: "relative", url: "/octocat/Hello-World"},
		{name: "garbage", url: "::not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("ParseURL(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseModulePath(t *testing.T) {
	tests := []struct {
		path   string
		want   types.RepoKey
		wantOK bool
	}{
		{path: "github.com/user/repo", want: types.RepoKey{Owner: "user", Name: "repo"}, wantOK: true},
		{path: "github.com/user/repo/pkg/sub", want: types.RepoKey{Owner: "user", Name: "repo"}, wantOK: true},
		{path: "github.com/user/repo/v2", want: types.RepoKey{Owner: "user", Name: "repo"}, wantOK: true},
		{path: "golang.org/x/crypto", want: types.RepoKey{Owner: "golang", Name: "crypto"}, wantOK: true},
		{path: "golang.org/x/mod/modfile", want: types.RepoKey{Owner: "golang", Name: "mod"}, wantOK: true},
		{path: "go.uber.org/zap", want: types.RepoKey{Owner: "uber-go", Name: "zap"}, wantOK: true},
		{path: "k8s.io/api", want: types.RepoKey{Owner: "kubernetes", Name: "api"}, wantOK: true},
		{path: "sigs.k8s.io/controller-runtime", want: types.RepoKey{Owner: "kubernetes-sigs", Name: "controller-runtime"}, wantOK: true},
		{path: "google.golang.org/protobuf", want: types.RepoKey{Owner: "protocolbuffers", Name: "protobuf-go"}, wantOK: true},
		{path: "google.golang.org/grpc/credentials", want: types.RepoKey{Owner: "grpc", Name: "grpc-go"}, wantOK: true},
		{path: "go.opentelemetry.io/otel/trace", want: types.RepoKey{Owner: "open-telemetry", Name: "opentelemetry-go"}, wantOK: true},
		{path: "gopkg.in/yaml.v3", want: types.RepoKey{Owner: "go-yaml", Name: "yaml"}, wantOK: true},
		{path: "gopkg.in/natefinch/lumberjack.v2", want: types.RepoKey{Owner: "natefinch", Name: "lumberjack"}, wantOK: true},
		{path: "github.com/user"},
		{path: "gitlab.com/org/project"},
		{path: "example.com/private/thing"},
		{path: "google.golang.org/grpcfoo"},
		{path: "gopkg.in/yaml"},
		{path: "not a path"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseModulePath(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("ParseModulePath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseModulePath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target  string
		want    types.RepoKey
		wantErr bool
	}{
		{target: "octocat/Hello-World", want: types.RepoKey{Owner: "octocat", Name: "Hello-World"}},
		{target: "  octocat/Hello-World\n", want: types.RepoKey{Owner: "octocat", Name: "Hello-World"}},
		{target: "https://github.com/octocat/Hello-World/pulls", want: types.RepoKey{Owner: "octocat", Name: "Hello-World"}},
		{target: "github.com/spf13/cobra", want: types.RepoKey{Owner: "spf13", Name: "cobra"}},
		{target: "www.github.com/spf13/cobra", want: types.RepoKey{Owner: "spf13", Name: "cobra"}},
		{target: "golang.org/x/oauth2", want: types.RepoKey{Owner: "golang", Name: "oauth2"}},
		{target: "", wantErr: true},
		{target: "octocat", wantErr: true},
		{target: "a/b/c", wantErr: true},
		{target: "has space/repo", wantErr: true},
		{target: "https://github.com/settings/profile", wantErr: true},
		{target: "example.com/foo/bar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := ParseTarget(tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTarget(%q) = %v, want error", tt.target, got)
				}
				if !errors.Is(err, ErrNotRepository) {
					t.Errorf("ParseTarget(%q) error = %v, want ErrNotRepository", tt.target, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) error: %v", tt.target, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func writeGoMod(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write go.mod: %v", err)
	}
	return dir
}

func TestParseGoMod(t *testing.T) {
	dir := writeGoMod(t, `module example.com/myproject

go 1.21

require (
	github.com/user/repo v1.2.3
	golang.org/x/text v0.14.0
)

require (
	github.com/indirect/dep v0.5.0 // indirect
)

replace github.com/user/repo => github.com/fork/repo v1.2.4
`)

	mod, err := ParseGoMod(dir)
	if err != nil {
		t.Fatalf("ParseGoMod() error: %v", err)
	}

	if mod.Path != "example.com/myproject" {
		t.Errorf("Path = %q, want %q", mod.Path, "example.com/myproject")
	}
	if mod.GoVersion != "1.21" {
		t.Errorf("GoVersion = %q, want %q", mod.GoVersion, "1.21")
	}
	if len(mod.Dependencies) != 3 {
		t.Fatalf("len(Dependencies) = %d, want 3", len(mod.Dependencies))
	}

	dep := mod.Dependencies[0]
	if dep.Path != "github.com/user/repo" || dep.Version != "v1.2.3" || dep.Indirect {
		t.Errorf("first dependency = %+v", dep)
	}
	if dep.ReplacedBy != "github.com/fork/repo" {
		t.Errorf("ReplacedBy = %q, want github.com/fork/repo", dep.ReplacedBy)
	}
	if !mod.Dependencies[2].Indirect {
		t.Error("expected github.com/indirect/dep to be indirect")
	}

	// The file itself is accepted too.
	if _, err := ParseGoMod(filepath.Join(dir, "go.mod")); err != nil {
		t.Errorf("ParseGoMod(go.mod path) error: %v", err)
	}
}

func TestParseGoMod_MissingFile(t *testing.T) {
	_, err := ParseGoMod(t.TempDir())
	if err == nil {
		t.Error("expected error for missing go.mod, got nil")
	}
}

func TestParseGoMod_InvalidFile(t *testing.T) {
	dir := writeGoMod(t, "this is not valid")

	_, err := ParseGoMod(dir)
	if err == nil {
		t.Error("expected error for invalid go.mod, got nil")
	}
}

func TestModule_Repositories(t *testing.T) {
	dir := writeGoMod(t, `module example.com/app

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	github.com/spf13/cobra/doc v0.0.0
	golang.org/x/sync v0.7.0
	example.com/internal/lib v1.0.0
	github.com/local/thing v1.0.0
	github.com/old/name v1.0.0
	github.com/transitive/dep v1.0.0 // indirect
)

replace github.com/local/thing => ../thing

replace github.com/old/name => github.com/new/name v1.1.0
`)

	mod, err := ParseGoMod(dir)
	if err != nil {
		t.Fatalf("ParseGoMod() error: %v", err)
	}

	keys, skipped := mod.Repositories(false)
	wantKeys := []types.RepoKey{
		{Owner: "spf13", Name: "cobra"},
		{Owner: "golang", Name: "sync"},
		{Owner: "new", Name: "name"},
	}
	if !reflect.DeepEqual(keys, wantKeys) {
		t.Errorf("keys = %v, want %v", keys, wantKeys)
	}
	wantSkipped := []string{"example.com/internal/lib", "github.com/local/thing"}
	if !reflect.DeepEqual(skipped, wantSkipped) {
		t.Errorf("skipped = %v, want %v", skipped, wantSkipped)
	}

	keys, _ = mod.Repositories(true)
	if len(keys) != 4 {
		t.Errorf("with indirect: %d keys, want 4", len(keys))
	}
}
