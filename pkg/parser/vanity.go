package parser

import (
	"regexp"
	"strings"

	"github.com/johnsaigle/ghstars/pkg/types"
)

// vanityHost maps an import path prefix to the GitHub owner that hosts the
// repositories below it. The first path element after the prefix names the
// repository.
type vanityHost struct {
	Prefix string
	Owner  string
}

var vanityHosts = []vanityHost{
	{Prefix: "golang.org/x/", Owner: "golang"},
	{Prefix: "go.uber.org/", Owner: "uber-go"},
	{Prefix: "k8s.io/", Owner: "kubernetes"},
	{Prefix: "sigs.k8s.io/", Owner: "kubernetes-sigs"},
}

// vanityModules are single modules whose repository name differs from the path.
var vanityModules = map[string]types.RepoKey{
	"google.golang.org/grpc":     {Owner: "grpc", Name: "grpc-go"},
	"google.golang.org/protobuf": {Owner: "protocolbuffers", Name: "protobuf-go"},
	"google.golang.org/genproto": {Owner: "googleapis", Name: "go-genproto"},
	"google.golang.org/api":      {Owner: "googleapis", Name: "google-api-go-client"},
	"cloud.google.com/go":        {Owner: "googleapis", Name: "google-cloud-go"},
	"go.opentelemetry.io/otel":   {Owner: "open-telemetry", Name: "opentelemetry-go"},
	"go.etcd.io/etcd":            {Owner: "etcd-io", Name: "etcd"},
	"go.etcd.io/bbolt":           {Owner: "etcd-io", Name: "bbolt"},
}

// gopkgVersion matches the ".vN" suffix gopkg.in puts on package names.
var gopkgVersion = regexp.MustCompile(`\.v[0-9]+(-unstable)?$`)

// vanityRepo resolves import paths on hosts that redirect to GitHub.
func vanityRepo(path string) (types.RepoKey, bool) {
	for prefix, key := range vanityModules {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return key, true
		}
	}

	for _, h := range vanityHosts {
		rest, ok := strings.CutPrefix(path, h.Prefix)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		if !validName.MatchString(name) {
			return types.RepoKey{}, false
		}
		return types.RepoKey{Owner: h.Owner, Name: name}, true
	}

	if rest, ok := strings.CutPrefix(path, "gopkg.in/"); ok {
		return gopkgRepo(rest)
	}
	return types.RepoKey{}, false
}

// gopkgRepo handles gopkg.in/pkg.vN (github.com/go-pkg/pkg) and
// gopkg.in/user/pkg.vN (github.com/user/pkg).
func gopkgRepo(rest string) (types.RepoKey, bool) {
	parts := strings.Split(rest, "/")
	if gopkgVersion.MatchString(parts[0]) {
		name := gopkgVersion.ReplaceAllString(parts[0], "")
		return types.RepoKey{Owner: "go-" + name, Name: name}, validName.MatchString(name)
	}
	if len(parts) >= 2 && gopkgVersion.MatchString(parts[1]) {
		name := gopkgVersion.ReplaceAllString(parts[1], "")
		ok := validName.MatchString(parts[0]) && validName.MatchString(name)
		return types.RepoKey{Owner: parts[0], Name: name}, ok
	}
	return types.RepoKey{}, false
}
