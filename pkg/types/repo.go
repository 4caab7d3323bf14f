package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RepoKey identifies a hosted repository by owner and name.
// Comparison is case-sensitive, exactly as given.
type RepoKey struct {
	Owner string
	Name  string
}

// NewRepoKey builds a RepoKey, rejecting empty components and embedded slashes.
func NewRepoKey(owner, name string) (RepoKey, error) {
	if owner == "" || name == "" {
		return RepoKey{}, errors.New("owner and repo name must be provided")
	}
	if strings.Contains(owner, "/") || strings.Contains(name, "/") {
		return RepoKey{}, fmt.Errorf("invalid repository %s/%s", owner, name)
	}
	return RepoKey{Owner: owner, Name: name}, nil
}

// ParseRepoKey parses the canonical "owner/name" form.
func ParseRepoKey(s string) (RepoKey, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok {
		return RepoKey{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return NewRepoKey(owner, name)
}

// String returns the canonical "owner/name" form.
func (k RepoKey) String() string {
	return k.Owner + "/" + k.Name
}

// Snapshot is the repository metadata as returned by the remote API at fetch time.
// Field names follow the GitHub payload so stored values stay readable.
type Snapshot struct {
	UpdatedAt time.Time  `json:"updated_at"`
	PushedAt  *time.Time `json:"pushed_at"`
	Stars     int        `json:"stargazers_count"`
	Archived  bool       `json:"archived"`
}

// IsInactive reports whether the last push is older than threshold.
// A snapshot without a push time is never inactive.
func (s Snapshot) IsInactive(now time.Time, threshold time.Duration) bool {
	if s.PushedAt == nil {
		return false
	}
	return now.Sub(*s.PushedAt) > threshold
}

// DaysSinceLastPush returns the number of whole days since the last push.
// Returns -1 if the push time is unknown.
func (s Snapshot) DaysSinceLastPush(now time.Time) int {
	if s.PushedAt == nil {
		return -1
	}
	return int(now.Sub(*s.PushedAt).Hours() / 24)
}
