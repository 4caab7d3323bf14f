package lookup

import (
	"encoding/json"
	"time"

	"github.com/johnsaigle/ghstars/pkg/config"
	"github.com/johnsaigle/ghstars/pkg/types"
)

// Kind is the outcome of a lookup.
type Kind int

const (
	// KindFailure means no data could be produced.
	KindFailure Kind = iota
	// KindFound carries current data, either freshly fetched or fresh from the cache.
	KindFound
	// KindNotFound means GitHub reported the repository as missing.
	KindNotFound
	// KindStaleFallback carries cached data served because a fetch failed.
	KindStaleFallback
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindStaleFallback:
		return "stale_fallback"
	default:
		return "failure"
	}
}

// Status classifies a repository for display.
type Status string

const (
	StatusActive   Status = "active"    // pushed to within the inactivity threshold
	StatusArchived Status = "archived"  // archived by its owners
	StatusInactive Status = "inactive"  // no push within the inactivity threshold
	StatusNotFound Status = "not_found" // missing or private
	StatusUnknown  Status = "unknown"   // lookup failed
)

// Result is the answer to one lookup.
type Result struct {
	Key       types.RepoKey
	Kind      Kind
	Stars     int
	UpdatedAt time.Time
	PushedAt  *time.Time
	FetchedAt time.Time
	FromCache bool
	Archived  bool
	Inactive  bool
	// DaysSinceLastPush is -1 when the push time is unknown.
	DaysSinceLastPush int
	// Message describes the failure for KindFailure.
	Message string
}

// HasData reports whether the result carries repository metadata.
func (r Result) HasData() bool {
	return r.Kind == KindFound || r.Kind == KindStaleFallback
}

// Stale reports whether the data was served because a refresh failed.
func (r Result) Stale() bool {
	return r.Kind == KindStaleFallback
}

// Status returns the display classification. Archived wins over inactive.
func (r Result) Status() Status {
	switch r.Kind {
	case KindNotFound:
		return StatusNotFound
	case KindFailure:
		return StatusUnknown
	}
	switch {
	case r.Archived:
		return StatusArchived
	case r.Inactive:
		return StatusInactive
	default:
		return StatusActive
	}
}

type dataResponse struct {
	Stars     int     `json:"stars"`
	Updated   string  `json:"updated"`
	PushedAt  *string `json:"pushedAt"`
	FetchedAt int64   `json:"fetchedAt"`
	Cached    bool    `json:"cached"`
	Archived  bool    `json:"archived"`
	Inactive  bool    `json:"inactive"`
	Stale     bool    `json:"stale,omitempty"`
}

type errorResponse struct {
	Error    string `json:"error"`
	NotFound bool   `json:"notFound,omitempty"`
}

// MarshalJSON renders the response shape badge clients consume.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindNotFound:
		return json.Marshal(errorResponse{Error: notFoundMessage, NotFound: true})
	case KindFailure:
		return json.Marshal(errorResponse{Error: r.Message})
	}

	resp := dataResponse{
		Stars:     r.Stars,
		Updated:   r.UpdatedAt.UTC().Format(time.RFC3339),
		FetchedAt: r.FetchedAt.UnixMilli(),
		Cached:    r.FromCache,
		Archived:  r.Archived,
		Inactive:  r.Inactive,
		Stale:     r.Stale(),
	}
	if r.PushedAt != nil {
		pushed := r.PushedAt.UTC().Format(time.RFC3339)
		resp.PushedAt = &pushed
	}
	return json.Marshal(resp)
}

const notFoundMessage = "Not Found"

func notFound() Result {
	return Result{Kind: KindNotFound, Message: notFoundMessage, DaysSinceLastPush: -1}
}

func fromSnapshot(kind Kind, snap types.Snapshot, fetchedAt time.Time, fromCache bool, settings config.Settings, now time.Time) Result {
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = fetchedAt
	}
	return Result{
		Kind:              kind,
		Stars:             snap.Stars,
		UpdatedAt:         updated,
		PushedAt:          snap.PushedAt,
		FetchedAt:         fetchedAt,
		FromCache:         fromCache,
		Archived:          snap.Archived,
		Inactive:          snap.IsInactive(now, settings.InactiveThreshold),
		DaysSinceLastPush: snap.DaysSinceLastPush(now),
	}
}

// Summary counts results by status.
type Summary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Archived int `json:"archived"`
	Inactive int `json:"inactive"`
	NotFound int `json:"not_found"`
	Unknown  int `json:"unknown"`
	Stale    int `json:"stale"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status() {
		case StatusActive:
			s.Active++
		case StatusArchived:
			s.Archived++
		case StatusInactive:
			s.Inactive++
		case StatusNotFound:
			s.NotFound++
		default:
			s.Unknown++
		}
		if r.Stale() {
			s.Stale++
		}
	}
	return s
}
