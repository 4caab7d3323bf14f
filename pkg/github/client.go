// Package github fetches repository metadata from the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"github.com/johnsaigle/ghstars/pkg/types"
)

const (
	// DefaultAttempts is one request plus two retries.
	DefaultAttempts = 3
	// DefaultBackoff is the base of the linear backoff between attempts.
	DefaultBackoff = 200 * time.Millisecond
)

// Client wraps the GitHub API client. Credentials are supplied per call;
// one underlying client is kept per distinct token.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	attempts   int
	backoff    time.Duration
	log        *slog.Logger

	mu      sync.Mutex
	clients map[string]*github.Client

	anonymousWarning sync.Once
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise server or a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		c.baseURL = u
		return nil
	}
}

// WithHTTPClient sets the transport used for all requests. Authenticated
// requests wrap its transport with an OAuth2 token source.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithAttempts sets the total number of attempts for a metadata fetch.
func WithAttempts(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("attempts must be at least 1, got %d", n)
		}
		c.attempts = n
		return nil
	}
}

// WithBackoff sets the base delay between fetch attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) error {
		c.backoff = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// NewClient creates a GitHub client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   DefaultAttempts,
		backoff:    DefaultBackoff,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		clients:    make(map[string]*github.Client),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// clientFor returns the API client for token, creating it on first use.
func (c *Client) clientFor(token string) *github.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gc, ok := c.clients[token]; ok {
		return gc
	}

	hc := c.httpClient
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(ctx, ts)
	} else {
		c.anonymousWarning.Do(func() {
			c.log.Warn("GitHub token not present; requests will be unauthenticated and may be rate-limited")
		})
	}

	gc := github.NewClient(hc)
	if c.baseURL != nil {
		u := *c.baseURL
		gc.BaseURL = &u
	}
	if c.userAgent != "" {
		gc.UserAgent = c.userAgent
	}

	c.clients[token] = gc
	return gc
}

// Fetch retrieves the metadata snapshot for a repository.
//
// Transient failures are retried with linear backoff. A not-found response is
// returned immediately as ErrNotFound.
func (c *Client) Fetch(ctx context.Context, key types.RepoKey, token string) (types.Snapshot, error) {
	if key.Owner == "" || key.Name == "" {
		return types.Snapshot{}, errors.New("owner and repo name must be provided")
	}

	gc := c.clientFor(token)

	var snap types.Snapshot
	err := retry(ctx, c.attempts, c.backoff, func(attempt int) error {
		repository, resp, err := gc.Repositories.Get(ctx, key.Owner, key.Name)
		if err != nil {
			return classify(err, resp)
		}
		if repository == nil {
			return fmt.Errorf("%w: empty repository payload", ErrUnexpectedStatus)
		}
		snap = toSnapshot(repository)
		return nil
	}, func(attempt int, err error) {
		c.log.Debug("retrying repository fetch", "repo", key.String(), "attempt", attempt, "err", err)
	})
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to fetch repository %s: %w", key, err)
	}

	return snap, nil
}

// Exists sends a single HEAD request for the repository.
//
// It returns (false, nil) only when GitHub answers 404. Any other failure,
// including transport errors, is returned as an error meaning existence could
// not be confirmed.
func (c *Client) Exists(ctx context.Context, key types.RepoKey, token string) (bool, error) {
	gc := c.clientFor(token)

	req, err := gc.NewRequest(http.MethodHead, fmt.Sprintf("repos/%v/%v", key.Owner, key.Name), nil)
	if err != nil {
		return false, err
	}

	resp, err := gc.Do(ctx, req, nil)
	if err != nil {
		err = classify(err, resp)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe repository %s: %w", key, err)
	}

	return true, nil
}

// ValidateToken checks that token is accepted by the API.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("GitHub token is required")
	}

	// Test the token by trying to access a known public repository.
	// This works for both PATs and GITHUB_TOKEN (Actions token).
	_, resp, err := c.clientFor(token).Repositories.Get(ctx, "golang", "go")
	if err != nil {
		if resp != nil && resp.Response != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return errors.New("invalid or expired GitHub token")
			case http.StatusForbidden:
				if resp.Header.Get("X-RateLimit-Remaining") == "0" {
					return ErrRateLimited
				}
				return errors.New("GitHub token lacks necessary permissions to access public repositories")
			case http.StatusNotFound:
				return nil
			}
		}
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			return ErrRateLimited
		}
		// Network issues and outages should not block usage.
		c.log.Debug("token validation inconclusive", "err", err)
	}

	return nil
}

func toSnapshot(repository *github.Repository) types.Snapshot {
	snap := types.Snapshot{
		Stars:    repository.GetStargazersCount(),
		Archived: repository.GetArchived(),
	}
	if repository.UpdatedAt != nil {
		snap.UpdatedAt = repository.UpdatedAt.Time
	}
	if repository.PushedAt != nil {
		pushed := repository.PushedAt.Time
		snap.PushedAt = &pushed
	}
	return snap
}
