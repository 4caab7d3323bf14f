package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/github"
)

// Sentinel errors for repository lookups. Errors returned by Client wrap
// exactly one of these; use errors.Is to classify.
var (
	// ErrNotFound means GitHub reported the repository does not exist.
	ErrNotFound = errors.New("repository not found")

	// ErrNetwork covers transport failures and 5xx responses.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited means the API quota for the credential is exhausted.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")

	// ErrUnauthorized means the token was rejected.
	ErrUnauthorized = errors.New("GitHub API authentication failed (check your token)")

	// ErrUnexpectedStatus covers every other non-success response.
	ErrUnexpectedStatus = errors.New("unexpected GitHub API response")
)

// RetryableError marks a transient failure that may succeed when repeated.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was marked transient.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// classify maps a go-github error and its response to one of the sentinels.
func classify(err error, resp *github.Response) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	if resp != nil && resp.Response != nil {
		code := resp.StatusCode
		switch {
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case code == http.StatusTooManyRequests,
			code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
			resetTime := resp.Header.Get("X-RateLimit-Reset")
			return fmt.Errorf("%w (resets at %s): %v", ErrRateLimited, resetTime, err)
		case code >= 500:
			return &RetryableError{Err: fmt.Errorf("%w: status %d: %v", ErrNetwork, code, err)}
		default:
			return fmt.Errorf("%w: status %d: %v", ErrUnexpectedStatus, code, err)
		}
	}

	return &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
}
