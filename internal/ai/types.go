package ai

import (
	"context"
	"errors"
	"fmt"
)

// Request is the provider-agnostic call shape: one system prompt, one user
// prompt, sampling parameters. One round trip per call; retry policy belongs
// to the caller.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Response carries the raw textual completion plus usage accounting where the
// provider reports it.
type Response struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}

// Client is the capability set every provider variant implements.
type Client interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrRateLimited marks a provider 429.
var ErrRateLimited = errors.New("rate_limited")

// IsRateLimited reports whether err is a provider rate limit.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// HTTPError is a non-2xx provider response, normalized across providers.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

// NotConfiguredError reports a provider that cannot be constructed: unknown
// name or missing credential. Surfaced before any network call.
type NotConfiguredError struct {
	Provider string
	Reason   string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %q not configured: %s", e.Provider, e.Reason)
}
