// Package provider fetches establishment data from external registry
// APIs and normalizes each provider's shape into the canonical record.
// A successful query never writes to persistence; that is the lookup
// orchestrator's job.
package provider

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds each provider attempt when no timeout is
// configured.
const DefaultTimeout = 10 * time.Second

// Client performs timeout-bounded GET requests against provider
// endpoints and maps transport failures onto the typed error set.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a provider HTTP client.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// get fetches url and returns the response body. The attempt is aborted
// once the timeout elapses; the abort surfaces as *TimeoutError, other
// transport failures as *NetworkError and non-2xx statuses as
// *ProviderError.
func (c *Client) get(ctx context.Context, providerID, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Provider: providerID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Provider: providerID}
		}
		return nil, &NetworkError{Provider: providerID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Provider: providerID}
		}
		return nil, &NetworkError{Provider: providerID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: providerID, Status: resp.StatusCode}
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
