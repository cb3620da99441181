package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/spoticamper/internal/shared"
)

// RetryPolicy controls how failed requests are retried. The zero value never retries.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// NewHTTPClient returns a client with the given timeout. Zero disables the timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// RetryPolicyFrom builds a [RetryPolicy] from config.
func RetryPolicyFrom(cfg shared.HTTPConfig) RetryPolicy {
	return RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff()}
}

// retryable reports whether a response status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// doWithRetry sends the request built by newReq, retrying transport errors and retryable statuses.
//
// The backoff grows linearly with the attempt number. The caller closes the returned body.
func doWithRetry(ctx context.Context, client *http.Client, policy RetryPolicy, newReq func(context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Backoff * time.Duration(attempt)):
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			continue
		}

		if retryable(resp.StatusCode) && attempt < policy.MaxRetries {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
			continue
		}

		return resp, nil
	}
	return nil, lastErr
}
