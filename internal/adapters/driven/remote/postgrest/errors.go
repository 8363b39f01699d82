package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// APIError represents a non-success HTTP response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postgrest: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError represents a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("postgrest: rate limited, retry after %s", e.RetryAfter)
}

// Unwrap lets errors.Is match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// isTransientStatus reports whether a response status is worth retrying.
func isTransientStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return code != http.StatusNotImplemented
	default:
		return false
	}
}

// fetchError classifies err for table. Network failures and timeouts are
// transient unless the caller's context is done.
func fetchError(ctx context.Context, table string, err error) *domain.FetchError {
	if ctx.Err() != nil {
		return &domain.FetchError{Table: table, Err: err}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &domain.FetchError{Table: table, Transient: isTransientStatus(apiErr.StatusCode), Err: err}
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.FetchError{Table: table, Transient: true, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &domain.FetchError{Table: table, Transient: true, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.FetchError{Table: table, Transient: true, Err: err}
	}

	return &domain.FetchError{Table: table, Err: err}
}
