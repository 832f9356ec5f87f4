// Package registry provides a client for the entity-identity registry. The
// engine consults it once per submission and never mints or caches identity
// itself.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout is the maximum time to wait for registry responses.
const DefaultTimeout = 5 * time.Second

// ErrUnavailable marks a registry lookup that failed for transient reasons
// (transport error, non-2xx/404 status). Callers classify it as retryable.
var ErrUnavailable = errors.New("identity registry unavailable")

// Client provides access to the identity registry API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new identity-registry client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("registry"),
	}
}

// Exists reports whether the registry knows entityID. A false return with a
// nil error is authoritative (the registry answered "not found"); any other
// failure wraps ErrUnavailable.
func (c *Client) Exists(ctx context.Context, entityID uuid.UUID) (bool, error) {
	endpoint, err := buildURL(c.baseURL, "api", "v1", "entities", entityID.String())
	if err != nil {
		return false, fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Registry lookup failed",
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		c.logger.Warn("Registry returned unexpected status",
			zap.String("entity_id", entityID.String()),
			zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

// buildURL safely joins a base URL with path segments.
func buildURL(baseURL string, segments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(append([]string{u.Path}, segments...)...)
	return u.String(), nil
}
