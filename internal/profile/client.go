// Package profile queries an external identity endpoint for display
// metadata. The lookup is presentation-only: any failure falls back to
// generic labels instead of surfacing an error.
package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Fallback labels returned when the remote endpoint cannot be reached.
const (
	FallbackName = "Usuario"
	FallbackRole = "Invitado"
)

// Display carries the name/role pair shown in the UI header.
type Display struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Client fetches display profiles from the configured endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a profile client. An empty endpoint disables
// remote lookup entirely; every call then returns the fallback.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Lookup resolves the display profile for an email. Never returns an
// error: transient failures are logged and mapped to the fallback, no
// retry is attempted.
func (c *Client) Lookup(ctx context.Context, email string) Display {
	fallback := Display{Name: FallbackName, Role: FallbackRole}
	if c == nil || c.endpoint == "" || email == "" {
		return fallback
	}

	reqURL := c.endpoint + "?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fallback
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("profile lookup failed", slog.Any("error", err))
		return fallback
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("profile lookup status", slog.Int("status", resp.StatusCode))
		return fallback
	}

	var display Display
	if err := json.NewDecoder(resp.Body).Decode(&display); err != nil {
		c.logger.Warn("profile decode failed", slog.Any("error", err))
		return fallback
	}
	if display.Name == "" {
		display.Name = FallbackName
	}
	if display.Role == "" {
		display.Role = FallbackRole
	}
	return display
}
