// Package directory is the HTTP client of the user directory service, which
// owns customer and driver profiles and their active-trip pointers.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ride-trip/internal/domain"
)

// Collection names on the directory service.
const (
	Customers = "customers"
	Drivers   = "drivers"
)

var (
	// ErrNotFound is returned when the directory has no profile for the id.
	ErrNotFound = errors.New("profile not found")
)

// StatusError is returned for a non-2xx directory response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("directory %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("directory %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Config configures the directory transport.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// Client talks to the directory service over keep-alive HTTP, retrying
// transient failures with exponential backoff and jitter.
type Client struct {
	baseURL    string
	http       *http.Client
	retryCount int
	retryDelay time.Duration
	logger     *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{Transport: transport, Timeout: cfg.Timeout},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With("component", "directory"),
		sleep:      sleepContext,
		jitter:     func() float64 { return 0.5 + rand.Float64()*0.5 },
	}
}

// Collection returns the client for one collection (Customers or Drivers).
func (c *Client) Collection(name string) *Collection {
	return &Collection{client: c, name: name}
}

// Collection is the directory client scoped to customers or drivers.
type Collection struct {
	client *Client
	name   string
}

type setActiveTripRequest struct {
	TripID string `json:"tripId"`
}

// FindOne fetches a profile, optionally projected onto fields.
func (c *Collection) FindOne(ctx context.Context, id string, fields []string) (*domain.UserProfile, error) {
	path := "/" + c.name + "/" + url.PathEscape(id)
	if len(fields) > 0 {
		path += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}

	var profile domain.UserProfile
	if err := c.client.do(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" {
		profile.ID = id
	}
	return &profile, nil
}

// SetActiveTrip points the user's active-trip field at tripID.
func (c *Collection) SetActiveTrip(ctx context.Context, id, tripID string) error {
	path := "/" + c.name + "/" + url.PathEscape(id) + "/active-trip"
	return c.client.do(ctx, http.MethodPut, path, setActiveTripRequest{TripID: tripID}, nil)
}

// RemoveActiveTrip clears the user's active-trip field.
func (c *Collection) RemoveActiveTrip(ctx context.Context, id string) error {
	path := "/" + c.name + "/" + url.PathEscape(id) + "/active-trip"
	return c.client.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode directory request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 1; attempt <= c.retryCount; attempt++ {
		if attempt > 1 {
			c.logger.Info("retrying directory request", "method", method, "path", path, "attempt", attempt, "max", c.retryCount)
		}

		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.retryCount {
			break
		}

		c.logger.Warn("directory request failed", "method", method, "path", path, "attempt", attempt, "error", lastErr, "retry_in", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * 2 * c.jitter())
	}

	c.logger.Error("directory request failed", "method", method, "path", path, "error", lastErr)
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("directory response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}

// retryable reports whether err is a connection failure, a timeout or a
// gateway error from an overloaded directory.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
