// Package remote talks to the progress backend and converts between its
// per-day rows and the canonical progress record.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
)

// UserHeader scopes every request to one learner.
const UserHeader = "X-User-ID"

const maxResponseBytes = 16 << 20

type Client struct {
	baseURL    string
	user       string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for the backend at baseURL acting as user.
// An empty baseURL or user yields a client that is never authenticated.
func New(baseURL, user string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Authenticated() bool {
	return c.baseURL != "" && c.user != ""
}

func (c *Client) FetchProgress(ctx context.Context, track string) ([]models.DayProgress, error) {
	path := "/api/progress"
	if track != "" {
		path += "?track=" + url.QueryEscape(track)
	}
	var out []models.DayProgress
	if err := c.do(ctx, "fetch progress", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchStats(ctx context.Context) (*models.RemoteStats, error) {
	var out models.RemoteStats
	if err := c.do(ctx, "fetch stats", http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProgress(ctx context.Context, track string, day int, update models.DayUpdate) (*models.DayProgress, error) {
	path := "/api/progress/" + url.PathEscape(track) + "/" + strconv.Itoa(day)
	var out models.DayProgress
	if err := c.do(ctx, "update progress", http.MethodPut, path, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStats(ctx context.Context, update models.StatsUpdate) (*models.RemoteStats, error) {
	var out models.RemoteStats
	if err := c.do(ctx, "update stats", http.MethodPut, "/api/stats", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetProgress(ctx context.Context) error {
	return c.do(ctx, "reset progress", http.MethodDelete, "/api/progress", nil, nil)
}

// do performs one call and unwraps the envelope. Every failure, whatever its
// cause, comes back as a REMOTE_UNAVAILABLE error.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	log := logger.FromContext(ctx).WithPrefix("remote").WithField("op", op)

	if !c.Authenticated() {
		return errors.NewRemoteUnavailableError(op, fmt.Errorf("not authenticated"))
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.NewRemoteUnavailableError(op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return errors.NewRemoteUnavailableError(op, err)
	}
	req.Header.Set(UserHeader, c.user)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed: %v", err)
		return errors.NewRemoteUnavailableError(op, err)
	}
	defer resp.Body.Close()
	log.Debug("%s %s -> %d in %v", method, path, resp.StatusCode, time.Since(start))

	var env models.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		log.Warn("failed to decode envelope: status=%d err=%v", resp.StatusCode, err)
		return errors.NewRemoteUnavailableError(op, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		log.Warn("backend refused request: status=%d error=%s", resp.StatusCode, msg)
		return errors.NewRemoteUnavailableError(op, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Warn("failed to decode data: %v", err)
		return errors.NewRemoteUnavailableError(op, err)
	}
	return nil
}
