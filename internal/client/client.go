// Package client talks to the remote sync API on behalf of a device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"Tempo/internal/auth"
	"Tempo/internal/domain"
	"Tempo/internal/dto"
)

const apiPrefix = "/api/v1"

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tempo api: unexpected status %d: %s", e.Code, e.Body)
}

// Unwrap classifies the status: 401 is an auth failure, 5xx and 429 are
// transient.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return domain.ErrAuth
	case e.Code >= 500, e.Code == http.StatusTooManyRequests:
		return domain.ErrNetwork
	}
	return nil
}

// Client implements the device side of the sync contract over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// SetToken sets the bearer credential used by every call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (dto.LoginResponse, error) {
	var out dto.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out, authNone)
	if err != nil {
		return dto.LoginResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (dto.LoginResponse, error) {
	var out dto.LoginResponse
	req := dto.RegisterRequest{Email: email, Password: password, DisplayName: displayName}
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out, authNone); err != nil {
		return dto.LoginResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// Logout ends the server session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, authBearer)
	c.SetToken("")
	return err
}

// Verify confirms the current token with the server.
func (c *Client) Verify(ctx context.Context) (dto.UserResponse, error) {
	var out dto.UserResponse
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out, authBearer)
	return out, err
}

func (c *Client) SyncProjects(ctx context.Context, items []domain.Project) (dto.SyncProjectsResponse, error) {
	var out dto.SyncProjectsResponse
	err := c.do(ctx, http.MethodPost, "/sync/projects", dto.SyncProjectsRequest{Projects: nonNil(items)}, &out, authBearer)
	return out, err
}

func (c *Client) SyncTasks(ctx context.Context, items []domain.Task) (dto.SyncTasksResponse, error) {
	var out dto.SyncTasksResponse
	err := c.do(ctx, http.MethodPost, "/sync/tasks", dto.SyncTasksRequest{Tasks: nonNil(items)}, &out, authBearer)
	return out, err
}

func (c *Client) SyncLogs(ctx context.Context, items []domain.TimedSession) (dto.SyncLogsResponse, error) {
	var out dto.SyncLogsResponse
	err := c.do(ctx, http.MethodPost, "/sync/logs", dto.SyncLogsRequest{Logs: nonNil(items)}, &out, authBearer)
	return out, err
}

func (c *Client) SyncSettings(ctx context.Context, s domain.Settings) (dto.SyncSettingsResponse, error) {
	var out dto.SyncSettingsResponse
	err := c.do(ctx, http.MethodPost, "/sync/settings", dto.SyncSettingsRequest{Settings: s}, &out, authBearer)
	return out, err
}

// Load fetches the full snapshot.
func (c *Client) Load(ctx context.Context) (dto.LoadData, error) {
	var out dto.LoadResponse
	if err := c.do(ctx, http.MethodGet, "/sync/load", nil, &out, authBearer); err != nil {
		return dto.LoadData{}, err
	}
	return out.Data, nil
}

func (c *Client) SyncAll(ctx context.Context, req dto.SyncAllRequest) (dto.SyncAllResponse, error) {
	var out dto.SyncAllResponse
	err := c.do(ctx, http.MethodPost, "/sync/all", req, &out, authBearer)
	return out, err
}

// LegacySync calls the cookie-authenticated combined endpoint.
func (c *Client) LegacySync(ctx context.Context, req dto.SyncAllRequest) (dto.LegacySyncResponse, error) {
	var out dto.LegacySyncResponse
	err := c.do(ctx, http.MethodPost, "/legacy/sync", req, &out, authCookie)
	return out, err
}

type authMode int

const (
	authNone authMode = iota
	authBearer
	authCookie
)

func (c *Client) do(ctx context.Context, method, path string, in, out any, mode authMode) error {
	token := c.Token()
	if mode != authNone && token == "" {
		return fmt.Errorf("%s %s: no credential: %w", method, path, domain.ErrAuth)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch mode {
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+token)
	case authCookie:
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	c.log.Debug("api call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))})
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// nonNil keeps empty pushes encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
