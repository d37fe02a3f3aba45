// Package client calls the wotracker REST API. The CLI and the remote MCP
// mode use it to reach a server over Tailscale.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/api"
	"github.com/claude/wotracker/internal/calc"
	"github.com/claude/wotracker/internal/ingest"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/store"
)

// Error is a non-2xx response.
type Error struct {
	Status  int
	Path    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Path, e.Status, e.Message)
}

// StatusOf returns the HTTP status of err, or 0 when it is not an *Error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Mutation is the result of a write. Unsynced is set when the server kept
// the change in memory but could not persist it.
type Mutation[T any] struct {
	Value    T    `json:"value"`
	Unsynced bool `json:"unsynced"`
}

// Client talks to one server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default client, e.g. with a tsnet dialer.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetry sets how often imports are attempted and the first backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.backoff = backoff
	}
}

// New creates a client targeting baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		attempts:   3,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request. body is JSON-encoded unless it is an io.Reader.
// A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var r io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case io.Reader:
		r = b
		contentType = "text/csv"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s: %w", path, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	if r != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set(api.HeaderAPIKey, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var e api.Error
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return resp.Header, &Error{Status: resp.StatusCode, Path: path, Message: msg}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.Header, fmt.Errorf("client: decode %s: %w", path, err)
		}
	}
	return resp.Header, nil
}

func mutate[T any](ctx context.Context, c *Client, method, path string, body any) (Mutation[T], error) {
	var m Mutation[T]
	h, err := c.do(ctx, method, path, body, &m.Value)
	if err != nil {
		return m, err
	}
	m.Unsynced = h.Get(api.HeaderUnsynced) != ""
	return m, nil
}

// Me returns the caller's identity.
func (c *Client) Me(ctx context.Context) (api.Me, error) {
	var me api.Me
	_, err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &me)
	return me, err
}

// State returns the full snapshot.
func (c *Client) State(ctx context.Context) (api.State, error) {
	var st api.State
	_, err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, &st)
	return st, err
}

// Plans lists the caller's plans.
func (c *Client) Plans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	_, err := c.do(ctx, http.MethodGet, "/api/v1/plans", nil, &plans)
	return plans, err
}

// CreatePlan stores a new plan.
func (c *Client) CreatePlan(ctx context.Context, p models.Plan) (Mutation[models.Plan], error) {
	return mutate[models.Plan](ctx, c, http.MethodPost, "/api/v1/plans", p)
}

// ActivatePlan makes id the active plan.
func (c *Client) ActivatePlan(ctx context.Context, id uuid.UUID) (Mutation[models.Plan], error) {
	return mutate[models.Plan](ctx, c, http.MethodPost, "/api/v1/plans/"+id.String()+"/activate", nil)
}

// ActiveSession returns nil when no session is in progress.
func (c *Client) ActiveSession(ctx context.Context) (*models.Session, error) {
	var sess *models.Session
	_, err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &sess)
	return sess, err
}

// StartSession starts a session for a plan day.
func (c *Client) StartSession(ctx context.Context, req api.StartRequest) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPost, "/api/v1/session", req)
}

// LogSet records a set on the active session.
func (c *Client) LogSet(ctx context.Context, req api.LogSetRequest) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPost, "/api/v1/session/sets", req)
}

// SwapExercise renames an exercise of the active session.
func (c *Client) SwapExercise(ctx context.Context, req api.SwapRequest) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPost, "/api/v1/session/swap", req)
}

// SetNotes sets the active session's notes.
func (c *Client) SetNotes(ctx context.Context, notes string) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPut, "/api/v1/session/notes", api.NotesRequest{Notes: notes})
}

// SetSessionNotes sets the notes of any session.
func (c *Client) SetSessionNotes(ctx context.Context, id uuid.UUID, notes string) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPut, "/api/v1/sessions/"+id.String()+"/notes", api.NotesRequest{Notes: notes})
}

// CompleteSession finishes the active session.
func (c *Client) CompleteSession(ctx context.Context) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPost, "/api/v1/session/complete", nil)
}

// AbandonSession gives up the active session.
func (c *Client) AbandonSession(ctx context.Context) (Mutation[models.Session], error) {
	return mutate[models.Session](ctx, c, http.MethodPost, "/api/v1/session/abandon", nil)
}

// History lists finished sessions. An empty status lists both kinds.
func (c *Client) History(ctx context.Context, status models.SessionStatus) (store.HistoryView, error) {
	path := "/api/v1/sessions"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var view store.HistoryView
	_, err := c.do(ctx, http.MethodGet, path, nil, &view)
	return view, err
}

// Dashboard returns the dashboard stats.
func (c *Client) Dashboard(ctx context.Context) (calc.DashboardStats, error) {
	var d calc.DashboardStats
	_, err := c.do(ctx, http.MethodGet, "/api/v1/dashboard", nil, &d)
	return d, err
}

// ExerciseNames lists every known exercise.
func (c *Client) ExerciseNames(ctx context.Context) ([]string, error) {
	var names []string
	_, err := c.do(ctx, http.MethodGet, "/api/v1/exercises", nil, &names)
	return names, err
}

// ExerciseProgress returns the progress view of one exercise.
func (c *Client) ExerciseProgress(ctx context.Context, name string) (calc.ExerciseProgress, error) {
	var p calc.ExerciseProgress
	_, err := c.do(ctx, http.MethodGet, "/api/v1/exercises/"+url.PathEscape(name), nil, &p)
	return p, err
}

// Settings returns the caller's settings.
func (c *Client) Settings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	_, err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &s)
	return s, err
}

// UpdateSettings changes the non-nil fields of u.
func (c *Client) UpdateSettings(ctx context.Context, u store.SettingsUpdate) (Mutation[models.Settings], error) {
	return mutate[models.Settings](ctx, c, http.MethodPut, "/api/v1/settings", u)
}

// Sync asks the server to retry failed writes.
func (c *Client) Sync(ctx context.Context) (api.SyncResponse, error) {
	var out api.SyncResponse
	_, err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, &out)
	return out, err
}

// SignOut flushes pending writes on the server and drops the cached state.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/signout", nil, nil)
	return err
}

// ImportAlpha uploads an Alpha Progression export. name identifies the
// export in errors. Failures are retried with exponential backoff; client
// errors other than 429 are not.
func (c *Client) ImportAlpha(ctx context.Context, name string, r io.Reader) (*ingest.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		var result ingest.Result
		_, err := c.do(ctx, http.MethodPost, "/api/v1/import/alpha", bytes.NewReader(data), &result)
		if err == nil {
			return &result, nil
		}
		lastErr = err
		if st := StatusOf(err); st >= 400 && st < 500 && st != http.StatusTooManyRequests {
			break
		}
	}
	return nil, fmt.Errorf("importing %s: %w", name, lastErr)
}
