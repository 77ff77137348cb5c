package cadencesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Cadence HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Week represents the API week model.
type Week struct {
	ID                  string  `json:"id,omitempty"`
	WeekKey             string  `json:"week_key"`
	BusinessDateDefault string  `json:"business_date_default"`
	BusinessDateActual  *string `json:"business_date_actual,omitempty"`
}

// Task represents the API task model (partial).
type Task struct {
	ID             string  `json:"id"`
	WeekID         string  `json:"week_id"`
	TitleJA        string  `json:"title_ja"`
	TitleFR        *string `json:"title_fr,omitempty"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	DueAt          string  `json:"due_at"`
	AssigneeUserID *string `json:"assignee_user_id,omitempty"`
	Tag            *string `json:"tag,omitempty"`
}

// ChecklistItem represents one checklist row on a task.
type ChecklistItem struct {
	ID             string  `json:"id"`
	TaskID         string  `json:"task_id"`
	TextJA         string  `json:"text_ja"`
	TextFR         *string `json:"text_fr,omitempty"`
	AssigneeUserID string  `json:"assignee_user_id"`
	DueAt          *string `json:"due_at,omitempty"`
	IsDone         bool    `json:"is_done"`
}

// Comment represents a task comment.
type Comment struct {
	ID           string  `json:"id"`
	TaskID       string  `json:"task_id"`
	AuthorUserID string  `json:"author_user_id"`
	BodyJA       string  `json:"body_ja"`
	BodyFR       *string `json:"body_fr,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts"`
	Type    string `json:"type"`
	UserID  string `json:"user_id,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Payload string `json:"payload_json"`
}

// GenerateResult reports what one generation request did.
type GenerateResult struct {
	Week         Week   `json:"week"`
	TasksCreated int    `json:"tasks_created"`
	TasksSkipped int    `json:"tasks_skipped"`
	Tasks        []Task `json:"tasks"`
}

// WeekDetail is a week with its tasks.
type WeekDetail struct {
	Week         Week   `json:"week"`
	BusinessDate string `json:"business_date"`
	Tasks        []Task `json:"tasks"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// GenerateWeek materializes the active template into the given week.
func (c *Client) GenerateWeek(ctx context.Context, weekKey string) (GenerateResult, error) {
	body := map[string]any{"week_key": weekKey}
	var resp GenerateResult
	err := c.do(ctx, http.MethodPost, "v0/weeks/generate", body, &resp)
	return resp, err
}

// ListWeeks returns upcoming weeks starting at fromKey.
func (c *Client) ListWeeks(ctx context.Context, fromKey string, count int) ([]Week, error) {
	endpoint := "v0/weeks"
	q := url.Values{}
	if fromKey != "" {
		q.Set("from", fromKey)
	}
	if count > 0 {
		q.Set("count", fmt.Sprintf("%d", count))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Week
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetWeek fetches a week and its tasks.
func (c *Client) GetWeek(ctx context.Context, weekID string) (WeekDetail, error) {
	var resp WeekDetail
	err := c.do(ctx, http.MethodGet, "v0/weeks/"+url.PathEscape(weekID), nil, &resp)
	return resp, err
}

// SetBusinessDate overrides a week's business day; open template tasks are rescheduled.
func (c *Client) SetBusinessDate(ctx context.Context, weekID, date string) (Week, error) {
	body := map[string]any{"business_date": date}
	var resp Week
	err := c.do(ctx, http.MethodPatch, "v0/weeks/"+url.PathEscape(weekID), body, &resp)
	return resp, err
}

// ListTasks returns tasks matching the given filters; empty filters match everything.
func (c *Client) ListTasks(ctx context.Context, weekID, status, assignee string) ([]Task, error) {
	q := url.Values{}
	if weekID != "" {
		q.Set("week_id", weekID)
	}
	if status != "" {
		q.Set("status", status)
	}
	if assignee != "" {
		q.Set("assignee_user_id", assignee)
	}
	endpoint := "v0/tasks"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UpdateTaskStatus moves a task to the given status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	body := map[string]any{"status": status}
	var resp Task
	err := c.do(ctx, http.MethodPatch, "v0/tasks/"+url.PathEscape(taskID), body, &resp)
	return resp, err
}

// MyChecklist returns the caller's open checklist items, soonest first.
func (c *Client) MyChecklist(ctx context.Context) ([]ChecklistItem, error) {
	var resp []ChecklistItem
	err := c.do(ctx, http.MethodGet, "v0/me/checklist", nil, &resp)
	return resp, err
}

// CheckItem marks a checklist item done or not done.
func (c *Client) CheckItem(ctx context.Context, itemID string, done bool) (ChecklistItem, error) {
	body := map[string]any{"done": done}
	var resp ChecklistItem
	err := c.do(ctx, http.MethodPatch, "v0/checklist/"+url.PathEscape(itemID)+"/check", body, &resp)
	return resp, err
}

// AddComment posts a Japanese comment on a task.
func (c *Client) AddComment(ctx context.Context, taskID, bodyJA string) (Comment, error) {
	body := map[string]any{"body_ja": bodyJA}
	var resp Comment
	err := c.do(ctx, http.MethodPost, "v0/tasks/"+url.PathEscape(taskID)+"/comments", body, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// RetryTranslations asks the server to retry all flagged translations.
func (c *Client) RetryTranslations(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "v0/translate/retry", map[string]any{}, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
