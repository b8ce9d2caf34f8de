package danmaku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrAPI marks a response the danmaku server itself reported as failed.
var ErrAPI = errors.New("danmaku api error")

const maxBodySize = 4 << 20

// TaskLister fetches tasks filtered by status.
type TaskLister interface {
	ListTasks(ctx context.Context, status string) ([]Task, error)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListTasks(ctx context.Context, status string) ([]Task, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}

	var tasks []Task
	if err := c.get(ctx, "/tasks", params, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out *[]Task) error {
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "danmakubot")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// the request URL carries api_key in its query
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.baseURL + path
		}
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	slog.Debug("Danmaku API call", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &env) == nil && env.errorText() != "unknown error" {
			msg = env.errorText()
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrAPI, resp.StatusCode, msg)
	}

	return decodeTasks(body, out)
}

// decodeTasks accepts either a bare JSON array or a {success, data, error} envelope.
func decodeTasks(body []byte, out *[]Task) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*out = nil
		return nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("failed to decode tasks: %w", err)
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return fmt.Errorf("failed to decode tasks: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%w: %s", ErrAPI, env.errorText())
	}
	*out = env.Data
	return nil
}
