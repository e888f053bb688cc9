package drill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/internal/domain/types"
)

// Client talks to the practice API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type attemptPayload struct {
	AttemptID  string          `json:"attempt_id"`
	LearnerID  string          `json:"learner_id"`
	TemplateID string          `json:"template_id"`
	Strokes    []strokePayload `json:"strokes"`
}

type strokePayload struct {
	Points []stroke.Point `json:"points"`
}

// Healthy reports whether GET /healthz answers 200.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Templates fetches the catalog.
func (c *Client) Templates(ctx context.Context) ([]stroke.CharacterTemplate, error) {
	var out struct {
		Templates []stroke.CharacterTemplate `json:"templates"`
	}
	if err := c.getJSON(ctx, "/templates", &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// Submit posts one attempt.
func (c *Client) Submit(ctx context.Context, attemptID, learnerID, templateID string, strokes []stroke.Stroke) (Outcome, error) {
	payload := attemptPayload{
		AttemptID:  attemptID,
		LearnerID:  learnerID,
		TemplateID: templateID,
		Strokes:    make([]strokePayload, len(strokes)),
	}
	for i, s := range strokes {
		payload.Strokes[i] = strokePayload{Points: s.Points}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal attempt: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/attempts", body)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Outcome{}, statusError(resp)
	}
	var out Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return out, nil
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]types.Entry, error) {
	var out []types.Entry
	if err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(n), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	return fmt.Errorf("%s %s: status %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, e.Message)
}
