package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	model "github.com/parleylab/parley/internal/model/convo"
)

// ErrRemote wraps every non-ok answer from the conversation service.
var ErrRemote = errors.New("conversation service request failed")

// HTTPClient talks to the conversation API. The user identity travels in the
// X-User-Name header on every request.
type HTTPClient struct {
	baseURL  string
	userName string
	client   *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the API at baseURL acting as userName.
func NewHTTPClient(baseURL, userName string) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		userName: userName,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Create starts a new conversation.
func (c *HTTPClient) Create(ctx context.Context, kind model.Kind, level int) (*Conversation, error) {
	payload := map[string]any{"kind": kind, "level": level}
	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", payload, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns the caller's conversations for one stage, oldest first.
func (c *HTTPClient) List(ctx context.Context, kind model.Kind, level int) ([]model.Summary, error) {
	query := url.Values{}
	query.Set("kind", string(kind))
	query.Set("level", strconv.Itoa(level))

	var summaries []model.Summary
	if err := c.do(ctx, http.MethodGet, "/api/conversations?"+query.Encode(), nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Get loads one conversation.
func (c *HTTPClient) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Advance submits a selection (or none) and returns the produced turn.
func (c *HTTPClient) Advance(ctx context.Context, id string, option model.SelectedOption) (model.Step, error) {
	payload := map[string]any{"option": option}
	var step model.Step
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(id)+"/next", payload, &step); err != nil {
		return model.Step{}, err
	}
	return step, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-User-Name", c.userName)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var remote struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&remote); decodeErr == nil && remote.Error != "" {
			return fmt.Errorf("%w: %s (status %d)", ErrRemote, remote.Error, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
