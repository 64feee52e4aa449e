package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Sentinel errors for assistant client operations
var (
	// ErrUnreachable is returned when the assistant API cannot be reached
	ErrUnreachable = errors.New("assistant API unreachable")
	// ErrConnectionTimeout is returned when a request times out
	ErrConnectionTimeout = errors.New("assistant API connection timeout")
	// ErrRequestFailed is returned when an API request returns a non-2xx status
	ErrRequestFailed = errors.New("assistant API request failed")
	// ErrConnectionFailed is returned when a request fails for unknown reasons
	ErrConnectionFailed = errors.New("assistant API connection failed")
)

// Client provides methods to communicate with the remote assistant API.
// All remote conversation state lives on the service side; the client
// holds only connection configuration.
type Client struct {
	baseURL     string
	apiKey      string
	assistantID string
	httpClient  *http.Client
}

// NewClient creates a client bound to a fixed assistant identity.
// If baseURL is empty, DefaultBaseURL is used.
func NewClient(baseURL, apiKey, assistantID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		assistantID: assistantID,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// AssistantID returns the configured assistant identity.
func (c *Client) AssistantID() string {
	return c.assistantID
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateThread opens a new remote conversation context.
func (c *Client) CreateThread(ctx context.Context) (Thread, error) {
	var thread Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &thread); err != nil {
		return Thread{}, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread, nil
}

// AddMessage appends a turn to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string) error {
	body := struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: role, Content: content}

	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// StartRun starts a remote job executing the configured assistant
// against a thread.
func (c *Client) StartRun(ctx context.Context, threadID string) (Run, error) {
	body := struct {
		AssistantID string `json:"assistant_id"`
	}{AssistantID: c.assistantID}

	var run Run
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, &run); err != nil {
		return Run{}, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// GetRun fetches the current status of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	var run Run
	path := fmt.Sprintf("/threads/%s/runs/%s", threadID, runID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &run); err != nil {
		return Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListMessages returns the turns stored in a thread, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	var list messageList
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list.Data, nil
}

// transcriptionModel is the hosted speech-to-text model used for audio
// attachments.
const transcriptionModel = "whisper-1"

// Transcribe sends audio bytes to the speech-to-text endpoint and returns
// the transcript.
func (c *Client) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	if err := writer.WriteField("model", transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var result transcription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription: %w", err)
	}
	return result.Text, nil
}

// doJSON issues a JSON request against the assistant API and decodes the
// response into out (which may be nil to discard the body).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError builds an ErrRequestFailed from a non-2xx response,
// including the remote diagnostic message when one is present.
func (c *Client) statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	if readErr != nil {
		return fmt.Errorf("%w: status %d (failed to read error: %v)", ErrRequestFailed, resp.StatusCode, readErr)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(body))
}

// classifyError converts low-level HTTP errors into user-friendly errors.
func (c *Client) classifyError(err error) error {
	if err == nil {
		return nil
	}

	// Check for context deadline exceeded (timeout)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrConnectionTimeout
	}

	// Preserve cancellation so callers can distinguish a client disconnect
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}

	// Check for timeout from net package
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrConnectionTimeout
	}

	// Check for connection refused (API endpoint not reachable)
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w at %s", ErrUnreachable, c.baseURL)
	}

	// Return wrapped error for unknown cases (DNS errors, TLS errors, etc.)
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}
