package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls an extraction backend over HTTP. The backend accepts a task
// plus media and returns the structured object for that task's schema.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new inference client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Gateway = (*Client)(nil)

// apiError is the backend's error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Extract performs one extraction call and decodes the response into out.
func (c *Client) Extract(ctx context.Context, req *Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &Error{Kind: KindFatal, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extractions", bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindFatal, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &Error{Kind: KindTimeout, Message: "inference call timed out", Cause: err}
		}
		return &Error{Kind: KindTransient, Message: "inference call failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransient, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindSchemaValidation, Message: "response is not valid JSON for schema", Cause: err}
	}
	return checkSchema(out)
}

func (c *Client) statusError(status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return &Error{Kind: KindTimeout, Message: fmt.Sprintf("upstream [%d]: %s", status, msg)}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Message: fmt.Sprintf("upstream [%d]: %s", status, msg)}
	case status >= 500:
		return &Error{Kind: KindTransient, Message: fmt.Sprintf("upstream [%d]: %s", status, msg)}
	default:
		return &Error{Kind: KindFatal, Message: fmt.Sprintf("upstream [%d]: %s", status, msg)}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
