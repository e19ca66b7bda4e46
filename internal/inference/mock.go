package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Task names the analyzers route on.
const (
	TaskImageDescription = "image_description"
	TaskCbcExtraction    = "cbc_extraction"
)

// MockClient is a deterministic Gateway implementation for development and
// tests. Responses are canned per task and still pass through the same
// schema check as real responses.
type MockClient struct{}

// NewMockClient creates a new mock gateway.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Gateway = (*MockClient)(nil)

// Extract fills out with a canned response for the requested task.
func (m *MockClient) Extract(ctx context.Context, req *Request, out any) error {
	select {
	case <-ctx.Done():
		return &Error{Kind: KindTimeout, Message: "mock call cancelled", Cause: ctx.Err()}
	default:
	}

	var canned any
	switch req.Task {
	case TaskImageDescription:
		canned = map[string]any{
			"pallor":     "mild pallor in the nail bed",
			"severity":   "MILD",
			"rationale":  "Reduced pink coloration relative to a healthy baseline.",
			"valid":      true,
			"confidence": 72,
		}
	case TaskCbcExtraction:
		canned = map[string]any{
			"hemoglobin":  map[string]string{"value": "11.2", "unit": "g/dL"},
			"rbc":         map[string]string{"value": "4.1", "unit": "10^6/uL"},
			"reported_at": time.Now().UTC().Format(time.RFC3339),
		}
	default:
		return &Error{Kind: KindFatal, Message: fmt.Sprintf("unknown task %q", req.Task)}
	}

	raw, err := json.Marshal(canned)
	if err != nil {
		return &Error{Kind: KindFatal, Message: "failed to marshal mock response", Cause: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindSchemaValidation, Message: "mock response does not fit schema", Cause: err}
	}
	return checkSchema(out)
}
