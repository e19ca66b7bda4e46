package analyzer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/inference"
)

// fakeGateway replays a scripted sequence of responses: an error entry
// fails the call, a JSON entry is decoded into out.
type fakeGateway struct {
	script []any // error or json.RawMessage
	calls  int
}

func (f *fakeGateway) Extract(_ context.Context, _ *inference.Request, out any) error {
	if f.calls >= len(f.script) {
		return &inference.Error{Kind: inference.KindFatal, Message: "script exhausted"}
	}
	step := f.script[f.calls]
	f.calls++
	if err, ok := step.(error); ok {
		return err
	}
	return json.Unmarshal(step.(json.RawMessage), out)
}

func testRetry() RetryPolicy {
	return RetryPolicy{Max: 2, Base: time.Millisecond, Factor: 2}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func observation(severity string, valid bool, confidence float64) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"pallor":     "conjunctival pallor",
		"severity":   severity,
		"rationale":  "pale lower eyelid",
		"valid":      valid,
		"confidence": confidence,
	})
	return b
}

func TestImageAnalyzeNoImagesSkipped(t *testing.T) {
	a := NewImageAnalyzer(&fakeGateway{}, testRetry(), testLogger())

	res := a.Analyze(context.Background(), nil)
	assert.Equal(t, domain.ResultSkipped, res.Source)
	assert.Equal(t, domain.ReasonUserSkipped, res.ReasonCode)
	assert.Empty(t, res.Payload)
}

func TestImageAnalyzeAggregatesWorstSeverity(t *testing.T) {
	gw := &fakeGateway{script: []any{
		observation("MILD", true, 80),
		observation("SEVERE", true, 90),
	}}
	a := NewImageAnalyzer(gw, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: domain.PointSkin, DataURI: "data:image/jpeg;base64,AA"},
		{Point: domain.PointUnderEye, DataURI: "data:image/jpeg;base64,BB"},
	})
	require.Equal(t, domain.ResultSucceeded, res.Source)

	var findings domain.ImageFindings
	require.NoError(t, json.Unmarshal(res.Payload, &findings))
	assert.Equal(t, domain.SeveritySevere, findings.WorstSeverity)
	assert.Len(t, findings.Descriptions, 2)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
}

func TestImageAnalyzeRetriesTransientThenSucceeds(t *testing.T) {
	gw := &fakeGateway{script: []any{
		&inference.Error{Kind: inference.KindTransient, Message: "upstream hiccup"},
		&inference.Error{Kind: inference.KindRateLimited, Message: "slow down"},
		observation("NONE", true, 95),
	}}
	a := NewImageAnalyzer(gw, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: domain.PointNail, DataURI: "data:image/jpeg;base64,AA"},
	})
	assert.Equal(t, domain.ResultSucceeded, res.Source)
	assert.Equal(t, 3, gw.calls)
}

func TestImageAnalyzeExhaustedRetriesTimeOut(t *testing.T) {
	timeout := &inference.Error{Kind: inference.KindTimeout, Message: "deadline exceeded"}
	gw := &fakeGateway{script: []any{timeout, timeout, timeout}}
	a := NewImageAnalyzer(gw, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: domain.PointSkin, DataURI: "data:image/jpeg;base64,AA"},
	})
	assert.Equal(t, domain.ResultTimedOut, res.Source)
	assert.Equal(t, domain.ReasonInferenceTimeout, res.ReasonCode)
	// Initial attempt plus two retries.
	assert.Equal(t, 3, gw.calls)
}

func TestImageAnalyzeFatalErrorNotRetried(t *testing.T) {
	gw := &fakeGateway{script: []any{
		&inference.Error{Kind: inference.KindFatal, Message: "bad request"},
	}}
	a := NewImageAnalyzer(gw, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: domain.PointSkin, DataURI: "data:image/jpeg;base64,AA"},
	})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, 1, gw.calls)
}

func TestImageAnalyzeBareStateRejection(t *testing.T) {
	gw := &fakeGateway{script: []any{observation("MILD", false, 70)}}
	a := NewImageAnalyzer(gw, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: domain.PointNail, DataURI: "data:image/jpeg;base64,AA"},
	})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonSchemaValidation, res.ReasonCode)
	assert.Empty(t, res.Payload)
}

func TestImageAnalyzeUnknownPoint(t *testing.T) {
	a := NewImageAnalyzer(&fakeGateway{}, testRetry(), testLogger())

	res := a.Analyze(context.Background(), []domain.ImagePayload{
		{Point: "ELBOW", DataURI: "data:image/jpeg;base64,AA"},
	})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonSchemaValidation, res.ReasonCode)
}
