package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/inference"
)

func testBounds() SanityBounds {
	return SanityBounds{HgbMin: 3, HgbMax: 25, RbcMin: 1, RbcMax: 10}
}

func extraction(hgbValue, hgbUnit, rbcValue, rbcUnit string) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"hemoglobin":  map[string]string{"value": hgbValue, "unit": hgbUnit},
		"rbc":         map[string]string{"value": rbcValue, "unit": rbcUnit},
		"reported_at": "2026-08-14T09:00:00Z",
	})
	return b
}

func decodeCbc(t *testing.T, res domain.ModalityResult) domain.CbcValues {
	t.Helper()
	require.Equal(t, domain.ResultSucceeded, res.Source)
	var v domain.CbcValues
	require.NoError(t, json.Unmarshal(res.Payload, &v))
	return v
}

func TestCbcAnalyzeNoReportSkipped(t *testing.T) {
	a := NewCbcAnalyzer(&fakeGateway{}, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), nil)
	assert.Equal(t, domain.ResultSkipped, res.Source)
	assert.Equal(t, domain.ReasonUserSkipped, res.ReasonCode)

	res = a.Analyze(context.Background(), &domain.CbcPayload{})
	assert.Equal(t, domain.ResultSkipped, res.Source)
}

func TestCbcAnalyzeGramsPerDeciliter(t *testing.T) {
	gw := &fakeGateway{script: []any{extraction("13.7", "g/dL", "4.8", "10^6/uL")}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "Hgb 13.7 g/dL, RBC 4.8"})
	v := decodeCbc(t, res)
	assert.InDelta(t, 13.7, v.Hemoglobin, 1e-9)
	assert.InDelta(t, 4.8, v.Rbc, 1e-9)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestCbcAnalyzeNormalizesGramsPerLiter(t *testing.T) {
	gw := &fakeGateway{script: []any{extraction("137", "g/L", "4.8", "10^12/L")}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "Hgb 137 g/L"})
	v := decodeCbc(t, res)
	assert.InDelta(t, 13.7, v.Hemoglobin, 1e-9)
}

func TestCbcAnalyzeStripsTrailingUnitFromValue(t *testing.T) {
	gw := &fakeGateway{script: []any{extraction("13.7 g/dL", "", "4.8", "")}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	v := decodeCbc(t, res)
	assert.InDelta(t, 13.7, v.Hemoglobin, 1e-9)
}

func TestCbcAnalyzeCommaDecimal(t *testing.T) {
	gw := &fakeGateway{script: []any{extraction("13,7", "g/dL", "4,8", "")}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	v := decodeCbc(t, res)
	assert.InDelta(t, 13.7, v.Hemoglobin, 1e-9)
}

func TestCbcAnalyzeImplausibleValueDistinctFromParseFailure(t *testing.T) {
	a := NewCbcAnalyzer(&fakeGateway{script: []any{extraction("57", "g/dL", "4.8", "")}}, testRetry(), testBounds(), testLogger())
	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonImplausibleValue, res.ReasonCode)

	a = NewCbcAnalyzer(&fakeGateway{script: []any{extraction("not a number", "", "4.8", "")}}, testRetry(), testBounds(), testLogger())
	res = a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonParseFailure, res.ReasonCode)
}

func TestCbcAnalyzeRejectsNonPositive(t *testing.T) {
	gw := &fakeGateway{script: []any{extraction("-2", "g/dL", "4.8", "")}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonParseFailure, res.ReasonCode)
}

func TestCbcAnalyzeGatewayTimeout(t *testing.T) {
	timeout := &inference.Error{Kind: inference.KindTimeout, Message: "deadline exceeded"}
	gw := &fakeGateway{script: []any{timeout, timeout, timeout}}
	a := NewCbcAnalyzer(gw, testRetry(), testBounds(), testLogger())

	res := a.Analyze(context.Background(), &domain.CbcPayload{Text: "report"})
	assert.Equal(t, domain.ResultTimedOut, res.Source)
	assert.Equal(t, domain.ReasonInferenceTimeout, res.ReasonCode)
}
