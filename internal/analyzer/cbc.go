package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/inference"
)

// cbcField is one extracted lab value, kept as a string until local
// normalization so OCR quirks fail loudly here rather than downstream.
type cbcField struct {
	Value string `json:"value" validate:"required"`
	Unit  string `json:"unit"`
}

// cbcExtraction is the fixed response schema for a CBC report extraction.
type cbcExtraction struct {
	Hemoglobin cbcField `json:"hemoglobin" validate:"required"`
	Rbc        cbcField `json:"rbc" validate:"required"`
	ReportedAt string   `json:"reported_at"`
}

// SanityBounds are the plausibility limits for normalized CBC values.
// A value outside them is an implausible-value failure, which user
// messaging must keep distinct from a parse failure.
type SanityBounds struct {
	HgbMin, HgbMax float64
	RbcMin, RbcMax float64
}

// CbcAnalyzer extracts hemoglobin and RBC from a lab report.
type CbcAnalyzer struct {
	gw     inference.Gateway
	retry  RetryPolicy
	bounds SanityBounds
	log    *logrus.Entry
}

// NewCbcAnalyzer creates a CBC analyzer.
func NewCbcAnalyzer(gw inference.Gateway, retry RetryPolicy, bounds SanityBounds, log *logrus.Logger) *CbcAnalyzer {
	return &CbcAnalyzer{gw: gw, retry: retry, bounds: bounds, log: log.WithField("analyzer", "cbc")}
}

// Analyze extracts the report, normalizes units locally and applies the
// sanity bounds.
func (a *CbcAnalyzer) Analyze(ctx context.Context, report *domain.CbcPayload) domain.ModalityResult {
	if report == nil || (report.DataURI == "" && report.Text == "") {
		return domain.FailedResult(domain.ModalityCbc, domain.ResultSkipped, domain.ReasonUserSkipped, "no lab report submitted")
	}

	req := &inference.Request{
		Task:        inference.TaskCbcExtraction,
		Instruction: "Extract hemoglobin and red blood cell count from the CBC report.",
	}
	if report.DataURI != "" {
		req.Media = []inference.MediaPart{{DataURI: report.DataURI}}
	} else {
		req.Instruction += "\n\nTranscribed report:\n" + report.Text
	}

	var ext cbcExtraction
	err := withRetry(ctx, a.retry, func(ctx context.Context) error {
		return a.gw.Extract(ctx, req, &ext)
	})
	if err != nil {
		a.log.WithError(err).Warn("cbc extraction failed")
		return failureFromGateway(domain.ModalityCbc, err)
	}

	values, code, reason := a.normalize(ext)
	if code != "" {
		return domain.FailedResult(domain.ModalityCbc, domain.ResultFailed, code, reason)
	}

	payload, merr := json.Marshal(values)
	if merr != nil {
		return domain.FailedResult(domain.ModalityCbc, domain.ResultFailed, domain.ReasonContractViolation, "failed to encode values")
	}
	// Lab values are the strongest single signal; a clean extraction gets
	// full modality confidence.
	return domain.SucceededResult(domain.ModalityCbc, 1.0, payload)
}

// normalize converts extracted strings to g/dL and 10^6/µL and applies the
// sanity bounds. An empty reason code means success.
func (a *CbcAnalyzer) normalize(ext cbcExtraction) (*domain.CbcValues, domain.ReasonCode, string) {
	hgb, err := parseNumber(ext.Hemoglobin.Value)
	if err != nil {
		return nil, domain.ReasonParseFailure, fmt.Sprintf("hemoglobin %q: %v", ext.Hemoglobin.Value, err)
	}
	if isGramsPerLiter(ext.Hemoglobin.Unit) {
		hgb /= 10
	}

	rbc, err := parseNumber(ext.Rbc.Value)
	if err != nil {
		return nil, domain.ReasonParseFailure, fmt.Sprintf("rbc %q: %v", ext.Rbc.Value, err)
	}
	// 10^12/L is numerically identical to 10^6/µL; nothing to convert.

	if !isFinitePositive(hgb) || !isFinitePositive(rbc) {
		return nil, domain.ReasonParseFailure, "hemoglobin and rbc must be positive finite numbers"
	}
	if hgb < a.bounds.HgbMin || hgb > a.bounds.HgbMax {
		return nil, domain.ReasonImplausibleValue, fmt.Sprintf("hemoglobin %.1f g/dL outside plausible range [%.1f, %.1f]", hgb, a.bounds.HgbMin, a.bounds.HgbMax)
	}
	if rbc < a.bounds.RbcMin || rbc > a.bounds.RbcMax {
		return nil, domain.ReasonImplausibleValue, fmt.Sprintf("rbc %.1f outside plausible range [%.1f, %.1f]", rbc, a.bounds.RbcMin, a.bounds.RbcMax)
	}

	reportedAt := time.Now().UTC()
	if ext.ReportedAt != "" {
		if ts, perr := time.Parse(time.RFC3339, ext.ReportedAt); perr == nil {
			reportedAt = ts
		}
	}
	return &domain.CbcValues{Hemoglobin: hgb, Rbc: rbc, ReportedAt: reportedAt}, "", ""
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	// OCR output sometimes drags the unit along with the value.
	if i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != ','
	}); i > 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not numeric")
	}
	return v, nil
}

func isGramsPerLiter(unit string) bool {
	u := strings.ToLower(strings.ReplaceAll(unit, " ", ""))
	return u == "g/l" || u == "gram/l" || u == "grams/l"
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
