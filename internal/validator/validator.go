// Package validator reconciles the joined modality results: it detects
// cross-modality conflicts and aggregates an overall confidence. All
// functions here are pure; outcomes are recomputed, never patched.
package validator

import (
	"encoding/json"
	"fmt"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
)

// Policy holds the reconciliation thresholds and penalties. Defaults come
// from config; they are screening policy, not biological constants.
type Policy struct {
	// HgbLow is the hemoglobin level below which lab evidence points firmly
	// at anemia; HgbNormal the level at or above which it points firmly
	// away.
	HgbLow    float64
	HgbNormal float64

	// ConflictPenalty is subtracted per conflict flag, MissingPenalty per
	// absent or failed modality. Missing or contradictory evidence must
	// never raise confidence.
	ConflictPenalty float64
	MissingPenalty  float64

	// SymptomHeavyCount is the flag count treated as a strongly symptomatic
	// interview.
	SymptomHeavyCount int
}

// Signals is the decoded view of whichever modalities succeeded. The risk
// engine consumes it alongside the outcome so payloads are decoded once.
type Signals struct {
	Images    *domain.ImageFindings
	Cbc       *domain.CbcValues
	Interview *domain.InterviewSummary
}

// Validate reconciles the joined results into an immutable outcome.
// Results must contain exactly one entry per canonical modality, in any
// order; a violation is reported as an error since it indicates a broken
// orchestrator contract, not user input.
func Validate(results []domain.ModalityResult, p Policy) (*domain.ValidationOutcome, error) {
	sig, missing, present, err := decode(results)
	if err != nil {
		return nil, err
	}

	conflicts := detectConflicts(sig, p)

	confidence := 0.0
	if len(present) > 0 {
		sum := 0.0
		for _, r := range present {
			sum += r.Confidence
		}
		confidence = sum / float64(len(present))
	}
	confidence -= p.ConflictPenalty * float64(len(conflicts))
	confidence -= p.MissingPenalty * float64(len(missing))
	if confidence < 0 {
		confidence = 0
	}

	return &domain.ValidationOutcome{
		Results:    results,
		Conflicts:  conflicts,
		Missing:    missing,
		Confidence: confidence,
	}, nil
}

// DecodeSignals decodes the successful payloads out of a joined result set.
func DecodeSignals(results []domain.ModalityResult) (Signals, error) {
	sig, _, _, err := decode(results)
	return sig, err
}

func decode(results []domain.ModalityResult) (Signals, []domain.MissingModality, []domain.ModalityResult, error) {
	var (
		sig     Signals
		missing []domain.MissingModality
		present []domain.ModalityResult
		seen    = map[domain.Modality]bool{}
	)

	for _, r := range results {
		if seen[r.Modality] {
			return sig, nil, nil, fmt.Errorf("duplicate result for modality %s", r.Modality)
		}
		seen[r.Modality] = true

		if r.Source != domain.ResultSucceeded {
			if len(r.Payload) != 0 {
				return sig, nil, nil, fmt.Errorf("%s result carries a payload despite source %s", r.Modality, r.Source)
			}
			missing = append(missing, domain.MissingModality{
				Modality:   r.Modality,
				ReasonCode: r.ReasonCode,
				Reason:     r.Reason,
			})
			continue
		}

		present = append(present, r)
		switch r.Modality {
		case domain.ModalityImage:
			var f domain.ImageFindings
			if err := json.Unmarshal(r.Payload, &f); err != nil {
				return sig, nil, nil, fmt.Errorf("image payload: %w", err)
			}
			sig.Images = &f
		case domain.ModalityCbc:
			var v domain.CbcValues
			if err := json.Unmarshal(r.Payload, &v); err != nil {
				return sig, nil, nil, fmt.Errorf("cbc payload: %w", err)
			}
			sig.Cbc = &v
		case domain.ModalityInterview:
			var s domain.InterviewSummary
			if err := json.Unmarshal(r.Payload, &s); err != nil {
				return sig, nil, nil, fmt.Errorf("interview payload: %w", err)
			}
			sig.Interview = &s
		}
	}

	for _, m := range domain.AllModalities {
		if !seen[m] {
			return sig, nil, nil, fmt.Errorf("missing result for modality %s", m)
		}
	}
	return sig, missing, present, nil
}

// detectConflicts applies the pairwise domain reconciliation rules.
func detectConflicts(sig Signals, p Policy) []domain.ConflictFlag {
	var conflicts []domain.ConflictFlag

	if sig.Cbc != nil && sig.Images != nil && len(sig.Images.Descriptions) > 0 {
		allNone := allSeverity(sig.Images, domain.SeverityNone)
		allSevere := allSeverity(sig.Images, domain.SeveritySevere)
		lowHgb := sig.Cbc.Hemoglobin < p.HgbLow
		normalHgb := sig.Cbc.Hemoglobin >= p.HgbNormal

		// Symmetric: a clearly anemic lab against unremarkable photos, or
		// clearly severe photos against a normal lab.
		if (lowHgb && allNone) || (normalHgb && allSevere) {
			conflicts = append(conflicts, domain.ConflictLabVisualMismatch)
		}
	}

	if sig.Interview != nil && sig.Cbc != nil && sig.Images != nil {
		fatigued := hasFlag(sig.Interview, interview.FlagFatigue)
		severePallor := sig.Images.WorstSeverity == domain.SeveritySevere
		lowHgb := sig.Cbc.Hemoglobin < p.HgbLow
		normalHgb := sig.Cbc.Hemoglobin >= p.HgbNormal
		allNone := allSeverity(sig.Images, domain.SeverityNone)
		heavySymptoms := len(sig.Interview.SymptomFlags) >= p.SymptomHeavyCount

		// The interview contradicts both other modalities, in either
		// direction.
		if (!fatigued && severePallor && lowHgb) || (heavySymptoms && normalHgb && allNone) {
			conflicts = append(conflicts, domain.ConflictInterviewMismatch)
		}
	}

	return conflicts
}

func allSeverity(f *domain.ImageFindings, want domain.Severity) bool {
	for _, d := range f.Descriptions {
		if d.Severity != want {
			return false
		}
	}
	return len(f.Descriptions) > 0
}

func hasFlag(s *domain.InterviewSummary, flag string) bool {
	for _, f := range s.SymptomFlags {
		if f == flag {
			return true
		}
	}
	return false
}
