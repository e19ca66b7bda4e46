// Package risk maps a validation outcome onto a categorical risk tier with
// an ordered explanation. The rule table is deterministic and monotone:
// each signal maps to a tier on its own and the final tier is the maximum,
// so worsening any single signal can never lower the result and no
// agreement-seeking ever suppresses a severe individual signal.
package risk

import (
	"fmt"
	"sort"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/validator"
)

// Policy holds the tier cutpoints. Config supplies them; the defaults are
// illustrative screening policy.
type Policy struct {
	// Hemoglobin below HighBelow maps HIGH, below ModerateBelow maps
	// MODERATE, at or above ModerateBelow maps LOW.
	HgbModerateBelow float64
	HgbHighBelow     float64
	// SymptomHighCount or more flags map HIGH; one or more map MODERATE.
	SymptomHighCount int
}

// Engine computes risk assessments.
type Engine struct {
	policy Policy
}

// NewEngine creates a risk engine.
func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Assess maps the outcome to a tier. Zero successful modalities yield an
// INDETERMINATE assessment with no tier; callers must handle that as a
// fourth legal value.
func (e *Engine) Assess(outcome *domain.ValidationOutcome) (*domain.RiskAssessment, error) {
	sig, err := validator.DecodeSignals(outcome.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signals: %w", err)
	}

	if sig.Cbc == nil && sig.Images == nil && sig.Interview == nil {
		return &domain.RiskAssessment{
			Status: domain.AssessmentIndeterminate,
			Explanation: []domain.Factor{{
				Signal: "evidence",
				Detail: "no modality produced a usable signal",
			}},
			Confidence: 0,
		}, nil
	}

	var factors []domain.Factor

	if sig.Cbc != nil {
		tier := e.hgbTier(sig.Cbc.Hemoglobin)
		factors = append(factors, domain.Factor{
			Signal: "hemoglobin",
			Detail: fmt.Sprintf("hemoglobin %.1f g/dL", sig.Cbc.Hemoglobin),
			Tier:   tier,
		})
	}
	if sig.Images != nil {
		tier := severityTier(sig.Images.WorstSeverity)
		factors = append(factors, domain.Factor{
			Signal: "image_severity",
			Detail: fmt.Sprintf("worst pallor severity %s", sig.Images.WorstSeverity),
			Tier:   tier,
		})
	}
	if sig.Interview != nil {
		count := len(sig.Interview.SymptomFlags)
		factors = append(factors, domain.Factor{
			Signal: "symptoms",
			Detail: fmt.Sprintf("%d symptom flag(s) reported", count),
			Tier:   e.symptomTier(count),
		})
	}

	tier := domain.TierLow
	for _, f := range factors {
		if f.Tier.Rank() > tier.Rank() {
			tier = f.Tier
		}
	}

	// Dominant factor first, then the rest in descending contribution;
	// stable so equal contributors keep modality order.
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Tier.Rank() > factors[j].Tier.Rank()
	})

	if len(outcome.Conflicts) > 0 {
		factors = append(factors, domain.Factor{
			Signal: "conflict",
			Detail: fmt.Sprintf("%d cross-modality conflict(s) detected", len(outcome.Conflicts)),
			Tier:   tier,
		})
	}
	for _, m := range outcome.Missing {
		factors = append(factors, domain.Factor{
			Signal: "incomplete_data",
			Detail: fmt.Sprintf("%s missing: %s", m.Modality, missingDetail(m)),
			Tier:   tier,
		})
	}

	return &domain.RiskAssessment{
		Status:      domain.AssessmentTiered,
		Tier:        tier,
		Explanation: factors,
		Conflicts:   outcome.Conflicts,
		Confidence:  outcome.Confidence,
	}, nil
}

func (e *Engine) hgbTier(hgb float64) domain.RiskTier {
	switch {
	case hgb < e.policy.HgbHighBelow:
		return domain.TierHigh
	case hgb < e.policy.HgbModerateBelow:
		return domain.TierModerate
	default:
		return domain.TierLow
	}
}

func severityTier(s domain.Severity) domain.RiskTier {
	switch s {
	case domain.SeveritySevere:
		return domain.TierHigh
	case domain.SeverityModerate, domain.SeverityMild:
		return domain.TierModerate
	default:
		return domain.TierLow
	}
}

func (e *Engine) symptomTier(count int) domain.RiskTier {
	switch {
	case count >= e.policy.SymptomHighCount:
		return domain.TierHigh
	case count >= 1:
		return domain.TierModerate
	default:
		return domain.TierLow
	}
}

func missingDetail(m domain.MissingModality) string {
	if m.Reason != "" {
		return fmt.Sprintf("%s (%s)", m.Reason, m.ReasonCode)
	}
	return string(m.ReasonCode)
}
