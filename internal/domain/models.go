package domain

import (
	"encoding/json"
	"time"
)

// AnalysisSession is the per-request unit of work. It is owned exclusively
// by the session orchestrator and is never mutated once terminal.
type AnalysisSession struct {
	SessionID  string        `json:"session_id"`
	Status     SessionStatus `json:"status"`
	Requested  []Modality    `json:"requested_modalities"`
	ReasonCode ReasonCode    `json:"reason_code,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// ModalityResult is the terminal outcome of one modality analysis.
// A SUCCEEDED result always carries a schema-valid payload; any other
// source never carries one. Construct through SucceededResult and
// FailedResult so the invariant holds everywhere.
type ModalityResult struct {
	Modality   Modality        `json:"modality"`
	Source     ResultSource    `json:"source"`
	Confidence float64         `json:"confidence"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReasonCode ReasonCode      `json:"reason_code,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// SucceededResult builds a successful result around an already-validated
// payload. Confidence is clamped into [0,1].
func SucceededResult(m Modality, confidence float64, payload json.RawMessage) ModalityResult {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return ModalityResult{
		Modality:   m,
		Source:     ResultSucceeded,
		Confidence: confidence,
		Payload:    payload,
	}
}

// FailedResult builds a non-success result. The payload is deliberately
// absent regardless of what the analyzer had in hand.
func FailedResult(m Modality, source ResultSource, code ReasonCode, reason string) ModalityResult {
	return ModalityResult{
		Modality:   m,
		Source:     source,
		ReasonCode: code,
		Reason:     reason,
	}
}

// ImageDescription is the structured output of the image extractor for a
// single capture point.
type ImageDescription struct {
	Point     ImagePoint `json:"point"`
	Pallor    string     `json:"pallor"`
	Severity  Severity   `json:"severity"`
	Rationale string     `json:"rationale,omitempty"`
}

// ImageFindings is the image-modality payload: one description per
// submitted point plus the worst severity across them.
type ImageFindings struct {
	Descriptions  []ImageDescription `json:"descriptions"`
	WorstSeverity Severity           `json:"worst_severity"`
}

// CbcValues is the CBC-modality payload after unit normalization.
type CbcValues struct {
	Hemoglobin float64   `json:"hemoglobin_g_dl"`
	Rbc        float64   `json:"rbc_million_ul"`
	ReportedAt time.Time `json:"reported_at"`
}

// QA is one answered interview question.
type QA struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// InterviewSummary is the interview-modality payload: the ordered
// transcript plus the derived symptom flag set.
type InterviewSummary struct {
	Transcript   []QA     `json:"transcript"`
	SymptomFlags []string `json:"symptom_flags"`
}

// MissingModality records an absent or unusable modality and why, for
// PARTIAL labeling and the confidence penalty.
type MissingModality struct {
	Modality   Modality   `json:"modality"`
	ReasonCode ReasonCode `json:"reason_code"`
	Reason     string     `json:"reason,omitempty"`
}

// ValidationOutcome is the validator's immutable verdict over the joined
// modality results. Recompute, never patch.
type ValidationOutcome struct {
	Results    []ModalityResult  `json:"results"`
	Conflicts  []ConflictFlag    `json:"conflicts"`
	Missing    []MissingModality `json:"missing"`
	Confidence float64           `json:"confidence"`
}

// Factor is one contributing factor in a risk explanation, dominant first.
type Factor struct {
	Signal string   `json:"signal"`
	Detail string   `json:"detail"`
	Tier   RiskTier `json:"tier"`
}

// RiskAssessment is the terminal artifact of the pipeline.
type RiskAssessment struct {
	Status      AssessmentStatus `json:"status"`
	Tier        RiskTier         `json:"tier,omitempty"`
	Explanation []Factor         `json:"explanation"`
	Conflicts   []ConflictFlag   `json:"conflicts,omitempty"`
	Confidence  float64          `json:"confidence"`
}

// RecommendationItem is one prioritized action, tagged with the tier and
// the factor that triggered it.
type RecommendationItem struct {
	Action  string   `json:"action"`
	Tier    RiskTier `json:"tier"`
	Trigger string   `json:"trigger"`
}

// Clinic is one entry from the clinic lookup capability.
type Clinic struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Specialty string  `json:"specialty,omitempty"`
	Distance  float64 `json:"distance_km,omitempty"`
}

// Recommendations is the ordered action list, optionally with nearby
// clinics when geolocation context was available and permitted.
type Recommendations struct {
	Items   []RecommendationItem `json:"items"`
	Clinics []Clinic             `json:"clinics,omitempty"`
}
