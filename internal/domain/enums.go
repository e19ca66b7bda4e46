// Package domain defines the core domain models for the assessment pipeline.
package domain

// SessionStatus represents the status of an analysis session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "PENDING"
	SessionStatusRunning  SessionStatus = "RUNNING"
	SessionStatusPartial  SessionStatus = "PARTIAL"
	SessionStatusComplete SessionStatus = "COMPLETE"
	SessionStatusFailed   SessionStatus = "FAILED"
)

// IsTerminal reports whether a session may no longer change.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusPartial, SessionStatusComplete, SessionStatusFailed:
		return true
	}
	return false
}

// Modality identifies one independent evidence channel.
type Modality string

const (
	ModalityImage     Modality = "IMAGE"
	ModalityCbc       Modality = "CBC"
	ModalityInterview Modality = "INTERVIEW"
)

// AllModalities lists the canonical modalities in evaluation order.
var AllModalities = []Modality{ModalityImage, ModalityCbc, ModalityInterview}

// ResultSource marks how a per-modality result terminated.
type ResultSource string

const (
	ResultSucceeded ResultSource = "SUCCEEDED"
	ResultFailed    ResultSource = "FAILED"
	ResultSkipped   ResultSource = "SKIPPED"
	ResultTimedOut  ResultSource = "TIMED_OUT"
)

// ImagePoint is the body site a point-of-care photo was taken of.
type ImagePoint string

const (
	PointSkin     ImagePoint = "SKIN"
	PointUnderEye ImagePoint = "UNDER_EYE"
	PointNail     ImagePoint = "NAIL"
)

// ValidImagePoint reports whether p is a known capture point.
func ValidImagePoint(p ImagePoint) bool {
	switch p {
	case PointSkin, PointUnderEye, PointNail:
		return true
	}
	return false
}

// Severity is the ordinal pallor severity estimate for one image.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityMild     Severity = "MILD"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
)

// Rank orders severities, NONE lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	}
	return 0
}

// ConflictFlag is a detected disagreement between two modalities' signals.
type ConflictFlag string

const (
	ConflictLabVisualMismatch ConflictFlag = "LAB_VISUAL_MISMATCH"
	ConflictInterviewMismatch ConflictFlag = "INTERVIEW_MISMATCH"
)

// RiskTier is the pipeline's final categorical output.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierModerate RiskTier = "MODERATE"
	TierHigh     RiskTier = "HIGH"
)

// Rank orders tiers, LOW lowest. Used for monotone max aggregation.
func (t RiskTier) Rank() int {
	switch t {
	case TierModerate:
		return 1
	case TierHigh:
		return 2
	}
	return 0
}

// AssessmentStatus distinguishes a tiered assessment from one produced with
// no usable evidence at all.
type AssessmentStatus string

const (
	AssessmentTiered        AssessmentStatus = "TIERED"
	AssessmentIndeterminate AssessmentStatus = "INDETERMINATE"
)

// InterviewState is the lifecycle state of a guided interview.
type InterviewState string

const (
	InterviewActive    InterviewState = "ACTIVE"
	InterviewComplete  InterviewState = "COMPLETE"
	InterviewAbandoned InterviewState = "ABANDONED"
)

// ReasonCode classifies why a result or session terminated abnormally.
// PARTIAL sessions surface these per modality so user messaging can
// distinguish a timeout from an implausible lab value from a user skip.
type ReasonCode string

const (
	ReasonInferenceTimeout     ReasonCode = "INFERENCE_TIMEOUT"
	ReasonInferenceRateLimited ReasonCode = "INFERENCE_RATE_LIMITED"
	ReasonSchemaValidation     ReasonCode = "SCHEMA_VALIDATION"
	ReasonImplausibleValue     ReasonCode = "IMPLAUSIBLE_VALUE"
	ReasonParseFailure         ReasonCode = "PARSE_FAILURE"
	ReasonInterviewAbandoned   ReasonCode = "INTERVIEW_ABANDONED"
	ReasonInterviewIncomplete  ReasonCode = "INTERVIEW_INCOMPLETE"
	ReasonUserSkipped          ReasonCode = "USER_SKIPPED"
	ReasonZeroModalitySuccess  ReasonCode = "ZERO_MODALITY_SUCCESS"
	ReasonContractViolation    ReasonCode = "CONTRACT_VIOLATION"
	ReasonSessionDeadline      ReasonCode = "SESSION_DEADLINE"
	ReasonUpstreamFailure      ReasonCode = "UPSTREAM_FAILURE"
)
