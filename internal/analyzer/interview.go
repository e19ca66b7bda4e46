package analyzer

import (
	"context"
	"encoding/json"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
)

// InterviewAnalyzer turns a submitted transcript into the interview
// modality result. Unlike its two peers it never touches the gateway: the
// interview engine is deterministic, so the only failure modes are an
// absent or incomplete transcript.
type InterviewAnalyzer struct{}

// NewInterviewAnalyzer creates an interview analyzer.
func NewInterviewAnalyzer() *InterviewAnalyzer {
	return &InterviewAnalyzer{}
}

// Analyze summarizes a completed transcript. The context is accepted for
// symmetry with the other analyzers; there is nothing to cancel.
func (a *InterviewAnalyzer) Analyze(_ context.Context, transcript []domain.QA) domain.ModalityResult {
	if len(transcript) == 0 {
		return domain.FailedResult(domain.ModalityInterview, domain.ResultSkipped, domain.ReasonUserSkipped, "no interview transcript submitted")
	}
	// ABANDONED is reserved for the inactivity sweep; a one-shot transcript
	// that stops short is just incomplete.
	if !interview.Complete(transcript) {
		return domain.FailedResult(domain.ModalityInterview, domain.ResultFailed, domain.ReasonInterviewIncomplete,
			"interview transcript is incomplete")
	}

	summary := interview.Summarize(transcript)
	payload, err := json.Marshal(summary)
	if err != nil {
		return domain.FailedResult(domain.ModalityInterview, domain.ResultFailed, domain.ReasonContractViolation, "failed to encode summary")
	}
	// A completed deterministic interview is fully trusted as a record of
	// what the user reported.
	return domain.SucceededResult(domain.ModalityInterview, 1.0, payload)
}
