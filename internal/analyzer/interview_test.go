package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
)

func fullTranscript() []domain.QA {
	return []domain.QA{
		{QuestionID: interview.QFatigue, Answer: "yes"},
		{QuestionID: interview.QDizziness, Answer: "no"},
		{QuestionID: interview.QBreath, Answer: "no"},
		{QuestionID: interview.QDiet, Answer: "no"},
		{QuestionID: interview.QSex, Answer: "male"},
	}
}

func TestInterviewAnalyzeEmptyTranscriptSkipped(t *testing.T) {
	a := NewInterviewAnalyzer()

	res := a.Analyze(context.Background(), nil)
	assert.Equal(t, domain.ResultSkipped, res.Source)
	assert.Equal(t, domain.ReasonUserSkipped, res.ReasonCode)
}

func TestInterviewAnalyzeIncompleteTranscriptFails(t *testing.T) {
	a := NewInterviewAnalyzer()

	res := a.Analyze(context.Background(), []domain.QA{
		{QuestionID: interview.QFatigue, Answer: "yes"},
	})
	assert.Equal(t, domain.ResultFailed, res.Source)
	assert.Equal(t, domain.ReasonInterviewIncomplete, res.ReasonCode)
	assert.Empty(t, res.Payload)
}

func TestInterviewAnalyzeCompleteTranscript(t *testing.T) {
	a := NewInterviewAnalyzer()

	res := a.Analyze(context.Background(), fullTranscript())
	require.Equal(t, domain.ResultSucceeded, res.Source)
	assert.Equal(t, 1.0, res.Confidence)

	var summary domain.InterviewSummary
	require.NoError(t, json.Unmarshal(res.Payload, &summary))
	assert.Equal(t, []string{interview.FlagFatigue}, summary.SymptomFlags)
}
