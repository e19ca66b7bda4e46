package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcandel/hemoscan/internal/domain"
)

func TestNextStartsAtFirstQuestion(t *testing.T) {
	resp := Next(nil)
	assert.Equal(t, domain.InterviewActive, resp.State)
	assert.Equal(t, QFatigue, resp.QuestionID)
	assert.Equal(t, len(Bank)-1, resp.Remaining) // menstrual follow-up not applicable yet
}

func TestNextNeverReasksAnsweredQuestion(t *testing.T) {
	transcript := []domain.QA{{QuestionID: QFatigue, Answer: "yes"}}
	resp := Next(transcript)
	assert.Equal(t, QDizziness, resp.QuestionID)

	// Answer out of order: the earliest unanswered question is still next.
	transcript = append(transcript, domain.QA{QuestionID: QBreath, Answer: "no"})
	resp = Next(transcript)
	assert.Equal(t, QDizziness, resp.QuestionID)
}

func TestInterviewBoundedByBankSize(t *testing.T) {
	var transcript []domain.QA
	answers := map[string]string{QSex: "female", QMenstrualFlow: "heavy"}

	turns := 0
	for {
		resp := Next(transcript)
		if resp.State == domain.InterviewComplete {
			break
		}
		turns++
		if turns > BankSize() {
			t.Fatalf("interview did not terminate within %d turns", BankSize())
		}
		answer, ok := answers[resp.QuestionID]
		if !ok {
			answer = "yes"
		}
		transcript = append(transcript, domain.QA{QuestionID: resp.QuestionID, Answer: answer})
	}
	assert.Equal(t, BankSize(), turns)
	assert.True(t, Complete(transcript))
}

func TestMenstrualFollowUpSkippedForMale(t *testing.T) {
	transcript := []domain.QA{
		{QuestionID: QFatigue, Answer: "no"},
		{QuestionID: QDizziness, Answer: "no"},
		{QuestionID: QBreath, Answer: "no"},
		{QuestionID: QDiet, Answer: "no"},
		{QuestionID: QSex, Answer: "male"},
	}
	resp := Next(transcript)
	assert.Equal(t, domain.InterviewComplete, resp.State)
	assert.True(t, Complete(transcript))
}

func TestMenstrualFollowUpAskedForFemale(t *testing.T) {
	transcript := []domain.QA{
		{QuestionID: QFatigue, Answer: "no"},
		{QuestionID: QDizziness, Answer: "no"},
		{QuestionID: QBreath, Answer: "no"},
		{QuestionID: QDiet, Answer: "no"},
		{QuestionID: QSex, Answer: "Female"},
	}
	resp := Next(transcript)
	assert.Equal(t, domain.InterviewActive, resp.State)
	assert.Equal(t, QMenstrualFlow, resp.QuestionID)
	assert.Equal(t, 1, resp.Remaining)
}

func TestNextIsDeterministic(t *testing.T) {
	transcript := []domain.QA{
		{QuestionID: QFatigue, Answer: "yes"},
		{QuestionID: QDizziness, Answer: "no"},
	}
	first := Next(transcript)
	second := Next(transcript)
	assert.Equal(t, first, second)
}

func TestSummarizeDerivesFlags(t *testing.T) {
	transcript := []domain.QA{
		{QuestionID: QFatigue, Answer: "Yes"},
		{QuestionID: QDizziness, Answer: "no"},
		{QuestionID: QBreath, Answer: "yes"},
		{QuestionID: QDiet, Answer: "no"},
		{QuestionID: QSex, Answer: "female"},
		{QuestionID: QMenstrualFlow, Answer: "heavy"},
	}
	summary := Summarize(transcript)
	assert.Equal(t, []string{FlagFatigue, FlagShortOfBreath, FlagHeavyFlow}, summary.SymptomFlags)
}

func TestSummarizePartialTranscript(t *testing.T) {
	transcript := []domain.QA{{QuestionID: QFatigue, Answer: "yes"}}
	summary := Summarize(transcript)
	assert.Equal(t, []string{FlagFatigue}, summary.SymptomFlags)
}

func TestSummarizeNoFlags(t *testing.T) {
	transcript := []domain.QA{
		{QuestionID: QFatigue, Answer: "no"},
		{QuestionID: QDizziness, Answer: "no"},
	}
	summary := Summarize(transcript)
	assert.Empty(t, summary.SymptomFlags)
}
