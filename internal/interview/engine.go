package interview

import (
	"strings"

	"github.com/jcandel/hemoscan/internal/domain"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func answerMap(transcript []domain.QA) map[string]string {
	answers := make(map[string]string, len(transcript))
	for _, qa := range transcript {
		answers[qa.QuestionID] = qa.Answer
	}
	return answers
}

// Next computes the next interview step from the transcript alone. It is a
// pure function of (bank, transcript): the same transcript always yields
// the same question, an answered question is never re-asked, and the
// interview completes within BankSize turns.
func Next(transcript []domain.QA) domain.InterviewTurnResponse {
	answers := answerMap(transcript)

	remaining := 0
	var next *Question
	for i := range Bank {
		q := &Bank[i]
		if q.AppliesTo != nil && !q.AppliesTo(answers) {
			continue
		}
		if _, answered := answers[q.ID]; answered {
			continue
		}
		if next == nil {
			next = q
		}
		remaining++
	}

	if next == nil {
		return domain.InterviewTurnResponse{State: domain.InterviewComplete}
	}
	return domain.InterviewTurnResponse{
		State:      domain.InterviewActive,
		QuestionID: next.ID,
		Prompt:     next.Prompt,
		Remaining:  remaining,
	}
}

// Complete reports whether the transcript answers every applicable
// question.
func Complete(transcript []domain.QA) bool {
	return Next(transcript).State == domain.InterviewComplete
}

// Summarize derives the symptom flag set from a transcript, preserving the
// transcript order. It does not require completeness: a partial transcript
// summarizes the answers it has.
func Summarize(transcript []domain.QA) domain.InterviewSummary {
	answers := answerMap(transcript)

	var flags []string
	for i := range Bank {
		q := &Bank[i]
		if q.Flag == "" {
			continue
		}
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		for _, affirmative := range q.Affirmative {
			if normalize(answer) == affirmative {
				flags = append(flags, q.Flag)
				break
			}
		}
	}

	return domain.InterviewSummary{Transcript: transcript, SymptomFlags: flags}
}
