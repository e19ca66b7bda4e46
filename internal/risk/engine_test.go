package risk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
	"github.com/jcandel/hemoscan/internal/validator"
)

func testEngine() *Engine {
	return NewEngine(Policy{
		HgbModerateBelow: 12.0,
		HgbHighBelow:     10.0,
		SymptomHighCount: 3,
	})
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func buildOutcome(t *testing.T, results []domain.ModalityResult) *domain.ValidationOutcome {
	t.Helper()
	outcome, err := validator.Validate(results, validator.Policy{
		HgbLow:            10.0,
		HgbNormal:         13.0,
		ConflictPenalty:   0.15,
		MissingPenalty:    0.10,
		SymptomHeavyCount: 3,
	})
	require.NoError(t, err)
	return outcome
}

func imageResult(t *testing.T, worst domain.Severity) domain.ModalityResult {
	t.Helper()
	findings := domain.ImageFindings{
		Descriptions:  []domain.ImageDescription{{Point: domain.PointUnderEye, Severity: worst}},
		WorstSeverity: worst,
	}
	return domain.SucceededResult(domain.ModalityImage, 0.9, mustMarshal(t, findings))
}

func cbcResult(t *testing.T, hgb float64) domain.ModalityResult {
	t.Helper()
	return domain.SucceededResult(domain.ModalityCbc, 1.0, mustMarshal(t, domain.CbcValues{Hemoglobin: hgb, Rbc: 4.5}))
}

func interviewResult(t *testing.T, flags ...string) domain.ModalityResult {
	t.Helper()
	return domain.SucceededResult(domain.ModalityInterview, 1.0, mustMarshal(t, domain.InterviewSummary{SymptomFlags: flags}))
}

func skipped(m domain.Modality) domain.ModalityResult {
	return domain.FailedResult(m, domain.ResultSkipped, domain.ReasonUserSkipped, "user skipped")
}

func TestAssessHealthySignalsMapLow(t *testing.T) {
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeverityNone),
		cbcResult(t, 14.0),
		interviewResult(t),
	})

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentTiered, a.Status)
	assert.Equal(t, domain.TierLow, a.Tier)
	assert.NotEmpty(t, a.Explanation)
}

func TestAssessSevereSignalsMapHigh(t *testing.T) {
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeveritySevere),
		cbcResult(t, 9.0),
		interviewResult(t, interview.FlagFatigue),
	})

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.TierHigh, a.Tier)

	// Dominant factor leads the explanation.
	require.NotEmpty(t, a.Explanation)
	assert.Equal(t, domain.TierHigh, a.Explanation[0].Tier)
}

func TestAssessPartialEvidenceMapsModerate(t *testing.T) {
	// CBC skipped, mild pallor, neutral interview.
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeverityMild),
		skipped(domain.ModalityCbc),
		interviewResult(t),
	})

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.TierModerate, a.Tier)

	// The skipped modality shows up in the explanation.
	signals := make([]string, 0, len(a.Explanation))
	for _, f := range a.Explanation {
		signals = append(signals, f.Signal)
	}
	assert.Contains(t, signals, "incomplete_data")
}

func TestAssessIsDeterministic(t *testing.T) {
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeverityModerate),
		cbcResult(t, 11.0),
		interviewResult(t, interview.FlagFatigue),
	})

	eng := testEngine()
	first, err := eng.Assess(outcome)
	require.NoError(t, err)
	second, err := eng.Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssessMonotoneInHemoglobin(t *testing.T) {
	eng := testEngine()
	prev := -1
	for _, hgb := range []float64{14.0, 11.5, 9.0} {
		outcome := buildOutcome(t, []domain.ModalityResult{
			imageResult(t, domain.SeverityNone),
			cbcResult(t, hgb),
			interviewResult(t),
		})
		a, err := eng.Assess(outcome)
		require.NoError(t, err)
		if a.Tier.Rank() < prev {
			t.Fatalf("tier decreased as hemoglobin worsened: hgb=%.1f tier=%s", hgb, a.Tier)
		}
		prev = a.Tier.Rank()
	}
}

func TestAssessWorstSignalDominates(t *testing.T) {
	// Two benign signals never pull a severe one down.
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeverityNone),
		cbcResult(t, 9.5),
		interviewResult(t),
	})

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.TierHigh, a.Tier)
}

func TestAssessZeroSuccessesIndeterminate(t *testing.T) {
	outcome := buildOutcome(t, []domain.ModalityResult{
		skipped(domain.ModalityImage),
		skipped(domain.ModalityCbc),
		skipped(domain.ModalityInterview),
	})

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentIndeterminate, a.Status)
	assert.Empty(t, a.Tier)
	assert.Equal(t, 0.0, a.Confidence)
}

func TestAssessConflictAppearsInExplanation(t *testing.T) {
	// Anemic lab against unremarkable photos.
	outcome := buildOutcome(t, []domain.ModalityResult{
		imageResult(t, domain.SeverityNone),
		cbcResult(t, 8.0),
		interviewResult(t, interview.FlagFatigue),
	})
	require.NotEmpty(t, outcome.Conflicts)

	a, err := testEngine().Assess(outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.TierHigh, a.Tier)
	assert.Equal(t, outcome.Conflicts, a.Conflicts)

	signals := make([]string, 0, len(a.Explanation))
	for _, f := range a.Explanation {
		signals = append(signals, f.Signal)
	}
	assert.Contains(t, signals, "conflict")
}
