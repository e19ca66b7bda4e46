// Package interview implements the guided symptom interview as a pure
// transcript state machine. Everything needed to compute the next step
// travels in the request; there is no server-side interview state beyond
// the inactivity tracking the orchestrator keeps for abandonment.
package interview

// Question IDs, stable across releases since transcripts reference them.
const (
	QFatigue       = "fatigue"
	QDizziness     = "dizziness"
	QBreath        = "breath"
	QDiet          = "diet"
	QSex           = "sex"
	QMenstrualFlow = "menstrual_flow"
)

// Symptom flags derived from answers.
const (
	FlagFatigue       = "fatigue"
	FlagDizziness     = "dizziness"
	FlagShortOfBreath = "shortness_of_breath"
	FlagLowIronDiet   = "low_iron_diet"
	FlagHeavyFlow     = "heavy_menstrual_flow"
)

// Question is one entry of the fixed, ordered bank. AppliesTo lets a
// question skip itself based on earlier answers; Flag maps an affirmative
// answer onto a symptom flag.
type Question struct {
	ID     string
	Prompt string
	// Affirmative lists the answers that raise Flag. Matching is
	// case-insensitive.
	Affirmative []string
	Flag        string
	// AppliesTo, when non-nil, decides from the answers so far whether the
	// question is asked at all.
	AppliesTo func(answers map[string]string) bool
}

// Bank is the fixed, ordered question bank. The menstrual-flow follow-up is
// only asked when the sex answer indicates it is applicable.
var Bank = []Question{
	{
		ID:          QFatigue,
		Prompt:      "Do you feel unusually tired or fatigued, even after resting?",
		Affirmative: []string{"yes"},
		Flag:        FlagFatigue,
	},
	{
		ID:          QDizziness,
		Prompt:      "Do you experience dizziness or lightheadedness when standing up?",
		Affirmative: []string{"yes"},
		Flag:        FlagDizziness,
	},
	{
		ID:          QBreath,
		Prompt:      "Do you get short of breath during light activity, such as climbing stairs?",
		Affirmative: []string{"yes"},
		Flag:        FlagShortOfBreath,
	},
	{
		ID:          QDiet,
		Prompt:      "Is your diet low in iron-rich foods (meat, leafy greens, beans)?",
		Affirmative: []string{"yes"},
		Flag:        FlagLowIronDiet,
	},
	{
		ID:     QSex,
		Prompt: "What is your sex? (female/male/other)",
	},
	{
		ID:          QMenstrualFlow,
		Prompt:      "How would you describe your typical menstrual flow? (light/medium/heavy)",
		Affirmative: []string{"heavy"},
		Flag:        FlagHeavyFlow,
		AppliesTo: func(answers map[string]string) bool {
			return normalize(answers[QSex]) == "female"
		},
	},
}

// BankSize is the upper bound on interview turns.
func BankSize() int { return len(Bank) }
