package recommend

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
	"github.com/jcandel/hemoscan/internal/validator"
	"github.com/jcandel/hemoscan/policy"
)

// Generator maps an assessment plus available context onto an ordered
// action list. The mapping itself is pure; only the optional clinic lookup
// reaches outside, and its failure never fails the response.
type Generator struct {
	clinics ClinicLookup
	policy  *policy.Engine
	log     *logrus.Entry
}

// NewGenerator creates a recommendation generator.
func NewGenerator(clinics ClinicLookup, pol *policy.Engine, log *logrus.Logger) *Generator {
	return &Generator{clinics: clinics, policy: pol, log: log.WithField("component", "recommend")}
}

// Generate builds the prioritized recommendation list.
func (g *Generator) Generate(ctx context.Context, assessment *domain.RiskAssessment, outcome *domain.ValidationOutcome, geo *domain.GeoContext) *domain.Recommendations {
	if assessment.Status == domain.AssessmentIndeterminate {
		return &domain.Recommendations{Items: []domain.RecommendationItem{{
			Action:  "No assessment could be made from the submitted data; please resubmit clearer images, a readable lab report, or complete the interview.",
			Trigger: "indeterminate",
		}}}
	}

	rec := &domain.Recommendations{Items: g.items(assessment, outcome)}

	if geo != nil && g.clinics != nil {
		allowed, err := g.policy.Allow(ctx, policy.CapabilityInput{
			Capability:  "clinic_lookup",
			Tier:        string(assessment.Tier),
			HasLocation: true,
		})
		if err != nil {
			g.log.WithError(err).Warn("capability policy evaluation failed, skipping clinic lookup")
		} else if allowed {
			clinics, err := g.clinics.Find(ctx, *geo)
			if err != nil {
				// Degrade gracefully: the list simply omits located items.
				g.log.WithError(err).Warn("clinic lookup failed")
			} else {
				rec.Clinics = clinics
			}
		}
	}

	return rec
}

// items is the fixed rule list, ordered most urgent first. Every item is
// tagged with the tier and the factor that triggered it.
func (g *Generator) items(assessment *domain.RiskAssessment, outcome *domain.ValidationOutcome) []domain.RecommendationItem {
	tier := assessment.Tier
	var items []domain.RecommendationItem

	add := func(action, trigger string) {
		items = append(items, domain.RecommendationItem{Action: action, Tier: tier, Trigger: trigger})
	}

	switch tier {
	case domain.TierHigh:
		add("Consult a clinician promptly; multiple signals indicate elevated anemia risk.", "tier")
	case domain.TierModerate:
		add("Schedule a check-up and repeat a CBC test within 2-4 weeks.", "tier")
	default:
		add("No immediate action needed; maintain an iron-aware diet.", "tier")
	}

	if len(outcome.Conflicts) > 0 {
		add("Results disagree across evidence channels; a repeat lab test is advised to resolve the discrepancy.", "conflict")
	}

	sig, err := validator.DecodeSignals(outcome.Results)
	if err != nil {
		// Signals were already decoded upstream; reaching this means the
		// outcome was tampered with. Return what we have.
		g.log.WithError(err).Error("failed to decode signals for recommendations")
		return items
	}

	if sig.Interview != nil {
		for _, flag := range sig.Interview.SymptomFlags {
			switch flag {
			case interview.FlagLowIronDiet:
				add("Increase iron-rich foods (lean meat, liver, leafy greens, beans) and pair them with vitamin C sources.", "diet")
			case interview.FlagHeavyFlow:
				add("Track your menstrual cycle and discuss heavy flow with a clinician; ensure adequate iron intake during your period.", "menstrual_history")
			case interview.FlagFatigue, interview.FlagDizziness, interview.FlagShortOfBreath:
				// Covered by the tier-level advice.
			}
		}
	}

	for _, m := range outcome.Missing {
		switch m.Modality {
		case domain.ModalityCbc:
			switch m.ReasonCode {
			case domain.ReasonImplausibleValue:
				add("The lab report contained implausible values; re-photograph it in good light or enter the values manually.", "cbc_implausible")
			case domain.ReasonUserSkipped:
				add("Add a CBC lab report for a substantially more reliable assessment.", "cbc_missing")
			default:
				add("The lab report could not be analyzed; try resubmitting it.", "cbc_failed")
			}
		case domain.ModalityImage:
			add("Add bare-skin photos (palm, under-eye, fingernail) to strengthen the visual signal.", "image_missing")
		case domain.ModalityInterview:
			add("Complete the symptom interview to improve assessment confidence.", "interview_missing")
		}
	}

	return items
}
