package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/inference"
)

// imageObservation is the fixed response schema for one image extraction.
type imageObservation struct {
	Pallor     string  `json:"pallor" validate:"required"`
	Severity   string  `json:"severity" validate:"required,oneof=NONE MILD MODERATE SEVERE"`
	Rationale  string  `json:"rationale" validate:"max=280"`
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence" validate:"min=0,max=100"`
}

// ImageAnalyzer extracts pallor descriptions from point-of-care photos.
type ImageAnalyzer struct {
	gw    inference.Gateway
	retry RetryPolicy
	log   *logrus.Entry
}

// NewImageAnalyzer creates an image analyzer.
func NewImageAnalyzer(gw inference.Gateway, retry RetryPolicy, log *logrus.Logger) *ImageAnalyzer {
	return &ImageAnalyzer{gw: gw, retry: retry, log: log.WithField("analyzer", "image")}
}

// Analyze runs every submitted image through the gateway and folds the
// observations into one modality result. The first terminal gateway error
// fails the whole modality with the mapped source.
func (a *ImageAnalyzer) Analyze(ctx context.Context, images []domain.ImagePayload) domain.ModalityResult {
	if len(images) == 0 {
		return domain.FailedResult(domain.ModalityImage, domain.ResultSkipped, domain.ReasonUserSkipped, "no images submitted")
	}

	var (
		descriptions []domain.ImageDescription
		confSum      float64
	)
	for _, img := range images {
		if !domain.ValidImagePoint(img.Point) {
			return domain.FailedResult(domain.ModalityImage, domain.ResultFailed, domain.ReasonSchemaValidation,
				fmt.Sprintf("unknown capture point %q", img.Point))
		}

		var obs imageObservation
		err := withRetry(ctx, a.retry, func(ctx context.Context) error {
			return a.gw.Extract(ctx, &inference.Request{
				Task:        inference.TaskImageDescription,
				Instruction: fmt.Sprintf("Describe pallor at capture point %s.", img.Point),
				Media:       []inference.MediaPart{{DataURI: img.DataURI}},
			}, &obs)
		})
		if err != nil {
			a.log.WithError(err).WithField("point", img.Point).Warn("image extraction failed")
			return failureFromGateway(domain.ModalityImage, err)
		}
		if !obs.Valid {
			// Bare-state rule: makeup, polish or obstruction makes the
			// photo unusable for pallor assessment.
			return domain.FailedResult(domain.ModalityImage, domain.ResultFailed, domain.ReasonSchemaValidation,
				fmt.Sprintf("image at %s unusable: %s", img.Point, obs.Rationale))
		}

		descriptions = append(descriptions, domain.ImageDescription{
			Point:     img.Point,
			Pallor:    obs.Pallor,
			Severity:  domain.Severity(obs.Severity),
			Rationale: obs.Rationale,
		})
		confSum += obs.Confidence / 100.0
	}

	worst := domain.SeverityNone
	for _, d := range descriptions {
		if d.Severity.Rank() > worst.Rank() {
			worst = d.Severity
		}
	}

	payload, err := json.Marshal(domain.ImageFindings{Descriptions: descriptions, WorstSeverity: worst})
	if err != nil {
		return domain.FailedResult(domain.ModalityImage, domain.ResultFailed, domain.ReasonContractViolation, "failed to encode findings")
	}
	return domain.SucceededResult(domain.ModalityImage, confSum/float64(len(descriptions)), payload)
}

// failureFromGateway maps a terminal gateway error onto the modality result
// states. Timeouts keep their identity; everything else maps to FAILED.
func failureFromGateway(m domain.Modality, err error) domain.ModalityResult {
	switch inference.KindOf(err) {
	case inference.KindTimeout:
		return domain.FailedResult(m, domain.ResultTimedOut, domain.ReasonInferenceTimeout, err.Error())
	case inference.KindRateLimited:
		return domain.FailedResult(m, domain.ResultFailed, domain.ReasonInferenceRateLimited, err.Error())
	case inference.KindSchemaValidation:
		return domain.FailedResult(m, domain.ResultFailed, domain.ReasonSchemaValidation, err.Error())
	default:
		return domain.FailedResult(m, domain.ResultFailed, domain.ReasonUpstreamFailure, err.Error())
	}
}
