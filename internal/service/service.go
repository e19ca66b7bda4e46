// Package service implements the session orchestrator: the owner of the
// per-request state machine, the fan-out/fan-in of modality analyzers, and
// the partial-failure decisions.
package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/config"
	"github.com/jcandel/hemoscan/internal/analyzer"
	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/recommend"
	"github.com/jcandel/hemoscan/internal/repository"
	"github.com/jcandel/hemoscan/internal/risk"
	"github.com/jcandel/hemoscan/internal/validator"
)

// Service wires the pipeline stages together.
type Service struct {
	store     repository.Store
	images    *analyzer.ImageAnalyzer
	cbc       *analyzer.CbcAnalyzer
	interview *analyzer.InterviewAnalyzer
	riskEng   *risk.Engine
	recommend *recommend.Generator
	valPolicy validator.Policy
	deadline  time.Duration
	idle      time.Duration
	log       *logrus.Logger
}

// New creates the orchestrator service.
func New(
	store repository.Store,
	images *analyzer.ImageAnalyzer,
	cbc *analyzer.CbcAnalyzer,
	interviewAnalyzer *analyzer.InterviewAnalyzer,
	riskEng *risk.Engine,
	rec *recommend.Generator,
	cfg *config.Config,
	log *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		images:    images,
		cbc:       cbc,
		interview: interviewAnalyzer,
		riskEng:   riskEng,
		recommend: rec,
		valPolicy: validator.Policy{
			HgbLow:            cfg.HgbLowThreshold,
			HgbNormal:         cfg.HgbNormalFloor,
			ConflictPenalty:   cfg.ConflictPenalty,
			MissingPenalty:    cfg.MissingPenalty,
			SymptomHeavyCount: cfg.SymptomHighCount,
		},
		deadline: cfg.SessionDeadline,
		idle:     cfg.InterviewIdleWindow,
		log:      log,
	}
}

// requestedModalities derives the dispatched modality set from payload
// presence.
func requestedModalities(req *domain.SubmitSessionRequest) []domain.Modality {
	var requested []domain.Modality
	if len(req.Images) > 0 {
		requested = append(requested, domain.ModalityImage)
	}
	if req.Cbc != nil && (req.Cbc.DataURI != "" || req.Cbc.Text != "") {
		requested = append(requested, domain.ModalityCbc)
	}
	if len(req.Transcript) > 0 {
		requested = append(requested, domain.ModalityInterview)
	}
	return requested
}
