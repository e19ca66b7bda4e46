package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/metrics"
	"github.com/jcandel/hemoscan/internal/validator"
)

// Submit accepts a session request, persists the PENDING session and kicks
// off asynchronous processing. The caller polls for the outcome.
func (s *Service) Submit(ctx context.Context, req *domain.SubmitSessionRequest) (*domain.SubmitSessionResponse, error) {
	if len(req.Images) > 3 {
		return nil, fmt.Errorf("at most 3 images may be submitted")
	}
	seenPoints := map[domain.ImagePoint]bool{}
	for _, img := range req.Images {
		if !domain.ValidImagePoint(img.Point) {
			return nil, fmt.Errorf("unknown capture point %q", img.Point)
		}
		if seenPoints[img.Point] {
			return nil, fmt.Errorf("duplicate capture point %q", img.Point)
		}
		seenPoints[img.Point] = true
	}

	requested := requestedModalities(req)
	if len(requested) == 0 {
		return nil, fmt.Errorf("at least one modality must be submitted")
	}

	session := &domain.AnalysisSession{
		SessionID: "ses_" + uuid.New().String()[:8],
		Status:    domain.SessionStatusPending,
		Requested: requested,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	go s.processSession(session, req)

	return &domain.SubmitSessionResponse{SessionID: session.SessionID, Status: session.Status}, nil
}

// processSession drives one session from RUNNING to a terminal state. It
// is the only writer of the session after dispatch: analyzers hand back
// values and never touch shared state.
func (s *Service) processSession(session *domain.AnalysisSession, req *domain.SubmitSessionRequest) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()

	log := s.log.WithField("session_id", session.SessionID)

	if err := s.store.UpdateSessionStatus(ctx, session.SessionID, domain.SessionStatusRunning); err != nil {
		log.WithError(err).Error("failed to mark session running")
		return
	}

	results := s.fanOut(ctx, req)

	// A deadline overrun must not take the finished results down with it:
	// everything after the barrier persists under a fresh bounded context,
	// the same rescue finalize applies to the terminal write.
	pctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	for _, r := range results {
		if err := s.store.SaveModalityResult(pctx, session.SessionID, r); err != nil {
			log.WithError(err).WithField("modality", r.Modality).Error("failed to save modality result")
		}
		metrics.ModalityResults.WithLabelValues(string(r.Modality), string(r.Source)).Inc()
	}

	succeeded := 0
	for _, r := range results {
		if r.Source == domain.ResultSucceeded {
			succeeded++
		}
	}

	if succeeded == 0 {
		s.finalize(pctx, session.SessionID, domain.SessionStatusFailed,
			domain.ReasonZeroModalitySuccess, "no modality produced a usable signal", started)
		return
	}

	assessedOK := s.assess(pctx, session.SessionID, results, req.Geo, log)
	if !assessedOK {
		s.finalize(pctx, session.SessionID, domain.SessionStatusFailed,
			domain.ReasonContractViolation, "assessment chain failed on validated inputs", started)
		return
	}

	status := domain.SessionStatusComplete
	if succeeded < len(domain.AllModalities) {
		status = domain.SessionStatusPartial
	}
	s.finalize(pctx, session.SessionID, status, "", "", started)
}

// fanOut dispatches every requested analyzer concurrently and joins at a
// barrier: it returns only when each modality has reached a terminal
// per-modality state. Each goroutine owns its slot; no shared writes.
func (s *Service) fanOut(ctx context.Context, req *domain.SubmitSessionRequest) []domain.ModalityResult {
	results := make([]domain.ModalityResult, len(domain.AllModalities))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results[0] = s.images.Analyze(gctx, req.Images)
		return nil
	})
	g.Go(func() error {
		results[1] = s.cbc.Analyze(gctx, req.Cbc)
		return nil
	})
	g.Go(func() error {
		results[2] = s.interview.Analyze(gctx, req.Transcript)
		return nil
	})
	// Analyzers never return errors; Wait is purely the join barrier.
	_ = g.Wait()

	// A session-deadline cancellation surfaces as a timeout on whichever
	// analyzers were still in flight; completed results are untouched.
	if ctx.Err() != nil {
		for i, r := range results {
			if r.Source == domain.ResultTimedOut && r.ReasonCode == domain.ReasonInferenceTimeout {
				results[i].ReasonCode = domain.ReasonSessionDeadline
			}
		}
	}
	return results
}

// assess runs the pure Validator -> Risk -> Recommendation chain. These
// stages failing on already-validated inputs is a contract violation: it
// is surfaced and logged, never swallowed or converted into a guessed
// tier.
func (s *Service) assess(ctx context.Context, sessionID string, results []domain.ModalityResult, geo *domain.GeoContext, log *logrus.Entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("assessment chain panicked")
			ok = false
		}
	}()

	outcome, err := validator.Validate(results, s.valPolicy)
	if err != nil {
		log.WithError(err).Error("validator rejected joined results")
		return false
	}

	assessment, err := s.riskEng.Assess(outcome)
	if err != nil {
		log.WithError(err).Error("risk engine failed")
		return false
	}

	rec := s.recommend.Generate(ctx, assessment, outcome, geo)

	if err := s.store.SaveAssessment(ctx, sessionID, assessment, rec); err != nil {
		log.WithError(err).Error("failed to save assessment")
		return false
	}
	return true
}

func (s *Service) finalize(ctx context.Context, sessionID string, status domain.SessionStatus, code domain.ReasonCode, reason string, started time.Time) {
	// The terminal write must survive a session-deadline cancellation.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.store.CompleteSession(ctx, sessionID, status, code, reason); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("failed to finalize session")
		return
	}
	metrics.SessionsTotal.WithLabelValues(string(status)).Inc()
	metrics.SessionDuration.Observe(time.Since(started).Seconds())
}

// GetSession assembles the pollable session view.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.SessionResponse, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	resp := &domain.SessionResponse{Session: *session}

	results, err := s.store.GetModalityResults(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get modality results: %w", err)
	}
	resp.Results = results

	assessment, rec, err := s.store.GetAssessment(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	resp.Assessment = assessment
	resp.Recommendations = rec
	return resp, nil
}

// WaitSession polls until the session reaches a terminal status or the
// timeout elapses, returning the latest view either way.
func (s *Service) WaitSession(ctx context.Context, sessionID string, timeout time.Duration) (*domain.SessionResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := s.GetSession(ctx, sessionID)
		if err != nil || resp == nil {
			return resp, err
		}
		if resp.Session.Status.IsTerminal() {
			return resp, nil
		}
		if time.Now().After(deadline) {
			return resp, nil
		}

		timer := time.NewTimer(100 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return resp, ctx.Err()
		case <-timer.C:
		}
	}
}
