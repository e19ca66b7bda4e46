package service

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/metrics"
)

// RunAbandonmentSweep periodically expires interviews idle past the
// inactivity window. The jittered interval keeps replicas from sweeping in
// lockstep against the same store.
func (s *Service) RunAbandonmentSweep(ctx context.Context) {
	ticker := jitterbug.New(30*time.Second, &jitterbug.Norm{Stdev: 3 * time.Second})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAbandonedInterviews(ctx)
		}
	}
}

func (s *Service) sweepAbandonedInterviews(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	idle, err := s.store.ListIdleInterviews(sweepCtx, time.Now().UTC().Add(-s.idle), 100)
	if err != nil {
		s.log.WithError(err).Warn("interview abandonment sweep failed")
		return
	}

	for _, rec := range idle {
		marked, err := s.store.MarkInterviewAbandoned(sweepCtx, rec.SessionID)
		if err != nil {
			s.log.WithError(err).WithField("session_id", rec.SessionID).Warn("failed to mark interview abandoned")
			continue
		}
		if marked {
			metrics.InterviewsAbandoned.Inc()
			s.log.WithFields(logrus.Fields{
				"session_id":  rec.SessionID,
				"reason_code": domain.ReasonInterviewAbandoned,
			}).Info("interview abandoned after inactivity")
		}
	}
}
