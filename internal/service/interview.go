package service

import (
	"context"
	"fmt"

	"github.com/jcandel/hemoscan/internal/domain"
	"github.com/jcandel/hemoscan/internal/interview"
)

// NextInterviewTurn computes the next interview step from the submitted
// transcript. The step itself is a pure function of the transcript; the
// store is only touched to refresh the inactivity clock when the caller
// identifies a session, and to honor a prior abandonment.
func (s *Service) NextInterviewTurn(ctx context.Context, req *domain.InterviewTurnRequest) (*domain.InterviewTurnResponse, error) {
	turn := interview.Next(req.Transcript)

	if req.SessionID == "" {
		return &turn, nil
	}

	record, err := s.store.GetInterview(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if record != nil && record.State == domain.InterviewAbandoned {
		return &domain.InterviewTurnResponse{State: domain.InterviewAbandoned}, nil
	}

	if err := s.store.TouchInterview(ctx, req.SessionID, req.Transcript, turn.State); err != nil {
		return nil, fmt.Errorf("failed to record interview activity: %w", err)
	}
	return &turn, nil
}
