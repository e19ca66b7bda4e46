// Package repository defines the storage interface and implementations.
package repository

import (
	"context"
	"time"

	"github.com/jcandel/hemoscan/internal/domain"
)

// Store defines the interface for pipeline persistence.
type Store interface {
	// Session operations. Terminal sessions are immutable: updates against
	// a PARTIAL/COMPLETE/FAILED session are rejected at this layer.
	CreateSession(ctx context.Context, session *domain.AnalysisSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.AnalysisSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	CompleteSession(ctx context.Context, sessionID string, status domain.SessionStatus, code domain.ReasonCode, reason string) error

	// Modality results, one row per (session, modality).
	SaveModalityResult(ctx context.Context, sessionID string, result domain.ModalityResult) error
	GetModalityResults(ctx context.Context, sessionID string) ([]domain.ModalityResult, error)

	// Assessment artifacts.
	SaveAssessment(ctx context.Context, sessionID string, assessment *domain.RiskAssessment, rec *domain.Recommendations) error
	GetAssessment(ctx context.Context, sessionID string) (*domain.RiskAssessment, *domain.Recommendations, error)

	// Interview activity, for the abandonment sweep.
	TouchInterview(ctx context.Context, sessionID string, transcript []domain.QA, state domain.InterviewState) error
	GetInterview(ctx context.Context, sessionID string) (*InterviewRecord, error)
	ListIdleInterviews(ctx context.Context, idleSince time.Time, limit int) ([]InterviewRecord, error)
	MarkInterviewAbandoned(ctx context.Context, sessionID string) (bool, error)

	// Lifecycle
	Close() error
}

// InterviewRecord is the stored interview activity row.
type InterviewRecord struct {
	SessionID    string
	State        domain.InterviewState
	Transcript   []domain.QA
	LastActivity time.Time
}
