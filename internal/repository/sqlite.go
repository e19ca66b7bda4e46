package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jcandel/hemoscan/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so the schema survives across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			requested TEXT NOT NULL,
			reason_code TEXT,
			reason TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS modality_results (
			session_id TEXT NOT NULL,
			modality TEXT NOT NULL,
			source TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			payload TEXT,
			reason_code TEXT,
			reason TEXT,
			PRIMARY KEY (session_id, modality),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			session_id TEXT PRIMARY KEY,
			assessment TEXT NOT NULL,
			recommendations TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS interviews (
			session_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			transcript TEXT NOT NULL DEFAULT '[]',
			last_activity DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interviews_activity ON interviews(state, last_activity)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.AnalysisSession) error {
	requested, err := json.Marshal(session.Requested)
	if err != nil {
		return fmt.Errorf("failed to marshal requested modalities: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, status, requested, created_at) VALUES (?, ?, ?, ?)`,
		session.SessionID, session.Status, string(requested), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession fetches a session by ID, nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.AnalysisSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, status, requested, reason_code, reason, created_at, ended_at FROM sessions WHERE session_id = ?`,
		sessionID)

	var (
		sess       domain.AnalysisSession
		requested  string
		reasonCode sql.NullString
		reason     sql.NullString
		endedAt    sql.NullTime
	)
	err := row.Scan(&sess.SessionID, &sess.Status, &requested, &reasonCode, &reason, &sess.CreatedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal([]byte(requested), &sess.Requested); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requested modalities: %w", err)
	}
	if reasonCode.Valid {
		sess.ReasonCode = domain.ReasonCode(reasonCode.String)
	}
	if reason.Valid {
		sess.Reason = reason.String
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}

// UpdateSessionStatus moves a non-terminal session to a new status.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE session_id = ? AND status IN ('PENDING', 'RUNNING')`,
		status, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found or already terminal", sessionID)
	}
	return nil
}

// CompleteSession moves a session to a terminal status exactly once.
func (s *SQLiteStore) CompleteSession(ctx context.Context, sessionID string, status domain.SessionStatus, code domain.ReasonCode, reason string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, reason_code = ?, reason = ?, ended_at = ? WHERE session_id = ? AND status IN ('PENDING', 'RUNNING')`,
		status, nullable(string(code)), nullable(reason), time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found or already terminal", sessionID)
	}
	return nil
}

// SaveModalityResult upserts the result row for one modality.
func (s *SQLiteStore) SaveModalityResult(ctx context.Context, sessionID string, result domain.ModalityResult) error {
	var payload any
	if len(result.Payload) > 0 {
		payload = string(result.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO modality_results (session_id, modality, source, confidence, payload, reason_code, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, modality) DO UPDATE SET
			source = excluded.source, confidence = excluded.confidence,
			payload = excluded.payload, reason_code = excluded.reason_code, reason = excluded.reason`,
		sessionID, result.Modality, result.Source, result.Confidence, payload,
		nullable(string(result.ReasonCode)), nullable(result.Reason))
	if err != nil {
		return fmt.Errorf("failed to save modality result: %w", err)
	}
	return nil
}

// GetModalityResults returns all result rows for a session in canonical
// modality order.
func (s *SQLiteStore) GetModalityResults(ctx context.Context, sessionID string) ([]domain.ModalityResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT modality, source, confidence, payload, reason_code, reason FROM modality_results WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modality results: %w", err)
	}
	defer rows.Close()

	byModality := map[domain.Modality]domain.ModalityResult{}
	for rows.Next() {
		var (
			r          domain.ModalityResult
			payload    sql.NullString
			reasonCode sql.NullString
			reason     sql.NullString
		)
		if err := rows.Scan(&r.Modality, &r.Source, &r.Confidence, &payload, &reasonCode, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan modality result: %w", err)
		}
		if payload.Valid {
			r.Payload = json.RawMessage(payload.String)
		}
		if reasonCode.Valid {
			r.ReasonCode = domain.ReasonCode(reasonCode.String)
		}
		if reason.Valid {
			r.Reason = reason.String
		}
		byModality[r.Modality] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modality results: %w", err)
	}

	var results []domain.ModalityResult
	for _, m := range domain.AllModalities {
		if r, ok := byModality[m]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// SaveAssessment stores the terminal assessment artifacts.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, sessionID string, assessment *domain.RiskAssessment, rec *domain.Recommendations) error {
	assessmentJSON, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}
	var recJSON any
	if rec != nil {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendations: %w", err)
		}
		recJSON = string(b)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (session_id, assessment, recommendations) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET assessment = excluded.assessment, recommendations = excluded.recommendations`,
		sessionID, string(assessmentJSON), recJSON)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// GetAssessment fetches the stored assessment, nils when absent.
func (s *SQLiteStore) GetAssessment(ctx context.Context, sessionID string) (*domain.RiskAssessment, *domain.Recommendations, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT assessment, recommendations FROM assessments WHERE session_id = ?`, sessionID)

	var (
		assessmentJSON string
		recJSON        sql.NullString
	)
	err := row.Scan(&assessmentJSON, &recJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	var assessment domain.RiskAssessment
	if err := json.Unmarshal([]byte(assessmentJSON), &assessment); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	var rec *domain.Recommendations
	if recJSON.Valid {
		rec = &domain.Recommendations{}
		if err := json.Unmarshal([]byte(recJSON.String), rec); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}
	return &assessment, rec, nil
}

// TouchInterview upserts the interview row and refreshes its activity
// timestamp. An ABANDONED interview stays abandoned.
func (s *SQLiteStore) TouchInterview(ctx context.Context, sessionID string, transcript []domain.QA, state domain.InterviewState) error {
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews (session_id, state, transcript, last_activity) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			state = CASE WHEN interviews.state = 'ABANDONED' THEN interviews.state ELSE excluded.state END,
			transcript = CASE WHEN interviews.state = 'ABANDONED' THEN interviews.transcript ELSE excluded.transcript END,
			last_activity = CASE WHEN interviews.state = 'ABANDONED' THEN interviews.last_activity ELSE excluded.last_activity END`,
		sessionID, state, string(transcriptJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch interview: %w", err)
	}
	return nil
}

// GetInterview fetches the interview row, nil when absent.
func (s *SQLiteStore) GetInterview(ctx context.Context, sessionID string) (*InterviewRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, state, transcript, last_activity FROM interviews WHERE session_id = ?`, sessionID)

	var (
		rec        InterviewRecord
		transcript string
	)
	err := row.Scan(&rec.SessionID, &rec.State, &transcript, &rec.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if err := json.Unmarshal([]byte(transcript), &rec.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &rec, nil
}

// ListIdleInterviews returns active interviews whose last activity predates
// idleSince.
func (s *SQLiteStore) ListIdleInterviews(ctx context.Context, idleSince time.Time, limit int) ([]InterviewRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, state, transcript, last_activity FROM interviews
		 WHERE state = 'ACTIVE' AND last_activity < ? ORDER BY last_activity LIMIT ?`,
		idleSince, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query idle interviews: %w", err)
	}
	defer rows.Close()

	var records []InterviewRecord
	for rows.Next() {
		var (
			rec        InterviewRecord
			transcript string
		)
		if err := rows.Scan(&rec.SessionID, &rec.State, &transcript, &rec.LastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		if err := json.Unmarshal([]byte(transcript), &rec.Transcript); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interviews: %w", err)
	}
	return records, nil
}

// MarkInterviewAbandoned flips an active interview to ABANDONED. Returns
// false when the interview was not active (already terminal or absent).
func (s *SQLiteStore) MarkInterviewAbandoned(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE interviews SET state = 'ABANDONED' WHERE session_id = ? AND state = 'ACTIVE'`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark interview abandoned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
