package domain

// ImagePayload is one submitted point-of-care photo, tagged by capture
// point, carried as a data URI.
type ImagePayload struct {
	Point   ImagePoint `json:"point"`
	DataURI string     `json:"data_uri"`
}

// CbcPayload is an optional lab-report submission: either a photo of the
// report or its transcribed text.
type CbcPayload struct {
	DataURI string `json:"data_uri,omitempty"`
	Text    string `json:"text,omitempty"`
}

// GeoContext is optional geolocation context for clinic lookup.
type GeoContext struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Locality  string  `json:"locality,omitempty"`
}

// SubmitSessionRequest is the session submission contract: zero to three
// tagged images, an optional CBC report, an optional completed transcript.
type SubmitSessionRequest struct {
	Images     []ImagePayload `json:"images,omitempty"`
	Cbc        *CbcPayload    `json:"cbc_report,omitempty"`
	Transcript []QA           `json:"interview_transcript,omitempty"`
	Geo        *GeoContext    `json:"geo,omitempty"`
}

// SubmitSessionResponse acknowledges an accepted session.
type SubmitSessionResponse struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status"`
}

// SessionResponse is the pollable view of a session: its status, the
// per-modality outcomes, and the assessment once available.
type SessionResponse struct {
	Session         AnalysisSession  `json:"session"`
	Results         []ModalityResult `json:"results,omitempty"`
	Assessment      *RiskAssessment  `json:"assessment,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
}

// InterviewTurnRequest carries the full transcript; there is no hidden
// server-side interview state.
type InterviewTurnRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	Transcript []QA   `json:"transcript"`
}

// InterviewTurnResponse is the next question, or a terminal marker.
type InterviewTurnResponse struct {
	State      InterviewState `json:"state"`
	QuestionID string         `json:"question_id,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	Remaining  int            `json:"remaining,omitempty"`
}
