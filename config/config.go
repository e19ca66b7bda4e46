// Package config provides environment-driven configuration for the service.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration. Every clinically flavored
// threshold lives here: the shipped defaults are illustrative policy, not
// biological fact, and deployments are expected to tune them.
type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:hemoscan.db?cache=shared&mode=rwc"`

	InferenceURL     string        `envconfig:"INFERENCE_URL" default:"http://localhost:4000"`
	InferenceAPIKey  string        `envconfig:"INFERENCE_API_KEY" default:""`
	InferenceTimeout time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"20s"`

	ClinicsURL     string        `envconfig:"CLINICS_URL" default:""`
	ClinicsTimeout time.Duration `envconfig:"CLINICS_TIMEOUT" default:"5s"`

	SessionDeadline time.Duration `envconfig:"SESSION_DEADLINE" default:"30s"`

	RetryMax    int           `envconfig:"RETRY_MAX" default:"2"`
	RetryBase   time.Duration `envconfig:"RETRY_BASE" default:"1s"`
	RetryFactor int           `envconfig:"RETRY_FACTOR" default:"2"`

	InterviewIdleWindow time.Duration `envconfig:"INTERVIEW_IDLE_WINDOW" default:"10m"`

	// Validator policy.
	ConflictPenalty float64 `envconfig:"CONFLICT_PENALTY" default:"0.15"`
	MissingPenalty  float64 `envconfig:"MISSING_PENALTY" default:"0.10"`
	HgbLowThreshold float64 `envconfig:"HGB_LOW_THRESHOLD" default:"10.0"`
	HgbNormalFloor  float64 `envconfig:"HGB_NORMAL_FLOOR" default:"13.0"`

	// Risk tier cutpoints: hemoglobin below HgbHighBelow maps HIGH, below
	// HgbModerateBelow maps MODERATE, otherwise LOW.
	HgbModerateBelow float64 `envconfig:"HGB_MODERATE_BELOW" default:"12.0"`
	HgbHighBelow     float64 `envconfig:"HGB_HIGH_BELOW" default:"10.0"`
	SymptomHighCount int     `envconfig:"SYMPTOM_HIGH_COUNT" default:"3"`

	// CBC sanity bounds. Values outside are rejected as implausible.
	CbcHgbMin float64 `envconfig:"CBC_HGB_MIN" default:"3.0"`
	CbcHgbMax float64 `envconfig:"CBC_HGB_MAX" default:"25.0"`
	CbcRbcMin float64 `envconfig:"CBC_RBC_MIN" default:"1.0"`
	CbcRbcMax float64 `envconfig:"CBC_RBC_MAX" default:"10.0"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("hemoscan", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
