package inference

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "HEMOSCAN_MODE"
	// ModeMock indicates the mock gateway should be used.
	ModeMock = "MOCK"
)

// NewGateway creates a gateway based on the HEMOSCAN_MODE environment
// variable. HEMOSCAN_MODE=MOCK returns the mock client; otherwise the HTTP
// client against the configured backend.
func NewGateway(baseURL, apiKey string, timeout time.Duration, log *logrus.Logger) Gateway {
	if os.Getenv(EnvMode) == ModeMock {
		log.Info("HEMOSCAN_MODE=MOCK detected, using mock inference gateway")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
