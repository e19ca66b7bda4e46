// Package recommend produces the prioritized action list for an assessed
// session, including nearby clinics when geolocation context is present
// and the capability policy permits the lookup.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcandel/hemoscan/internal/domain"
)

// ClinicLookup is the external clinic lookup capability. Failures degrade
// the recommendation list; they never fail the pipeline.
type ClinicLookup interface {
	Find(ctx context.Context, geo domain.GeoContext) ([]domain.Clinic, error)
}

// ClinicClient queries a clinic directory service over HTTP, falling back
// to a small embedded directory when no service is configured.
type ClinicClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClinicClient creates a clinic lookup client. An empty baseURL serves
// the embedded fallback directory only.
func NewClinicClient(baseURL string, timeout time.Duration) *ClinicClient {
	return &ClinicClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ ClinicLookup = (*ClinicClient)(nil)

// Find returns an ordered list of nearby providers.
func (c *ClinicClient) Find(ctx context.Context, geo domain.GeoContext) ([]domain.Clinic, error) {
	if c.baseURL == "" {
		return fallbackDirectory(geo), nil
	}

	q := url.Values{}
	if geo.Locality != "" {
		q.Set("locality", geo.Locality)
	} else {
		q.Set("lat", fmt.Sprintf("%f", geo.Latitude))
		q.Set("lng", fmt.Sprintf("%f", geo.Longitude))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/clinics?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clinic lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("clinic lookup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Results []domain.Clinic `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode clinic response: %w", err)
	}
	return out.Results, nil
}

// fallbackDirectory is a minimal static directory for deployments without
// a lookup service, filtered by locality when one was given.
func fallbackDirectory(geo domain.GeoContext) []domain.Clinic {
	directory := []domain.Clinic{
		{Name: "Iloilo Doctors' Hospital", Address: "West Timawa Avenue, Molo, Iloilo City", Specialty: "General"},
		{Name: "The Medical City Iloilo", Address: "Lopez Jaena St, Molo, Iloilo City", Specialty: "Tertiary care"},
		{Name: "Western Visayas Medical Center", Address: "Q. Abeto St, Mandurriao, Iloilo City", Specialty: "Hematology"},
		{Name: "St. Paul's Hospital Iloilo", Address: "Gen. Luna St., Iloilo City Proper", Specialty: "General"},
	}
	if geo.Locality == "" {
		return directory
	}

	needle := strings.ToLower(geo.Locality)
	var matched []domain.Clinic
	for _, c := range directory {
		if strings.Contains(strings.ToLower(c.Address), needle) || strings.Contains(strings.ToLower(c.Name), needle) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return directory
	}
	return matched
}
