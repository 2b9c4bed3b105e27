package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"visadesk/pkg/platform/sentinel"
)

// Source fetches raw questionnaire answers for an application. The engine
// treats questionnaire storage as an external collaborator.
type Source interface {
	Fetch(ctx context.Context, applicationID string) (RawQuestionnaire, error)
}

// HTTPSource reads questionnaire answers from the backend's internal context
// endpoint.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource builds a Source against the backend base URL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type contextEnvelope struct {
	Success bool             `json:"success"`
	Data    RawQuestionnaire `json:"data"`
}

// Fetch returns the raw answers, translating a backend 404 into
// sentinel.ErrNotFound so the coordinator can discard in-flight work for
// deleted applications.
func (s *HTTPSource) Fetch(ctx context.Context, applicationID string) (RawQuestionnaire, error) {
	url := fmt.Sprintf("%s/internal/ai-context/%s", s.baseURL, applicationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RawQuestionnaire{}, fmt.Errorf("build questionnaire request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return RawQuestionnaire{}, fmt.Errorf("fetch questionnaire: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return RawQuestionnaire{}, fmt.Errorf("application %s: %w", applicationID, sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return RawQuestionnaire{}, fmt.Errorf("fetch questionnaire: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RawQuestionnaire{}, fmt.Errorf("read questionnaire body: %w", err)
	}

	var envelope contextEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return RawQuestionnaire{}, fmt.Errorf("decode questionnaire body: %w", err)
	}
	if !envelope.Success {
		return RawQuestionnaire{}, fmt.Errorf("backend reported failure for application %s: %w", applicationID, sentinel.ErrUnavailable)
	}

	return envelope.Data, nil
}
