// Package voice turns alert text into playable audio through an external
// text-to-speech service, caching results by content.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/provider/resilience"
)

// ErrDisabled is returned when no synthesis service is configured.
var ErrDisabled = errors.New("voice synthesis disabled")

// ProviderName identifies the HTTP synthesis provider.
const ProviderName = "tts"

// LanguageTamil is the language code used for announcements.
const LanguageTamil = "ta"

// Synthesizer produces an audio URL for text in the given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (string, error)
}

// Disabled is a Synthesizer that always fails with ErrDisabled.
type Disabled struct{}

// Synthesize returns ErrDisabled.
func (Disabled) Synthesize(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

// HTTPSynthesizerConfig holds configuration for the HTTP synthesizer.
type HTTPSynthesizerConfig struct {
	// Endpoint receives POST {"text","language"} and answers {"url"}.
	Endpoint string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// HTTPSynthesizer calls a text-to-speech HTTP endpoint.
type HTTPSynthesizer struct {
	endpoint   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewHTTPSynthesizer creates a synthesizer for the given endpoint.
func NewHTTPSynthesizer(cfg HTTPSynthesizerConfig) *HTTPSynthesizer {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &HTTPSynthesizer{
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type synthesizeResponse struct {
	URL string `json:"url"`
}

// Synthesize requests audio for text and returns its URL.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, language string) (string, error) {
	payload, err := json.Marshal(synthesizeRequest{Text: text, Language: language})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("synthesis response has no url")
	}

	return out.URL, nil
}
