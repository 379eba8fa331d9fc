// Package elevenlabs fetches voice candidates from the ElevenLabs voices
// API and maps their labels onto the catalog's structured fields. It
// implements the catalog.Provider interface.
package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maalaph/voicematch/internal/catalog"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	voicesPath     = "/v1/voices"
)

// Option is a functional option for configuring the ElevenLabs Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests to point the client
// at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements catalog.Provider backed by the ElevenLabs voices API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ catalog.Provider = (*Client)(nil)

// New creates a new ElevenLabs Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ---- API response types ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []apiVoice `json:"voices"`
}

// apiVoice is a single voice entry from the ElevenLabs API.
type apiVoice struct {
	VoiceID           string            `json:"voice_id"`
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	Labels            map[string]string `json:"labels"`
	Description       string            `json:"description"`
	HighQualityModels []string          `json:"high_quality_base_model_ids"`
}

// FetchVoices returns the current candidate set for the configured API key.
// Records that fail validation are skipped with a diagnostic rather than
// failing the whole fetch.
func (c *Client) FetchVoices(ctx context.Context) ([]catalog.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+voicesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: fetch voices: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: fetch voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: fetch voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: fetch voices decode: %w", err)
	}

	voices := make([]catalog.Voice, 0, len(vr.Voices))
	for _, av := range vr.Voices {
		v := mapVoice(av)
		if err := v.Validate(); err != nil {
			slog.Debug("elevenlabs: skipping voice record",
				slog.String("id", av.VoiceID),
				slog.String("name", av.Name),
				slog.String("error", err.Error()))
			continue
		}
		voices = append(voices, v)
	}
	return voices, nil
}

// mapVoice converts one API voice entry into a catalog voice. Label values
// use the provider's spellings ("middle_aged", "old"); they are normalized
// to the catalog's brackets here, at the boundary.
func mapVoice(av apiVoice) catalog.Voice {
	v := catalog.Voice{
		ID:             av.VoiceID,
		DisplayName:    av.Name,
		SourceProvider: catalog.SourceElevenLabs,
		Accent:         strings.ToLower(strings.TrimSpace(av.Labels["accent"])),
		Gender:         normalizeGender(av.Labels["gender"]),
		Age:            normalizeAge(av.Labels["age"]),
		Description:    strings.TrimSpace(av.Description),
		Quality:        quality(av),
	}

	// The "description" label is a single perceptual word ("deep", "calm");
	// it lands in the timbre tags where the scorer can reach it.
	if d := strings.ToLower(strings.TrimSpace(av.Labels["description"])); d != "" {
		v.TimbreTags = append(v.TimbreTags, d)
	}

	uc := av.Labels["use case"]
	if uc == "" {
		uc = av.Labels["use_case"]
	}
	if uc = strings.ToLower(strings.TrimSpace(uc)); uc != "" {
		v.UseCases = append(v.UseCases, uc)
	}

	return v
}

// normalizeAge maps the provider's age label spellings onto the catalog
// brackets. Unknown values mean "unlabelled".
func normalizeAge(s string) catalog.AgeBracket {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	switch s {
	case "young":
		return catalog.AgeYoung
	case "middle aged":
		return catalog.AgeMiddle
	case "old", "older", "elderly":
		return catalog.AgeOlder
	}
	return ""
}

// normalizeGender maps the provider's gender label onto the catalog labels.
// Unknown values mean "unlabelled".
func normalizeGender(s string) catalog.Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return catalog.GenderMale
	case "female":
		return catalog.GenderFemale
	case "neutral", "non-binary", "non binary":
		return catalog.GenderNeutral
	}
	return ""
}

// quality maps professional voices, and voices with high-quality base
// models, to the high tier.
func quality(av apiVoice) catalog.QualityTier {
	if av.Category == "professional" || len(av.HighQualityModels) > 0 {
		return catalog.QualityHigh
	}
	return catalog.QualityStandard
}
