package elevenlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maalaph/voicematch/internal/catalog"
)

// mockVoicesServer serves a canned /v1/voices response and verifies the API
// key header on every request.
func mockVoicesServer(t *testing.T, wantKey string, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != voicesPath {
			t.Errorf("unexpected path: got %q, want %q", r.URL.Path, voicesPath)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("xi-api-key"); got != wantKey {
			t.Errorf("xi-api-key: got %q, want %q", got, wantKey)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestFetchVoices(t *testing.T) {
	body := `{
		"voices": [
			{
				"voice_id": "abc123",
				"name": "Rachel",
				"category": "premade",
				"labels": {"gender": "female", "accent": "american", "age": "young", "description": "calm", "use case": "narration"},
				"description": "A calm and collected narrator."
			},
			{
				"voice_id": "def456",
				"name": "Adam",
				"category": "professional",
				"labels": {"gender": "male", "accent": "british", "age": "middle_aged"}
			},
			{
				"voice_id": "",
				"name": "Ghost"
			}
		]
	}`
	srv := mockVoicesServer(t, "secret", body)
	defer srv.Close()

	c, err := New("secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	voices, err := c.FetchVoices(context.Background())
	if err != nil {
		t.Fatalf("FetchVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices (invalid record skipped), got %d", len(voices))
	}

	rachel := voices[0]
	if rachel.ID != "abc123" || rachel.DisplayName != "Rachel" {
		t.Errorf("unexpected identity: %q / %q", rachel.ID, rachel.DisplayName)
	}
	if rachel.SourceProvider != catalog.SourceElevenLabs {
		t.Errorf("expected source %q, got %q", catalog.SourceElevenLabs, rachel.SourceProvider)
	}
	if rachel.Accent != "american" || rachel.Gender != catalog.GenderFemale || rachel.Age != catalog.AgeYoung {
		t.Errorf("labels not mapped: accent=%q gender=%q age=%q", rachel.Accent, rachel.Gender, rachel.Age)
	}
	if len(rachel.TimbreTags) != 1 || rachel.TimbreTags[0] != "calm" {
		t.Errorf("description label not mapped to timbre tags: %v", rachel.TimbreTags)
	}
	if len(rachel.UseCases) != 1 || rachel.UseCases[0] != "narration" {
		t.Errorf("use case label not mapped: %v", rachel.UseCases)
	}
	if rachel.Description != "A calm and collected narrator." {
		t.Errorf("description not mapped: %q", rachel.Description)
	}
	if rachel.Quality != catalog.QualityStandard {
		t.Errorf("premade voice quality = %q, want standard", rachel.Quality)
	}

	adam := voices[1]
	if adam.Age != catalog.AgeMiddle {
		t.Errorf("middle_aged not normalized: %q", adam.Age)
	}
	if adam.Quality != catalog.QualityHigh {
		t.Errorf("professional voice quality = %q, want high", adam.Quality)
	}
}

func TestFetchVoices_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New("bad-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.FetchVoices(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestNormalizeAge(t *testing.T) {
	tests := []struct {
		in   string
		want catalog.AgeBracket
	}{
		{"young", catalog.AgeYoung},
		{"middle_aged", catalog.AgeMiddle},
		{"middle-aged", catalog.AgeMiddle},
		{"Middle Aged", catalog.AgeMiddle},
		{"old", catalog.AgeOlder},
		{"elderly", catalog.AgeOlder},
		{"", ""},
		{"timeless", ""},
	}
	for _, tt := range tests {
		if got := normalizeAge(tt.in); got != tt.want {
			t.Errorf("normalizeAge(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeGender(t *testing.T) {
	tests := []struct {
		in   string
		want catalog.Gender
	}{
		{"male", catalog.GenderMale},
		{"Female", catalog.GenderFemale},
		{"non-binary", catalog.GenderNeutral},
		{"neutral", catalog.GenderNeutral},
		{"", ""},
		{"robot", ""},
	}
	for _, tt := range tests {
		if got := normalizeGender(tt.in); got != tt.want {
			t.Errorf("normalizeGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
