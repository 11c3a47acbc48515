package adapter

import (
	"testing"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

func TestSubtitlesEntries(t *testing.T) {
	f := NewStremioFormatter("https://subs.example.com/")

	offers := []domain.Offer{
		{
			Kind: domain.OfferTranslated, SourceID: "555", SourceLang: "en", TargetLang: "ro",
			Candidate: domain.SubtitleCandidate{SourceID: "555", Language: "en", ReleaseLabel: "Movie.2023.1080p", Popularity: 1234},
		},
		{
			Kind: domain.OfferTranslated, SourceID: "556", SourceLang: "fr", TargetLang: "ro",
			Candidate: domain.SubtitleCandidate{SourceID: "556", Language: "fr"},
		},
	}

	resp, err := f.Subtitles("sk_abc", offers)
	if err != nil {
		t.Fatalf("Subtitles() error = %v", err)
	}
	if len(resp.Subtitles) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Subtitles))
	}

	first := resp.Subtitles[0]
	if first.ID != "translated-en-ro-555" {
		t.Errorf("id = %q", first.ID)
	}
	if first.URL != "https://subs.example.com/translate/sk_abc/555/en/ro" {
		t.Errorf("url = %q", first.URL)
	}
	if want := "🤖 Română (AI: English → Română) - Movie.2023.1080p ⭐1234"; first.Label != want {
		t.Errorf("label = %q, want %q", first.Label, want)
	}
	if want := "🤖 Română (AI: Français → Română) - OpenSubtitles ⭐0"; resp.Subtitles[1].Label != want {
		t.Errorf("label = %q, want %q", resp.Subtitles[1].Label, want)
	}
}

func TestSubtitlesNativeEntry(t *testing.T) {
	f := NewStremioFormatter("http://localhost:7000")

	resp, err := f.Subtitles("sk_abc", []domain.Offer{{
		Kind: domain.OfferDirect, SourceID: "42", SourceLang: "ro", TargetLang: "ro",
		Candidate: domain.SubtitleCandidate{SourceID: "42", Language: "ro", ReleaseLabel: "Show.S01E02"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	got := resp.Subtitles[0]
	if got.ID != "native-ro-42" || got.Lang != "ro" {
		t.Errorf("entry = %+v", got)
	}
	if got.URL != "https://rest.opensubtitles.org/download/42" {
		t.Errorf("url = %q", got.URL)
	}
	if got.Label != "Română - Show.S01E02" {
		t.Errorf("label = %q", got.Label)
	}
}

func TestSubtitlesEmptyIsNotNull(t *testing.T) {
	resp, err := NewStremioFormatter("").Subtitles("k", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Subtitles == nil {
		t.Fatal("Subtitles must serialize as [] not null")
	}
}

func TestManifest(t *testing.T) {
	f := NewStremioFormatter("http://localhost:7000")

	m, err := f.Manifest(&domain.Account{ID: 9, PreferredLanguage: "de"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "ro.subtitle.translator.9" || m.Version != addonVersion {
		t.Errorf("manifest = %+v", m)
	}
	if m.Name != "Deutsch AI Subtitles" {
		t.Errorf("name = %q", m.Name)
	}
	if len(m.Resources) != 1 || m.Resources[0].Name != "subtitles" {
		t.Errorf("resources = %+v", m.Resources)
	}
	if f.ManifestURL("sk_1") != "http://localhost:7000/manifest/sk_1" {
		t.Errorf("manifest url = %q", f.ManifestURL("sk_1"))
	}
}

func TestParseSubtitleRequest(t *testing.T) {
	tests := []struct {
		mediaType string
		id        string
		want      domain.MediaRequest
		wantErr   bool
	}{
		{"movie", "tt0111161.json", domain.MediaRequest{Type: "movie", IMDBID: "tt0111161"}, false},
		{"series", "tt0944947%3A1%3A2.json", domain.MediaRequest{Type: "series", IMDBID: "tt0944947", Season: 1, Episode: 2}, false},
		{"series", "tt0944947:1:2.json", domain.MediaRequest{Type: "series", IMDBID: "tt0944947", Season: 1, Episode: 2}, false},
		{"channel", "tt1.json", domain.MediaRequest{}, true},
		{"movie", "kitsu:123.json", domain.MediaRequest{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSubtitleRequest(tt.mediaType, tt.id)
		if tt.wantErr {
			if err == nil || errors.StatusCode(err) != 400 {
				t.Errorf("ParseSubtitleRequest(%q, %q) error = %v, want validation error", tt.mediaType, tt.id, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSubtitleRequest(%q, %q) error = %v", tt.mediaType, tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSubtitleRequest(%q, %q) = %+v, want %+v", tt.mediaType, tt.id, got, tt.want)
		}
	}
}

func TestParseInputs(t *testing.T) {
	if lang, err := ParseLanguage(" RO "); err != nil || lang != "ro" {
		t.Errorf("ParseLanguage = %q, %v", lang, err)
	}
	if _, err := ParseLanguage("xx"); err == nil {
		t.Error("expected unsupported language error")
	}
	if email, err := ParseEmail(" User@Example.COM\x00 "); err != nil || email != "user@example.com" {
		t.Errorf("ParseEmail = %q, %v", email, err)
	}
	for _, bad := range []string{"", "no-at", "@example.com", "user@", "user@localhost"} {
		if _, err := ParseEmail(bad); err == nil {
			t.Errorf("ParseEmail(%q) expected error", bad)
		}
	}
}
