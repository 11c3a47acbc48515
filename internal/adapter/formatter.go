package adapter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/opensubtitles"
)

const (
	addonVersion   = "2.0.0"
	defaultRelease = "OpenSubtitles"
)

var mediaTypes = []string{"movie", "series"}

type ManifestResource struct {
	Name       string   `json:"name"`
	Types      []string `json:"types"`
	IDPrefixes []string `json:"idPrefixes"`
}

type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// Manifest is the Stremio add-on descriptor served per account.
type Manifest struct {
	ID            string             `json:"id"`
	Version       string             `json:"version"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Resources     []ManifestResource `json:"resources"`
	Types         []string           `json:"types"`
	Catalogs      []any              `json:"catalogs"`
	IDPrefixes    []string           `json:"idPrefixes"`
	BehaviorHints BehaviorHints      `json:"behaviorHints"`
}

type SubtitleEntry struct {
	ID    string `json:"id"`
	Lang  string `json:"lang"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

type SubtitlesResponse struct {
	Subtitles []SubtitleEntry `json:"subtitles"`
}

// EmptySubtitles is what a player gets whenever listing fails.
func EmptySubtitles() SubtitlesResponse {
	return SubtitlesResponse{Subtitles: []SubtitleEntry{}}
}

// StremioFormatter renders offers and manifests for Stremio clients.
type StremioFormatter struct {
	baseURL string
}

func NewStremioFormatter(baseURL string) *StremioFormatter {
	return &StremioFormatter{baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *StremioFormatter) BaseURL() string {
	return f.baseURL
}

func (f *StremioFormatter) ManifestURL(apiKey string) string {
	return fmt.Sprintf("%s/manifest/%s", f.baseURL, url.PathEscape(apiKey))
}

func (f *StremioFormatter) TranslateURL(apiKey string, offer domain.Offer) string {
	return fmt.Sprintf("%s/translate/%s/%s/%s/%s",
		f.baseURL,
		url.PathEscape(apiKey),
		url.PathEscape(offer.SourceID),
		url.PathEscape(offer.SourceLang),
		url.PathEscape(offer.TargetLang),
	)
}

// Manifest builds the add-on descriptor in the account's preferred language.
func (f *StremioFormatter) Manifest(account *domain.Account) (Manifest, error) {
	data := struct{ Language string }{Language: domain.NativeName(account.PreferredLanguage)}

	name, err := executeFormatterTemplate(templateManifestName, data)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to render manifest name: %w", err)
	}
	description, err := executeFormatterTemplate(templateManifestDescription, data)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to render manifest description: %w", err)
	}

	return Manifest{
		ID:          fmt.Sprintf("ro.subtitle.translator.%d", account.ID),
		Version:     addonVersion,
		Name:        name,
		Description: description,
		Resources: []ManifestResource{
			{Name: "subtitles", Types: mediaTypes, IDPrefixes: []string{"tt"}},
		},
		Types:         mediaTypes,
		Catalogs:      []any{},
		IDPrefixes:    []string{"tt"},
		BehaviorHints: BehaviorHints{Configurable: true},
	}, nil
}

// Subtitles turns offers into player entries. Native offers link to the provider,
// translated offers to this service's translate endpoint.
func (f *StremioFormatter) Subtitles(apiKey string, offers []domain.Offer) (SubtitlesResponse, error) {
	resp := EmptySubtitles()

	for _, offer := range offers {
		var (
			entry SubtitleEntry
			err   error
		)
		switch offer.Kind {
		case domain.OfferDirect:
			entry, err = f.nativeEntry(offer)
		default:
			entry, err = f.translatedEntry(apiKey, offer)
		}
		if err != nil {
			return EmptySubtitles(), err
		}
		resp.Subtitles = append(resp.Subtitles, entry)
	}

	return resp, nil
}

func (f *StremioFormatter) nativeEntry(offer domain.Offer) (SubtitleEntry, error) {
	label, err := NativeLabel(offer)
	if err != nil {
		return SubtitleEntry{}, err
	}
	return SubtitleEntry{
		ID:    fmt.Sprintf("native-%s-%s", offer.TargetLang, offer.SourceID),
		Lang:  offer.TargetLang,
		URL:   opensubtitles.NativeDownloadURL(offer.SourceID),
		Label: label,
	}, nil
}

func (f *StremioFormatter) translatedEntry(apiKey string, offer domain.Offer) (SubtitleEntry, error) {
	label, err := TranslatedLabel(offer)
	if err != nil {
		return SubtitleEntry{}, err
	}
	return SubtitleEntry{
		ID:    fmt.Sprintf("translated-%s-%s-%s", offer.SourceLang, offer.TargetLang, offer.SourceID),
		Lang:  offer.TargetLang,
		URL:   f.TranslateURL(apiKey, offer),
		Label: label,
	}, nil
}

func release(offer domain.Offer) string {
	if r := strings.TrimSpace(offer.Candidate.ReleaseLabel); r != "" {
		return r
	}
	return defaultRelease
}

// NativeLabel renders "{Target} - {release}".
func NativeLabel(offer domain.Offer) (string, error) {
	return executeFormatterTemplate(templateNativeLabel, map[string]any{
		"Target":  domain.NativeName(offer.TargetLang),
		"Release": release(offer),
	})
}

// TranslatedLabel renders the robot-prefixed label of a translation offer.
func TranslatedLabel(offer domain.Offer) (string, error) {
	return executeFormatterTemplate(templateTranslatedLabel, map[string]any{
		"Target":     domain.NativeName(offer.TargetLang),
		"Source":     domain.NativeName(offer.SourceLang),
		"Release":    release(offer),
		"Popularity": offer.Candidate.Popularity,
	})
}
