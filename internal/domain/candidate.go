package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SubtitleCandidate is one subtitle track returned by a provider search.
type SubtitleCandidate struct {
	SourceID     string `json:"sourceId"`
	Language     string `json:"language"`
	ReleaseLabel string `json:"releaseLabel"`
	Popularity   int    `json:"popularity"`
}

// NewSubtitleCandidate validates the required fields at the provider boundary.
func NewSubtitleCandidate(sourceID, language, release string, popularity int) (SubtitleCandidate, error) {
	sourceID = strings.TrimSpace(sourceID)
	language = strings.ToLower(strings.TrimSpace(language))
	if sourceID == "" {
		return SubtitleCandidate{}, fmt.Errorf("candidate source id is required")
	}
	if language == "" {
		return SubtitleCandidate{}, fmt.Errorf("candidate %s has no language", sourceID)
	}
	if popularity < 0 {
		popularity = 0
	}
	return SubtitleCandidate{
		SourceID:     sourceID,
		Language:     language,
		ReleaseLabel: strings.TrimSpace(release),
		Popularity:   popularity,
	}, nil
}

// MediaRequest identifies a movie or an episode, e.g. "tt0944947:1:2".
type MediaRequest struct {
	Type    string `json:"type"`
	IMDBID  string `json:"imdbId"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// ParseMediaID splits a Stremio-style id into IMDb id, season and episode.
func ParseMediaID(mediaType, id string) (MediaRequest, error) {
	parts := strings.Split(strings.TrimSpace(id), ":")
	req := MediaRequest{Type: mediaType, IMDBID: parts[0]}
	if !strings.HasPrefix(req.IMDBID, "tt") || len(req.IMDBID) < 3 {
		return MediaRequest{}, fmt.Errorf("invalid IMDb id %q", id)
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(req.IMDBID, "tt")); err != nil {
		return MediaRequest{}, fmt.Errorf("invalid IMDb id %q", id)
	}
	if len(parts) >= 3 {
		season, err := strconv.Atoi(parts[1])
		if err != nil {
			return MediaRequest{}, fmt.Errorf("invalid season in %q", id)
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil {
			return MediaRequest{}, fmt.Errorf("invalid episode in %q", id)
		}
		req.Season, req.Episode = season, episode
	}
	return req, nil
}

func (m MediaRequest) IsEpisode() bool {
	return m.Season > 0 && m.Episode > 0
}

func (m MediaRequest) String() string {
	if m.IsEpisode() {
		return fmt.Sprintf("%s:%d:%d", m.IMDBID, m.Season, m.Episode)
	}
	return m.IMDBID
}
