package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/subtitle-translator-go/internal/domain"
)

func candidate(id, lang string, pop int) domain.SubtitleCandidate {
	return domain.SubtitleCandidate{SourceID: id, Language: lang, ReleaseLabel: "release-" + id, Popularity: pop}
}

func offerLangs(offers []domain.Offer) []string {
	langs := make([]string, len(offers))
	for i, o := range offers {
		langs[i] = o.SourceLang
	}
	return langs
}

func TestSelectKeepsMostPopularPerLanguage(t *testing.T) {
	s := New([]string{"en", "es", "fr"}, 5)

	sel := s.Select([]domain.SubtitleCandidate{
		candidate("1", "en", 10),
		candidate("2", "en", 50),
		candidate("3", "fr", 5),
	}, "ro")

	require.False(t, sel.IsDirect())
	require.Len(t, sel.Offers, 2)
	assert.Equal(t, "2", sel.Offers[0].SourceID)
	assert.Equal(t, "en", sel.Offers[0].SourceLang)
	assert.Equal(t, "ro", sel.Offers[0].TargetLang)
	assert.Equal(t, domain.OfferTranslated, sel.Offers[0].Kind)
	assert.Equal(t, "3", sel.Offers[1].SourceID)
}

func TestSelectReturnsDirectTracks(t *testing.T) {
	s := New(nil, 0)

	sel := s.Select([]domain.SubtitleCandidate{
		candidate("1", "en", 100),
		candidate("2", "RO", 3),
		candidate("3", "ro", 7),
	}, "ro")

	require.True(t, sel.IsDirect())
	assert.Empty(t, sel.Offers)
	require.Len(t, sel.Direct, 2)
	assert.Equal(t, "2", sel.Direct[0].SourceID)
	assert.Equal(t, "3", sel.Direct[1].SourceID)
}

func TestSelectRanking(t *testing.T) {
	tests := []struct {
		name       string
		priority   []string
		maxOffers  int
		candidates []domain.SubtitleCandidate
		want       []string
	}{
		{
			name:     "priority before others",
			priority: []string{"en", "es", "fr", "de", "it"},
			candidates: []domain.SubtitleCandidate{
				candidate("1", "ja", 900),
				candidate("2", "fr", 1),
				candidate("3", "en", 2),
			},
			want: []string{"en", "fr", "ja"},
		},
		{
			name:     "others by popularity descending",
			priority: []string{"en"},
			candidates: []domain.SubtitleCandidate{
				candidate("1", "pl", 5),
				candidate("2", "tr", 50),
				candidate("3", "nl", 20),
			},
			want: []string{"tr", "nl", "pl"},
		},
		{
			name:      "truncated to max offers",
			priority:  []string{"en", "es", "fr", "de", "it"},
			maxOffers: 3,
			candidates: []domain.SubtitleCandidate{
				candidate("1", "it", 1),
				candidate("2", "de", 1),
				candidate("3", "fr", 1),
				candidate("4", "es", 1),
				candidate("5", "en", 1),
			},
			want: []string{"en", "es", "fr"},
		},
		{
			name:      "popularity ties keep first seen language",
			priority:  []string{"en"},
			maxOffers: 5,
			candidates: []domain.SubtitleCandidate{
				candidate("1", "sv", 10),
				candidate("2", "da", 10),
			},
			want: []string{"sv", "da"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := New(tt.priority, tt.maxOffers).Select(tt.candidates, "ro")
			assert.Equal(t, tt.want, offerLangs(sel.Offers))
		})
	}
}

func TestSelectTieKeepsFirstCandidate(t *testing.T) {
	sel := New(nil, 5).Select([]domain.SubtitleCandidate{
		candidate("first", "en", 10),
		candidate("second", "en", 10),
	}, "ro")

	require.Len(t, sel.Offers, 1)
	assert.Equal(t, "first", sel.Offers[0].SourceID)
}

func TestSelectEmpty(t *testing.T) {
	sel := New(nil, 5).Select(nil, "ro")
	assert.False(t, sel.IsDirect())
	assert.Empty(t, sel.Offers)
}

func TestNewNormalizesPriority(t *testing.T) {
	s := New([]string{" EN", "es", "en", ""}, 2)
	assert.Equal(t, []string{"en", "es"}, s.Priority())
	assert.Equal(t, 2, s.MaxOffers())
}
