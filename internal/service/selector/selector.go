package selector

import (
	"sort"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
)

// Selection is either a set of native-language tracks or a ranked list of translation offers.
type Selection struct {
	Direct []domain.SubtitleCandidate
	Offers []domain.Offer
}

// IsDirect reports whether a track in the preferred language exists.
func (s Selection) IsDirect() bool {
	return len(s.Direct) > 0
}

// Selector decides which tracks are worth translating when no native track exists.
type Selector struct {
	priority  []string
	maxOffers int
}

// New builds a Selector. An empty priority list or a non-positive maxOffers falls back to defaults.
func New(priority []string, maxOffers int) *Selector {
	if len(priority) == 0 {
		priority = constants.SelectorDefaults.Priority
	}
	if maxOffers <= 0 {
		maxOffers = constants.SelectorDefaults.MaxOffers
	}

	normalized := make([]string, 0, len(priority))
	seen := make(map[string]struct{}, len(priority))
	for _, lang := range priority {
		lang = domain.NormalizeLanguage(lang)
		if lang == "" {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		normalized = append(normalized, lang)
	}

	return &Selector{priority: normalized, maxOffers: maxOffers}
}

func (s *Selector) Priority() []string {
	return append([]string(nil), s.priority...)
}

func (s *Selector) MaxOffers() int {
	return s.maxOffers
}

// Select returns the native tracks for preferred if any exist; otherwise it keeps
// the most popular track per language and emits at most MaxOffers ranked offers.
func (s *Selector) Select(candidates []domain.SubtitleCandidate, preferred string) Selection {
	preferred = domain.NormalizeLanguage(preferred)

	var direct []domain.SubtitleCandidate
	for _, c := range candidates {
		if domain.NormalizeLanguage(c.Language) == preferred {
			direct = append(direct, c)
		}
	}
	if len(direct) > 0 {
		return Selection{Direct: direct}
	}

	best := bestPerLanguage(candidates)
	ranked := s.rank(best)

	if len(ranked) > s.maxOffers {
		ranked = ranked[:s.maxOffers]
	}

	offers := make([]domain.Offer, 0, len(ranked))
	for _, c := range ranked {
		offers = append(offers, domain.Offer{
			Kind:       domain.OfferTranslated,
			SourceID:   c.SourceID,
			SourceLang: domain.NormalizeLanguage(c.Language),
			TargetLang: preferred,
			Candidate:  c,
		})
	}

	return Selection{Offers: offers}
}

// bestPerLanguage keeps the highest-popularity candidate per language in first-seen language order.
// Ties keep the earlier candidate.
func bestPerLanguage(candidates []domain.SubtitleCandidate) []domain.SubtitleCandidate {
	index := make(map[string]int)
	var best []domain.SubtitleCandidate

	for _, c := range candidates {
		lang := domain.NormalizeLanguage(c.Language)
		if lang == "" {
			continue
		}
		i, ok := index[lang]
		if !ok {
			index[lang] = len(best)
			best = append(best, c)
			continue
		}
		if c.Popularity > best[i].Popularity {
			best[i] = c
		}
	}

	return best
}

func (s *Selector) rank(best []domain.SubtitleCandidate) []domain.SubtitleCandidate {
	byLang := make(map[string]domain.SubtitleCandidate, len(best))
	for _, c := range best {
		byLang[domain.NormalizeLanguage(c.Language)] = c
	}

	ranked := make([]domain.SubtitleCandidate, 0, len(best))
	inPriority := make(map[string]struct{}, len(s.priority))
	for _, lang := range s.priority {
		inPriority[lang] = struct{}{}
		if c, ok := byLang[lang]; ok {
			ranked = append(ranked, c)
		}
	}

	var others []domain.SubtitleCandidate
	for _, c := range best {
		if _, ok := inPriority[domain.NormalizeLanguage(c.Language)]; !ok {
			others = append(others, c)
		}
	}
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].Popularity > others[j].Popularity
	})

	return append(ranked, others...)
}
