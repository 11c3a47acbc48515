package domain

type OfferKind string

const (
	OfferDirect     OfferKind = "native"
	OfferTranslated OfferKind = "translated"
)

// Offer is a subtitle the viewer may pick: a native track or a lazy translation.
type Offer struct {
	Kind       OfferKind         `json:"kind"`
	SourceID   string            `json:"sourceId"`
	SourceLang string            `json:"sourceLang"`
	TargetLang string            `json:"targetLang"`
	Candidate  SubtitleCandidate `json:"candidate"`
}

// TranslationRequest names the work behind a translated offer.
type TranslationRequest struct {
	SourceID   string `json:"sourceId"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

func (r TranslationRequest) CacheKey() string {
	return CacheKey(r.SourceID, r.SourceLang, r.TargetLang)
}
