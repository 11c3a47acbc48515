package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// TranslationCacheEntry is a finished translated document plus usage accounting.
type TranslationCacheEntry struct {
	Key        string    `json:"cacheKey"`
	SourceID   string    `json:"fileId"`
	SourceLang string    `json:"sourceLang"`
	TargetLang string    `json:"targetLang"`
	Document   string    `json:"translatedContent"`
	UsageCount int64     `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsed"`
}

// CacheKey is md5("{sourceID}-{sourceLang}-{targetLang}") in hex.
func CacheKey(sourceID, sourceLang, targetLang string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s-%s", sourceID, sourceLang, targetLang)))
	return hex.EncodeToString(sum[:])
}

// NewTranslationCacheEntry builds a fresh entry with usageCount 1 for the request that produced it.
func NewTranslationCacheEntry(req TranslationRequest, document string, now time.Time) TranslationCacheEntry {
	return TranslationCacheEntry{
		Key:        req.CacheKey(),
		SourceID:   req.SourceID,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Document:   document,
		UsageCount: 1,
		CreatedAt:  now,
		LastUsedAt: now,
	}
}

func (e *TranslationCacheEntry) Expired(retention time.Duration, now time.Time) bool {
	return retention > 0 && now.Sub(e.CreatedAt) > retention
}
