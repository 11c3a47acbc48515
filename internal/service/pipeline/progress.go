package pipeline

import (
	"time"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/translation"
)

type Stage string

const (
	StageStarted Stage = "started"
	StageBatch   Stage = "batch"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// ProgressEvent describes how far one translation has come.
type ProgressEvent struct {
	Stage      Stage     `json:"stage"`
	CacheKey   string    `json:"cacheKey"`
	SourceID   string    `json:"fileId"`
	SourceLang string    `json:"sourceLang"`
	TargetLang string    `json:"targetLang"`
	Batch      int       `json:"batch,omitempty"`
	Batches    int       `json:"batches,omitempty"`
	CuesDone   int       `json:"cuesDone,omitempty"`
	Cues       int       `json:"cues,omitempty"`
	Degraded   bool      `json:"degraded,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressPublisher delivers events to whoever watches an account. Publish must not block.
type ProgressPublisher interface {
	Publish(apiKey string, event ProgressEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, ProgressEvent) {}

func newEvent(req domain.TranslationRequest, key string) ProgressEvent {
	return ProgressEvent{
		CacheKey:   key,
		SourceID:   req.SourceID,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}
}

func (e ProgressEvent) with(stage Stage) ProgressEvent {
	e.Stage = stage
	e.Timestamp = time.Now()
	return e
}

func (e ProgressEvent) withProgress(p translation.Progress) ProgressEvent {
	e = e.with(StageBatch)
	e.Batch = p.Batch
	e.Batches = p.Batches
	e.CuesDone = p.CuesDone
	e.Cues = p.Cues
	e.Degraded = p.Degraded
	return e
}
