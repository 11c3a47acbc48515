package prompt

import (
	"strings"
)

// TranslateVars feeds the subtitle translation template.
type TranslateVars struct {
	SourceLanguage string
	TargetLanguage string
	// Separator is the exact string between blocks in Text.
	Separator  string
	BlockCount int
	Text       string
}

type translateTemplateData struct {
	TranslateVars
	SeparatorMark string
}

// BuildSubtitleTranslation renders the prompt sent for one batch of cues.
func BuildSubtitleTranslation(vars TranslateVars) (string, error) {
	mark := strings.TrimSpace(vars.Separator)
	if mark == "" {
		mark = "---"
	}

	return DefaultPromptBuilder().Render(TemplateSubtitleTranslation, translateTemplateData{
		TranslateVars: vars,
		SeparatorMark: mark,
	})
}
