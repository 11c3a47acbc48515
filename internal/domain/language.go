package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SupportedLanguages maps the searchable/selectable codes to their native names.
var SupportedLanguages = map[string]string{
	"ro": "Română",
	"en": "English",
	"es": "Español",
	"fr": "Français",
	"de": "Deutsch",
	"it": "Italiano",
	"pt": "Português",
	"ru": "Русский",
	"ar": "العربية",
	"zh": "中文",
	"ja": "日本語",
	"ko": "한국어",
	"hi": "हिन्दी",
	"tr": "Türkçe",
	"pl": "Polski",
	"nl": "Nederlands",
	"sv": "Svenska",
	"no": "Norsk",
	"da": "Dansk",
	"fi": "Suomi",
}

// englishNames is what the translation backend is told, keyed by ISO 639-1 code.
var englishNames = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "ru": "Russian", "ar": "Arabic",
	"zh": "Chinese", "ja": "Japanese", "ko": "Korean", "hi": "Hindi",
	"tr": "Turkish", "pl": "Polish", "nl": "Dutch", "sv": "Swedish",
	"no": "Norwegian", "da": "Danish", "fi": "Finnish", "ro": "Romanian",
	"cs": "Czech", "el": "Greek", "he": "Hebrew", "hu": "Hungarian",
	"id": "Indonesian", "ms": "Malay", "th": "Thai", "vi": "Vietnamese",
	"uk": "Ukrainian", "bg": "Bulgarian", "hr": "Croatian", "sr": "Serbian",
	"sk": "Slovak", "sl": "Slovenian", "et": "Estonian", "lv": "Latvian",
	"lt": "Lithuanian", "fa": "Persian", "ur": "Urdu", "bn": "Bengali",
	"ta": "Tamil", "te": "Telugu", "ml": "Malayalam", "kn": "Kannada",
}

var englishNamer = display.Languages(language.English)

// NormalizeLanguage lowercases and trims a language code.
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsSupportedLanguage reports whether code is one of the selectable languages.
func IsSupportedLanguage(code string) bool {
	_, ok := SupportedLanguages[NormalizeLanguage(code)]
	return ok
}

// SupportedLanguageCodes returns the selectable codes sorted alphabetically.
func SupportedLanguageCodes() []string {
	codes := make([]string, 0, len(SupportedLanguages))
	for code := range SupportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageName returns the English name of code, e.g. "ro" -> "Romanian".
// Unknown codes fall back to the CLDR name, then to the upper-cased code.
func LanguageName(code string) string {
	code = NormalizeLanguage(code)
	if name, ok := englishNames[code]; ok {
		return name
	}
	if tag, err := language.Parse(code); err == nil {
		if name := englishNamer.Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

// NativeName returns the label shown to viewers, e.g. "ro" -> "Română".
func NativeName(code string) string {
	code = NormalizeLanguage(code)
	if name, ok := SupportedLanguages[code]; ok {
		return name
	}
	if tag, err := language.Parse(code); err == nil {
		if name := display.Self.Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
