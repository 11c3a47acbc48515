package adapter

import (
	"embed"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var formatterTemplateFS embed.FS

var (
	formatterTemplates *template.Template
	formatterOnce      sync.Once
	formatterErr       error
)

const (
	templateNativeLabel         = "native_label.tmpl"
	templateTranslatedLabel     = "translated_label.tmpl"
	templateManifestName        = "manifest_name.tmpl"
	templateManifestDescription = "manifest_description.tmpl"
)

func executeFormatterTemplate(name string, data any) (string, error) {
	formatterOnce.Do(func() {
		tmpl := template.New("formatter").Option("missingkey=error")
		formatterTemplates, formatterErr = tmpl.ParseFS(formatterTemplateFS, "templates/*.tmpl")
	})

	if formatterErr != nil {
		return "", formatterErr
	}

	var builder strings.Builder
	if err := formatterTemplates.ExecuteTemplate(&builder, name, data); err != nil {
		return "", err
	}

	return strings.TrimRight(builder.String(), "\n"), nil
}
