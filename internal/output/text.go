package output

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/fatih/color"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/vault"
)

// TextFormatter formats data as human-readable text with color
type TextFormatter struct {
	entryTemplate     *template.Template
	generatedTemplate *template.Template
	statsTemplate     *template.Template
}

// NewTextFormatter creates a new text formatter with color support
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		entryTemplate:     template.Must(template.New("entry").Funcs(templateFuncs()).Parse(entryTemplate)),
		generatedTemplate: template.Must(template.New("generated").Funcs(templateFuncs()).Parse(generatedTemplate)),
		statsTemplate:     template.Must(template.New("stats").Funcs(templateFuncs()).Parse(statsTemplate)),
	}
}

// templateFuncs returns template functions for formatting
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"bold":    color.New(color.Bold).Sprint,
		"faint":   color.New(color.Faint).Sprint,
		"cyan":    color.CyanString,
		"green":   color.GreenString,
		"yellow":  color.YellowString,
		"red":     color.RedString,
		"title":   title,
		"usecase": usecaseBadge,
		"strength": func(label string) string {
			switch label {
			case passgen.StrengthWeak:
				return color.RedString(label)
			case passgen.StrengthFair:
				return color.YellowString(label)
			default:
				return color.GreenString(label)
			}
		},
	}
}

func usecaseBadge(u string) string {
	switch vault.Usecase(u) {
	case vault.UsecasePrivate:
		return color.MagentaString(u)
	case vault.UsecaseGaming:
		return color.GreenString(u)
	default:
		return color.BlueString(u)
	}
}

// Format formats a single item as text
func (f *TextFormatter) Format(data any) (string, error) {
	switch v := data.(type) {
	case EntryView:
		return f.formatTemplate(f.entryTemplate, v)
	case *EntryView:
		return f.formatTemplate(f.entryTemplate, v)
	case GeneratedView:
		return f.formatTemplate(f.generatedTemplate, v)
	case StatsView:
		return f.formatTemplate(f.statsTemplate, v)
	case vault.ImportResult:
		return v.String() + "\n", nil
	default:
		return fmt.Sprintf("%+v\n", data), nil
	}
}

// FormatList formats a list of items as text
func (f *TextFormatter) FormatList(data any) (string, error) {
	switch v := data.(type) {
	case []EntryView:
		return f.formatEntries(v), nil
	default:
		return fmt.Sprintf("%+v\n", data), nil
	}
}

// formatTemplate applies a template to data
func (f *TextFormatter) formatTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// Fallback to JSON on template error
		return jsonFormatter.Format(data)
	}
	return buf.String(), nil
}

// formatEntries renders entries grouped under their category headings.
func (f *TextFormatter) formatEntries(items []EntryView) string {
	if len(items) == 0 {
		return "No entries found\n"
	}

	var buf bytes.Buffer
	bold := color.New(color.Bold).Sprint
	faint := color.New(color.Faint).Sprint

	for _, c := range vault.Categories() {
		var group []EntryView
		for _, item := range items {
			if item.Category == string(c) {
				group = append(group, item)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "\n%s (%d):\n\n", bold(title(string(c))), len(group))
		for _, item := range group {
			fmt.Fprintf(&buf, "  %s %s  %s\n", bold(item.Username), usecaseBadge(item.Usecase), item.Password)
			if item.Remark != "" {
				fmt.Fprintf(&buf, "    %s\n", item.Remark)
			}
			fmt.Fprintf(&buf, "    ID: %s  Created: %s\n\n", faint(item.ID), item.CreatedAt)
		}
	}

	return buf.String()
}

// Templates

const entryTemplate = `
{{ bold "Entry:" }} {{ cyan .Username }}
{{ bold "ID:" }} {{ .ID }}
{{ bold "Category:" }} {{ title .Category }}
{{ bold "Usecase:" }} {{ usecase .Usecase }}
{{ bold "Password:" }} {{ .Password }}
{{- if .Remark }}
{{ bold "Remark:" }} {{ .Remark }}
{{- end }}

{{ bold "Created:" }} {{ .CreatedAt }}
`

const generatedTemplate = `{{ bold .Password }}
{{ faint "length" }} {{ .Length }}  {{ faint "entropy" }} {{ .Bits }} bits  {{ faint "strength" }} {{ strength .Strength }}
`

const statsTemplate = `{{ bold "Website:" }}  {{ .Website }}
{{ bold "Email:" }}    {{ .Email }}
{{ bold "Username:" }} {{ .Username }}
{{ bold "Total:" }}    {{ .Total }}
{{ bold "PIN:" }}      {{ if .PINSet }}{{ green "set, entries encrypted at rest" }}{{ else }}{{ yellow "not set, entries stored in cleartext" }}{{ end }}
`
