// Package render formats match reports and catalog entries for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/matcher"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	EmptyInputMessage  = "Please enter at least one symptom."
	NoMatchMessage     = "No matching diseases found. Try different symptoms or consult a doctor."
	SevereAlertMessage = "⚠️ Some possible diseases are severe. Please consult a doctor immediately."
	ResultsHeading     = "🔍 Possible Conditions Found:"
	divider            = "---"
)

var (
	alertColor   = lipgloss.Color("#e53935")
	warningColor = lipgloss.Color("#FFC107")
	infoColor    = lipgloss.Color("#2196F3")
	accentColor  = lipgloss.Color("#8BC34A")
	mutedColor   = lipgloss.Color("#6b7280")
)

// Renderer writes styled output to w. Colors are dropped automatically when
// w is not a terminal.
type Renderer struct {
	w       io.Writer
	heading lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	alert   lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
}

func New(w io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:       w,
		heading: lr.NewStyle().Bold(true).Foreground(infoColor),
		title:   lr.NewStyle().Bold(true).Foreground(accentColor),
		label:   lr.NewStyle().Bold(true),
		alert:   lr.NewStyle().Bold(true).Foreground(alertColor),
		warning: lr.NewStyle().Foreground(warningColor),
		info:    lr.NewStyle().Foreground(infoColor),
		muted:   lr.NewStyle().Foreground(mutedColor),
	}
}

// Report prints a ranked result list followed by the severe alert, or the
// no-match hint when nothing scored.
func (r *Renderer) Report(rep *matcher.Report) error {
	var b strings.Builder
	if rep.Empty() {
		b.WriteString(r.info.Render(NoMatchMessage))
		b.WriteByte('\n')
		return r.flush(&b)
	}
	b.WriteString(r.heading.Render(ResultsHeading))
	b.WriteString("\n\n")
	for _, res := range rep.Results {
		r.writeCard(&b, fmt.Sprintf("🩺 %s (Match Score: %d)", res.Disease, res.Score),
			res.Severity, res.Description, res.Symptoms, res.Precautions)
		b.WriteString(r.muted.Render(divider))
		b.WriteByte('\n')
	}
	if rep.SevereAlert {
		b.WriteByte('\n')
		b.WriteString(r.alert.Render(SevereAlertMessage))
		b.WriteByte('\n')
	}
	return r.flush(&b)
}

// Disease prints one catalog entry's details.
func (r *Renderer) Disease(e catalog.DiseaseEntry) error {
	var b strings.Builder
	r.writeCard(&b, "🩺 "+e.Name, e.Severity, e.Description, e.RawSymptoms, e.Precautions)
	return r.flush(&b)
}

// Names prints the catalog's disease names, one per line.
func (r *Renderer) Names(names []string) error {
	var b strings.Builder
	b.WriteString(r.heading.Render("📂 Browse Common Diseases"))
	b.WriteByte('\n')
	for _, n := range names {
		b.WriteString("  • ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return r.flush(&b)
}

func (r *Renderer) EmptyInput() error {
	_, err := fmt.Fprintln(r.w, r.warning.Render(EmptyInputMessage))
	return err
}

func (r *Renderer) Advice(text string) error {
	var b strings.Builder
	b.WriteString(r.heading.Render("💬 AI Health Assistant"))
	b.WriteByte('\n')
	b.WriteString(text)
	b.WriteByte('\n')
	return r.flush(&b)
}

func (r *Renderer) writeCard(b *strings.Builder, title, severity, description, symptoms, precautions string) {
	b.WriteString(r.title.Render(title))
	b.WriteByte('\n')
	r.writeField(b, "Severity", Capitalize(severity))
	r.writeField(b, "Description", description)
	r.writeField(b, "Symptoms", symptoms)
	r.writeField(b, "Precautions", FormatPrecautions(precautions))
}

func (r *Renderer) writeField(b *strings.Builder, name, value string) {
	b.WriteString(r.label.Render(name + ":"))
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func (r *Renderer) flush(b *strings.Builder) error {
	_, err := io.WriteString(r.w, b.String())
	return err
}

// Capitalize upper-cases the first letter and lower-cases the rest, so
// "SEVERE" and "severe" both display as "Severe".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:])
}

// FormatPrecautions spaces out the semicolon-separated precaution list.
func FormatPrecautions(s string) string {
	return strings.ReplaceAll(s, ";", " ; ")
}
