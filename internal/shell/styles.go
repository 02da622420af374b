package shell

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Color modes accepted by UseColor.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const (
	headingColor = "#7C3AED"
	successColor = "#10B981"
	warningColor = "#F59E0B"
	errorColor   = "#EF4444"
	dimColor     = "#6B7280"
)

// Styles decorates shell output. The zero value prints plain text.
type Styles struct {
	enabled bool
	heading lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
}

// PlainStyles returns styles that leave text untouched.
func PlainStyles() Styles {
	return Styles{}
}

// ColorStyles returns styles rendering ANSI colours to w.
func ColorStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI256)
	return Styles{
		enabled: true,
		heading: r.NewStyle().Foreground(lipgloss.Color(headingColor)).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color(successColor)),
		warning: r.NewStyle().Foreground(lipgloss.Color(warningColor)),
		failure: r.NewStyle().Foreground(lipgloss.Color(errorColor)).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color(dimColor)),
	}
}

// StylesFor picks plain or coloured styles for mode and w.
func StylesFor(mode string, w io.Writer) Styles {
	if UseColor(mode, w) {
		return ColorStyles(w)
	}
	return PlainStyles()
}

// UseColor resolves a colour mode. In auto mode colour is used only when w is a
// terminal and NO_COLOR is unset.
func UseColor(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s Styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func (s Styles) Heading(text string) string { return s.render(s.heading, text) }
func (s Styles) Success(text string) string { return s.render(s.success, text) }
func (s Styles) Warning(text string) string { return s.render(s.warning, text) }
func (s Styles) Failure(text string) string { return s.render(s.failure, text) }
func (s Styles) Dim(text string) string     { return s.render(s.dim, text) }
