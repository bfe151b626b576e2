package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme is the palette result output is drawn in.
type Theme struct {
	Accent  lipgloss.Color // titles and test IDs
	Label   lipgloss.Color // field labels
	Dim     lipgloss.Color // sources, borders
	Good    lipgloss.Color
	Caution lipgloss.Color
	Bad     lipgloss.Color
}

// DefaultTheme is tuned for dark terminals.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  "#7C3AED",
		Label:   "#06B6D4",
		Dim:     "#6C7086",
		Good:    "#A6E3A1",
		Caution: "#F9E2AF",
		Bad:     "#F38BA8",
	}
}

// Styles are the renderers used for cases, health and settings output.
// Positive and Negative tag test case kinds; Box frames a case header.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Positive lipgloss.Style
	Negative lipgloss.Style
	Warning  lipgloss.Style
	Box      lipgloss.Style
}

// NewStyles builds coloured styles from theme, or DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.Label).Bold(true),
		Muted:    fg(theme.Dim),
		Positive: fg(theme.Good),
		Negative: fg(theme.Bad),
		Warning:  fg(theme.Caution),
		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Dim).
			Padding(0, 1),
	}
}

// PlainStyles render text unchanged, for pipes and files.
func PlainStyles() *Styles {
	p := lipgloss.NewStyle()
	return &Styles{Title: p, Subtitle: p, Muted: p, Positive: p, Negative: p, Warning: p, Box: p}
}

// stylesFor colours output only when w is a terminal and NO_COLOR is unset.
func stylesFor(w io.Writer) *Styles {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return PlainStyles()
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return PlainStyles()
	}
	return NewStyles(DefaultTheme())
}
