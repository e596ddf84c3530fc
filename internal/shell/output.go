package shell

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer is the styled output sink of a session. Each method writes text
// as-is in one style channel; callers include their own newlines.
type Printer interface {
	Normal(text string)
	Section(text string)
	Emphasis(text string)
	Code(text string)
	Important(text string)
	Error(text string)
}

// Palette colors shared with the interactive front-end.
var (
	colorPrimary     = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	colorCode        = lipgloss.AdaptiveColor{Light: "#29434e", Dark: "#4db6ac"}
	colorImportant   = lipgloss.Color("#FFC107")
	colorDestructive = lipgloss.Color("#e53935")
)

// Styles holds one lipgloss style per output channel.
type Styles struct {
	Section   lipgloss.Style
	Emphasis  lipgloss.Style
	Code      lipgloss.Style
	Important lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the terminal styles.
func DefaultStyles() Styles {
	return Styles{
		Section:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Emphasis:  lipgloss.NewStyle().Bold(true),
		Code:      lipgloss.NewStyle().Foreground(colorCode),
		Important: lipgloss.NewStyle().Bold(true).Foreground(colorImportant),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(colorDestructive),
	}
}

// TerminalPrinter renders every channel except Normal through lipgloss.
type TerminalPrinter struct {
	w      io.Writer
	styles Styles
}

// NewTerminalPrinter returns a printer with DefaultStyles writing to w.
func NewTerminalPrinter(w io.Writer) *TerminalPrinter {
	return &TerminalPrinter{w: w, styles: DefaultStyles()}
}

// render styles each line separately so that newlines stay unstyled and
// lipgloss does not pad multi-line blocks.
func (p *TerminalPrinter) render(style lipgloss.Style, text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			io.WriteString(p.w, style.Render(line))
		}
		if i < len(lines)-1 {
			io.WriteString(p.w, "\n")
		}
	}
}

func (p *TerminalPrinter) Normal(text string)    { io.WriteString(p.w, text) }
func (p *TerminalPrinter) Section(text string)   { p.render(p.styles.Section, text) }
func (p *TerminalPrinter) Emphasis(text string)  { p.render(p.styles.Emphasis, text) }
func (p *TerminalPrinter) Code(text string)      { p.render(p.styles.Code, text) }
func (p *TerminalPrinter) Important(text string) { p.render(p.styles.Important, text) }
func (p *TerminalPrinter) Error(text string)     { p.render(p.styles.Error, text) }

// PlainPrinter writes every channel unstyled.
type PlainPrinter struct {
	w io.Writer
}

// NewPlainPrinter returns a printer writing unstyled text to w.
func NewPlainPrinter(w io.Writer) *PlainPrinter {
	return &PlainPrinter{w: w}
}

func (p *PlainPrinter) Normal(text string)    { io.WriteString(p.w, text) }
func (p *PlainPrinter) Section(text string)   { io.WriteString(p.w, text) }
func (p *PlainPrinter) Emphasis(text string)  { io.WriteString(p.w, text) }
func (p *PlainPrinter) Code(text string)      { io.WriteString(p.w, text) }
func (p *PlainPrinter) Important(text string) { io.WriteString(p.w, text) }
func (p *PlainPrinter) Error(text string)     { io.WriteString(p.w, text) }
