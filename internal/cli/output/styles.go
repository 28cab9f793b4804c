package output

import "github.com/charmbracelet/lipgloss"

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolWarning = "!"
	SymbolError   = "✗"
	SymbolPending = "•"
)

// Palette used by both the CLI and the TUI.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fbbf24"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
)

// Styles holds lipgloss styles bound to one renderer.
type Styles struct {
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Key       lipgloss.Style
	Matched   lipgloss.Style
	Unmatched lipgloss.Style
	Ignored   lipgloss.Style
}

// NewStyles builds the style set for r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:    r.NewStyle().Bold(true).Foreground(ColorPrimary),
		Subheader: r.NewStyle().Bold(true),
		Success:   r.NewStyle().Foreground(ColorSuccess),
		Warning:   r.NewStyle().Foreground(ColorWarning),
		Error:     r.NewStyle().Foreground(ColorError),
		Muted:     r.NewStyle().Foreground(ColorMuted),
		Key:       r.NewStyle().Bold(true),
		Matched:   r.NewStyle().Foreground(ColorSuccess),
		Unmatched: r.NewStyle().Foreground(ColorWarning).Bold(true),
		Ignored:   r.NewStyle().Foreground(ColorMuted).Strikethrough(true),
	}
}
