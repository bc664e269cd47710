package color

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

var (
	HeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	ProcessStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	ComponentStyle = lipgloss.NewStyle().Foreground(ColorInfo)
	FragmentStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	MutedStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Initialize tells lipgloss which background the terminal has so adaptive
// colors pick the right variant.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}
