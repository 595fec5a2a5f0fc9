package tui

import "github.com/charmbracelet/lipgloss"

// Palette. InitializeSkin may replace these before the program starts.
var (
	ColorNavy   = lipgloss.Color("#0b1d3a")
	ColorWhite  = lipgloss.Color("#f5f5f5")
	ColorGray   = lipgloss.Color("#6b7280")
	ColorNormal = lipgloss.Color("#22c55e")
	ColorAlert  = lipgloss.Color("#ef4444")
	ColorIdle   = lipgloss.Color("#6b7280")
	ColorBorder = lipgloss.Color("#374151")
	ColorFocus  = lipgloss.Color("#38bdf8")
)

var (
	sectionStyle       lipgloss.Style
	activeSectionStyle lipgloss.Style
	deckTitleStyle     lipgloss.Style
	chartTitleStyle    lipgloss.Style
	helpStyle          lipgloss.Style
	statusStyle        lipgloss.Style
	labelStyle         lipgloss.Style
	valueStyle         lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles derives the component styles from the palette.
func rebuildStyles() {
	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)
	activeSectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFocus)
	deckTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	chartTitleStyle = deckTitleStyle
	helpStyle = lipgloss.NewStyle().Foreground(ColorGray)
	statusStyle = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
	labelStyle = lipgloss.NewStyle().Foreground(ColorGray)
	valueStyle = lipgloss.NewStyle().Foreground(ColorWhite).Bold(true)
}

// toneColor maps a monitor tone to its palette color.
func toneColor(tone string) lipgloss.Color {
	switch tone {
	case "normal":
		return ColorNormal
	case "alert":
		return ColorAlert
	default:
		return ColorIdle
	}
}
