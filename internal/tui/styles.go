package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/koyif/securevault/internal/vault"
)

// Palette, tuned for dark terminals.
var (
	accent  = lipgloss.Color("#5FAFD7")
	ok      = lipgloss.Color("#5FD787")
	danger  = lipgloss.Color("#FF5F5F")
	caution = lipgloss.Color("#FFD75F")
	dim     = lipgloss.Color("#6C6C6C")
	light   = lipgloss.Color("#EEEEEE")
	panel   = lipgloss.Color("#262626")
)

var (
	appTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(panel).Background(accent).Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(dim).
			PaddingLeft(2).
			MarginBottom(1)

	inputLabelStyle   = lipgloss.NewStyle().Foreground(light)
	focusedLabelStyle = inputLabelStyle.Foreground(accent).Bold(true)

	buttonStyle         = lipgloss.NewStyle().Bold(true).Foreground(panel).Background(ok).Padding(0, 2).MarginRight(1)
	inactiveButtonStyle = lipgloss.NewStyle().Foreground(dim).Background(panel).Padding(0, 2).MarginRight(1)

	successStyle = lipgloss.NewStyle().Foreground(ok)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(caution)

	tabStyle       = lipgloss.NewStyle().Foreground(dim).Padding(0, 1)
	activeTabStyle = tabStyle.Foreground(light).Underline(true).Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	selectedRowStyle = lipgloss.NewStyle().Foreground(light).Background(panel).Bold(true)

	helpStyle  = lipgloss.NewStyle().Foreground(dim).MarginTop(1)
	tipStyle   = lipgloss.NewStyle().Foreground(dim).Italic(true)
	badgeStyle = lipgloss.NewStyle().Padding(0, 1)
)

// usecaseColors gives each usecase a fixed badge color.
var usecaseColors = map[vault.Usecase]lipgloss.Color{
	vault.UsecaseDefault: accent,
	vault.UsecasePrivate: caution,
	vault.UsecaseGaming:  ok,
}

func renderHelp(text string) string {
	return helpStyle.Render(text)
}

func renderUsecaseBadge(u vault.Usecase) string {
	c, found := usecaseColors[u]
	if !found {
		c = dim
	}
	return badgeStyle.Foreground(c).Render(string(u))
}

// renderStatus shows errMsg if set, else okMsg.
func renderStatus(errMsg, okMsg string) string {
	if errMsg != "" {
		return errorStyle.Render("✗ " + errMsg)
	}
	if okMsg != "" {
		return successStyle.Render("✓ " + okMsg)
	}
	return ""
}
