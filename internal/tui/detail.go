package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/vault"
)

const passwordMask = "••••••••"

// DetailScreen shows one entry.
type DetailScreen struct {
	ctx   context.Context
	store *vault.Store
	entry vault.Entry

	showPassword  bool
	confirmDelete bool
	errorMsg      string
}

// NewDetailScreen creates a new detail screen
func NewDetailScreen(ctx context.Context, store *vault.Store, entry vault.Entry) *DetailScreen {
	return &DetailScreen{
		ctx:   ctx,
		store: store,
		entry: entry,
	}
}

// Revealed reports whether the password is shown in clear.
func (s *DetailScreen) Revealed() bool {
	return s.showPassword
}

// Update handles messages
func (s *DetailScreen) Update(msg tea.Msg) (*DetailScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.confirmDelete {
			s.confirmDelete = false
			if msg.String() == "y" || msg.String() == "Y" {
				return s, deleteEntryCmd(s.ctx, s.store, s.entry)
			}
			return s, nil
		}

		switch msg.String() {
		case "q":
			return s, tea.Quit

		case "esc", "backspace":
			return s, navigate(NavigateMsg{Screen: ScreenList})

		case "e":
			return s, navigate(NavigateMsg{Screen: ScreenEdit, Data: s.entry})

		case "d":
			s.confirmDelete = true
			return s, nil

		case "p", " ":
			s.showPassword = !s.showPassword
			return s, nil
		}

	case deletedMsg:
		return s, navigate(NavigateMsg{
			Screen: ScreenList,
			Notice: fmt.Sprintf("Entry '%s' deleted", msg.username),
		})

	case errorMsg:
		s.errorMsg = msg.Error()
		return s, nil
	}

	return s, nil
}

// View renders the detail screen
func (s *DetailScreen) View() string {
	header := appTitleStyle.Render("🔐 SecureVault - Entry")

	password := passwordMask
	if s.showPassword {
		password = s.entry.Password.Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", inputLabelStyle.Render("Category:"), titleCase(string(s.entry.Category)))
	fmt.Fprintf(&b, "%s %s\n", inputLabelStyle.Render("Username:"), s.entry.Username)
	fmt.Fprintf(&b, "%s %s", inputLabelStyle.Render("Password:"), password)
	if s.showPassword {
		_, label := passgen.Strength(s.entry.Password.Value)
		fmt.Fprintf(&b, "  (%s)", label)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", inputLabelStyle.Render("Usecase:"), renderUsecaseBadge(s.entry.Usecase))
	if s.entry.Remark != "" {
		fmt.Fprintf(&b, "%s %s\n", inputLabelStyle.Render("Remark:"), s.entry.Remark)
	}
	fmt.Fprintf(&b, "%s %s\n", inputLabelStyle.Render("Created:"), formatDate(s.entry))
	fmt.Fprintf(&b, "%s %s", inputLabelStyle.Render("ID:"), s.entry.ID)

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		titleStyle.Render(s.entry.Username),
		containerStyle.Render(b.String()),
	)

	if s.confirmDelete {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			warningStyle.Render("⚠ Delete this entry? y to confirm, any other key to cancel"))
	}

	if status := renderStatus(s.errorMsg, ""); status != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, content,
		renderHelp("p: show/hide password • e: edit • d: delete • esc: back • q: quit"))
}
