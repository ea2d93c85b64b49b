// Package tui is the interactive terminal browser for the vault.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/tip"
	"github.com/koyif/securevault/internal/vault"
)

// ScreenType represents the different screens in the TUI
type ScreenType int

const (
	ScreenList ScreenType = iota
	ScreenDetail
	ScreenCreate
	ScreenEdit
)

// Model represents the main TUI application model
type Model struct {
	ctx    context.Context
	store  *vault.Store
	gen    passgen.Options
	tipper *tip.Resilient

	currentScreen ScreenType

	listScreen   *ListScreen
	detailScreen *DetailScreen
	formScreen   *FormScreen

	// Terminal dimensions
	width  int
	height int
}

// NewModel creates a new TUI application model. tipper may be nil.
func NewModel(ctx context.Context, store *vault.Store, gen passgen.Options, tipper *tip.Resilient) *Model {
	return &Model{
		ctx:           ctx,
		store:         store,
		gen:           gen,
		tipper:        tipper,
		currentScreen: ScreenList,
		listScreen:    NewListScreen(ctx, store, gen, tipper),
	}
}

// Init initializes the TUI application
func (m *Model) Init() tea.Cmd {
	return m.listScreen.Init()
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global quit shortcut
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case NavigateMsg:
		return m.handleNavigation(msg)
	}

	var cmd tea.Cmd
	switch m.currentScreen {
	case ScreenList:
		m.listScreen, cmd = m.listScreen.Update(msg)
	case ScreenDetail:
		m.detailScreen, cmd = m.detailScreen.Update(msg)
	case ScreenCreate, ScreenEdit:
		m.formScreen, cmd = m.formScreen.Update(msg)
	}

	return m, cmd
}

// View renders the current screen
func (m *Model) View() string {
	switch m.currentScreen {
	case ScreenList:
		return m.listScreen.View()
	case ScreenDetail:
		return m.detailScreen.View()
	case ScreenCreate, ScreenEdit:
		return m.formScreen.View()
	default:
		return "Unknown screen"
	}
}

// Screen returns the active screen.
func (m *Model) Screen() ScreenType {
	return m.currentScreen
}

// handleNavigation handles screen navigation
func (m *Model) handleNavigation(msg NavigateMsg) (tea.Model, tea.Cmd) {
	switch msg.Screen {
	case ScreenList:
		m.currentScreen = ScreenList
		m.listScreen.reload()
		if msg.Notice != "" {
			m.listScreen.successMsg = msg.Notice
			m.listScreen.errorMsg = ""
		}
		return m, nil

	case ScreenDetail:
		entry, ok := msg.Data.(vault.Entry)
		if !ok {
			return m, nil
		}
		m.currentScreen = ScreenDetail
		m.detailScreen = NewDetailScreen(m.ctx, m.store, entry)
		return m, nil

	case ScreenCreate:
		category, _ := msg.Data.(vault.Category)
		m.currentScreen = ScreenCreate
		m.formScreen = NewCreateScreen(m.ctx, m.store, m.gen, category)
		return m, m.formScreen.Init()

	case ScreenEdit:
		entry, ok := msg.Data.(vault.Entry)
		if !ok {
			return m, nil
		}
		m.currentScreen = ScreenEdit
		m.formScreen = NewEditScreen(m.ctx, m.store, m.gen, entry)
		return m, m.formScreen.Init()
	}

	return m, nil
}

// NavigateMsg is a message to navigate to a different screen
type NavigateMsg struct {
	Screen ScreenType
	// Data is the entry for ScreenDetail and ScreenEdit, or the preselected category
	// for ScreenCreate.
	Data any
	// Notice is shown on the list screen after navigating back.
	Notice string
}

type errorMsg struct {
	error
}

type tipMsg struct {
	tip string
}

func navigate(msg NavigateMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}
