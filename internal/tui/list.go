package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/tip"
	"github.com/koyif/securevault/internal/vault"
)

// usecaseCycle is the order the usecase filter steps through.
var usecaseCycle = []vault.Usecase{vault.UsecaseAll, vault.UsecaseDefault, vault.UsecasePrivate, vault.UsecaseGaming}

// ListScreen shows the entries of one category with usecase and search filters.
type ListScreen struct {
	ctx    context.Context
	store  *vault.Store
	gen    passgen.Options
	tipper *tip.Resilient

	// UI components
	table       table.Model
	searchInput textinput.Model

	// Filter state
	categoryIdx int
	usecaseIdx  int
	searchQuery string

	// Data
	entries []vault.Entry
	counts  map[vault.Category]int

	// State
	searchMode    bool
	confirmDelete bool
	generated     string
	tip           string
	errorMsg      string
	successMsg    string
}

// NewListScreen creates a new list screen
func NewListScreen(ctx context.Context, store *vault.Store, gen passgen.Options, tipper *tip.Resilient) *ListScreen {
	s := &ListScreen{
		ctx:    ctx,
		store:  store,
		gen:    gen,
		tipper: tipper,
	}

	s.searchInput = textinput.New()
	s.searchInput.Placeholder = "Search username or remark..."
	s.searchInput.CharLimit = 100
	s.searchInput.Width = 40

	s.initTable()
	s.reload()

	return s
}

// Init fetches the first tip
func (s *ListScreen) Init() tea.Cmd {
	return s.fetchTipCmd()
}

// Category returns the selected category tab.
func (s *ListScreen) Category() vault.Category {
	return vault.Categories()[s.categoryIdx]
}

// Usecase returns the active usecase filter.
func (s *ListScreen) Usecase() vault.Usecase {
	return usecaseCycle[s.usecaseIdx]
}

// Entries returns the entries currently shown.
func (s *ListScreen) Entries() []vault.Entry {
	return s.entries
}

// Update handles messages
func (s *ListScreen) Update(msg tea.Msg) (*ListScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s.searchMode {
			return s.handleSearchMode(msg)
		}
		if s.confirmDelete {
			return s.handleConfirmMode(msg)
		}
		return s.handleNormalMode(msg)

	case tipMsg:
		s.tip = msg.tip
		return s, nil

	case deletedMsg:
		s.reload()
		s.errorMsg = ""
		s.successMsg = fmt.Sprintf("Entry '%s' deleted", msg.username)
		return s, nil

	case errorMsg:
		s.successMsg = ""
		s.errorMsg = msg.Error()
		return s, nil
	}

	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return s, cmd
}

// handleNormalMode handles key input in normal mode
func (s *ListScreen) handleNormalMode(msg tea.KeyMsg) (*ListScreen, tea.Cmd) {
	switch msg.String() {
	case "q":
		return s, tea.Quit

	case "tab", "right", "l":
		s.selectCategory(s.categoryIdx + 1)
		return s, nil

	case "shift+tab", "left", "h":
		s.selectCategory(s.categoryIdx - 1)
		return s, nil

	case "1", "2", "3":
		s.selectCategory(int(msg.String()[0] - '1'))
		return s, nil

	case "u":
		s.usecaseIdx = (s.usecaseIdx + 1) % len(usecaseCycle)
		s.reload()
		return s, nil

	case "/":
		s.searchMode = true
		s.searchInput.SetValue(s.searchQuery)
		s.searchInput.Focus()
		return s, textinput.Blink

	case "esc":
		if s.searchQuery != "" {
			s.searchQuery = ""
			s.reload()
		}
		return s, nil

	case "enter":
		if entry, ok := s.selected(); ok {
			return s, navigate(NavigateMsg{Screen: ScreenDetail, Data: entry})
		}
		return s, nil

	case "n":
		return s, navigate(NavigateMsg{Screen: ScreenCreate, Data: s.Category()})

	case "d":
		if _, ok := s.selected(); ok {
			s.confirmDelete = true
		}
		return s, nil

	case "g":
		pw, err := passgen.New(nil).Generate(s.gen)
		if err != nil {
			s.errorMsg = err.Error()
			return s, nil
		}
		s.generated = pw
		return s, nil

	case "t":
		return s, s.fetchTipCmd()

	case "r":
		s.reload()
		return s, nil
	}

	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return s, cmd
}

// handleSearchMode handles key input in search mode
func (s *ListScreen) handleSearchMode(msg tea.KeyMsg) (*ListScreen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.searchMode = false
		s.searchInput.Blur()
		return s, nil

	case "enter":
		s.searchMode = false
		s.searchInput.Blur()
		s.searchQuery = strings.TrimSpace(s.searchInput.Value())
		s.reload()
		return s, nil
	}

	var cmd tea.Cmd
	s.searchInput, cmd = s.searchInput.Update(msg)
	return s, cmd
}

// handleConfirmMode waits for y to delete the selected entry
func (s *ListScreen) handleConfirmMode(msg tea.KeyMsg) (*ListScreen, tea.Cmd) {
	s.confirmDelete = false

	entry, ok := s.selected()
	if !ok || (msg.String() != "y" && msg.String() != "Y") {
		return s, nil
	}

	return s, deleteEntryCmd(s.ctx, s.store, entry)
}

// View renders the list screen
func (s *ListScreen) View() string {
	header := appTitleStyle.Render("🔐 SecureVault")

	filterLine := fmt.Sprintf("Usecase: %s", renderUsecaseBadge(s.Usecase()))
	if s.searchQuery != "" {
		filterLine += fmt.Sprintf("  Search: %q", s.searchQuery)
	}

	var searchBar string
	if s.searchMode {
		searchBar = lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render("Search:"),
			s.searchInput.View(),
		)
	}

	var body string
	if len(s.entries) == 0 {
		body = containerStyle.Render(fmt.Sprintf("No %s entries match. Press n to add one.", s.Category()))
	} else {
		body = s.table.View()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		s.renderTabs(),
		filterLine,
		searchBar,
		body,
	)

	if s.confirmDelete {
		if entry, ok := s.selected(); ok {
			content = lipgloss.JoinVertical(lipgloss.Left, content, "",
				warningStyle.Render(fmt.Sprintf("⚠ Delete '%s'? y to confirm, any other key to cancel", entry.Username)))
		}
	}

	if s.generated != "" {
		bits, label := passgen.Strength(s.generated)
		content = lipgloss.JoinVertical(lipgloss.Left, content, "",
			fmt.Sprintf("Generated: %s  (%.0f bits, %s)", successStyle.Render(s.generated), bits, label))
	}

	if status := renderStatus(s.errorMsg, s.successMsg); status != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", status)
	}

	if s.tip != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", tipStyle.Render("💡 "+s.tip))
	}

	help := renderHelp("tab/←/→: category • u: usecase • /: search • enter: view • n: new • d: delete • g: generate • t: tip • q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, content, help)
}

func (s *ListScreen) renderTabs() string {
	tabs := make([]string, 0, len(vault.Categories()))
	for i, c := range vault.Categories() {
		label := fmt.Sprintf("%s (%d)", titleCase(string(c)), s.counts[c])
		if i == s.categoryIdx {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (s *ListScreen) selectCategory(i int) {
	n := len(vault.Categories())
	s.categoryIdx = ((i % n) + n) % n
	s.confirmDelete = false
	s.reload()
}

func (s *ListScreen) selected() (vault.Entry, bool) {
	i := s.table.Cursor()
	if i < 0 || i >= len(s.entries) {
		return vault.Entry{}, false
	}
	return s.entries[i], true
}

// initTable initializes the table
func (s *ListScreen) initTable() {
	columns := []table.Column{
		{Title: "Username", Width: 32},
		{Title: "Usecase", Width: 10},
		{Title: "Remark", Width: 28},
		{Title: "Created", Width: 12},
	}

	s.table = table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = tableHeaderStyle
	styles.Selected = selectedRowStyle
	s.table.SetStyles(styles)
}

// reload re-applies the filters to the store
func (s *ListScreen) reload() {
	s.entries = s.store.Filter(vault.Filter{
		Category: s.Category(),
		Usecase:  s.Usecase(),
		Search:   s.searchQuery,
	})
	s.counts = s.store.Stats()

	rows := make([]table.Row, 0, len(s.entries))
	for _, e := range s.entries {
		rows = append(rows, table.Row{
			e.Username,
			string(e.Usecase),
			e.Remark,
			formatDate(e),
		})
	}
	s.table.SetRows(rows)

	if s.table.Cursor() >= len(rows) {
		s.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (s *ListScreen) fetchTipCmd() tea.Cmd {
	if s.tipper == nil {
		return nil
	}
	return func() tea.Msg {
		return tipMsg{tip: s.tipper.Tip(s.ctx)}
	}
}

func deleteEntryCmd(ctx context.Context, store *vault.Store, entry vault.Entry) tea.Cmd {
	return func() tea.Msg {
		if err := store.Delete(ctx, entry.ID); err != nil {
			return errorMsg{err}
		}
		return deletedMsg{id: entry.ID, username: entry.Username}
	}
}

func formatDate(e vault.Entry) string {
	t, err := e.Created()
	if err != nil {
		return e.CreatedAt
	}
	return t.Local().Format("2006-01-02")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type deletedMsg struct {
	id       string
	username string
}
