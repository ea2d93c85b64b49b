package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/vault"
)

type formField int

const (
	fieldCategory formField = iota
	fieldUsername
	fieldPassword
	fieldUsecase
	fieldRemark
	fieldSave
)

// FormScreen creates a new entry or edits an existing one. The category can only be
// chosen when creating.
type FormScreen struct {
	ctx   context.Context
	store *vault.Store
	gen   passgen.Options

	editing  bool
	original vault.Entry

	fields      []formField
	focusIndex  int
	categoryIdx int
	usecaseIdx  int

	usernameInput textinput.Model
	passwordInput textinput.Model
	remarkInput   textinput.Model

	errorMsg string
}

// NewCreateScreen creates a form for a new entry in category.
func NewCreateScreen(ctx context.Context, store *vault.Store, gen passgen.Options, category vault.Category) *FormScreen {
	s := newFormScreen(ctx, store, gen)
	s.fields = []formField{fieldCategory, fieldUsername, fieldPassword, fieldUsecase, fieldRemark, fieldSave}
	for i, c := range vault.Categories() {
		if c == category {
			s.categoryIdx = i
		}
	}
	// Start on the username; the category tab is usually already right.
	s.focus(1)
	return s
}

// NewEditScreen creates a form prefilled from entry.
func NewEditScreen(ctx context.Context, store *vault.Store, gen passgen.Options, entry vault.Entry) *FormScreen {
	s := newFormScreen(ctx, store, gen)
	s.editing = true
	s.original = entry
	s.fields = []formField{fieldUsername, fieldPassword, fieldUsecase, fieldRemark, fieldSave}

	for i, c := range vault.Categories() {
		if c == entry.Category {
			s.categoryIdx = i
		}
	}
	for i, u := range vault.Usecases() {
		if u == entry.Usecase {
			s.usecaseIdx = i
		}
	}
	s.usernameInput.SetValue(entry.Username)
	s.passwordInput.SetValue(entry.Password.Value)
	s.remarkInput.SetValue(entry.Remark)

	s.focus(0)
	return s
}

func newFormScreen(ctx context.Context, store *vault.Store, gen passgen.Options) *FormScreen {
	s := &FormScreen{
		ctx:   ctx,
		store: store,
		gen:   gen,
	}

	s.usernameInput = textinput.New()
	s.usernameInput.Placeholder = "Username, email or login"
	s.usernameInput.CharLimit = 200
	s.usernameInput.Width = 40

	s.passwordInput = textinput.New()
	s.passwordInput.Placeholder = "Password (ctrl+g to generate)"
	s.passwordInput.EchoMode = textinput.EchoPassword
	s.passwordInput.EchoCharacter = '•'
	s.passwordInput.CharLimit = 200
	s.passwordInput.Width = 40

	s.remarkInput = textinput.New()
	s.remarkInput.Placeholder = "Remark (optional)"
	s.remarkInput.CharLimit = 500
	s.remarkInput.Width = 40

	return s
}

// Init initializes the screen
func (s *FormScreen) Init() tea.Cmd {
	return textinput.Blink
}

// SetValues fills the text fields.
func (s *FormScreen) SetValues(username, password, remark string) {
	s.usernameInput.SetValue(username)
	s.passwordInput.SetValue(password)
	s.remarkInput.SetValue(remark)
}

// Update handles messages
func (s *FormScreen) Update(msg tea.Msg) (*FormScreen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if s.editing {
				return s, navigate(NavigateMsg{Screen: ScreenDetail, Data: s.original})
			}
			return s, navigate(NavigateMsg{Screen: ScreenList})

		case "ctrl+s":
			return s, s.saveCmd()

		case "ctrl+g":
			pw, err := passgen.New(nil).Generate(s.gen)
			if err != nil {
				s.errorMsg = err.Error()
				return s, nil
			}
			s.passwordInput.SetValue(pw)
			return s, nil

		case "ctrl+r":
			if s.passwordInput.EchoMode == textinput.EchoPassword {
				s.passwordInput.EchoMode = textinput.EchoNormal
			} else {
				s.passwordInput.EchoMode = textinput.EchoPassword
			}
			return s, nil

		case "tab", "down":
			s.focus(s.focusIndex + 1)
			return s, nil

		case "shift+tab", "up":
			s.focus(s.focusIndex - 1)
			return s, nil

		case "enter":
			if s.current() == fieldSave {
				return s, s.saveCmd()
			}
			s.focus(s.focusIndex + 1)
			return s, nil

		case "left", "right":
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			switch s.current() {
			case fieldCategory:
				n := len(vault.Categories())
				s.categoryIdx = (s.categoryIdx + delta + n) % n
				return s, nil
			case fieldUsecase:
				n := len(vault.Usecases())
				s.usecaseIdx = (s.usecaseIdx + delta + n) % n
				return s, nil
			}
		}

	case savedMsg:
		if s.editing {
			return s, navigate(NavigateMsg{Screen: ScreenDetail, Data: msg.entry})
		}
		return s, navigate(NavigateMsg{
			Screen: ScreenList,
			Notice: fmt.Sprintf("Entry '%s' added", msg.entry.Username),
		})

	case errorMsg:
		s.errorMsg = msg.Error()
		return s, nil
	}

	var cmd tea.Cmd
	switch s.current() {
	case fieldUsername:
		s.usernameInput, cmd = s.usernameInput.Update(msg)
	case fieldPassword:
		s.passwordInput, cmd = s.passwordInput.Update(msg)
	case fieldRemark:
		s.remarkInput, cmd = s.remarkInput.Update(msg)
	}

	return s, cmd
}

// View renders the form
func (s *FormScreen) View() string {
	title := "New Entry"
	if s.editing {
		title = "Edit Entry"
	}
	header := appTitleStyle.Render("🔐 SecureVault - " + title)

	var rows []string
	for i, f := range s.fields {
		focused := i == s.focusIndex
		label := inputLabelStyle
		if focused {
			label = focusedLabelStyle
		}

		switch f {
		case fieldCategory:
			rows = append(rows, label.Render("Category:"), s.renderChoice(titleCase(string(s.category())), focused), "")
		case fieldUsername:
			rows = append(rows, label.Render("Username:"), s.usernameInput.View(), "")
		case fieldPassword:
			rows = append(rows, label.Render("Password:"), s.passwordInput.View(), "")
		case fieldUsecase:
			rows = append(rows, label.Render("Usecase:"), s.renderChoice(string(s.usecase()), focused), "")
		case fieldRemark:
			rows = append(rows, label.Render("Remark:"), s.remarkInput.View(), "")
		case fieldSave:
			if focused {
				rows = append(rows, buttonStyle.Render("[ Save ]"))
			} else {
				rows = append(rows, inactiveButtonStyle.Render("[ Save ]"))
			}
		}
	}

	if s.editing {
		rows = append([]string{
			inputLabelStyle.Render("Category:") + " " + titleCase(string(s.original.Category)),
			"",
		}, rows...)
	}

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if status := renderStatus(s.errorMsg, ""); status != "" {
		form = lipgloss.JoinVertical(lipgloss.Left, form, "", status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		containerStyle.Render(form),
		renderHelp("tab: next field • ←/→: change choice • ctrl+g: generate • ctrl+r: show password • ctrl+s: save • esc: cancel"),
	)
}

func (s *FormScreen) renderChoice(value string, focused bool) string {
	if focused {
		return "‹ " + focusedLabelStyle.Render(value) + " ›"
	}
	return "  " + value
}

func (s *FormScreen) current() formField {
	return s.fields[s.focusIndex]
}

func (s *FormScreen) category() vault.Category {
	return vault.Categories()[s.categoryIdx]
}

func (s *FormScreen) usecase() vault.Usecase {
	return vault.Usecases()[s.usecaseIdx]
}

// focus moves focus to field i, wrapping around
func (s *FormScreen) focus(i int) {
	n := len(s.fields)
	s.focusIndex = ((i % n) + n) % n

	s.usernameInput.Blur()
	s.passwordInput.Blur()
	s.remarkInput.Blur()

	switch s.current() {
	case fieldUsername:
		s.usernameInput.Focus()
	case fieldPassword:
		s.passwordInput.Focus()
	case fieldRemark:
		s.remarkInput.Focus()
	}
}

// saveCmd creates or updates the entry
func (s *FormScreen) saveCmd() tea.Cmd {
	username := s.usernameInput.Value()
	password := s.passwordInput.Value()
	remark := s.remarkInput.Value()
	usecase := s.usecase()

	if s.editing {
		entry := s.original
		entry.Username = username
		entry.Password.Value = password
		entry.Usecase = usecase
		entry.Remark = remark

		return func() tea.Msg {
			updated, err := s.store.Update(s.ctx, entry.ID, entry)
			if err != nil {
				return errorMsg{err}
			}
			return savedMsg{entry: updated}
		}
	}

	draft := vault.Draft{
		Category: s.category(),
		Username: username,
		Password: password,
		Usecase:  usecase,
		Remark:   remark,
	}

	return func() tea.Msg {
		created, err := s.store.Create(s.ctx, draft)
		if err != nil {
			return errorMsg{err}
		}
		return savedMsg{entry: created}
	}
}

type savedMsg struct {
	entry vault.Entry
}
