package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

const minPasswordLen = 6

const (
	userFieldUsername = iota
	userFieldEmail
	userFieldPassword
	userFieldRole
	userFieldCount
)

type usersLoadedMsg struct {
	users []domain.User
	err   error
}

func (m usersLoadedMsg) apiErr() error { return m.err }

type userCreatedMsg struct {
	user *domain.User
	err  error
}

func (m userCreatedMsg) apiErr() error { return m.err }

type userDeletedMsg struct {
	id       string
	username string
	err      error
}

func (m userDeletedMsg) apiErr() error { return m.err }

type usersModel struct {
	client  *client.Client
	self    *domain.User
	users   []domain.User
	cursor  int
	loading bool
	err     string
	flash   string

	formOpen bool
	focus    int
	username string
	email    string
	password string
	role     string
	formErr  string
	busy     bool

	confirmDelete bool

	width  int
	height int
}

func newUsersModel(c *client.Client) usersModel {
	return usersModel{client: c, role: domain.RoleIssuer}
}

func (m usersModel) Init() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		users, err := c.ListUsers(context.Background())
		return usersLoadedMsg{users: users, err: err}
	}
}

func (m usersModel) Update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case usersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = "Failed to load users: " + errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.users = msg.users
		if m.cursor >= len(m.users) {
			m.cursor = max(len(m.users)-1, 0)
		}
		return m, nil

	case userCreatedMsg:
		m.busy = false
		if msg.err != nil {
			m.formErr = createUserErrText(msg.err)
			return m, nil
		}
		m = m.closeForm()
		m.flash = successStyle.Render(fmt.Sprintf("Created %s (%s)", msg.user.Username, msg.user.Role))
		return m, m.Init()

	case userDeletedMsg:
		if msg.err != nil {
			m.flash = errorStyle.Render("Failed to delete user: " + errText(msg.err))
			return m, nil
		}
		m.flash = successStyle.Render("Deleted " + msg.username)
		return m, m.Init()

	case tea.KeyMsg:
		if m.formOpen {
			return m.updateForm(msg)
		}
		if m.confirmDelete {
			m.confirmDelete = false
			if msg.String() == "y" && m.cursor < len(m.users) {
				u := m.users[m.cursor]
				c := m.client
				return m, func() tea.Msg {
					return userDeletedMsg{id: u.ID, username: u.Username, err: c.DeleteUser(context.Background(), u.ID)}
				}
			}
			m.flash = dimStyle.Render("Delete cancelled.")
			return m, nil
		}
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.users)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "n":
			m.formOpen = true
			m.focus = userFieldUsername
			m.flash = ""
		case "d":
			if m.cursor >= len(m.users) {
				return m, nil
			}
			if m.self != nil && m.users[m.cursor].ID == m.self.ID {
				m.flash = warnStyle.Render("You cannot delete your own account.")
				return m, nil
			}
			m.confirmDelete = true
			m.flash = ""
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m usersModel) updateForm(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m.closeForm(), nil
	case "tab", "down":
		m.focus = (m.focus + 1) % userFieldCount
	case "shift+tab", "up":
		m.focus = (m.focus + userFieldCount - 1) % userFieldCount
	case "ctrl+s":
		return m.submit()
	case "enter":
		if m.focus == userFieldRole {
			return m.submit()
		}
		m.focus++
	default:
		switch m.focus {
		case userFieldUsername:
			m.username = editRune(m.username, msg.String())
		case userFieldEmail:
			m.email = editRune(m.email, msg.String())
		case userFieldPassword:
			m.password = editRune(m.password, msg.String())
		case userFieldRole:
			if msg.String() == " " || msg.String() == "h" || msg.String() == "l" {
				m.role = nextRole(m.role)
			}
		}
	}
	return m, nil
}

func nextRole(role string) string {
	if role == domain.RoleIssuer {
		return domain.RoleAdmin
	}
	return domain.RoleIssuer
}

func (m usersModel) closeForm() usersModel {
	m.formOpen = false
	m.username, m.email, m.password = "", "", ""
	m.role = domain.RoleIssuer
	m.formErr = ""
	return m
}

func (m usersModel) submit() (usersModel, tea.Cmd) {
	nu := domain.NewUser{
		Username: strings.TrimSpace(m.username),
		Email:    domain.NormalizeEmail(m.email),
		Password: m.password,
		Role:     m.role,
	}
	switch {
	case nu.Username == "" || nu.Email == "" || nu.Password == "":
		m.formErr = "All fields are required"
		return m, nil
	case utf8.RuneCountInString(nu.Password) < minPasswordLen:
		m.formErr = fmt.Sprintf("Password must be at least %d characters long", minPasswordLen)
		return m, nil
	case !domain.ValidEmail(nu.Email):
		m.formErr = "Please enter a valid email address"
		return m, nil
	case !domain.ValidRole(nu.Role):
		m.formErr = "Role must be admin or issuer"
		return m, nil
	}
	m.busy = true
	m.formErr = ""
	c := m.client
	return m, func() tea.Msg {
		u, err := c.CreateUser(context.Background(), nu)
		return userCreatedMsg{user: u, err: err}
	}
}

func createUserErrText(err error) string {
	if strings.Contains(client.Reason(err), "already exists") {
		return "User with this username or email already exists"
	}
	return "Failed to create user: " + errText(err)
}

func (m usersModel) helpKeys() string {
	if m.formOpen {
		return helpEntry("tab", "next") + "  " + helpEntry("space", "role") + "  " + helpEntry("ctrl+s", "create") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("n", "new") + "  " + helpEntry("d", "delete") + "  " + helpEntry("r", "refresh")
}

func (m usersModel) View() string {
	var b strings.Builder

	if m.formOpen {
		b.WriteString("  " + sectionHeaderStyle.Render("Create user") + "\n\n")
		b.WriteString("  " + renderField("username", m.username, "username", m.focus == userFieldUsername, false) + "\n")
		b.WriteString("  " + renderField("email", m.email, "staff@example.com", m.focus == userFieldEmail, false) + "\n")
		b.WriteString("  " + renderField("password", m.password, "at least 6 characters", m.focus == userFieldPassword, true) + "\n")
		cursor := " "
		if m.focus == userFieldRole {
			cursor = inputPromptStyle.Render(">")
		}
		b.WriteString("  " + cursor + " " + metaStyle.Render(fmt.Sprintf("%-9s", "role")) + " " + RoleStyle(m.role).Render(m.role) + "\n\n")
		switch {
		case m.busy:
			b.WriteString("  " + dimStyle.Render("Creating user...") + "\n")
		case m.formErr != "":
			b.WriteString("  " + errorStyle.Render(m.formErr) + "\n")
		}
		return b.String()
	}

	b.WriteString("  " + sectionHeaderStyle.Render(fmt.Sprintf("Staff (%d)", len(m.users))) + "\n\n")
	switch {
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	case m.users == nil:
		b.WriteString("  " + dimStyle.Render("Loading users...") + "\n")
	case len(m.users) == 0:
		b.WriteString("  " + dimStyle.Render("no users yet") + "\n")
	}

	for i, u := range m.users {
		name := fmt.Sprintf("%-16s", truncStr(u.Username, 16))
		lastLogin := "never"
		if u.LastLogin != nil {
			lastLogin = formatTime(*u.LastLogin)
		}
		row := fmt.Sprintf("%s %s %s  %s",
			normalStyle.Render(name),
			RoleStyle(u.Role).Render(fmt.Sprintf("%-6s", u.Role)),
			dimStyle.Render(fmt.Sprintf("%-28s", truncStr(u.Email, 28))),
			metaStyle.Render("last login "+lastLogin))
		if m.self != nil && u.ID == m.self.ID {
			row += " " + accentStyle.Render("(you)")
		}
		if i == m.cursor {
			b.WriteString(selectedRowBg.Render(inputPromptStyle.Render("> ")+row) + "\n")
		} else {
			b.WriteString("  " + row + "\n")
		}
	}

	if m.confirmDelete && m.cursor < len(m.users) {
		b.WriteString("\n  " + warnStyle.Render(fmt.Sprintf("Delete %s? This action cannot be undone. [y/N]", m.users[m.cursor].Username)) + "\n")
	} else if m.flash != "" {
		b.WriteString("\n  " + m.flash + "\n")
	}
	return b.String()
}
