package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

const (
	loginUsername = iota
	loginPassword
	loginFieldCount
)

type loginDoneMsg struct {
	res *domain.LoginResult
	err error
}

func (m loginDoneMsg) apiErr() error { return m.err }

type loginModel struct {
	client   *client.Client
	username string
	password string
	focus    int
	busy     bool
	err      string
	notice   string
	width    int
	height   int
}

func newLoginModel(c *client.Client) loginModel {
	return loginModel{client: c}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginDoneMsg:
		m.busy = false
		m.password = ""
		if msg.err != nil {
			m.err = loginErrText(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.focus = (m.focus + 1) % loginFieldCount
		case "shift+tab", "up":
			m.focus = (m.focus + loginFieldCount - 1) % loginFieldCount
		case "enter":
			if m.focus == loginUsername {
				m.focus = loginPassword
				return m, nil
			}
			return m.submit()
		default:
			if m.focus == loginUsername {
				m.username = editRune(m.username, msg.String())
			} else {
				m.password = editRune(m.password, msg.String())
			}
		}
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	username := strings.TrimSpace(m.username)
	if username == "" || m.password == "" {
		m.err = "Please enter username and password."
		return m, nil
	}
	m.busy = true
	m.err = ""
	m.notice = ""
	c := m.client
	password := m.password
	return m, func() tea.Msg {
		res, err := c.Login(context.Background(), username, password)
		return loginDoneMsg{res: res, err: err}
	}
}

func loginErrText(err error) string {
	if client.IsStatus(err, 401) {
		return "Invalid username or password."
	}
	return errText(err)
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("  " + sectionHeaderStyle.Render("Staff login") + "\n\n")
	b.WriteString("  " + renderField("username", m.username, "your username", m.focus == loginUsername, false) + "\n")
	b.WriteString("  " + renderField("password", m.password, "••••••", m.focus == loginPassword, true) + "\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Logging in...") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	case m.notice != "":
		b.WriteString("  " + warnStyle.Render(m.notice) + "\n")
	}
	return b.String()
}
