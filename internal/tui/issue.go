package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

type issueDoneMsg struct {
	ticket *domain.Ticket
	err    error
}

func (m issueDoneMsg) apiErr() error { return m.err }

type issueModel struct {
	client  *client.Client
	email   string
	focused bool
	busy    bool
	err     string
	last    *domain.Ticket
	copied  string
	width   int
	height  int
}

func newIssueModel(c *client.Client) issueModel {
	return issueModel{client: c}
}

func (m issueModel) Init() tea.Cmd {
	return nil
}

func (m issueModel) Update(msg tea.Msg) (issueModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case issueDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = issueErrText(msg.err)
			return m, nil
		}
		m.last = msg.ticket
		m.email = ""
		m.err = ""
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.focused {
			switch msg.String() {
			case "esc":
				m.focused = false
			case "enter":
				return m.submit()
			default:
				m.email = editRune(m.email, msg.String())
			}
			return m, nil
		}
		switch msg.String() {
		case "enter", "e":
			m.focused = true
			m.copied = ""
		case "x":
			m.email = ""
			m.last = nil
			m.err = ""
			m.copied = ""
		case "c":
			if m.last != nil {
				if err := clipboard.WriteAll(m.last.TicketID); err != nil {
					m.copied = errorStyle.Render("copy failed: " + err.Error())
				} else {
					m.copied = successStyle.Render("copied ticket #" + m.last.TicketID)
				}
			}
		}
	}
	return m, nil
}

func (m issueModel) submit() (issueModel, tea.Cmd) {
	email := domain.NormalizeEmail(m.email)
	if email == "" {
		m.err = "Please enter an email address"
		return m, nil
	}
	if !domain.ValidEmail(email) {
		m.err = "Please enter a valid email address"
		return m, nil
	}
	m.busy = true
	m.err = ""
	m.focused = false
	c := m.client
	return m, func() tea.Msg {
		t, err := c.AssignTicket(context.Background(), email)
		return issueDoneMsg{ticket: t, err: err}
	}
}

// issueErrText maps API reasons for a failed assignment to operator text.
func issueErrText(err error) string {
	reason := client.Reason(err)
	switch {
	case strings.Contains(reason, "already has a ticket"):
		return "This email already has a ticket assigned."
	case strings.Contains(reason, "No tickets available"):
		return "No tickets available. All tickets have been issued."
	case strings.Contains(reason, "Invalid email format"):
		return "Please enter a valid email address."
	}
	return "Failed to issue ticket. Please try again."
}

func (m issueModel) helpKeys() string {
	if m.focused {
		return helpEntry("enter", "issue") + "  " + helpEntry("esc", "nav")
	}
	keys := helpEntry("enter", "type")
	if m.last != nil {
		keys += "  " + helpEntry("c", "copy id")
	}
	return keys + "  " + helpEntry("x", "clear")
}

func (m issueModel) View() string {
	var b strings.Builder
	b.WriteString("  " + sectionHeaderStyle.Render("Issue a ticket") + "\n\n")
	b.WriteString("  " + renderField("email", m.email, "attendee@example.com", m.focused, false) + "\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("Issuing ticket...") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}

	if t := m.last; t != nil {
		body := fmt.Sprintf("%s %s\n%s %s",
			metaStyle.Render("ticket"), selectedStyle.Render("#"+t.TicketID),
			metaStyle.Render("email "), normalStyle.Render(t.Email))
		if t.IssuedAt != nil {
			body += "\n" + metaStyle.Render("issued") + " " + dimStyle.Render(formatClock(*t.IssuedAt))
		}
		body += "\n" + dimStyle.Render("The QR code has been emailed to the attendee.")
		b.WriteString("\n" + lipgloss.NewStyle().PaddingLeft(2).Render(panel("✔ Ticket Issued Successfully!", body, 48, lipgloss.Color("#4ade80"))) + "\n")
	}
	if m.copied != "" {
		b.WriteString("  " + m.copied + "\n")
	}
	return b.String()
}
