package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

type statsLoadedMsg struct {
	stats *domain.TicketStats
	err   error
}

func (m statsLoadedMsg) apiErr() error { return m.err }

type searchDoneMsg struct {
	email   string
	tickets []domain.Ticket
	err     error
}

func (m searchDoneMsg) apiErr() error { return m.err }

type initializeDoneMsg struct {
	err error
}

func (m initializeDoneMsg) apiErr() error { return m.err }

type dashboardModel struct {
	client  *client.Client
	user    *domain.User
	stats   *domain.TicketStats
	loading bool
	err     string

	searching bool
	query     string
	searched  string
	results   []domain.Ticket
	searchErr string

	confirmInit bool
	initBusy    bool
	initMsg     string

	width  int
	height int
}

func newDashboardModel(c *client.Client) dashboardModel {
	return dashboardModel{client: c}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.loadStats()
}

func (m dashboardModel) loadStats() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		stats, err := c.TicketStats(context.Background())
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.stats = msg.stats
		return m, nil

	case searchDoneMsg:
		m.searched = msg.email
		m.results = msg.tickets
		m.searchErr = ""
		if msg.err != nil {
			m.searchErr = errText(msg.err)
		}
		return m, nil

	case initializeDoneMsg:
		m.initBusy = false
		if msg.err != nil {
			m.initMsg = errorStyle.Render("Failed to initialize tickets: " + errText(msg.err))
			return m, nil
		}
		m.initMsg = successStyle.Render("Tickets initialized.")
		return m, m.loadStats()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.confirmInit {
			m.confirmInit = false
			if msg.String() != "y" {
				m.initMsg = dimStyle.Render("Initialization cancelled.")
				return m, nil
			}
			m.initBusy = true
			m.initMsg = ""
			c := m.client
			return m, func() tea.Msg {
				return initializeDoneMsg{err: c.InitializeTickets(context.Background())}
			}
		}
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadStats()
		case "/":
			m.searching = true
			m.query = ""
			return m, nil
		case "i":
			if m.user.IsAdmin() && !m.initBusy {
				m.confirmInit = true
				m.initMsg = ""
			}
			return m, nil
		}
	}
	return m, nil
}

func (m dashboardModel) updateSearch(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		return m, nil
	case "enter":
		m.searching = false
		email := domain.NormalizeEmail(m.query)
		if email == "" {
			return m, nil
		}
		c := m.client
		return m, func() tea.Msg {
			tickets, err := c.SearchTickets(context.Background(), email)
			return searchDoneMsg{email: email, tickets: tickets, err: err}
		}
	default:
		m.query = editRune(m.query, msg.String())
	}
	return m, nil
}

func (m dashboardModel) helpKeys() string {
	if m.searching {
		return helpEntry("enter", "search") + "  " + helpEntry("esc", "cancel")
	}
	keys := helpEntry("r", "refresh") + "  " + helpEntry("/", "search")
	if m.user.IsAdmin() {
		keys += "  " + helpEntry("i", "initialize")
	}
	return keys
}

func (m dashboardModel) View() string {
	var b strings.Builder

	b.WriteString("  " + sectionHeaderStyle.Render("Event Statistics") + "\n")
	switch {
	case m.err != "":
		b.WriteString("  " + errorStyle.Render("error: ") + dimStyle.Render(m.err) + "\n")
	case m.stats == nil:
		b.WriteString("  " + dimStyle.Render("Loading stats...") + "\n")
	default:
		g := m.stats.Global
		b.WriteString(m.cards([]statCard{
			{"Total Tickets", g.Total, lipgloss.Color("#60a0e0")},
			{"Tickets Sent", g.Sent, lipgloss.Color("#4ade80")},
			{"Tickets Used", g.Used, lipgloss.Color("#c084e0")},
			{"Remaining", g.Remaining, lipgloss.Color("#fbbf24")},
		}))
		if p := m.stats.Personal; p != nil && !m.user.IsAdmin() {
			b.WriteString("\n  " + sectionHeaderStyle.Render("Your Statistics") + "\n")
			b.WriteString(m.cards([]statCard{
				{"Tickets Issued", p.TicketsIssued, lipgloss.Color("#60a0e0")},
				{"Tickets Scanned", p.TicketsScanned, lipgloss.Color("#4ade80")},
			}))
		}
	}

	if m.confirmInit {
		b.WriteString("\n  " + warnStyle.Render("Initialize the ticket pool? This cannot be undone. [y/N]") + "\n")
	} else if m.initBusy {
		b.WriteString("\n  " + dimStyle.Render("Initializing tickets...") + "\n")
	} else if m.initMsg != "" {
		b.WriteString("\n  " + m.initMsg + "\n")
	}

	b.WriteString("\n  " + sectionHeaderStyle.Render("Ticket lookup") + "\n")
	if m.searching {
		b.WriteString("  " + inputPromptStyle.Render("/ ") + normalStyle.Render(m.query) + accentStyle.Render("█") + "\n")
	}
	switch {
	case m.searchErr != "":
		b.WriteString("  " + errorStyle.Render("error: ") + dimStyle.Render(m.searchErr) + "\n")
	case m.searched == "":
		if !m.searching {
			b.WriteString("  " + dimStyle.Render("press / to find tickets by email") + "\n")
		}
	case len(m.results) == 0:
		b.WriteString("  " + dimStyle.Render("no tickets for "+m.searched) + "\n")
	default:
		for _, t := range m.results {
			b.WriteString("  " + ticketRow(t) + "\n")
		}
	}
	return b.String()
}

type statCard struct {
	title string
	value int
	color lipgloss.Color
}

func (m dashboardModel) cards(cards []statCard) string {
	width := 20
	if m.width > 0 {
		if w := (m.width-4)/len(cards) - 2; w > width {
			width = w
		}
	}
	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		rendered = append(rendered, panel(c.title, selectedStyle.Render(fmt.Sprintf("%d", c.value)), width, c.color))
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...)) + "\n"
}

// ticketRow renders one ticket in a lookup listing.
func ticketRow(t domain.Ticket) string {
	status := dimStyle.Render("available")
	switch {
	case t.IsUsed:
		status = successStyle.Render("used")
	case t.IsAssigned:
		status = accentStyle.Render("assigned")
	}
	line := selectedStyle.Render(fmt.Sprintf("#%-8s", t.TicketID)) + " " + normalStyle.Render(truncStr(t.Email, 36)) + "  " + status
	if t.UsedAt != nil {
		line += "  " + metaStyle.Render("used "+formatClock(*t.UsedAt))
	} else if t.IssuedAt != nil {
		line += "  " + metaStyle.Render("issued "+formatClock(*t.IssuedAt))
	}
	return line
}
