package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

type activityLoadedMsg struct {
	logs []domain.ActivityLog
	err  error
}

func (m activityLoadedMsg) apiErr() error { return m.err }

type systemStatsMsg struct {
	stats *domain.SystemStats
	err   error
}

func (m systemStatsMsg) apiErr() error { return m.err }

// Date windows offered by the activity filter.
const (
	rangeAll = iota
	rangeToday
	rangeWeek
	rangeCount
)

var rangeLabels = [rangeCount]string{"all time", "today", "last 7 days"}

type activityModel struct {
	client   *client.Client
	logs     []domain.ActivityLog
	stats    *domain.SystemStats
	action   int // index into domain.ActivityActions, -1 for all
	dates    int
	page     int
	loading  bool
	err      string
	statsErr string
	now      func() time.Time
	width    int
	height   int
}

func newActivityModel(c *client.Client) activityModel {
	return activityModel{client: c, action: -1, page: 1, now: time.Now}
}

func (m activityModel) Init() tea.Cmd {
	return tea.Batch(m.loadLogs(), m.loadStats())
}

// filter builds the API filter from the current selection.
func (m activityModel) filter() domain.ActivityFilter {
	f := domain.ActivityFilter{Page: m.page}
	if m.action >= 0 {
		f.Action = domain.ActivityActions[m.action]
	}
	y, mo, d := m.now().Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, time.Local)
	switch m.dates {
	case rangeToday:
		f.StartDate, f.EndDate = today, today
	case rangeWeek:
		f.StartDate, f.EndDate = today.AddDate(0, 0, -6), today
	}
	return f
}

func (m activityModel) loadLogs() tea.Cmd {
	c := m.client
	f := m.filter()
	return func() tea.Msg {
		logs, err := c.ActivityLogs(context.Background(), f)
		return activityLoadedMsg{logs: logs, err: err}
	}
}

func (m activityModel) loadStats() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		stats, err := c.SystemStats(context.Background())
		return systemStatsMsg{stats: stats, err: err}
	}
}

func (m activityModel) Update(msg tea.Msg) (activityModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case activityLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = "Failed to load activity: " + errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.logs = msg.logs
		return m, nil

	case systemStatsMsg:
		if msg.err != nil {
			m.statsErr = errText(msg.err)
			return m, nil
		}
		m.statsErr = ""
		m.stats = msg.stats
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "t":
			m.action++
			if m.action >= len(domain.ActivityActions) {
				m.action = -1
			}
			m.page = 1
		case "d":
			m.dates = (m.dates + 1) % rangeCount
			m.page = 1
		case "x":
			m.action, m.dates, m.page = -1, rangeAll, 1
		case "]":
			if len(m.logs) == 0 {
				return m, nil
			}
			m.page++
		case "[":
			if m.page <= 1 {
				return m, nil
			}
			m.page--
		case "r":
			m.loading = true
			return m, m.Init()
		default:
			return m, nil
		}
		m.loading = true
		return m, m.loadLogs()
	}
	return m, nil
}

func (m activityModel) helpKeys() string {
	return helpEntry("t", "action") + "  " + helpEntry("d", "dates") + "  " + helpEntry("[/]", "page") + "  " + helpEntry("x", "clear") + "  " + helpEntry("r", "refresh")
}

func actionLabel(action string) string {
	return strings.ToUpper(strings.ReplaceAll(action, "_", " "))
}

func (m activityModel) View() string {
	var b strings.Builder

	b.WriteString("  " + sectionHeaderStyle.Render("System Statistics") + "\n")
	switch {
	case m.statsErr != "":
		b.WriteString("  " + errorStyle.Render("error: ") + dimStyle.Render(m.statsErr) + "\n")
	case m.stats == nil:
		b.WriteString("  " + dimStyle.Render("Loading stats...") + "\n")
	default:
		s := m.stats
		b.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s\n",
			metaStyle.Render("issued"), selectedStyle.Render(fmt.Sprint(s.ActionBreakdown[domain.ActionTicketIssued])),
			metaStyle.Render("validated"), selectedStyle.Render(fmt.Sprint(s.ActionBreakdown[domain.ActionTicketValidated])),
			metaStyle.Render("total actions"), selectedStyle.Render(fmt.Sprint(s.TotalActions()))))
		top := append([]domain.TopUser(nil), s.TopUsers...)
		sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
		for i, u := range top {
			if i == 5 {
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
				metaStyle.Render(fmt.Sprintf("%d.", i+1)),
				normalStyle.Render(fmt.Sprintf("%-16s", truncStr(u.Username, 16))),
				RoleStyle(u.Role).Render(fmt.Sprintf("%-6s", u.Role)),
				dimStyle.Render(fmt.Sprintf("%d actions", u.Count))))
		}
	}

	actionName := "all actions"
	if m.action >= 0 {
		actionName = actionLabel(domain.ActivityActions[m.action])
	}
	b.WriteString("\n  " + sectionHeaderStyle.Render("Activity Logs") + "  " +
		accentStyle.Render(actionName) + metaStyle.Render(" . ") + accentStyle.Render(rangeLabels[m.dates]) +
		metaStyle.Render(fmt.Sprintf(" . page %d", m.page)) + "\n")

	switch {
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	case m.logs == nil:
		b.WriteString("  " + dimStyle.Render("Loading activity...") + "\n")
	case len(m.logs) == 0:
		b.WriteString("  " + dimStyle.Render("no activity found") + "\n")
	}

	for _, l := range m.logs {
		who := "system"
		if l.User != nil {
			who = l.User.Username
		}
		detail := ""
		switch {
		case l.Details.TicketID != "":
			detail = "#" + l.Details.TicketID
			if l.Details.TicketEmail != "" {
				detail += " " + l.Details.TicketEmail
			}
		case l.Details.TargetUser != "":
			detail = l.Details.TargetUser
		}
		result := ""
		if l.Result == "failure" {
			result = " " + errorStyle.Render("failed")
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s%s\n",
			metaStyle.Render(fmt.Sprintf("%-9s", formatTime(l.Timestamp))),
			ActionStyle(l.Action).Render(fmt.Sprintf("%-17s", actionLabel(l.Action))),
			normalStyle.Render(fmt.Sprintf("%-14s", truncStr(who, 14))),
			dimStyle.Render(truncStr(detail, 40)),
			result))
	}
	return b.String()
}
