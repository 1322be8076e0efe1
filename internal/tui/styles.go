package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ticketdawg/checkin/internal/scanner"
	"github.com/ticketdawg/checkin/pkg/domain"
)

// Shimmer animation for the CHECKIN logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "C H E C K I N" as a flowing wave of amber light.
// Deep bronze (#3a2a10) -> bright amber (#fbbf24).
func renderShimmerLogo(frame int) string {
	const text = "CHECKIN"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(58 + b*(251-58))
		g := clampByte(42 + b*(191-42))
		bl := clampByte(16 + b*(36-16))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)
		out += lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}
	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24"))

	// Outcome tones
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#facc15")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171")).
			Bold(true)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fbbf24")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	borderColor = lipgloss.Color("#1e1e2a")

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	roleColors = map[string]lipgloss.Color{
		domain.RoleAdmin:  lipgloss.Color("#c084e0"),
		domain.RoleIssuer: lipgloss.Color("#60a0e0"),
	}

	actionColors = map[string]lipgloss.Color{
		domain.ActionTicketIssued:    lipgloss.Color("#60a0e0"),
		domain.ActionTicketValidated: lipgloss.Color("#4ade80"),
		domain.ActionUserCreated:     lipgloss.Color("#c084e0"),
		domain.ActionUserDeleted:     lipgloss.Color("#e06060"),
		domain.ActionLogin:           lipgloss.Color("#8890a0"),
		domain.ActionLogout:          lipgloss.Color("#606878"),
	}
)

// RoleStyle returns a bold style colored for a staff role.
func RoleStyle(role string) lipgloss.Style {
	if c, ok := roleColors[role]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// ActionStyle returns the color for an activity action.
func ActionStyle(action string) lipgloss.Style {
	if c, ok := actionColors[action]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#606878"))
}

// toneStyle maps an outcome tone to its color.
func toneStyle(t scanner.Tone) lipgloss.Style {
	switch t {
	case scanner.ToneSuccess:
		return successStyle
	case scanner.ToneWarning:
		return warnStyle
	default:
		return errorStyle
	}
}

// toneMark is the glyph shown next to a notice title.
func toneMark(t scanner.Tone) string {
	switch t {
	case scanner.ToneSuccess:
		return "✔"
	case scanner.ToneWarning:
		return "!"
	default:
		return "✘"
	}
}

// panel renders a titled box used for stats cards and ticket details.
func panel(title, body string, width int, accent lipgloss.Color) string {
	if width < 20 {
		width = 20
	}
	head := lipgloss.NewStyle().Foreground(accent).Bold(true).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width).
		Render(head + "\n" + body)
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpView renders the help overlay.
func helpView(admin bool) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fbbf24")).
		Bold(true).
		Render("C H E C K I N")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	commands := []struct{ cmd, desc string }{
		{"checkin", "Open the gate terminal"},
		{"checkin logout", "Clear the stored session"},
		{"checkin follow", "Print check-ins from every gate"},
		{"checkin --version", "Show version"},
	}
	keys := []struct{ key, desc string }{
		{"1", "Dashboard: ticket stats, search by email"},
		{"2", "Issue: assign a ticket to an email"},
		{"3", "Scan: validate tickets at the gate"},
	}
	if admin {
		keys = append(keys,
			struct{ key, desc string }{"4", "Users: create and delete staff"},
			struct{ key, desc string }{"5", "Activity: audit log and system stats"},
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", title)
	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Tabs"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
	}
	fmt.Fprintf(&b, "\n    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", "L")), descStyle.Render("Log out"))
	return b.String()
}
