package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ticketdawg/checkin/internal/feed"
)

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fbbf24")).
		Bold(true).
		Render("C H E C K I N")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"checkin", "Open the gate terminal (interactive TUI)"},
		{"checkin logout", "Clear the stored session"},
		{"checkin follow", "Print check-ins from every gate (needs CHECKIN_REDIS_URL)"},
		{"checkin --version", "Show version"},
		{"checkin help", "You are here"},
	}
	settings := []struct{ env, desc string }{
		{"CHECKIN_API_URL", "Ticket API base URL"},
		{"CHECKIN_SCANNER", "camera or serial"},
		{"CHECKIN_GATE", "Name of this entrance"},
		{"CHECKIN_STATUS_ADDR", "Serve /health and /status on this address"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  Commands:\n", title)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  Settings:\n")
	for _, s := range settings {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", s.env)), descStyle.Render(s.desc))
	}
	fmt.Fprintln(w)
}

var (
	followOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	followWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("#facc15")).Bold(true)
	followErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true)
	followDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0"))
)

// formatFollowEvent renders one feed event as a log line.
func formatFollowEvent(ev feed.Event) string {
	var st lipgloss.Style
	switch ev.Status {
	case "success":
		st = followOK
	case "rejected":
		st = followWarn
	default:
		st = followErr
	}
	line := fmt.Sprintf("%s  %-8s %s", followDim.Render(ev.At.Local().Format("15:04:05")), ev.Gate, st.Render(fmt.Sprintf("%-8s", ev.Status)))
	if ev.TicketID != "" {
		line += " #" + ev.TicketID
	}
	if ev.Email != "" {
		line += " " + ev.Email
	}
	if ev.Reason != "" {
		line += " " + followDim.Render("("+ev.Reason+")")
	}
	return line
}
