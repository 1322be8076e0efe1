package tui

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ticketdawg/checkin/pkg/client"
)

// formatTime renders a relative timestamp for log and user listings.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatClock renders an absolute local timestamp for ticket panels.
func formatClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 2 15:04:05")
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// errText is the line shown for a failed API call: the API's own reason
// when it sent one, otherwise the error.
func errText(err error) string {
	if err == nil {
		return ""
	}
	if r := client.Reason(err); r != "" {
		return r
	}
	var he *client.HTTPError
	if errors.As(err, &he) {
		return he.Error()
	}
	return err.Error()
}
