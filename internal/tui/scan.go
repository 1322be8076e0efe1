package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ticketdawg/checkin/internal/scanner"
	"github.com/ticketdawg/checkin/pkg/domain"
)

type scanStartedMsg struct {
	err error
}

type scanStoppedMsg struct {
	err error
}

type scanModel struct {
	session    Session
	gate       string
	state      scanner.State
	validating bool
	notice     *scanner.Notice
	startErr   string
	dropped    string
	last       *domain.ValidationResult
	counters   scanner.Counters
	copied     string
	width      int
	height     int

	// starting is set from the moment a start or reset is requested until
	// its scanStartedMsg arrives; cancelStart aborts it.
	starting    bool
	cancelStart context.CancelFunc
}

func newScanModel(s Session, gate string) scanModel {
	return scanModel{session: s, gate: gate}
}

func (m scanModel) Init() tea.Cmd {
	return nil
}

func (m scanModel) Update(msg tea.Msg) (scanModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case scanEventMsg:
		return m.applyEvent(msg.ev), nil

	case scanStartedMsg:
		m.starting = false
		m.cancelStart = nil
		if msg.err != nil && !errors.Is(msg.err, scanner.ErrStopped) && !errors.Is(msg.err, context.Canceled) {
			m.startErr = scanner.StartErrorMessage(msg.err)
		}
		return m, nil

	case scanStoppedMsg:
		if msg.err != nil {
			m.startErr = "Failed to stop camera: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if m.session == nil {
			return m, nil
		}
		switch msg.String() {
		case "s", "enter":
			if m.state != scanner.StateIdle || m.starting {
				return m, nil
			}
			m.startErr = ""
			m.notice = nil
			m.dropped = ""
			m.copied = ""
			return m.start()
		case "x", "esc":
			if !m.state.Active() {
				return m, nil
			}
			return m, m.stop()
		case "r":
			m.startErr = ""
			m.notice = nil
			m.last = nil
			m.dropped = ""
			m.copied = ""
			return m.reset()
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

func (m scanModel) applyEvent(ev scanner.Event) scanModel {
	switch ev.Kind {
	case scanner.EventState:
		m.state = ev.State
	case scanner.EventValidating:
		m.validating = true
		m.notice = nil
		m.dropped = ""
	case scanner.EventOutcome:
		m.validating = false
		n := scanner.Present(ev.Attempt)
		m.notice = &n
		if ev.Attempt.Status == scanner.StatusSuccess {
			m.last = ev.Attempt.Result
		}
		if m.session != nil {
			m.counters = m.session.Snapshot().Counters
		}
	case scanner.EventError:
		if errors.Is(ev.Err, scanner.ErrBusy) {
			m.dropped = "Still validating the previous ticket. Code ignored."
		}
	}
	return m
}

func (m scanModel) start() (scanModel, tea.Cmd) {
	s := m.session
	ctx, cancel := context.WithCancel(context.Background())
	m.starting = true
	m.cancelStart = cancel
	return m, func() tea.Msg {
		defer cancel()
		return scanStartedMsg{err: s.Start(ctx)}
	}
}

func (m scanModel) stop() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		return scanStoppedMsg{err: s.Stop(ctx)}
	}
}

func (m scanModel) reset() (scanModel, tea.Cmd) {
	s := m.session
	ctx, cancel := context.WithCancel(context.Background())
	m.starting = true
	m.cancelStart = cancel
	return m, func() tea.Msg {
		defer cancel()
		return scanStartedMsg{err: s.Reset(ctx)}
	}
}

// abortStart cancels a start that has not reported back yet. It reports
// whether one was pending.
func (m scanModel) abortStart() (scanModel, bool) {
	if !m.starting {
		return m, false
	}
	if m.cancelStart != nil {
		m.cancelStart()
	}
	m.starting = false
	m.cancelStart = nil
	return m, true
}

func (m scanModel) helpKeys() string {
	var keys []string
	if m.state == scanner.StateIdle {
		keys = append(keys, helpEntry("s", "start"))
	} else {
		keys = append(keys, helpEntry("x", "stop"))
	}
	keys = append(keys, helpEntry("r", "reset"))
	if m.last != nil {
		keys = append(keys, helpEntry("c", "copy id"))
	}
	return strings.Join(keys, "  ")
}

func (m scanModel) View() string {
	var b strings.Builder
	b.WriteString("  " + sectionHeaderStyle.Render("Scan QR Code") + "  " + metaStyle.Render("gate "+m.gate) + "\n\n")

	if m.session == nil {
		b.WriteString("  " + errorStyle.Render("No scanner configured for this terminal.") + "\n")
		return b.String()
	}

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.viewfinder()) + "\n")

	if m.validating {
		b.WriteString("  " + accentStyle.Render("◌ Validating ticket...") + "\n")
	}
	if m.startErr != "" {
		b.WriteString("  " + errorStyle.Render(m.startErr) + "\n")
	}
	if n := m.notice; n != nil {
		style := toneStyle(n.Tone)
		b.WriteString("  " + style.Render(toneMark(n.Tone)+" "+n.Title) + "\n")
		b.WriteString("  " + normalStyle.Render(n.Message) + "\n")
		if m.state == scanner.StateIdle {
			b.WriteString("  " + dimStyle.Render("press s to scan the next ticket") + "\n")
		}
	}
	if m.dropped != "" {
		b.WriteString("  " + dimStyle.Render(m.dropped) + "\n")
	}

	if t := m.last; t != nil {
		body := fmt.Sprintf("%s %s\n%s %s\n%s %s",
			metaStyle.Render("Ticket ID:   "), selectedStyle.Render(t.TicketID),
			metaStyle.Render("Email:       "), normalStyle.Render(t.Email),
			metaStyle.Render("Validated At:"), dimStyle.Render(formatClock(t.UsedAt)))
		if t.IssuedBy != "" {
			body += "\n" + metaStyle.Render("Issued By:   ") + " " + dimStyle.Render(t.IssuedBy)
		}
		b.WriteString("\n" + lipgloss.NewStyle().PaddingLeft(2).Render(panel("Last Validated Ticket", body, 48, lipgloss.Color("#4ade80"))) + "\n")
	}
	if m.copied != "" {
		b.WriteString("  " + m.copied + "\n")
	}

	c := m.counters
	if c.Scanned > 0 {
		b.WriteString("\n  " + metaStyle.Render(fmt.Sprintf("%d scanned . %d valid . %d rejected . %d errors", c.Scanned, c.Success, c.Rejected, c.Errored)) + "\n")
	}
	return b.String()
}

// viewfinder renders the scanner surface box for the current state.
func (m scanModel) viewfinder() string {
	var line string
	switch m.state {
	case scanner.StateIdle:
		line = dimStyle.Render("Scanner is off. Press s to start scanning.")
	case scanner.StateRequestingPermission:
		line = accentStyle.Render("Requesting camera access...")
	case scanner.StateStarting:
		line = accentStyle.Render("Starting camera...")
	case scanner.StateScanning:
		line = successStyle.Render("● ") + normalStyle.Render("Point the camera at the ticket QR code")
	case scanner.StateStopping:
		line = dimStyle.Render("Stopping camera...")
	}
	border := lipgloss.NormalBorder()
	color := borderColor
	if m.state.ShowsSurface() {
		border = lipgloss.ThickBorder()
		color = lipgloss.Color("#fbbf24")
	}
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Padding(1, 2).
		Width(48).
		Align(lipgloss.Center).
		Render(line)
}
