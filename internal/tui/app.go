package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/auth"
	"github.com/ticketdawg/checkin/internal/scanner"
	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewDashboard
	viewIssue
	viewScan
	viewUsers
	viewActivity
)

// teardownTimeout bounds the scanner stop when leaving the scan tab or quitting.
const teardownTimeout = 3 * time.Second

// apiResult is implemented by every message that carries an API call result.
// A 401 on any of them sends the app back to the login view.
type apiResult interface {
	apiErr() error
}

// loggedOutMsg is sent once the stored session has been cleared.
type loggedOutMsg struct {
	notice string
}

// scanEventMsg carries one scanner session event. ok is false once the
// event channel is closed.
type scanEventMsg struct {
	ev scanner.Event
	ok bool
}

// Session is the part of scanner.Session the front-end drives.
type Session interface {
	Events() <-chan scanner.Event
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
	LastAttempt() (scanner.Attempt, bool)
	Snapshot() scanner.Snapshot
}

// AppConfig wires the front-end. Session and Surfaces may be nil, in which
// case the scan tab reports that no scanner is configured.
type AppConfig struct {
	Client     *client.Client
	Store      *auth.Store
	Session    Session
	Surfaces   *scanner.SurfaceRegistry
	SurfaceID  string
	Gate       string
	Version    string
	ReleaseURL string
	// User is the profile of a still-valid stored session; nil starts at login.
	User *domain.User
}

// App is the root Bubbletea model.
type App struct {
	cfg       AppConfig
	view      view
	login     loginModel
	dashboard dashboardModel
	issue     issueModel
	scan      scanModel
	users     usersModel
	activity  activityModel
	helpOpen  bool
	user      *domain.User
	update    string // newer release tag, if any
	width     int
	height    int
	frame     int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(cfg AppConfig) App {
	c := cfg.Client
	a := App{
		cfg:       cfg,
		view:      viewLogin,
		login:     newLoginModel(c),
		dashboard: newDashboardModel(c),
		issue:     newIssueModel(c),
		scan:      newScanModel(cfg.Session, cfg.Gate),
		users:     newUsersModel(c),
		activity:  newActivityModel(c),
	}
	if cfg.User != nil {
		a = a.signIn(cfg.User)
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd(), checkVersion(a.cfg.ReleaseURL, a.cfg.Version)}
	if a.cfg.Session != nil {
		cmds = append(cmds, waitForScanEvent(a.cfg.Session.Events()))
	}
	if a.view == viewDashboard {
		cmds = append(cmds, a.dashboard.Init())
	}
	return tea.Batch(cmds...)
}

// signIn switches to the dashboard for u and propagates the identity.
func (a App) signIn(u *domain.User) App {
	a.user = u
	a.view = viewDashboard
	a.dashboard.user = u
	a.users.self = u
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if r, ok := msg.(apiResult); ok && client.IsStatus(r.apiErr(), http.StatusUnauthorized) && a.view != viewLogin {
		log.Warn().Msg("session rejected by API, returning to login")
		var stop tea.Cmd
		a, stop = a.stopScanner()
		return a, tea.Batch(stop, a.logout("Session expired. Please log in again."))
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + gap(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.login, _ = a.login.Update(bodyMsg)
		a.dashboard, _ = a.dashboard.Update(bodyMsg)
		a.issue, _ = a.issue.Update(bodyMsg)
		a.scan, _ = a.scan.Update(bodyMsg)
		a.users, _ = a.users.Update(bodyMsg)
		a.activity, _ = a.activity.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case versionCheckMsg:
		if msg.hasUpdate {
			a.update = msg.latestVersion
		}
		return a, nil

	case loginDoneMsg:
		if msg.err != nil || msg.res == nil {
			a.login, _ = a.login.Update(msg)
			return a, nil
		}
		a.cfg.Client.SetToken(msg.res.Token)
		if a.cfg.Store != nil {
			if err := a.cfg.Store.Save(auth.Session{Token: msg.res.Token, User: &msg.res.User}); err != nil {
				log.Warn().Err(err).Msg("failed to persist session")
			}
		}
		log.Info().Str("user", msg.res.User.Username).Str("role", msg.res.User.Role).Msg("logged in")
		u := msg.res.User
		a = a.signIn(&u)
		a.login = newLoginModel(a.cfg.Client)
		return a, a.dashboard.Init()

	case loggedOutMsg:
		a.user = nil
		a.view = viewLogin
		a.helpOpen = false
		c := a.cfg.Client
		a.login = newLoginModel(c)
		a.login.notice = msg.notice
		a.dashboard = newDashboardModel(c)
		a.issue = newIssueModel(c)
		a.users = newUsersModel(c)
		a.activity = newActivityModel(c)
		return a, nil

	case scanEventMsg:
		if !msg.ok {
			return a, nil
		}
		if msg.ev.Kind == scanner.EventState {
			a.syncSurface(msg.ev.State)
		}
		a.scan, _ = a.scan.Update(msg)
		if a.cfg.Session == nil {
			return a, nil
		}
		return a, waitForScanEvent(a.cfg.Session.Events())

	case scanStartedMsg:
		a.scan, _ = a.scan.Update(msg)
		if a.view != viewScan {
			return a.stopScanner()
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a.quit()
		}

		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q":
				return a.quit()
			}
			return a, nil
		}

		// Global keys (only when signed in and not editing)
		if a.view != viewLogin && !a.isEditing() {
			switch msg.String() {
			case "h":
				a.helpOpen = true
				return a, nil
			case "q":
				return a.quit()
			case "L":
				var stop tea.Cmd
				a, stop = a.stopScanner()
				return a, tea.Batch(stop, a.logout(""))
			case "1":
				return a.switchTo(viewDashboard)
			case "2":
				return a.switchTo(viewIssue)
			case "3":
				return a.switchTo(viewScan)
			case "4":
				if a.user.IsAdmin() {
					return a.switchTo(viewUsers)
				}
				return a, nil
			case "5":
				if a.user.IsAdmin() {
					return a.switchTo(viewActivity)
				}
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewIssue:
		a.issue, cmd = a.issue.Update(msg)
	case viewScan:
		a.scan, cmd = a.scan.Update(msg)
	case viewUsers:
		a.users, cmd = a.users.Update(msg)
	case viewActivity:
		a.activity, cmd = a.activity.Update(msg)
	}
	return a, cmd
}

// switchTo changes tab. Leaving the scan tab stops the scanner.
func (a App) switchTo(v view) (App, tea.Cmd) {
	if a.view == v {
		return a, nil
	}
	var cmds []tea.Cmd
	if a.view == viewScan {
		var stop tea.Cmd
		a, stop = a.stopScanner()
		cmds = append(cmds, stop)
	}
	a.view = v
	a.dashboard.confirmInit = false
	a.users.confirmDelete = false
	switch v {
	case viewDashboard:
		cmds = append(cmds, a.dashboard.Init())
	case viewIssue:
		cmds = append(cmds, a.issue.Init())
	case viewScan:
		cmds = append(cmds, a.scan.Init())
	case viewUsers:
		cmds = append(cmds, a.users.Init())
	case viewActivity:
		cmds = append(cmds, a.activity.Init())
	}
	return a, tea.Batch(cmds...)
}

// syncSurface mounts the viewfinder while the scanner needs it.
func (a App) syncSurface(s scanner.State) {
	if a.cfg.Surfaces == nil {
		return
	}
	if s.ShowsSurface() {
		a.cfg.Surfaces.Mount(a.cfg.SurfaceID)
	} else if s == scanner.StateIdle {
		a.cfg.Surfaces.Unmount(a.cfg.SurfaceID)
	}
}

// stopScanner ends the scan session, including a start that has been
// requested but has not reached the controller yet.
func (a App) stopScanner() (App, tea.Cmd) {
	sess := a.cfg.Session
	if sess == nil {
		return a, nil
	}
	var pending bool
	a.scan, pending = a.scan.abortStart()
	if !pending && !sess.Snapshot().State.Active() {
		return a, nil
	}
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := sess.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("scanner stop on teardown")
		}
		return nil
	}
}

// quit stops the scanner before leaving the program.
func (a App) quit() (App, tea.Cmd) {
	a, stop := a.stopScanner()
	if stop == nil {
		return a, tea.Quit
	}
	return a, tea.Sequence(stop, tea.Quit)
}

// logout clears the stored session and returns to the login view.
func (a App) logout(notice string) tea.Cmd {
	c := a.cfg.Client
	store := a.cfg.Store
	return func() tea.Msg {
		if c != nil {
			c.SetToken("")
		}
		if store != nil {
			if err := store.Clear(); err != nil {
				log.Warn().Err(err).Msg("failed to clear stored session")
			}
		}
		return loggedOutMsg{notice: notice}
	}
}

func waitForScanEvent(events <-chan scanner.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return scanEventMsg{ev: ev, ok: ok}
	}
}

func (a App) isEditing() bool {
	switch a.view {
	case viewDashboard:
		return a.dashboard.searching
	case viewIssue:
		return a.issue.focused
	case viewUsers:
		return a.users.formOpen
	}
	return false
}

type tabEntry struct {
	key  string
	name string
	v    view
}

func (a App) tabs() []tabEntry {
	tabs := []tabEntry{
		{"1", "Dashboard", viewDashboard},
		{"2", "Issue", viewIssue},
		{"3", "Scan", viewScan},
	}
	if a.user.IsAdmin() {
		tabs = append(tabs,
			tabEntry{"4", "Users", viewUsers},
			tabEntry{"5", "Activity", viewActivity},
		)
	}
	return tabs
}

func (a App) View() string {
	header := center(renderShimmerLogo(a.frame), a.width)

	// Identity line below logo
	var parts []string
	if a.user != nil {
		parts = append(parts, normalStyle.Render(a.user.Username), RoleStyle(a.user.Role).Render(a.user.Role))
	}
	if a.cfg.Gate != "" {
		parts = append(parts, metaStyle.Render("gate "+a.cfg.Gate))
	}
	if a.update != "" {
		parts = append(parts, accentStyle.Render(a.update+" available"))
	}
	header += "\n" + center(strings.Join(parts, metaStyle.Render(" . ")), a.width)

	if a.view == viewLogin {
		body := strings.TrimRight(truncateToHeight(a.login.View(), a.height-5), "\n")
		help := " " + helpEntry("tab", "next") + "  " + helpEntry("enter", "log in") + "  " + helpEntry("ctrl+c", "quit")
		return fmt.Sprintf("%s\n\n%s\n\n%s", header, body, help)
	}

	// Tab bar: equal-width columns spread across the terminal
	tabs := a.tabs()
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewScan && a.scan.state.Active() {
			label += " " + successStyle.Render("●")
		}
		labelWidth := lipgloss.Width(label)
		leftPad := (colWidth - labelWidth) / 2
		if leftPad < 0 {
			leftPad = 0
		}
		rightPad := colWidth - labelWidth - leftPad
		if rightPad < 0 {
			rightPad = 0
		}
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	tabKeys := "1-3"
	if a.user.IsAdmin() {
		tabKeys = "1-5"
	}
	tail := "  " + helpEntry("h", "help") + "  " + helpEntry("L", "logout") + "  " + helpEntry("q", "quit")

	var body, help string
	switch a.view {
	case viewDashboard:
		body = a.dashboard.View()
		help = " " + helpEntry(tabKeys, "tabs") + "  " + a.dashboard.helpKeys() + tail
	case viewIssue:
		body = a.issue.View()
		help = " " + a.issue.helpKeys()
		if !a.issue.focused {
			help = " " + helpEntry(tabKeys, "tabs") + "  " + a.issue.helpKeys() + tail
		}
	case viewScan:
		body = a.scan.View()
		help = " " + helpEntry(tabKeys, "tabs") + "  " + a.scan.helpKeys() + tail
	case viewUsers:
		body = a.users.View()
		help = " " + a.users.helpKeys()
		if !a.users.formOpen {
			help = " " + helpEntry(tabKeys, "tabs") + "  " + a.users.helpKeys() + tail
		}
	case viewActivity:
		body = a.activity.View()
		help = " " + helpEntry(tabKeys, "tabs") + "  " + a.activity.helpKeys() + tail
	}

	if a.helpOpen {
		body = helpView(a.user.IsAdmin())
		help = " " + helpEntry("esc", "close")
	}

	// Chrome budget: header(2) + tabs(1) + gap(1) + help(1) = 5 lines + body
	body = strings.TrimRight(truncateToHeight(body, a.height-5), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", header, tabBar.String(), body, help)
}

func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
