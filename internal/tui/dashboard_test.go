package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ticketdawg/checkin/pkg/domain"
)

func newTestDashboard(u *domain.User) dashboardModel {
	m := newDashboardModel(nil)
	m.user = u
	m.width = 100
	m.height = 30
	return m
}

func TestDashboardShowsGlobalStats(t *testing.T) {
	m := newTestDashboard(testAdmin)
	m, _ = m.Update(statsLoadedMsg{stats: &domain.TicketStats{
		Global: domain.GlobalTicketStats{Total: 65, Sent: 12, Used: 4, Remaining: 53},
	}})

	view := m.View()
	for _, want := range []string{"Total Tickets", "65", "Tickets Sent", "12", "Remaining", "53"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view, got:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Your Statistics") {
		t.Error("admins should not see personal stats")
	}
}

func TestDashboardShowsPersonalStatsForIssuer(t *testing.T) {
	m := newTestDashboard(testIssuer)
	m, _ = m.Update(statsLoadedMsg{stats: &domain.TicketStats{
		Personal: &domain.PersonalTicketStats{TicketsIssued: 7, TicketsScanned: 2},
	}})
	view := m.View()
	if !strings.Contains(view, "Your Statistics") || !strings.Contains(view, "Tickets Scanned") {
		t.Errorf("expected personal stats, got:\n%s", view)
	}
}

func TestDashboardStatsError(t *testing.T) {
	m := newTestDashboard(testIssuer)
	m, _ = m.Update(statsLoadedMsg{err: errors.New("connection refused")})
	if !strings.Contains(m.View(), "connection refused") {
		t.Errorf("expected error in view, got:\n%s", m.View())
	}
}

func TestDashboardInitializeRequiresConfirmation(t *testing.T) {
	m := newTestDashboard(testAdmin)

	m, _ = m.Update(key("i"))
	if !m.confirmInit {
		t.Fatal("expected confirmation prompt")
	}
	m, cmd := m.Update(key("n"))
	if cmd != nil || m.confirmInit {
		t.Error("expected initialization cancelled on anything but y")
	}
	if !strings.Contains(m.View(), "cancelled") {
		t.Errorf("expected cancel notice, got:\n%s", m.View())
	}

	m, _ = m.Update(key("i"))
	m, cmd = m.Update(key("y"))
	if cmd == nil || !m.initBusy {
		t.Error("expected initialize request after y")
	}
}

func TestDashboardInitializeAdminOnly(t *testing.T) {
	m := newTestDashboard(testIssuer)
	m, _ = m.Update(key("i"))
	if m.confirmInit {
		t.Error("issuers must not be offered initialization")
	}
}

func TestDashboardInitializeResult(t *testing.T) {
	m := newTestDashboard(testAdmin)
	m.initBusy = true
	m, cmd := m.Update(initializeDoneMsg{})
	if cmd == nil {
		t.Error("expected stats reload after initialization")
	}
	if !strings.Contains(m.View(), "Tickets initialized.") {
		t.Errorf("expected success notice, got:\n%s", m.View())
	}
}

func TestDashboardSearch(t *testing.T) {
	m := newTestDashboard(testIssuer)
	m, _ = m.Update(key("/"))
	if !m.searching {
		t.Fatal("expected search mode")
	}
	for _, r := range "Guest@Example.com" {
		m, _ = m.Update(key(string(r)))
	}
	m, cmd := m.Update(key("enter"))
	if cmd == nil || m.searching {
		t.Fatal("expected search request and search mode closed")
	}

	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m, _ = m.Update(searchDoneMsg{email: "guest@example.com", tickets: []domain.Ticket{
		{TicketID: "17", Email: "guest@example.com", IsAssigned: true, IssuedAt: &issued},
	}})
	view := m.View()
	if !strings.Contains(view, "#17") || !strings.Contains(view, "assigned") {
		t.Errorf("expected search result, got:\n%s", view)
	}
}

func TestDashboardSearchNoResults(t *testing.T) {
	m := newTestDashboard(testIssuer)
	m, _ = m.Update(searchDoneMsg{email: "nobody@example.com"})
	if !strings.Contains(m.View(), "no tickets for nobody@example.com") {
		t.Errorf("expected empty result line, got:\n%s", m.View())
	}
}

func TestTicketRowStatus(t *testing.T) {
	used := time.Now()
	tests := []struct {
		name string
		t    domain.Ticket
		want string
	}{
		{"available", domain.Ticket{TicketID: "1"}, "available"},
		{"assigned", domain.Ticket{TicketID: "2", IsAssigned: true}, "assigned"},
		{"used", domain.Ticket{TicketID: "3", IsAssigned: true, IsUsed: true, UsedAt: &used}, "used"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if row := ticketRow(tc.t); !strings.Contains(row, tc.want) {
				t.Errorf("ticketRow = %q, want to contain %q", row, tc.want)
			}
		})
	}
}
