package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ticketdawg/checkin/pkg/client"
	"github.com/ticketdawg/checkin/pkg/domain"
)

func TestIssueValidatesEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"", "Please enter an email address"},
		{"   ", "Please enter an email address"},
		{"not-an-email", "Please enter a valid email address"},
		{"a@b", "Please enter a valid email address"},
	}
	for _, tc := range tests {
		t.Run(tc.email, func(t *testing.T) {
			m := newIssueModel(nil)
			m.focused = true
			m.email = tc.email
			m, cmd := m.Update(key("enter"))
			if cmd != nil {
				t.Error("expected no API call for an invalid email")
			}
			if !strings.Contains(m.View(), tc.want) {
				t.Errorf("expected %q, got:\n%s", tc.want, m.View())
			}
		})
	}
}

func TestIssueSubmitNormalizesEmail(t *testing.T) {
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		sent = body["email"]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"success": true,
			"data":    map[string]any{"ticketID": "31", "email": sent, "isAssigned": true},
		})
	}))
	defer srv.Close()

	m := newIssueModel(client.New(srv.URL, "tok"))
	m.focused = true
	m.email = "  Guest@Example.COM "

	m, cmd := m.Update(key("enter"))
	if cmd == nil || !m.busy {
		t.Fatal("expected assign request")
	}
	done := runCmd(cmd)[0].(issueDoneMsg)
	if done.err != nil {
		t.Fatalf("assign failed: %v", done.err)
	}
	if sent != "guest@example.com" {
		t.Errorf("sent email = %q, want trimmed lower-case", sent)
	}

	m, _ = m.Update(done)
	view := m.View()
	if !strings.Contains(view, "Ticket Issued Successfully!") || !strings.Contains(view, "#31") {
		t.Errorf("expected issued panel, got:\n%s", view)
	}
	if m.email != "" {
		t.Errorf("expected form cleared, got %q", m.email)
	}
}

func TestIssueErrorMapping(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"This email already has a ticket", "This email already has a ticket assigned."},
		{"No tickets available", "No tickets available. All tickets have been issued."},
		{"Invalid email format", "Please enter a valid email address."},
		{"database exploded", "Failed to issue ticket. Please try again."},
	}
	for _, tc := range tests {
		t.Run(tc.reason, func(t *testing.T) {
			err := &client.HTTPError{StatusCode: http.StatusBadRequest, Message: tc.reason}
			if got := issueErrText(err); got != tc.want {
				t.Errorf("issueErrText(%q) = %q, want %q", tc.reason, got, tc.want)
			}
		})
	}
	if got := issueErrText(errors.New("dial tcp: refused")); got != "Failed to issue ticket. Please try again." {
		t.Errorf("transport error mapped to %q", got)
	}
}

func TestIssueFailureKeepsEmail(t *testing.T) {
	m := newIssueModel(nil)
	m.email = "guest@example.com"
	m.busy = true
	m, _ = m.Update(issueDoneMsg{err: &client.HTTPError{StatusCode: http.StatusConflict, Message: "Email already has a ticket"}})
	if m.email != "guest@example.com" {
		t.Error("expected email kept for correction")
	}
	if !strings.Contains(m.View(), "already has a ticket assigned") {
		t.Errorf("expected mapped error, got:\n%s", m.View())
	}
}

func TestIssueClearResetsForm(t *testing.T) {
	m := newIssueModel(nil)
	m.last = &domain.Ticket{TicketID: "5"}
	m.err = "stale"
	m, _ = m.Update(key("x"))
	if m.last != nil || m.err != "" {
		t.Error("expected x to clear the last ticket and error")
	}
}

func TestIssueEscLeavesEditing(t *testing.T) {
	m := newIssueModel(nil)
	m, _ = m.Update(key("enter"))
	if !m.focused {
		t.Fatal("expected enter to focus the email field")
	}
	m, _ = m.Update(key("esc"))
	if m.focused {
		t.Error("expected esc to leave the field")
	}
}
