package tui

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ticketdawg/checkin/pkg/client"
)

func TestLoginRequiresBothFields(t *testing.T) {
	m := newLoginModel(nil)
	m.username = "gatekeeper"
	m.focus = loginPassword

	m, cmd := m.Update(key("enter"))
	if cmd != nil {
		t.Error("expected no API call with an empty password")
	}
	if !strings.Contains(m.View(), "Please enter username and password.") {
		t.Errorf("expected validation error, got:\n%s", m.View())
	}
}

func TestLoginEnterOnUsernameMovesFocus(t *testing.T) {
	m := newLoginModel(nil)
	m, cmd := m.Update(key("enter"))
	if cmd != nil || m.focus != loginPassword {
		t.Errorf("expected focus on password without submit, focus=%d cmd=%v", m.focus, cmd != nil)
	}
}

func TestLoginSubmitCallsAPI(t *testing.T) {
	c := apiServer(t, map[string]string{
		"/auth/login": `{"success":true,"data":{"token":"abc","user":{"id":"u2","username":"gatekeeper","role":"issuer"}}}`,
	})
	m := newLoginModel(c)
	m.username = " gatekeeper "
	m.password = "secret1"
	m.focus = loginPassword

	m, cmd := m.Update(key("enter"))
	if !m.busy || cmd == nil {
		t.Fatal("expected a login request in flight")
	}
	msgs := runCmd(cmd)
	done, ok := msgs[0].(loginDoneMsg)
	if !ok {
		t.Fatalf("expected loginDoneMsg, got %T", msgs[0])
	}
	if done.err != nil {
		t.Fatalf("login failed: %v", done.err)
	}
	if done.res.Token != "abc" || done.res.User.Username != "gatekeeper" {
		t.Errorf("unexpected login result %+v", done.res)
	}
}

func TestLoginFailureShowsReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad credentials", &client.HTTPError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}, "Invalid username or password."},
		{"api reason", &client.HTTPError{StatusCode: http.StatusForbidden, Message: "Account disabled"}, "Account disabled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newLoginModel(nil)
			m.busy = true
			m.password = "secret1"
			m, _ = m.Update(loginDoneMsg{err: tc.err})
			if m.busy {
				t.Error("expected busy cleared")
			}
			if m.password != "" {
				t.Error("expected password cleared after a failed login")
			}
			if !strings.Contains(m.View(), tc.want) {
				t.Errorf("expected %q in view, got:\n%s", tc.want, m.View())
			}
		})
	}
}

func TestLoginIgnoresKeysWhileBusy(t *testing.T) {
	m := newLoginModel(nil)
	m.busy = true
	m, _ = m.Update(key("x"))
	if m.username != "" {
		t.Errorf("expected input ignored while busy, got %q", m.username)
	}
}
