package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelCompletesOnDoneMsg(t *testing.T) {
	m := model{title: "login", cancel: func() {}}
	next, cmd := m.Update(doneMsg{details: []string{"user=admin"}})
	fm := next.(model)
	if !fm.done || cmd == nil {
		t.Fatal("expected model to finish and quit")
	}
	view := fm.View()
	if !strings.Contains(view, "login") || !strings.Contains(view, "user=admin") {
		t.Fatalf("unexpected view %q", view)
	}
}

func TestModelCtrlCCancels(t *testing.T) {
	cancelled := false
	m := model{title: "probe", cancel: func() { cancelled = true }}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled || next.(model).done {
		t.Fatal("ctrl+c must cancel without completing")
	}
}

func TestRenderIncludesError(t *testing.T) {
	out := render("refresh", nil, errors.New("invalid refresh token"))
	if !strings.Contains(out, "invalid refresh token") {
		t.Fatalf("expected error in %q", out)
	}
}
