package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/xcloud/console-client/internal/apierror"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), 1},
		{apierror.Auth(errors.New("invalid refresh token")), 3},
		{&checkFailedError{err: errors.New("2 of 5 requests failed")}, 4},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("admin123\nignored\n"))
	if err != nil || got != "admin123" {
		t.Fatalf("readLine=%q err=%v", got, err)
	}
	got, err = readLine(strings.NewReader("no-newline"))
	if err != nil || got != "no-newline" {
		t.Fatalf("readLine=%q err=%v", got, err)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"login", "logout", "status", "refresh", "profile", "users", "get", "token", "probe", "doctor"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
