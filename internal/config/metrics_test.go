package config

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyConfigLoadError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "session dsn", err: errors.New("validate config: XCLOUD_SESSION_DSN is required for the sqlite backend"), want: "session_storage"},
		{name: "session backend", err: errors.New(`validate config: unsupported XCLOUD_SESSION_BACKEND "etcd"`), want: "session_storage"},
		{name: "endpoint", err: errors.New(`validate config: XCLOUD_API_BASE_URL must be an absolute URL, got "api"`), want: "endpoint"},
		{name: "jwt", err: errors.New("validate config: JWT secrets must be at least 32 characters"), want: "jwt"},
		{name: "mock api", err: errors.New(`validate config: unsupported MOCKAPI_DENYLIST_BACKEND "disk"`), want: "mock_api"},
		{name: "unclassified validation", err: errors.New("validate config: something new"), want: "validation"},
		{name: "parse", err: errors.New("parse XCLOUD_REQUEST_TIMEOUT: invalid duration"), want: "parse"},
		{name: "other", err: errors.New("some other load error"), want: "load"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConfigLoadError(tc.err); got != tc.want {
				t.Fatalf("classifyConfigLoadError()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeConfigProfile(t *testing.T) {
	if got := normalizeConfigProfile("  ProD  "); got != "prod" {
		t.Fatalf("expected prod, got %q", got)
	}
	if got := normalizeConfigProfile("   "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func FuzzNormalizeConfigProfileRobustness(f *testing.F) {
	f.Add("  ProD  ")
	f.Add("   ")
	f.Add("")
	f.Add("ðŸ”¥PRODðŸ”¥")
	f.Add(strings.Repeat("A", 4096))

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 8192 {
			raw = raw[:8192]
		}

		got := normalizeConfigProfile(raw)
		if got == "" {
			t.Fatal("normalized profile must not be empty")
		}
		if strings.TrimSpace(raw) == "" && got != "unknown" {
			t.Fatalf("expected unknown for empty/whitespace input, got %q", got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("normalized profile must be valid UTF-8: %q", got)
		}

		again := normalizeConfigProfile(raw)
		if got != again {
			t.Fatalf("normalizeConfigProfile must be deterministic: first=%q second=%q", got, again)
		}
	})
}
