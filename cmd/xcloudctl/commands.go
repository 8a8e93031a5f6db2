package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/tools/doctor"
	"github.com/xcloud/console-client/internal/tools/loadgen"
)

func newLoginCommand(opts *options) *cobra.Command {
	creds := domain.Credentials{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Username == "" {
				creds.Username = os.Getenv("XCLOUD_USERNAME")
			}
			if creds.Password == "" {
				creds.Password = os.Getenv("XCLOUD_PASSWORD")
			}
			if creds.Password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password from stdin: %w", err)
				}
				creds.Password = pw
			}
			if creds.Username == "" || creds.Password == "" {
				return errors.New("username and password are required")
			}
			return opts.run(cmd.Context(), "xcloudctl login", func(ctx context.Context) ([]string, error) {
				if _, err := opts.app.Session.Login(ctx, creds); err != nil {
					return nil, err
				}
				user, err := opts.app.Session.FetchProfile(ctx, opts.app.Users)
				if err != nil {
					return []string{"logged in, profile unavailable"}, nil
				}
				return []string{fmt.Sprintf("logged in as %s (%s)", user.Username, user.Role)}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "account username (or XCLOUD_USERNAME)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (or XCLOUD_PASSWORD, or first line of stdin)")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session on the API and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context(), "xcloudctl logout", func(ctx context.Context) ([]string, error) {
				if err := opts.app.Session.Logout(ctx); err != nil {
					return nil, err
				}
				return []string{"session cleared"}, nil
			})
		},
	}
}

func newRefreshCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context(), "xcloudctl refresh", func(ctx context.Context) ([]string, error) {
				if err := opts.app.Session.Refresh(ctx); err != nil {
					return nil, err
				}
				return []string{"expires_at=" + formatExpiry(opts.app.Session.Snapshot().ExpiresAt)}, nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := opts.app.Session.Snapshot()
			status := map[string]any{
				"authenticated":     snap.Authenticated(),
				"has_refresh_token": snap.RefreshToken != "",
				"expires_at":        formatExpiry(snap.ExpiresAt),
				"expired":           snap.Expired(time.Now()),
				"session_backend":   opts.app.Config.SessionBackend,
				"api_base_url":      opts.app.Config.APIBaseURL,
			}
			if snap.UserInfo != nil {
				status["username"] = snap.UserInfo.Username
				status["role"] = snap.UserInfo.Role
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newProfileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the current user and update the stored user info",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := opts.app.Session.FetchProfile(cmd.Context(), opts.app.Users)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), user)
		},
	}
}

func newUsersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts (admin only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := opts.app.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			if opts.ci {
				return writeJSON(cmd.OutOrStdout(), resp.Data)
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("USERNAME", "ROLE", "EMAIL", "ACTIVE")
			for _, u := range resp.Data {
				t.Row(u.Username, string(u.Role), u.Email, strconv.FormatBool(u.IsActive))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

func newGetCommand(opts *options) *cobra.Command {
	var (
		method string
		data   string
	)
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Call an API path through the authenticated pipeline and print the envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body json.RawMessage
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				body = json.RawMessage(data)
			}
			env, err := opts.app.Raw.Call(cmd.Context(), strings.ToUpper(method), args[0], body)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), env)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func newTokenCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, refreshing first when it is about to expire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := opts.app.Session.TokenSource(cmd.Context()).Token()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
			return err
		},
	}
}

func newProbeCommand(opts *options) *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Fire concurrent authenticated requests and report status classes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := opts.run(cmd.Context(), "xcloudctl probe", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, opts.app.Users, cfg)
				if err != nil {
					return res.Summary(), err
				}
				if res.Failures > 0 {
					return res.Summary(), fmt.Errorf("%d of %d requests failed", res.Failures, res.TotalRequests)
				}
				return res.Summary(), nil
			})
			if err != nil {
				return &checkFailedError{err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Profile, "profile", loadgen.ProfileMixed, "request mix: mixed, auth or admin")
	cmd.Flags().IntVar(&cfg.Requests, "requests", 20, "total requests")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "requests in flight")
	return cmd
}

func newDoctorCommand(opts *options) *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check API reachability, session storage and the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := opts.run(cmd.Context(), "xcloudctl doctor", func(ctx context.Context) ([]string, error) {
				return doctor.Run(ctx, doctor.Checks{
					Client:   opts.app.Client,
					Storage:  opts.app.Storage,
					Session:  opts.app.Session,
					Attempts: attempts,
				})
			})
			if err != nil {
				return &checkFailedError{err: err}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 5, "health check attempts before giving up")
	return cmd
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
