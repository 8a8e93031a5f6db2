// Package loadgen drives bursts of authenticated calls through the request
// pipeline. It is how the concurrent-401 refresh path gets exercised by hand.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xcloud/console-client/internal/api"
	"github.com/xcloud/console-client/internal/apierror"
)

const (
	ProfileMixed = "mixed"
	ProfileAuth  = "auth"
	ProfileAdmin = "admin"
)

type Config struct {
	Profile     string
	Requests    int
	Concurrency int
}

type Result struct {
	TotalRequests int
	Failures      int
	LoggedOut     int
	StatusClasses map[string]int
	Duration      time.Duration
}

// Summary renders the result as stable key=value lines.
func (r Result) Summary() []string {
	lines := []string{
		fmt.Sprintf("total=%d", r.TotalRequests),
		fmt.Sprintf("failures=%d", r.Failures),
		fmt.Sprintf("logged_out=%d", r.LoggedOut),
		fmt.Sprintf("duration=%s", r.Duration.Round(time.Millisecond)),
	}
	classes := make([]string, 0, len(r.StatusClasses))
	for class := range r.StatusClasses {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		lines = append(lines, fmt.Sprintf("status_%s=%d", class, r.StatusClasses[class]))
	}
	return lines
}

// Run issues cfg.Requests calls with at most cfg.Concurrency in flight.
// Request failures are counted, not returned; only cancellation and bad
// configuration produce an error.
func Run(ctx context.Context, users api.UserAPI, cfg Config) (Result, error) {
	profile := normalizeProfile(cfg.Profile)
	switch profile {
	case ProfileMixed, ProfileAuth, ProfileAdmin:
	default:
		return Result{}, fmt.Errorf("unsupported probe profile %q", cfg.Profile)
	}
	if cfg.Requests <= 0 {
		return Result{}, errors.New("requests must be positive")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	var (
		mu  sync.Mutex
		res = Result{StatusClasses: map[string]int{}}
	)
	record := func(err error) {
		status := http.StatusOK
		if err != nil {
			status = apierror.Code(err)
		}
		mu.Lock()
		defer mu.Unlock()
		res.TotalRequests++
		res.StatusClasses[classifyStatusClass(status)]++
		if err != nil {
			res.Failures++
			if errors.Is(err, apierror.ErrLoggedOut) {
				res.LoggedOut++
			}
		}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := 0; i < cfg.Requests; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			record(call(gctx, users, profile, i))
			return nil
		})
	}
	_ = g.Wait()
	res.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func call(ctx context.Context, users api.UserAPI, profile string, i int) error {
	useList := profile == ProfileAdmin || (profile == ProfileMixed && i%2 == 1)
	if useList {
		_, err := users.List(ctx)
		return err
	}
	_, err := users.Profile(ctx)
	return err
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(raw string) string {
	p := strings.ToLower(strings.TrimSpace(raw))
	if p == "" {
		return ProfileMixed
	}
	return p
}
