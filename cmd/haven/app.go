package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/haven-app/haven/internal/haven"
	"github.com/haven-app/haven/internal/local"
	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
	"github.com/haven-app/haven/internal/ui"
)

// openCore opens the Local Store (falling back to memory) and starts a core.
// The caller must Close it; closing flushes pending remote writes.
func openCore(ctx context.Context) *haven.Core {
	store := local.OpenOrEphemeral(cfg.DBPath(), logs.New("local"))
	logger := logs.New("core")

	core := haven.New(haven.Options{
		Store:         store,
		Logger:        logger,
		Owner:         cfg.Owner,
		GroceryWindow: cfg.Grocery.WindowDays,
		Offline:       offline,
		Connect: func(rc remote.Config) (remote.Adapter, error) {
			return remote.New(rc, logs.New("remote"))
		},
	})
	if err := core.Start(ctx); err != nil {
		fatalf("Error loading local data: %v", err)
	}
	if !core.Durable() {
		fmt.Fprintf(os.Stderr, "%s Changes will not be saved: local storage is unavailable\n", ui.RenderWarn("⚠"))
	}
	return core
}

func closeCore(core *haven.Core) {
	if err := core.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDay accepts YYYY-MM-DD or natural language ("tomorrow", "next
// friday") relative to now, and returns the date key. Empty means today.
func parseDay(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return schema.DateKey(now), nil
	}
	if t, err := schema.ParseDate(s); err == nil {
		return schema.DateKey(t), nil
	}

	r, err := dateParser.Parse(s, now)
	if err != nil {
		return "", fmt.Errorf("cannot parse date %q: %w", s, err)
	}
	if r == nil {
		return "", fmt.Errorf("cannot parse date %q (use YYYY-MM-DD or e.g. \"tomorrow\")", s)
	}
	return schema.DateKey(r.Time), nil
}

func mustDay(s string) string {
	day, err := parseDay(s, time.Now())
	if err != nil {
		fatalf("Error: %v", err)
	}
	return day
}
