package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pavilion/internal/config"
	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/session"
)

var (
	sessionFlag string
	jsonOutput  bool
)

// withController runs fn against the controller of the selected session,
// without starting the server. Preferences are read from and written to
// the configured store.
func withController(cmd *cobra.Command, sessionID string, fn func(ctx context.Context, ctrl *controller.Controller) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if logCfg.Level != "debug" {
		logCfg.Level = "warn"
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), logCfg))

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	ctrl, err := d.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return fn(ctx, ctrl)
}

// sessionOrDefault is the --session value, or the default session.
func sessionOrDefault() string {
	if sessionFlag == "" {
		return session.DefaultID
	}
	return sessionFlag
}

// oneShotSession is the --session value, or a fresh session ID so one-off
// AI questions do not share a transcript.
func oneShotSession() string {
	if sessionFlag != "" {
		return sessionFlag
	}
	return "cli-" + strings.ToLower(ulid.Make().String())
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// orDash renders empty cells as "-".
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
