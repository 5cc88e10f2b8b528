package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"go.klb.dev/wmglue/internal/layout"
	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/shell"
	"go.klb.dev/wmglue/internal/wm"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Expose the window layout to other programs",
	}
	cmd.AddCommand(
		newLayoutServeCmd(),
		newLayoutListCmd(),
		newLayoutMCPCmd(),
	)
	return cmd
}

// addListerFlags adds the flags that pick how windows are enumerated.
func addListerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("lister", "dwm", "window source: dwm|wmctrl")
	f.Int("wmctrl-scale", 2, "divisor applied to wmctrl x/y coordinates")
	addConfigFlag(cmd)
}

func newLayoutService(v *viper.Viper) (*layout.Service, error) {
	r := shell.New()
	var lister wm.Lister
	switch kind := v.GetString("lister"); kind {
	case "dwm":
		lister = wm.NewDwm(r)
	case "wmctrl":
		lister = wm.NewWmctrl(r, v.GetInt("wmctrl-scale"))
	default:
		return nil, fmt.Errorf("unknown lister %q", kind)
	}
	return layout.NewService(lister, wm.NewController(r)), nil
}

func newLayoutServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP server",
		Long: `Serves the window list and focus/hotkey/command actions over HTTP with
permissive CORS so a browser page (--static) can drive the window manager.

Precedence (lowest → highest): defaults → config file → WMGLUE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runLayoutServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", layout.DefaultAddr, "listen address")
	f.String("static", "", "directory served for unmatched GET requests")
	f.Float64("rps", 20, "request rate limit for focus/hotkey/command (0 = unlimited)")
	f.Int("burst", 40, "burst size for the rate limit")
	addListerFlags(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func runLayoutServe(v *viper.Viper) error {
	setupLogging(v)
	ctx, stop := signalContext()
	defer stop()

	svc, err := newLayoutService(v)
	if err != nil {
		return err
	}
	opts := layout.Options{
		StaticDir: v.GetString("static"),
		RPS:       v.GetFloat64("rps"),
		Burst:     v.GetInt("burst"),
		Registry:  metrics.NewRegistry(),
	}
	if opts.StaticDir != "" {
		if err := layout.CheckStaticDir(opts.StaticDir); err != nil {
			return fmt.Errorf("static dir: %w", err)
		}
	}
	if _, err := svc.Refresh(ctx); err != nil {
		slog.Warn("initial window list failed", "err", err)
	}

	slog.Info("wmglue layout starting", "version", Version, "lister", v.GetString("lister"))
	return serveHTTP(ctx, "layout", v.GetString("addr"), layout.NewRouter(svc, opts))
}

func newLayoutListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "Print the current window snapshot as YAML",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runLayoutList(cmd.OutOrStdout(), v) },
	}

	addListerFlags(cmd)

	return cmd
}

func runLayoutList(w io.Writer, v *viper.Viper) error {
	svc, err := newLayoutService(v)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	snap, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(snap)
}

func newLayoutMCPCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the layout operations as MCP tools over stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout exposing
list_windows, focus_window and send_hotkey. Logs go to stderr.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runLayoutMCP(v) },
	}

	addListerFlags(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func runLayoutMCP(v *viper.Viper) error {
	setupLogging(v)
	svc, err := newLayoutService(v)
	if err != nil {
		return err
	}
	return layout.ServeMCP(svc, Version)
}
