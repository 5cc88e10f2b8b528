package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/shell"
	"go.klb.dev/wmglue/internal/tagger"
	"go.klb.dev/wmglue/internal/wm"
	"go.klb.dev/wmglue/internal/xprop"
)

func newTagCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Mark terminals that are running a command",
		Long: `Polls dwm for its clients. Terminals with a foreground command get a
marked title and the command in _NET_MY_NOTE; terminals idle for longer than
--idle-timeout are sent SIGTERM unless --no-reap is given.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runTag(v) },
	}

	f := cmd.Flags()
	f.Duration("interval", tagger.DefaultInterval, "polling interval")
	f.Duration("idle-timeout", tagger.DefaultIdleTimeout, "close terminals unfocused for this long")
	f.Bool("no-reap", false, "never close idle terminals")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address (empty = off)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runTag(v *viper.Viper) error {
	setupLogging(v)
	ctx, stop := signalContext()
	defer stop()

	conn, err := xprop.Dial()
	if err != nil {
		return fmt.Errorf("x11: %w", err)
	}
	defer conn.Close()

	reg := metrics.NewRegistry()
	r := shell.New()
	t := tagger.New(wm.NewDwm(r), r, conn, reg)
	if d := v.GetDuration("interval"); d > 0 {
		t.Interval = d
	}
	if d := v.GetDuration("idle-timeout"); d > 0 {
		t.IdleTimeout = d
	}
	t.Reap = !v.GetBool("no-reap")

	if addr := v.GetString("metrics-addr"); addr != "" {
		go func() {
			if err := serveHTTP(ctx, "tagger metrics", addr, metrics.Handler(reg)); err != nil {
				slog.Warn("metrics server failed", "err", err)
			}
		}()
	}

	slog.Info("wmglue tagger starting", "version", Version)
	t.Run(ctx)
	return nil
}
