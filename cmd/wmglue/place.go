package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/wmglue/internal/metrics"
	"go.klb.dev/wmglue/internal/place"
)

func newPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Order windows so related ones sit together",
	}
	cmd.AddCommand(newPlaceServeCmd(), newPlaceResortCmd())
	return cmd
}

func newPlaceServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the placement HTTP server",
		Long: `POST /resort with form fields names and classes (or launchparents) as
comma separated lists answers with the spiral order as comma separated
indices.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runPlaceServe(v) },
	}

	cmd.Flags().String("addr", place.DefaultAddr, "listen address")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPlaceServe(v *viper.Viper) error {
	setupLogging(v)
	ctx, stop := signalContext()
	defer stop()

	slog.Info("wmglue place starting", "version", Version)
	return serveHTTP(ctx, "place", v.GetString("addr"), place.NewRouter(metrics.NewRegistry()))
}

func newPlaceResortCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "resort",
		Short:   "Print the spiral order for a set of windows",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPlaceResort(cmd.OutOrStdout(), v) },
	}

	f := cmd.Flags()
	f.String("names", "", "comma separated window titles")
	f.String("classes", "", "comma separated window classes")
	f.String("launchparents", "", "comma separated launch-parent indices (-1 = none)")
	addConfigFlag(cmd)

	return cmd
}

func runPlaceResort(w io.Writer, v *viper.Viper) error {
	req, err := place.ParseRequest(v.GetString("names"), v.GetString("classes"), v.GetString("launchparents"), "")
	if err != nil {
		return err
	}
	p, err := place.Resort(req)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, place.FormatOrder(p.Order))
	return err
}
