// wmglue: desktop glue for an X11 tiling window manager.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wmglue",
		Short: "Desktop glue for an X11 tiling window manager",
		Long: `wmglue bundles the small services that sit between a tiling window
manager and the rest of the desktop: a clipboard relay, a window layout
server, a rofi menu, a terminal tagger and a window placement heuristic.

Config file search order (first found wins):
  /etc/wmglue/wmglue.toml
  $HOME/.config/wmglue/wmglue.toml
  path supplied via --config

All flags can be set via WMGLUE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRelayCmd(),
		newLayoutCmd(),
		newRofiCmd(),
		newTagCmd(),
		newPlaceCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wmglue %s\n", Version)
		},
	}
}
