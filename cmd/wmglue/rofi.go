package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/wmglue/internal/menu"
	"go.klb.dev/wmglue/internal/shell"
)

func defaultMenuFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "menu.yaml"
	}
	return filepath.Join(home, ".config", "wmglue", "menu.yaml")
}

func newRofiCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "rofi [selection]",
		Short: "rofi script-mode menu",
		Long: `Implements rofi's script mode. Use it as:

  rofi -show wmglue -modes "wmglue:wmglue rofi"

Entries come from --menu-file (YAML) plus a built-in "clipboard" entry.
Entries used often float to the top of their submenu.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRofi(cmd, args, cmd.OutOrStdout(), v)
		},
	}

	f := cmd.Flags()
	f.String("menu-file", defaultMenuFile(), "YAML menu file")
	f.String("freq-file", menu.DefaultFreqPath(), "selection frequency store")
	f.String("clipboard-menu", menu.DefaultClipboardMenu, "clipboard history picker")
	f.String("log-level", "warn", "log level: debug|info|warn|error")
	f.String("log-format", "auto", "log format: auto|text|json")
	addConfigFlag(cmd)

	return cmd
}

func runRofi(cmd *cobra.Command, args []string, w io.Writer, v *viper.Viper) error {
	setupLogging(v)

	env, err := menu.LoadEnv()
	if err != nil {
		return err
	}
	entries, err := menu.LoadFile(v.GetString("menu-file"))
	if err != nil {
		return err
	}
	freq, err := menu.OpenFreqStore(v.GetString("freq-file"))
	if err != nil {
		return fmt.Errorf("freq store: %w", err)
	}

	b := &menu.Builder{Runner: shell.New(), ClipboardMenu: v.GetString("clipboard-menu")}
	s := &menu.Script{
		Root:    b.Build(entries),
		Freq:    freq,
		Exclude: menu.DefaultExclude,
	}
	return s.Handle(cmd.Context(), env, args, w)
}
