// Package commands is the lookaway command line.
package commands

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lookaway/internal/config"
)

// appName keys the single-instance socket and the keyring service.
const appName = "lookaway"

type rootOptions struct {
	ConfigPath string
}

// path returns --config (with ~ expanded) or the default settings path.
func (o *rootOptions) path() (string, error) {
	if o.ConfigPath != "" {
		return config.ExpandPath(o.ConfigPath)
	}
	return config.DefaultPath()
}

func New() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lookaway",
		Short:         "Reminds you to rest your eyes at regular intervals.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&o.ConfigPath, "config", "", "settings file (default <user config dir>/lookaway/settings.yaml)")

	addCommands(cmd, o)
	return cmd
}

func addCommands(topLevel *cobra.Command, o *rootOptions) {
	addStart(topLevel, o)
	addSetup(topLevel, o)
	addStatus(topLevel, o)
	addHistory(topLevel, o)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
