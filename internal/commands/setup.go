package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"lookaway/internal/app"
	"lookaway/internal/config"
	"lookaway/internal/reminder"
	"lookaway/internal/secrets"
	"lookaway/internal/setup"
	logx "lookaway/pkg/logx"
)

func addSetup(topLevel *cobra.Command, o *rootOptions) {
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Run the interactive setup wizard",
		Example: `
lookaway setup
lookaway setup --force --config ~/lookaway.yaml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.path()
			if err != nil {
				return err
			}
			if !stdinIsTerminal() {
				return errors.New("setup needs an interactive terminal")
			}
			cfgm := config.NewConfigManager(path)
			cfg, err := cfgm.Parse()
			switch {
			case force || errors.Is(err, fs.ErrNotExist):
				d := config.Default()
				cfg = &d
			case err != nil:
				return fmt.Errorf("%w: %s: %v (use --force to start over)", config.ErrUnavailable, path, err)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Updating existing settings in %s.\n", path)
			}
			if err := runWizard(cmd.Context(), cfgm, cfg, os.Stdin, cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings saved to %s. Start with: lookaway start\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard the current settings and start from defaults")
	topLevel.AddCommand(cmd)
}

// runWizard fills cfg interactively and saves it.
func runWizard(ctx context.Context, cfgm *config.ConfigManager, cfg *config.Config, in io.Reader, out io.Writer) error {
	sec := secrets.New()
	log := logx.NewConsole("warn")
	w := setup.New(setup.Options{
		In:       in,
		Out:      out,
		Password: setup.TerminalPassword,
		Secrets:  sec,
		Test: func(ctx context.Context, c *config.Config, id reminder.ChannelID) error {
			return app.ProbeChannel(ctx, c, sec, id, log)
		},
		Log: log,
	})
	if err := w.Run(ctx, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return cfgm.Save(cfg)
}
