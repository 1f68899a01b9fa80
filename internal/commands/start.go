package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"lookaway/internal/app"
	"lookaway/internal/config"
	"lookaway/internal/platform"
)

func addStart(topLevel *cobra.Command, o *rootOptions) {
	var noTray bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the reminder daemon",
		Long: `Run the reminder daemon in the system tray, or with --no-tray as a
console (interactive terminal) or headless service.`,
		Example: `
lookaway start
lookaway start --no-tray --config ~/.config/lookaway/settings.yaml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.path()
			if err != nil {
				return err
			}
			guard, err := platform.AcquireSingleInstance(appName)
			if errors.Is(err, platform.ErrAlreadyRunning) {
				return errors.New("lookaway is already running (try: lookaway status)")
			}
			if err != nil {
				return err
			}
			defer guard.Release()

			cfg, err := ensureConfigured(cmd, path)
			if err != nil {
				return err
			}

			opt := app.Options{
				ConfigPath: path,
				Tray:       cfg.Tray.Enabled && !noTray,
				Guard:      guard,
			}
			if !opt.Tray && stdinIsTerminal() {
				opt.ConsoleIn = os.Stdin
				opt.ConsoleOut = cmd.OutOrStdout()
				fmt.Fprintln(opt.ConsoleOut, "LookAway is running. Type help for commands.")
			}
			a, err := app.NewApp(opt)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "run without the system tray icon")
	topLevel.AddCommand(cmd)
}

// ensureConfigured runs the first-run wizard when the settings file is
// missing or still marked first_run. Without a terminal that is an error.
func ensureConfigured(cmd *cobra.Command, path string) (*config.Config, error) {
	cfgm := config.NewConfigManager(path)
	cfg, err := cfgm.Parse()
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrUnavailable, path, err)
	}
	if !missing && !cfg.FirstRun {
		return cfg, nil
	}
	if !stdinIsTerminal() {
		return nil, fmt.Errorf("%w: %s is not set up; run lookaway setup first", config.ErrUnavailable, path)
	}
	if missing {
		d := config.Default()
		cfg = &d
	}
	if err := runWizard(cmd.Context(), cfgm, cfg, os.Stdin, cmd.OutOrStdout()); err != nil {
		return nil, err
	}
	return cfg, nil
}
