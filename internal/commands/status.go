package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lookaway/internal/config"
	"lookaway/internal/platform"
)

func addStatus(topLevel *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show the running daemon's schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := o.path()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			reply, err := platform.Query(ctx, appName, "status")
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(reply, "\n"))
				return nil
			}
			if !errors.Is(err, platform.ErrNotRunning) {
				return err
			}

			cfg, err := config.NewConfigManager(path).Load()
			if err != nil {
				return err
			}
			printConfigured(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func printConfigured(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "LookAway is not running.")
	fmt.Fprintf(w, "Interval:      every %d minutes (long break every %d)\n", cfg.ReminderIntervalMinutes, cfg.LongBreakInterval)
	var chans []string
	for _, id := range cfg.EnabledChannels() {
		chans = append(chans, string(id))
	}
	if len(chans) == 0 {
		chans = []string{"none"}
	}
	fmt.Fprintf(w, "Channels:      %s\n", strings.Join(chans, ", "))
	if cfg.QuietHours.Enabled {
		fmt.Fprintf(w, "Quiet hours:   %s-%s\n", cfg.QuietHours.Start, cfg.QuietHours.End)
	} else {
		fmt.Fprintln(w, "Quiet hours:   off")
	}
	if cfg.DoNotDisturb {
		fmt.Fprintln(w, "Do not disturb: on")
	}
}
