package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lookaway/internal/app"
	"lookaway/internal/config"
	"lookaway/internal/control"
	"lookaway/internal/storage"
	logx "lookaway/pkg/logx"
)

func addHistory(topLevel *cobra.Command, o *rootOptions) {
	var n int
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"log"},
		Short:   "List recent breaks from the history store",
		Example: `
lookaway history -n 25
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("-n must be at least 1")
			}
			path, err := o.path()
			if err != nil {
				return err
			}
			cfg, err := config.NewConfigManager(path).Load()
			if err != nil {
				return err
			}
			st, err := app.OpenHistory(cfg, logx.Nop())
			if errors.Is(err, storage.ErrDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled (no storage configured).")
				return nil
			}
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.RecentBreaks(cmd.Context(), n)
			if err != nil {
				return err
			}
			plain := color.NoColor || !stdoutIsTerminal()
			fmt.Fprint(cmd.OutOrStdout(), control.FormatHistory(recs, plain))
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 10, "how many breaks to show")
	topLevel.AddCommand(cmd)
}
