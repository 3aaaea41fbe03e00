package cli

import (
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/app"
	"github.com/spf13/cobra"
)

func newMonitorCmd(deps *Deps, flags *globalFlags) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check every profile periodically until interrupted",
		Long: `Check every configured profile once per interval. Each outcome is written to
the check journal and sent to the configured publishers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *deps.Config
			cfg.ProfilesFile = flags.profilesFile
			if interval > 0 {
				cfg.CheckInterval = interval
			}

			m, err := app.NewMonitor(cmd.Context(), &cfg, deps.Checker, deps.Log)
			if err != nil {
				return err
			}
			return m.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Override check_interval, e.g. 1m")
	return cmd
}
