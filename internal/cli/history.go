package cli

import (
	"fmt"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd(deps *Deps, flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled check outcomes for a profile",
		Long: `Show the outcomes the monitor journaled for one profile, newest first.
Without --profile the profiles file default is used. Requires storage_type=bbolt.

Examples:
  zosmf-probe history --profile lpar1 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfile(flags)
			if err != nil {
				return err
			}
			name := p.Name

			cfg := deps.Config
			store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
				EntryTTL:        cfg.StorageTTL,
				CleanupInterval: cfg.StorageCleanupInterval,
				MaxHistory:      cfg.StorageMaxHistory,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			outcomes, err := store.History(name, limit)
			if err != nil {
				return err
			}

			if flags.jsonOutput {
				printJSON(deps.Out, outcomes)
				return nil
			}
			if len(outcomes) == 0 {
				fmt.Fprintf(deps.Out, "No journaled checks for profile %q.\n", name)
				return nil
			}
			for _, o := range outcomes {
				status := okLabel.Sprint("ok")
				detail := o.ZosmfVersion
				if !o.OK {
					status = errorLabel.Sprint(o.ErrorKind)
					detail = o.Message
				}
				fmt.Fprintf(deps.Out, "%s  %-24s %5dms  %s\n", o.CheckedAt.Format(time.RFC3339), status, o.ElapsedMS, detail)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of outcomes to show (0 for all)")
	return cmd
}
