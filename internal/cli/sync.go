package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kitchen/pkg/reposync"
)

// syncCommand clones or pulls the kitchen repository once.
func (c *CLI) syncCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the kitchen repository once",
		Long: `Clone the kitchen repository when it is missing, pull it otherwise, then
run the configured post-sync command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			syncer := reposync.New(cfg.Repo, cfg.Server.SyncdateFile, nil, loggerFromContext(cmd.Context()))
			if cmd.Flags().Changed("depth") {
				syncer.Depth = depth
			}

			spinner := newSpinnerWithContext(cmd.Context(), "Syncing "+cfg.Repo.Dir())
			spinner.Start()
			res, err := syncer.Sync(cmd.Context())
			if err != nil {
				spinner.StopWithError("Sync failed")
				return err
			}

			switch {
			case res.Action == reposync.ActionClone:
				spinner.StopWithSuccess("Cloned " + cfg.Repo.URL)
			case res.Updated:
				spinner.StopWithSuccess("Pulled new commits")
			default:
				spinner.StopWithSuccess("Already up to date")
			}
			printKeyValue("Directory", cfg.Repo.Dir())
			printKeyValue("Head", res.Head)
			printKeyValue("Took", res.Duration.Round(time.Millisecond).String())
			printNextStep("Serve the dashboard", "kitchen serve --no-sync")
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 1, "clone depth, 0 for full history")
	return cmd
}
