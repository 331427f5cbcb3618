package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var recheckCmd = &cobra.Command{
	Use:   "recheck",
	Short: "Resolve videos left in processing",
	Long: `Polls the job of every video still in processing once and records the
outcome of finished jobs. Videos whose submission never produced a job are
failed after the orphan timeout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := projectFlag(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		summary := a.engine.CheckProcessingVideos(ctx, projectID)
		if err := printJSON(cmd, summary); err != nil {
			return err
		}
		if !summary.Success {
			return errors.New(summary.Error)
		}
		return nil
	},
}

func init() {
	recheckCmd.Flags().String("project", "", "limit the pass to one project id")
}
