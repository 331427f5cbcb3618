package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one transcode cycle",
	Long: `Scans for eligible pool videos (at most one batch), submits them to the job
service in rate-limited windows and follows each window to completion or the
polling budget. Prints the run summary as JSON.`,
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

		summary := a.engine.ProcessPoolVideos(ctx, projectID)
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
	processCmd.Flags().String("project", "", "limit the run to one project id")
}
