package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show transcoding counts for a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := projectFlag(cmd)
		if err != nil {
			return err
		}
		if projectID == nil {
			return errors.New("--project is required")
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.engine.PoolTranscodingStatus(ctx, *projectID)
		if err := printJSON(cmd, snap); err != nil {
			return err
		}
		if !snap.Success {
			return errors.New(snap.Error)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("project", "", "project id")
}
