package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pool-transcoder",
	Short: "Transcodes uploaded pool videos through the external job service",
	Long: `pool-transcoder finds pool videos flagged for transcoding, submits them to the
external transcoding job service, follows the jobs to completion and writes the
outcome back to the database.

Common workflows:

  Run one transcode cycle for every project:
    pool-transcoder process

  Resolve videos left in processing by an earlier run:
    pool-transcoder recheck --project <project-id>

  Show per-status counts for a project:
    pool-transcoder status --project <project-id>

  Run the scheduler and internal HTTP API:
    pool-transcoder serve

Configuration is read from config.yml (or --config) and POOLTX_* environment
variables, e.g. POOLTX_DATABASE_URL, POOLTX_JOB_SERVICE_URL.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file")

	rootCmd.AddCommand(processCmd, recheckCmd, statusCmd, serveCmd, migrateCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// projectFlag parses --project; an empty value means every project.
func projectFlag(cmd *cobra.Command) (*uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("project")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --project %q: %w", raw, err)
	}
	return &id, nil
}
