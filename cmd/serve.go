package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/huginn/internal/bootstrap"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scan scheduler",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return bootstrap.Serve(cmd.Context(), cfg, log)
}
