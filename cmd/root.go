// Package cmd implements the huginn command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/huginn/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug mode for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "huginn",
		Short: "Website compliance scanner",
		Long: `huginn crawls contractor websites, records forbidden-word violations
and classifies each site against merchant category code profiles.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
)

// Execute runs the root command.
func Execute() error {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("huginn version %s\n", bootstrap.Version)
		},
	})

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(scanCommand())
	rootCmd.AddCommand(rulesCommand())
}

// setup loads configuration and creates the logger for a command.
func setup() (*config.Config, logger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
