/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/purgo-board/apiserver/config"
	"github.com/purgo-board/apiserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "board",
	Short: "Community board API server",
	Long: `Community board API server with moderated posts and comments.

	board server
	board worker
	board migrate up
	board restrict set --user alice --duration 24h
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg config.Config, service string) *slog.Logger {
	logger := logging.New(service, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}
