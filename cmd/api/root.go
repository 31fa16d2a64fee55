package main

import (
	"github.com/spf13/cobra"

	"github.com/ocean-authoring/ocean-backend/config"
	"github.com/ocean-authoring/ocean-backend/internal/logging"
)

const serviceName = "ocean-backend"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ocean",
	Short: "AI document authoring backend",
	Long: `ocean serves the document authoring API: projects, AI outlines,
section generation and refinement, and Word/PowerPoint export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opts := logging.Options{Level: logLevel, Format: logFormat}
		if cfg, err := config.Parse(); err == nil {
			if opts.Level == "" {
				opts.Level = cfg.Log.Level
			}
			if opts.Format == "" {
				opts.Format = cfg.Log.Format
			}
			opts.File = cfg.Log.File
		}
		logging.Setup(opts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text (default from LOG_FORMAT)")

	rootCmd.AddCommand(serveCmd, migrateCmd, renderCmd)
}
