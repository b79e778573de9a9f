package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/focusbot/internal/config"
	"github.com/teemow/focusbot/internal/logging"
)

// rootCmd represents the base command for the focusbot application
var rootCmd = &cobra.Command{
	Use:   "focusbot",
	Short: "Books focus sessions and keeps a shared focus timer",
	Long: `focusbot finds free focus-session slots in a calendar, books them, reminds
a Signal chat shortly before each event starts and keeps a per-task focus timer
that survives restarts.

It can run as:
  - An HTTP API server with the reminder scheduler (serve)
  - A terminal timer client against that server (client)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(logging.Options{Level: logLevel(), Format: rootFlags.logFormat})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

type globalFlags struct {
	configPath string
	debug      bool
	logFormat  string
}

var rootFlags globalFlags

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "focusbot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", config.DefaultPath(), "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newClientCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
