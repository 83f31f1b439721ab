package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/killallgit/audio-recap/pkg/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audio-recap",
	Short: "Audio summarization service",
	Long: `Audio Recap - summarize recorded audio and ask follow-up questions

Uploaded audio is compressed when it exceeds the speech service limit,
transcribed, and summarized by a conversational service that keeps the
context for follow-up questions.

Features:
  • Adaptive re-encoding to fit the transcription size limit
  • Streaming summaries with follow-up questions in the same conversation
  • HTTP API with server-sent progress events
  • Interactive terminal mode`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Add persistent flags for logging configuration
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides logging.level")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig initializes configuration and logging for the commands that
// need them. version and help run without a config.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	level := config.GetString("logging.level")
	if cmd.Flags().Changed("log-level") {
		level, _ = cmd.Flags().GetString("log-level")
	}
	jsonLogs := config.GetString("logging.format") == "json"
	if cmd.Flags().Changed("json-logs") {
		jsonLogs, _ = cmd.Flags().GetBool("json-logs")
	}

	logging.InitWithOutput(level, jsonLogs, cmd.ErrOrStderr())
	return nil
}
