// Package commands provides the CLI commands for strands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs  bool
	logLevel   string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "strands",
	Short: "strands - a model-driven agent runtime",
	Long: `strands runs an agent loop against a language model, executing the tools the
model requests until it produces a final answer.

Run 'strands run "<prompt>"' for a single invocation, or 'strands serve'
to expose the agent over HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR); defaults to the configured level")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Read configuration from this file only")

	rootCmd.SetVersionTemplate(fmt.Sprintf("strands %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
