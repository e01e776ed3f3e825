package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/forensic-scan/internal/observability/logging"
)

var rootCmd = &cobra.Command{
	Use:          "scanctl",
	Short:        "scanctl requests forensic piracy reports from the terminal",
	SilenceUsage: true,
	Long:         `scanctl submits a local file or a URL for a generated forensic piracy report and renders the result as a table, JSON, YAML or PDF.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "scanctl", level))
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level for diagnostics written to stderr")
}
