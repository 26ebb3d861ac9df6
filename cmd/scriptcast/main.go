package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/internal/platform"
)

var (
	verbose bool
	timeout time.Duration

	cfg    *platform.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scriptcast",
	Short: "Turn topics into published avatar videos",
	Long: `scriptcast writes a short narration script for a topic (searching the web
for grounding when the topic needs current facts), renders it with a talking
avatar, writes YouTube metadata and uploads the result.

Settings come from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = platform.LoadConfig()
		if verbose {
			logger = zap.Must(zap.NewDevelopment())
		} else {
			logger = platform.NewLogger(cfg)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to the console")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")

	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(speakersCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
