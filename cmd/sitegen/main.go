// Package main provides the sitegen CLI, which turns natural-language prompts
// into published site previews by driving a site builder's web UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/sitegen/pkg/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configFile  string
	outputDir   string
	metricsFile string
	envFiles    []string
	verbose     bool
)

// errGenerationFailed marks a run that completed but produced a failed result.
// The result has already been printed, so main only sets the exit code.
var errGenerationFailed = errors.New("generation failed")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sitegen",
	Short: "Generate site previews from prompts",
	Long: `sitegen signs in to a site builder, submits a prompt, and waits for the
preview URL of the generated site.

Credentials are read from LOVABLE_EMAIL and LOVABLE_PASSWORD, which may also be
set in a .env file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Artifact directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default: .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	_ = logging.Close()

	if err != nil {
		if !errors.Is(err, errGenerationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sitegen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitegen v%s\n", version)
	},
}
