package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dravyalabs/internal/config"
	"dravyalabs/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=vX.Y.Z"
var Version = "dev"

var (
	// Global flags
	envFile string
	apiURL  string
	verbose bool

	// Set up by the root command before any subcommand runs
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dravyalabs",
	Short: "Dravya Labs water-quality identification form",
	Long: `Dravya Labs collects six water-quality sensor readings, sends them to the
identification backend, and shows the identified dravya with its description
and image.

Run without arguments to start the web form (same as "dravyalabs serve").`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if err := cfg.Override("", apiURL, verbose); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		logger, err = logging.New(cfg.Debug())
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded", zap.Stringer("config", cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Identification backend URL (overrides DRAVYA_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Serve flags are shared with the root command since it serves by default
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&listenAddr, "addr", "", "HTTP listen address (overrides DRAVYA_ADDR)")
	}

	// Identify flags
	for _, f := range readingFlags {
		identifyCmd.Flags().StringVar(f.value, f.name, "", f.usage)
		identifyCmd.MarkFlagRequired(f.name)
	}

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(researchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
