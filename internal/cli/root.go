package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sublate/internal/config"
	"sublate/internal/logging"
)

var (
	verbose    bool
	configFlag string

	logger *logging.Logger

	cfg                *config.Config
	resolvedConfigPath string
	configExists       bool
)

var rootCmd = &cobra.Command{
	Use:   "sublate",
	Short: "Language-aware subtitle translator",
	Long: `Sublate translates subtitle files while preserving cues that are
already in the target language.

Each cue is classified individually, so bilingual tracks only pay for the
cues that actually need translating. Requests are routed across multiple
translation providers with retry and failover, and every run is recorded
for later inspection with the report command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		// A .env next to the working directory is a convenience for API
		// keys; absence is not an error.
		_ = godotenv.Load()

		if shouldSkipConfig(cmd) {
			return nil
		}

		loaded, path, exists, err := config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		resolvedConfigPath = path
		configExists = exists

		if exists {
			logger.Debugw("Loaded configuration", "path", path)
		} else {
			logger.Debugw("No config file found, using defaults", "path", path)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configFlag, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().
		StringP("output", "o", "", "Output file or directory")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
