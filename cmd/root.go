package cmd

import (
	"fmt"
	"os"

	config "github.com/inference-gateway/modui/config"
	logger "github.com/inference-gateway/modui/internal/logger"
	cobra "github.com/spf13/cobra"
	viper "github.com/spf13/viper"
)

// V holds the configuration resolved by initConfig
var V *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "modui",
	Short: "Run independent UI modules on one shared event loop",
	Long: `modui routes every event produced by a terminal, an X11 window or a
scripted replay through an ordered chain of modules. Modules observe events,
may capture them, and may fail the run; the first failure is reported once
the source stops.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	defer logger.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", fmt.Sprintf("config file (default is %s)", config.DefaultConfigPath))
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	explicit, _ := rootCmd.PersistentFlags().GetString("config")

	configPath := config.GetConfigPath(explicit)
	v, err := config.NewViper(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config from %s: %v\n", configPath, err)
		os.Exit(1)
	}
	V = v

	cfg, err := config.FromViper(V)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config in %s: %v\n", configPath, err)
		os.Exit(1)
	}

	if err := logger.Init(verbose, loggerOptions(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
	}
}

func loggerOptions(cfg *config.Config) logger.Options {
	return logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}
}

// getConfigFromViper decodes the configuration loaded by initConfig
func getConfigFromViper() (*config.Config, error) {
	if V == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return config.FromViper(V)
}
