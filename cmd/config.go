package cmd

import (
	"fmt"
	"os"

	config "github.com/inference-gateway/modui/config"
	cobra "github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modui configuration",
	Long:  `Create, inspect and update the modui configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new project configuration",
	Long: `Initialize a new .modui/config.yaml configuration file in the current directory.
This creates a local project configuration with default settings.`,
	RunE: initConfigFile,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after merging defaults, the config file and MODUI_* environment variables.`,
	RunE:  showConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a single configuration value and write it to the config file.

Examples:
  modui config set source.backend x11
  modui config set modules.enabled keymap,journal,status
  modui config set dispatch.exit_on_error true`,
	Args: cobra.ExactArgs(2),
	RunE: setConfigValue,
}

func init() {
	configInitCmd.Flags().Bool("overwrite", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfigFile(cmd *cobra.Command, args []string) error {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if !overwrite {
			return fmt.Errorf("configuration file %s already exists (use --overwrite to replace)", configPath)
		}
	}

	if err := config.Write(configPath, config.DefaultConfig(), 2); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully created %s\n", configPath)
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromViper()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

func setConfigValue(cmd *cobra.Command, args []string) error {
	if V == nil {
		return fmt.Errorf("configuration not initialized")
	}

	key, value := args[0], args[1]
	previous := V.Get(key)
	V.Set(key, value)

	if err := config.WriteViper(V, 2); err != nil {
		V.Set(key, previous)
		return fmt.Errorf("failed to update %s: %w", key, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, V.ConfigFileUsed())
	return nil
}
