package cmd

import (
	"fmt"
	"slices"
	"strings"

	glamour "github.com/charmbracelet/glamour"
	modules "github.com/inference-gateway/modui/internal/modules"
	cobra "github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List available modules",
	Long: `Display every module that can be enabled, its backing technology and
its position in the dispatch chain when enabled.`,
	RunE: listModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func listModules(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromViper()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var md strings.Builder
	md.WriteString(fmt.Sprintf("**MODULES:** %d enabled\n\n", len(cfg.Modules.Enabled)))
	md.WriteString("| Order | Module | Backend | Description |\n")
	md.WriteString("|-------|--------|---------|-------------|\n")

	for _, info := range modules.Available() {
		order := "-"
		if i := slices.Index(cfg.Modules.Enabled, info.Name); i >= 0 {
			order = fmt.Sprintf("%d", i+1)
		}
		md.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", order, info.Name, info.Backend, info.Description))
	}

	return printMarkdown(cmd.OutOrStdout(), md.String())
}

func renderMarkdown(markdown string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return "", err
	}

	return r.Render(markdown)
}
