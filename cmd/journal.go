package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	config "github.com/inference-gateway/modui/config"
	storage "github.com/inference-gateway/modui/internal/storage"
	truncate "github.com/muesli/reflow/truncate"
	cobra "github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect journaled runs",
	Long: `View and manage the runs recorded by the journal module in the configured
storage backend (SQLite, PostgreSQL, Redis).`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Long: `Display recorded runs, newest first.

Examples:
  # List the 20 most recent runs
  modui journal list --limit 20

  # Output as JSON
  modui journal list --format json`,
	RunE: listRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the events of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var journalDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteRun,
}

func init() {
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalDeleteCmd)

	journalListCmd.Flags().IntP("limit", "l", 50, "Maximum number of runs to display")
	journalListCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	journalShowCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")

	rootCmd.AddCommand(journalCmd)
}

func openJournalStorage(ctx context.Context) (storage.EventStorage, error) {
	cfg, err := getConfigFromViper()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openJournalStore(ctx, cfg.Modules.Journal)
}

func openJournalStore(ctx context.Context, cfg config.JournalConfig) (storage.EventStorage, error) {
	store, err := storage.NewStorage(ctx, storage.StorageConfig{
		Type:           cfg.Driver,
		DSN:            cfg.DSN,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return store, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openJournalStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), struct {
			Runs  []storage.RunSummary `json:"runs"`
			Count int                  `json:"count"`
		}{Runs: runs, Count: len(runs)})
	}
	return renderRunsTable(cmd.OutOrStdout(), runs)
}

func renderRunsTable(out io.Writer, runs []storage.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Enable the journal module and start a run with: modui run --modules keymap,journal")
		return nil
	}

	var md strings.Builder
	md.WriteString(fmt.Sprintf("**RECORDED RUNS:** %d total\n\n", len(runs)))
	md.WriteString("| Run ID                               | Events | Started             | Duration |\n")
	md.WriteString("|--------------------------------------|--------|---------------------|----------|\n")
	for _, r := range runs {
		md.WriteString(fmt.Sprintf("| %-36s | %6d | %s | %8s |\n",
			r.RunID, r.Events, r.Started.Local().Format(time.DateTime), r.Ended.Sub(r.Started).Round(time.Millisecond)))
	}

	return printMarkdown(out, md.String())
}

func showRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openJournalStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Events(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	return renderEventsTable(cmd.OutOrStdout(), args[0], records)
}

func renderEventsTable(out io.Writer, runID string, records []storage.Record) error {
	var md strings.Builder
	md.WriteString(fmt.Sprintf("**RUN %s:** %d events\n\n", runID, len(records)))
	md.WriteString("| Seq | Kind | Detail |\n")
	md.WriteString("|-----|------|--------|\n")
	for _, rec := range records {
		md.WriteString(fmt.Sprintf("| %d | %s | %s |\n", rec.Seq, rec.Kind, recordDetail(rec)))
	}
	return printMarkdown(out, md.String())
}

func recordDetail(rec storage.Record) string {
	var detail string
	switch rec.Kind {
	case "key":
		detail = rec.Key
	case "mouse":
		detail = fmt.Sprintf("%s %s at %d,%d", rec.Button, rec.Text, rec.X, rec.Y)
	case "resize", "redraw":
		detail = fmt.Sprintf("%dx%d", rec.Width, rec.Height)
	case "paste":
		detail = rec.Text
	case "user":
		detail = string(rec.Payload)
	}
	detail = strings.ReplaceAll(detail, "|", `\|`)
	return truncate.StringWithTail(detail, 48, "…")
}

func deleteRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openJournalStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeleteRun(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}

func printMarkdown(out io.Writer, md string) error {
	rendered, err := renderMarkdown(md)
	if err != nil {
		fmt.Fprint(out, md)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	fmt.Fprintln(out, string(jsonBytes))
	return nil
}
