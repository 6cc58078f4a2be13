// cmd/importer/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eGGnogSC/booksync/config"
	"github.com/eGGnogSC/booksync/infrastructure"
	"github.com/eGGnogSC/booksync/internal/importer"
)

const version = "1.2.0"

var (
	filePath  string
	realmID   string
	dryRun    bool
	delimiter string
)

var rootCmd = &cobra.Command{
	Use:   "booksync-import",
	Short: "Batch invoice importer for booksync",
	Long: `booksync-import reads a CSV or XLSX spreadsheet of service records,
groups rows into invoices by document number, and creates or updates the
matching invoices in QuickBooks Online.

Use --dry-run to validate a file locally without touching QuickBooks.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import a spreadsheet of service records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the importer version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("booksync-import %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	runCmd.Flags().StringVar(&filePath, "file", "", "Path to the CSV or XLSX file to import")
	runCmd.Flags().StringVar(&realmID, "realm", "", "QuickBooks realm (company) ID; required unless --dry-run")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file locally without calling QuickBooks")
	runCmd.Flags().StringVar(&delimiter, "delimiter", "", "CSV field delimiter; auto-detected when empty")
	runCmd.MarkFlagRequired("file")
}

func runImport(ctx context.Context) error {
	if !dryRun && realmID == "" {
		return fmt.Errorf("--realm is required unless --dry-run is set")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if delimiter != "" {
		cfg.Import.Delimiter = delimiter
	}

	container, err := infrastructure.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer container.Shutdown()

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	var delim rune
	if cfg.Import.Delimiter != "" {
		delim = []rune(cfg.Import.Delimiter)[0]
	}
	table, err := importer.ParseFile(filePath, f, delim)
	if err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	imp := importer.New(
		container.QBClient.WithRealm(realmID),
		container.RecordStore,
		container.Translator,
		cfg.Import,
		container.Log,
	)

	summary, err := imp.Run(ctx, table, dryRun)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	fmt.Println(string(out))

	if len(summary.Errors) > 0 {
		return fmt.Errorf("%d row group(s) skipped", len(summary.Errors))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
