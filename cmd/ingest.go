package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"deepresearch/config"
	"deepresearch/ingest"
	"deepresearch/streamers/cli"

	"github.com/spf13/cobra"
)

var ingestConcurrency int

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Analyze documents and add them to the retrieval index",
	Long: `Ingest analyzes every supported document in dir (default: files) with the
configured analyzer, splits the markdown at its headers, embeds each chunk and
upserts it into the index. Files already present in the index are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := "files"
	if len(args) == 1 {
		dir = args[0]
	}

	if err := config.LoadDotEnvForConfig(configPath); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireAnalyzer(); err != nil {
		return err
	}
	logger := newLogger()

	analyzer, err := ingest.NewContentUnderstanding(cfg.Analyzer, logger.Named("analyzer"))
	if err != nil {
		return err
	}

	files, err := ingest.FindFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No supported files found in '%s'\n", dir)
		return nil
	}

	idx, embedder, err := openIndex(cfg, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	pipeline, err := ingest.NewPipeline(analyzer, embedder, idx, ingest.Options{
		Concurrency: ingestConcurrency,
		OnFile:      printFileResult,
		Logger:      logger.Named("ingest"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Processing %d file(s)...\n", len(files))
	summary, err := pipeline.Ingest(ctx, files)
	if err != nil {
		return err
	}

	if summary.Chunks == 0 {
		fmt.Println("No documents to index.")
		return nil
	}
	fmt.Printf("\n%sIndexed %d of %d chunk(s)%s\n", cli.ColorGreen, summary.Embedded, summary.Chunks, cli.ColorReset)
	return nil
}

func printFileResult(r ingest.FileResult) {
	switch r.Status {
	case ingest.FileIndexed:
		fmt.Printf("  %s✓%s %s (%d chunks)\n", cli.ColorGreen, cli.ColorReset, r.Path, r.Chunks)
	case ingest.FileSkipped:
		fmt.Printf("  %s- %s (already indexed)%s\n", cli.ColorGray, r.Path, cli.ColorReset)
	case ingest.FileEmpty:
		fmt.Printf("  %s- %s (no content)%s\n", cli.ColorYellow, r.Path, cli.ColorReset)
	case ingest.FileFailed:
		fmt.Printf("  %s✗ %s: %v%s\n", cli.ColorRed, r.Path, r.Err, cli.ColorReset)
	}
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", ingest.DefaultConcurrency, "Parallel embedding requests")
}
