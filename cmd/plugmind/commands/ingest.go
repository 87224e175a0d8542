package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/ingestion"
	"github.com/54b3r/plugmind-go/internal/loader"
	"github.com/54b3r/plugmind-go/internal/logging"
)

// NewIngestCmd constructs the `plugmind ingest` command, which loads a
// chatbot's knowledge sources and writes them into its vector collection.
func NewIngestCmd() *cobra.Command {
	var botID string
	var replace bool
	var batchSize int
	var batchTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "ingest [source...]",
		Short: "Ingest documents into a chatbot's collection",
		Long: `Load PDF files, XML files or websites and write them into the chatbot's
vector collection (chatbot_<id>) in batches.

A failed batch does not stop the run. The command reports per-batch results
and finishes with "success" or "partial_success".

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure

Examples:
  plugmind ingest --bot 42 ./faq.pdf ./catalog.xml
  plugmind ingest --bot 42 --replace https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			bots, err := openBotStore()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = bots.Close() }()

			b, err := loadBot(ctx, bots, botID, bot.KindChatbot)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			docs, err := loader.LoadAll(ctx, args)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(docs) == 0 {
				return fmt.Errorf("ingest: no documents extracted from %d source(s)", len(args))
			}
			log.Info("sources loaded", slog.Int("sources", len(args)), slog.Int("documents", len(docs)))

			vectors, _, err := openQdrant(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			pipeline, err := ingestion.NewPipeline(vectors, &ingestion.Config{
				BatchSize:    batchSize,
				BatchTimeout: batchTimeout,
			}, nil)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			write := pipeline.Ingest
			if replace {
				write = pipeline.Replace
			}
			report, err := write(ctx, bot.CollectionName(b.ID), docs, func(msg string) { log.Info(msg) })
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			if err := pterm.DefaultTable.WithHasHeader().WithData(reportTable(report)).Render(); err != nil {
				return err
			}
			summary := fmt.Sprintf("%s: %d/%d documents written to %s", report.Status(), report.Written(), report.Documents, report.Collection)
			if report.PartialSuccess() {
				pterm.Warning.Println(summary)
			} else {
				pterm.Success.Println(summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Chatbot ID from the registry")
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop the collection before writing")
	cmd.Flags().IntVar(&batchSize, "batch-size", ingestion.DefaultBatchSize, "Documents per write")
	cmd.Flags().DurationVar(&batchTimeout, "batch-timeout", time.Minute, "Timeout for each batch write")

	return cmd
}
