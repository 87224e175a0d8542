package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
)

// NewAskCmd constructs the `plugmind ask` command, which runs one question
// through a chatbot's document pipeline and prints the answer.
func NewAskCmd() *cobra.Command {
	var botID string
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a chatbot a question",
		Long: `Ask a chatbot a question from the terminal.

The bot is read from the local registry (see "plugmind bot put"). Its
documents must already be ingested with "plugmind ingest".

Examples:
  plugmind ask --bot 42 "Quels sont vos horaires ?"
  plugmind ask --bot 42 --sources "How do I reset my password?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			bots, err := openBotStore()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = bots.Close() }()

			b, err := loadBot(ctx, bots, botID, bot.KindChatbot)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			completer, _, err := provider.NewCompleterFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}
			vectors, emb, err := openQdrant(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			pipeline, err := newChatbot(vectors, emb, completer)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			res, err := pipeline.Answer(ctx, b, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Answer)
			if showSources && len(res.Sources) > 0 {
				fmt.Fprintln(out)
				pterm.Info.Printfln("%d source passage(s)", len(res.Sources))
				for i, src := range res.Sources {
					fmt.Fprintf(out, "[%d] %s\n", i+1, src)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Chatbot ID from the registry")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the passages the answer was grounded on")

	return cmd
}
