package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
)

// NewSearchCmd constructs the `plugmind search` command, which translates a
// question into SQL against a searchbot's database and prints the rows.
func NewSearchCmd() *cobra.Command {
	var botID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [question]",
		Short: "Query a searchbot's database in natural language",
		Long: `Translate a question into SQL over a searchbot's allowed tables, run it
and print the result rows.

Examples:
  plugmind search --bot 7 "combien de commandes en mars ?"
  plugmind search --bot 7 --json "top 5 products by revenue"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			bots, err := openBotStore()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = bots.Close() }()

			b, err := loadBot(ctx, bots, botID, bot.KindSearchbot)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			completer, _, err := provider.NewCompleterFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("search: failed to initialise model provider: %w", err)
			}
			pipeline, cache := newSearchbot(completer, nil)
			defer cache.Close()

			res, err := pipeline.Resolve(ctx, b, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			rows, _ := res.Answer.([]map[string]any)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			table, errs := rowsTable(rows)
			for _, e := range errs {
				pterm.Warning.Println(e)
			}
			if table == nil {
				pterm.Info.Println("no rows")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}

	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Searchbot ID from the registry")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")

	return cmd
}
