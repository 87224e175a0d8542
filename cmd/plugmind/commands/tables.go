package commands

import (
	"fmt"
	"slices"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/sqlconn"
)

// NewTablesCmd constructs the `plugmind tables` command, which tests a
// searchbot's database connection and lists the tables it can see.
func NewTablesCmd() *cobra.Command {
	var botID string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables visible to a searchbot",
		Long: `Connect to a searchbot's database and list its tables, marking the ones
on the bot's allow-list.

Examples:
  plugmind tables --bot 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			bots, err := openBotStore()
			if err != nil {
				return fmt.Errorf("tables: %w", err)
			}
			defer func() { _ = bots.Close() }()

			b, err := loadBot(ctx, bots, botID, bot.KindSearchbot)
			if err != nil {
				return fmt.Errorf("tables: %w", err)
			}

			if err := sqlconn.TestConnection(ctx, b.Database); err != nil {
				pterm.Error.Printfln("connection to %s database %q failed", b.Database.Driver, b.Database.Name)
				return fmt.Errorf("tables: %w", err)
			}
			pterm.Success.Printfln("connected to %s database %q", b.Database.Driver, b.Database.Name)

			db, err := sqlconn.Open(ctx, b.Database)
			if err != nil {
				return fmt.Errorf("tables: %w", err)
			}
			defer func() { _ = db.Close() }()

			names, err := db.ListTables(ctx)
			if err != nil {
				return fmt.Errorf("tables: %w", err)
			}

			data := pterm.TableData{{"Table", "Allowed"}}
			for _, n := range names {
				allowed := ""
				if slices.Contains(b.AllowedTables, n) {
					allowed = "yes"
				}
				data = append(data, []string{n, allowed})
			}
			for _, t := range b.AllowedTables {
				if !slices.Contains(names, t) {
					pterm.Warning.Printfln("allowed table %q does not exist", t)
				}
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}

	cmd.Flags().StringVarP(&botID, "bot", "b", "", "Searchbot ID from the registry")

	return cmd
}
