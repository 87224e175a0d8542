// Package commands defines all Cobra CLI commands for the plugmind binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/audit"
	"github.com/54b3r/plugmind-go/internal/config"
	"github.com/54b3r/plugmind-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plugmind",
		Short: "Per-tenant chatbot and searchbot query engine",
		Long: `plugmind answers questions on behalf of registered bots.

Chatbots answer from documents ingested into their own vector collection,
in the visitor's language, and fall back to a support message when nothing
relevant is found. Searchbots translate a question into read-only SQL
restricted to the bot's allowed tables and return the result rows.

Configuration comes from environment variables or a YAML file
(~/.plugmind/config.yaml); environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			var botID string
			if f := cmd.Flags().Lookup("bot"); f != nil {
				botID = f.Value.String()
			}
			audit.LogCommandStart(cmd.Context(), log, cmd.CommandPath(), path, botID)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.plugmind/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewSearchCmd(),
		NewIngestCmd(),
		NewBotCmd(),
		NewTablesCmd(),
		NewVersionCmd(),
	)

	return root
}
