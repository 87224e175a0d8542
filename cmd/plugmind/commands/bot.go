package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/logging"
)

// NewBotCmd constructs the `plugmind bot` command group, which manages the
// local bot registry.
func NewBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Manage the bot registry",
		Long: `Create, inspect and remove bots in the local registry
(PLUGMIND_BOTS_DB, default ~/.plugmind/bots.db).

A bot file is YAML:

  id: "42"
  kind: chatbot
  website_url: https://example.com
  greeting_message: Bonjour !

  id: "7"
  kind: searchbot
  allowed_tables: [orders, customers]
  database:
    driver: postgres
    host: db.internal
    user: readonly
    password: secret
    name: shop`,
	}

	cmd.AddCommand(newBotPutCmd(), newBotGetCmd(), newBotListCmd(), newBotDeleteCmd())
	return cmd
}

func newBotPutCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or update a bot from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("bot put: -f is required")
			}
			b, err := readBotFile(file, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("bot put: %w", err)
			}

			store, err := openBotStore()
			if err != nil {
				return fmt.Errorf("bot put: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Put(cmd.Context(), b); err != nil {
				return fmt.Errorf("bot put: %w", err)
			}
			pterm.Success.Printfln("%s %q saved", b.Kind, b.ID)
			pterm.Info.Println("running servers keep cached SQL agents until POST /api/searchbots/{id}/invalidate")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `Bot YAML file, or "-" for stdin`)
	return cmd
}

func newBotGetCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print a bot as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBotStore()
			if err != nil {
				return fmt.Errorf("bot get: %w", err)
			}
			defer func() { _ = store.Close() }()

			b, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("bot get: %w", err)
			}
			if !showSecrets {
				b = redactBot(b)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(b); err != nil {
				return fmt.Errorf("bot get: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the database password")
	return cmd
}

func newBotListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered bots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch bot.Kind(kind) {
			case "", bot.KindChatbot, bot.KindSearchbot:
			default:
				return fmt.Errorf("bot list: unknown kind %q", kind)
			}

			store, err := openBotStore()
			if err != nil {
				return fmt.Errorf("bot list: %w", err)
			}
			defer func() { _ = store.Close() }()

			bots, err := store.List(cmd.Context(), bot.Kind(kind))
			if err != nil {
				return fmt.Errorf("bot list: %w", err)
			}
			if len(bots) == 0 {
				pterm.Info.Println("no bots registered")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(botsTable(bots)).Render()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list bots of this kind (chatbot, searchbot)")
	return cmd
}

func newBotDeleteCmd() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a bot from the registry",
		Long: `Remove a bot from the registry. With --purge the chatbot's vector
collection is dropped as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			store, err := openBotStore()
			if err != nil {
				return fmt.Errorf("bot delete: %w", err)
			}
			defer func() { _ = store.Close() }()

			b, err := store.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("bot delete: %w", err)
			}

			if purge && b.Kind == bot.KindChatbot {
				vectors, _, err := openQdrant(logging.New())
				if err != nil {
					return fmt.Errorf("bot delete: %w", err)
				}
				defer func() { _ = vectors.Close() }()
				if err := vectors.DeleteCollection(ctx, bot.CollectionName(id)); err != nil {
					return fmt.Errorf("bot delete: %w", err)
				}
				pterm.Info.Printfln("collection %s dropped", bot.CollectionName(id))
			}

			if err := store.Delete(ctx, id); err != nil {
				return fmt.Errorf("bot delete: %w", err)
			}
			pterm.Success.Printfln("%s %q deleted", b.Kind, id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also drop the chatbot's vector collection")
	return cmd
}

// readBotFile decodes a bot definition from path, or from stdin when path
// is "-". Unknown fields are rejected.
func readBotFile(path string, stdin io.Reader) (*bot.Config, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // path is operator-supplied
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return decodeBot(r)
}

func decodeBot(r io.Reader) (*bot.Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var b bot.Config
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("invalid bot file: %w", err)
	}
	if b.ID == "" {
		return nil, fmt.Errorf("invalid bot file: id is required")
	}
	return &b, nil
}

// redactBot returns a copy of b with the database password masked.
func redactBot(b *bot.Config) *bot.Config {
	c := *b
	c.AllowedTables = append([]string(nil), b.AllowedTables...)
	if c.Database.Password != "" {
		c.Database.Password = "********"
	}
	return &c
}
