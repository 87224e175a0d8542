package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/server"
	"github.com/54b3r/plugmind-go/internal/tracing"
)

// NewServeCmd constructs the `plugmind serve` command, which starts the HTTP
// API in front of the chatbot and searchbot pipelines.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the plugmind HTTP API",
		Long: `Start the plugmind HTTP API.

Routes:
  POST /api/chatbots/{id}/chat          {"message": "..."} -> {"answer", "sources"}
  GET  /api/chatbots/{id}/status        collection readiness
  POST /api/searchbots/{id}/chat        {"query": "..."}   -> {"answer": rows, "sources": []}
  POST /api/searchbots/{id}/invalidate  drop the cached SQL agent
  GET  /api/health, /api/ready, /metrics

Query routes require "Authorization: Bearer $PLUGMIND_API_KEY" when the key
is set.

Examples:
  plugmind serve
  plugmind serve --port 9090
  MODEL_PROVIDER=ollama plugmind serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if flush, ok := tracing.Install(tracing.ConfigFromEnv()); ok {
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			completer, providerCfg, err := provider.NewCompleterFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			bots, err := openBotStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = bots.Close() }()

			vectors, emb, err := openQdrant(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = vectors.Close() }()

			chat, err := newChatbot(vectors, emb, completer)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			search, cache := newSearchbot(completer, prometheus.DefaultRegisterer)
			defer cache.Close()

			srv, err := server.New(server.Deps{
				Bots:        bots,
				Chatbots:    chat,
				Searchbots:  search,
				Collections: vectors,
			}, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					server.NewPinger("qdrant", vectors.Ping),
					server.NewPinger("bots", bots.Ping),
					server.NewModelPinger(providerCfg),
				},
				RateLimit: getEnvFloat("PLUGMIND_RATE_LIMIT", 0),
				RateBurst: getEnvInt("PLUGMIND_RATE_BURST", 0),
				APIKey:    os.Getenv("PLUGMIND_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("PLUGMIND_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("PLUGMIND_PORT", 8080), "TCP port to listen on")

	return cmd
}
