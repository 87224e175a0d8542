package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/botstore"
	"github.com/54b3r/plugmind-go/internal/chatbot"
	"github.com/54b3r/plugmind-go/internal/embedder"
	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/rag"
	"github.com/54b3r/plugmind-go/internal/sqlagent"
)

// openBotStore opens the registry at PLUGMIND_BOTS_DB, or the default path
// under ~/.plugmind.
func openBotStore() (*botstore.SQLiteStore, error) {
	path := os.Getenv("PLUGMIND_BOTS_DB")
	if path == "" {
		var err error
		if path, err = botstore.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	return botstore.Open(path)
}

// loadBot reads the bot with id from the registry and checks its kind.
func loadBot(ctx context.Context, store *botstore.SQLiteStore, id string, kind bot.Kind) (*bot.Config, error) {
	if id == "" {
		return nil, fmt.Errorf("--bot is required")
	}
	b, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Kind != kind {
		return nil, fmt.Errorf("bot %q is a %s, not a %s", id, b.Kind, kind)
	}
	return b, nil
}

// openQdrant validates the embedding configuration and connects to Qdrant
// with an embedder attached for the write path.
func openQdrant(log *slog.Logger) (*rag.QdrantStore, rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	store, err := rag.NewQdrantStore(&rag.QdrantConfig{
		Host:       host,
		Port:       port,
		VectorSize: uint64(embedder.Dimensions()), //nolint:gosec // dimensions are small and positive
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	}, emb)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("embedding_backend", embedder.Backend()),
		slog.Int("dimensions", embedder.Dimensions()),
	)
	return store, emb, nil
}

// newChatbot builds the document pipeline over store.
func newChatbot(store *rag.QdrantStore, emb rag.Embedder, completer provider.Completer) (*chatbot.Pipeline, error) {
	retriever, err := rag.NewRetriever(emb, store)
	if err != nil {
		return nil, err
	}
	return chatbot.New(retriever, completer, chatbot.Options{
		TopK:       getEnvInt("PLUGMIND_TOP_K", chatbot.DefaultTopK),
		ScoreFloor: float32(getEnvFloat("PLUGMIND_SCORE_FLOOR", float64(chatbot.DefaultScoreFloor))),
	})
}

// newSearchbot builds the SQL pipeline and its agent cache. The caller
// closes the cache on exit.
func newSearchbot(completer provider.Completer, reg prometheus.Registerer) (*sqlagent.Pipeline, *sqlagent.Cache) {
	cache := sqlagent.NewCache(sqlagent.NewBuilder(completer), reg)
	return sqlagent.NewPipeline(cache), cache
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat is getEnvInt for floating point values.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
