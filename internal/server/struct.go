package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/plugmind-go/internal/bot"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// QueryTimeout bounds one chat or search request end to end
	// (default: 2m). Agent builds outlive it; see sqlagent.Cache.
	QueryTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on query
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all /api/chatbots and
	// /api/searchbots routes. If empty, authentication is disabled.
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// BotSource loads bot configurations by ID. *botstore.SQLiteStore
// satisfies it.
type BotSource interface {
	Get(ctx context.Context, id string) (*bot.Config, error)
}

// Answerer runs the document pipeline. *chatbot.Pipeline satisfies it.
type Answerer interface {
	Answer(ctx context.Context, b *bot.Config, question string) (bot.Result, error)
}

// Resolver runs the SQL pipeline. *sqlagent.Pipeline satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, b *bot.Config, question string) (bot.Result, error)
	Invalidate(botID string) bool
}

// CollectionChecker reports whether a vector collection exists.
// *rag.QdrantStore satisfies it.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// Deps are the pipelines and stores the handlers call.
type Deps struct {
	Bots        BotSource
	Chatbots    Answerer
	Searchbots  Resolver
	Collections CollectionChecker
}

// Server is the HTTP front end of the query engine.
type Server struct {
	// deps holds the pipelines behind the query routes.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// handler is the fully wrapped mux; httpServer serves it.
	handler http.Handler
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors for this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatbotRequest is the JSON body for POST /api/chatbots/{id}/chat.
type chatbotRequest struct {
	// Message is the visitor's question.
	Message string `json:"message"`
}

// searchbotRequest is the JSON body for POST /api/searchbots/{id}/chat.
type searchbotRequest struct {
	// Query is the natural-language question to translate into SQL.
	Query string `json:"query"`
}

// statusResponse is the JSON body for GET /api/chatbots/{id}/status.
type statusResponse struct {
	BotID      string `json:"bot_id"`
	Collection string `json:"collection"`
	// Ready is true once the bot's collection exists.
	Ready bool `json:"ready"`
}

// invalidateResponse is the JSON body for POST /api/searchbots/{id}/invalidate.
type invalidateResponse struct {
	BotID string `json:"bot_id"`
	// Evicted is true when a cached agent was dropped.
	Evicted bool `json:"evicted"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}
