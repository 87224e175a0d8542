package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/botstore"
	"github.com/54b3r/plugmind-go/internal/chatbot"
	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/sqlagent"
)

// maxBodyBytes caps query request bodies.
const maxBodyBytes = 64 << 10

// Query outcome labels for requests that never produced a bot.Result.
const (
	outcomeBadRequest  = "bad_request"
	outcomeNotFound    = "not_found"
	outcomeNoDocuments = "no_documents"
	outcomeNoTables    = "no_tables"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)

// errUnknownBot is returned by lookup when the ID is missing or names a bot
// of the other kind.
var errUnknownBot = errors.New("unknown bot")

// handleChatbot handles POST /api/chatbots/{id}/chat.
func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	var req chatbotRequest
	if !s.decodeQuestion(w, r, bot.KindChatbot, &req, func() string { return req.Message }, "message") {
		return
	}
	s.serveQuery(w, r, bot.KindChatbot, func(ctx context.Context, b *bot.Config) (bot.Result, error) {
		return s.deps.Chatbots.Answer(ctx, b, req.Message)
	})
}

// handleSearchbot handles POST /api/searchbots/{id}/chat.
func (s *Server) handleSearchbot(w http.ResponseWriter, r *http.Request) {
	var req searchbotRequest
	if !s.decodeQuestion(w, r, bot.KindSearchbot, &req, func() string { return req.Query }, "query") {
		return
	}
	s.serveQuery(w, r, bot.KindSearchbot, func(ctx context.Context, b *bot.Config) (bot.Result, error) {
		return s.deps.Searchbots.Resolve(ctx, b, req.Query)
	})
}

// handleChatbotStatus handles GET /api/chatbots/{id}/status. A chatbot is
// ready once its document collection exists.
func (s *Server) handleChatbotStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := logging.With(r.Context(), "bot_id", id)
	log := logging.FromContext(ctx)

	if _, err := s.lookup(ctx, id, bot.KindChatbot); err != nil {
		s.writeLookupError(w, log, bot.KindChatbot, id, err)
		return
	}
	collection := bot.CollectionName(id)
	ok, err := s.deps.Collections.CollectionExists(ctx, collection)
	if err != nil {
		log.Error("status: collection check failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "vector store unavailable")
		return
	}
	writeJSON(w, log, http.StatusOK, statusResponse{BotID: id, Collection: collection, Ready: ok})
}

// handleSearchbotInvalidate handles POST /api/searchbots/{id}/invalidate. It
// drops the cached SQL agent so the next query rebuilds it from the current
// registry entry.
func (s *Server) handleSearchbotInvalidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log := logging.FromContext(r.Context()).With(slog.String("bot_id", id))
	evicted := s.deps.Searchbots.Invalidate(id)
	log.Info("searchbot: agent invalidated", slog.Bool("evicted", evicted))
	writeJSON(w, log, http.StatusOK, invalidateResponse{BotID: id, Evicted: evicted})
}

// decodeQuestion parses the request body into dst and checks that the
// question field is non-blank. It writes a 422 and returns false otherwise.
func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request, kind bot.Kind, dst any, question func() string, field string) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues(string(kind), outcomeBadRequest).Inc()
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	if strings.TrimSpace(question()) == "" {
		s.metrics.queryRequestsTotal.WithLabelValues(string(kind), outcomeBadRequest).Inc()
		writeError(w, http.StatusUnprocessableEntity, field+" is required")
		return false
	}
	return true
}

// serveQuery loads the bot, runs the pipeline under the query timeout and
// maps the outcome onto an HTTP status.
func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request, kind bot.Kind, run func(context.Context, *bot.Config) (bot.Result, error)) {
	id := r.PathValue("id")
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QueryTimeout)
	defer cancel()
	ctx = logging.With(ctx, "bot_id", id, "kind", string(kind))
	log := logging.FromContext(ctx)

	start := time.Now()
	outcome := outcomeError
	s.metrics.queriesInFlight.Inc()
	defer func() {
		s.metrics.queriesInFlight.Dec()
		s.metrics.queryRequestsTotal.WithLabelValues(string(kind), outcome).Inc()
		s.metrics.queryDurationSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	b, err := s.lookup(ctx, id, kind)
	if err != nil {
		if errors.Is(err, errUnknownBot) {
			outcome = outcomeNotFound
		}
		s.writeLookupError(w, log, kind, id, err)
		return
	}

	res, err := run(ctx, b)
	switch {
	case err == nil:
		outcome = string(res.Outcome)
		if res.Sources == nil {
			res.Sources = []string{}
		}
		log.Info("query answered", slog.String("outcome", outcome))
		writeJSON(w, log, http.StatusOK, res)
	case errors.Is(err, chatbot.ErrDocumentsNotFound):
		outcome = outcomeNoDocuments
		writeError(w, http.StatusNotFound, "no documents found for this chatbot")
	case errors.Is(err, sqlagent.ErrNoAllowedTables):
		outcome = outcomeNoTables
		writeError(w, http.StatusBadRequest, "no allowed tables configured for this searchbot")
	case errors.Is(err, context.DeadlineExceeded):
		outcome = outcomeTimeout
		log.Warn("query timed out", slog.Duration("timeout", s.cfg.QueryTimeout))
		writeError(w, http.StatusGatewayTimeout, "query timed out")
	default:
		log.Error("query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// lookup loads the bot and checks it is of the expected kind.
func (s *Server) lookup(ctx context.Context, id string, kind bot.Kind) (*bot.Config, error) {
	b, err := s.deps.Bots.Get(ctx, id)
	if errors.Is(err, botstore.ErrNotFound) {
		return nil, errUnknownBot
	}
	if err != nil {
		return nil, err
	}
	if b.Kind != kind {
		return nil, errUnknownBot
	}
	return b, nil
}

func (s *Server) writeLookupError(w http.ResponseWriter, log *slog.Logger, kind bot.Kind, id string, err error) {
	if errors.Is(err, errUnknownBot) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s %q not found", kind, id))
		return
	}
	log.Error("bot lookup failed", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "bot registry unavailable")
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
