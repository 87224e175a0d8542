// Package chatbot implements the confidence-gated retrieval pipeline. A
// question is answered from the bot's own documents only; when nothing in
// the collection is similar enough, or any downstream call fails, the user
// gets a language-matched fallback pointing at the site's support address.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/langdetect"
	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/rag"
)

// ErrDocumentsNotFound is returned when the bot's collection has not been
// created yet.
var ErrDocumentsNotFound = errors.New("chatbot: documents not found, upload documents first")

const (
	// DefaultTopK is the number of passages requested per question.
	DefaultTopK = 3
	// DefaultScoreFloor is the minimum similarity a passage needs to count
	// as context.
	DefaultScoreFloor float32 = 0.5
)

// Options tunes retrieval. Zero values select the defaults.
type Options struct {
	// TopK is the number of passages to retrieve (default 3).
	TopK int
	// ScoreFloor is the minimum relevance score (default 0.5).
	ScoreFloor float32
}

// Pipeline answers chatbot questions. It is safe for concurrent use; all
// per-request state lives on the stack.
type Pipeline struct {
	retriever rag.Retriever
	completer provider.Completer
	topK      int
	floor     float32
}

// New returns a Pipeline backed by retriever and completer.
func New(retriever rag.Retriever, completer provider.Completer, opts Options) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("chatbot: retriever must not be nil")
	}
	if completer == nil {
		return nil, fmt.Errorf("chatbot: completer must not be nil")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ScoreFloor <= 0 {
		opts.ScoreFloor = DefaultScoreFloor
	}
	return &Pipeline{retriever: retriever, completer: completer, topK: opts.TopK, floor: opts.ScoreFloor}, nil
}

// Answer runs one question through the pipeline for the bot described by b.
//
// The only errors returned are ErrDocumentsNotFound and failures of the
// collection existence check. Retrieval and generation failures are logged
// and turned into the fallback reply with the matching Outcome.
func (p *Pipeline) Answer(ctx context.Context, b *bot.Config, question string) (bot.Result, error) {
	log := logging.FromContext(ctx).With("bot_id", b.ID)

	if isGreeting(question) {
		greeting := b.GreetingMessage
		if greeting == "" {
			greeting = bot.DefaultGreeting
		}
		log.Debug("chatbot: greeting short-circuit")
		return bot.Result{Answer: greeting, Sources: []string{}, Outcome: bot.OutcomeGreeting}, nil
	}

	question = strings.TrimSpace(question)
	lang := langdetect.Detect(question)
	fallback := bot.Result{
		Answer:  fallbackMessage(lang, supportEmail(b.WebsiteURL)),
		Sources: []string{},
	}

	collection := bot.CollectionName(b.ID)
	exists, err := p.retriever.CollectionExists(ctx, collection)
	if err != nil {
		return bot.Result{}, fmt.Errorf("chatbot: check collection %q: %w", collection, err)
	}
	if !exists {
		return bot.Result{}, fmt.Errorf("%w: collection %q", ErrDocumentsNotFound, collection)
	}

	passages, err := p.retriever.Retrieve(ctx, collection, question, p.topK, p.floor)
	if err != nil {
		if errors.Is(err, rag.ErrCollectionNotFound) {
			return bot.Result{}, fmt.Errorf("%w: collection %q", ErrDocumentsNotFound, collection)
		}
		log.Warn("chatbot: retrieval failed", "error", err)
		fallback.Outcome = bot.OutcomeRetrievalFailed
		return fallback, nil
	}

	contextText, sources := joinPassages(passages)
	if contextText == "" {
		log.Info("chatbot: no passage above the score floor", "lang", lang.String())
		fallback.Outcome = bot.OutcomeNoContext
		return fallback, nil
	}

	msgs, err := promptFor(lang).Format(ctx, map[string]any{
		"brand":    brandName(b.WebsiteURL),
		"context":  contextText,
		"question": question,
	})
	if err != nil {
		log.Error("chatbot: prompt rendering failed", "error", err)
		fallback.Outcome = bot.OutcomeGenerationFailed
		return fallback, nil
	}

	answer, err := p.completer.Complete(ctx, msgs, provider.Params{
		Temperature: b.Temperature,
		MaxTokens:   b.MaxTokens,
		Model:       b.ModelName,
	})
	if err != nil {
		log.Error("chatbot: completion failed", "error", err)
		fallback.Outcome = bot.OutcomeGenerationFailed
		return fallback, nil
	}

	log.Info("chatbot: answered", "lang", lang.String(), "passages", len(sources))
	return bot.Result{Answer: answer, Sources: sources, Outcome: bot.OutcomeAnswered}, nil
}

// joinPassages concatenates non-blank passage texts with a blank line
// between them. sources lists the same texts in retrieval order.
func joinPassages(passages []rag.Passage) (string, []string) {
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		sources = append(sources, p.Content)
	}
	return strings.Join(sources, "\n\n"), sources
}
