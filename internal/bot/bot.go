// Package bot defines the tenant bot configuration read by the query
// pipelines and the normalized answer shape both pipelines return.
//
// A Config is owned by the bot registry. The query engine treats it as
// read-only: it is immutable for the duration of a single query but may
// change between queries.
package bot

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Kind identifies which query pipeline serves a bot.
type Kind string

const (
	// KindChatbot answers from a tenant's document collection.
	KindChatbot Kind = "chatbot"
	// KindSearchbot answers by generating SQL against a tenant database.
	KindSearchbot Kind = "searchbot"
)

// Defaults applied to a Config when the registry leaves a field empty.
const (
	// DefaultGreeting is returned for greeting-only messages when the bot
	// has no greeting of its own.
	DefaultGreeting = "Bonjour ! Comment puis-je vous aider ? 😊"
	// DefaultModel is the completion model used when the bot names none.
	DefaultModel = "mistralai/mistral-7b-instruct:free"
	// DefaultTemperature is the decoding temperature for document bots.
	DefaultTemperature float32 = 0.7
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = 1000
)

// Database describes how to reach a searchbot's tenant database.
// The credentials should belong to a read-only role.
type Database struct {
	// Driver selects the dialect: mysql (default), postgres, or sqlite.
	Driver string `json:"driver" yaml:"driver"`
	// Host is the database hostname. Ignored for sqlite.
	Host string `json:"host" yaml:"host"`
	// Port is the TCP port. Zero selects the driver default.
	Port int `json:"port" yaml:"port"`
	// User is the login role.
	User string `json:"user" yaml:"user"`
	// Password is the login secret. Never logged.
	Password string `json:"password" yaml:"password"`
	// Name is the database (schema) name, or the file path for sqlite.
	Name string `json:"name" yaml:"name"`
}

// Config is one tenant bot.
type Config struct {
	// ID is the bot identifier used in routes and collection names.
	ID string `json:"id" yaml:"id"`
	// Kind selects the query pipeline.
	Kind Kind `json:"kind" yaml:"kind"`
	// GreetingMessage is returned verbatim for greeting-only messages.
	GreetingMessage string `json:"greeting_message" yaml:"greeting_message"`
	// WebsiteURL is the tenant's public site. Its host drives the brand name
	// in prompts and the support address in fallback messages.
	WebsiteURL string `json:"website_url" yaml:"website_url"`
	// ModelName is the completion model identifier.
	ModelName string `json:"model_name" yaml:"model_name"`
	// Temperature is the decoding temperature for document answers.
	Temperature float32 `json:"temperature" yaml:"temperature"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
	// AllowedTables is the ordered allow-list of tables a searchbot may query.
	AllowedTables []string `json:"allowed_tables" yaml:"allowed_tables"`
	// Database is the searchbot's tenant connection descriptor.
	Database Database `json:"database" yaml:"database"`
}

// ApplyDefaults fills empty model fields and the greeting.
func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindChatbot
	}
	if c.GreetingMessage == "" {
		c.GreetingMessage = DefaultGreeting
	}
	if c.ModelName == "" {
		c.ModelName = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
}

// CollectionName returns the vector collection holding a chatbot's documents.
func CollectionName(id string) string {
	return "chatbot_" + id
}

// Fingerprint digests the fields a compiled SQL agent is built from: the
// allow-list (order-sensitive) and the connection descriptor. Two configs
// with equal fingerprints can share one compiled agent.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(strings.Join(c.AllowedTables, "\x00"))
	write(c.Database.Driver)
	write(c.Database.Host)
	write(strconv.Itoa(c.Database.Port))
	write(c.Database.User)
	write(c.Database.Password)
	write(c.Database.Name)
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// Outcome classifies how a query was resolved. It drives metrics labels and
// log fields; it is never serialized to clients.
type Outcome string

const (
	// OutcomeGreeting is a greeting short-circuit.
	OutcomeGreeting Outcome = "greeting"
	// OutcomeAnswered is a grounded answer from retrieved context.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoContext is a confidence miss mapped to the fallback message.
	OutcomeNoContext Outcome = "no_context"
	// OutcomeRetrievalFailed is a gateway or embedding error mapped to the
	// fallback message.
	OutcomeRetrievalFailed Outcome = "retrieval_failed"
	// OutcomeGenerationFailed is a completion error mapped to the fallback
	// message.
	OutcomeGenerationFailed Outcome = "generation_failed"
	// OutcomeRows is a searchbot result where every statement ran.
	OutcomeRows Outcome = "rows"
	// OutcomePartial is a searchbot result with at least one failed statement.
	OutcomePartial Outcome = "partial"
	// OutcomeSQLFailed is a searchbot result whose SQL could not be generated.
	OutcomeSQLFailed Outcome = "sql_failed"
)

// Result is the normalized answer returned by both pipelines. Answer holds
// prose for chatbots and a row sequence for searchbots.
type Result struct {
	// Answer is the text answer or the ordered result rows.
	Answer any `json:"answer"`
	// Sources lists the passage contents the answer was grounded on.
	// Always non-nil so it encodes as [] rather than null.
	Sources []string `json:"sources"`
	// Outcome records which branch produced the result.
	Outcome Outcome `json:"-"`
}
