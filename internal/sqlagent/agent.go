// Package sqlagent answers searchbot questions by generating read-only SQL
// against a tenant's allow-listed tables and running it.
//
// A compiled Agent is a small state machine over State:
//
//	StageGenerate -> StageExecute -> StageDone
//
// Neither stage returns an error. Failures become values in State so a
// caller always gets a result sequence back.
package sqlagent

import (
	"context"
	"errors"

	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/sqlconn"
)

// ErrNoAllowedTables is returned by Resolve when the bot has an empty
// allow-list. No stage runs.
var ErrNoAllowedTables = errors.New("sqlagent: no allowed tables configured for this searchbot")

// Connector is the tenant database the agent reads from. The connection
// must be provisioned with a read-only role; the agent performs no
// statement inspection of its own.
type Connector interface {
	// TableSchemas renders DDL for exactly the named tables.
	TableSchemas(ctx context.Context, tables []string) (string, error)
	// Execute runs one statement and returns its rows.
	Execute(ctx context.Context, statement string) ([]sqlconn.Row, error)
	// Close releases the connection.
	Close() error
}

// Stage is a state of the agent's state machine.
type Stage int

const (
	// StageGenerate produces SQL from the question and the table schemas.
	StageGenerate Stage = iota
	// StageExecute runs each generated statement.
	StageExecute
	// StageDone is terminal.
	StageDone
)

// String returns the log name of s.
func (s Stage) String() string {
	switch s {
	case StageGenerate:
		return "generate_sql"
	case StageExecute:
		return "execute_sql"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// State is threaded through both stages.
type State struct {
	// Query is the user's question.
	Query string
	// SQL is the generated text, possibly several statements. Empty when
	// generation failed.
	SQL string
	// Results is the ordered answer sequence: row mappings and error
	// descriptors.
	Results []map[string]any
	// Failed is set when generation could not produce SQL.
	Failed bool
	// Partial is set when at least one statement failed.
	Partial bool
}

// Agent is one tenant's compiled pipeline. It is shared by concurrent
// queries for the same bot and never mutated after construction.
type Agent struct {
	botID       string
	fingerprint string
	tables      []string
	conn        Connector
	gen         *generator
	exec        *executor
}

// NewAgent binds a connector, an allow-list and a completer into an Agent.
// tables is copied; later changes to the caller's slice are not observed.
func NewAgent(botID, fingerprint string, conn Connector, tables []string, completer provider.Completer, params provider.Params) *Agent {
	own := append([]string(nil), tables...)
	return &Agent{
		botID:       botID,
		fingerprint: fingerprint,
		tables:      own,
		conn:        conn,
		gen:         &generator{conn: conn, tables: own, completer: completer, params: params},
		exec:        &executor{conn: conn},
	}
}

// Tables returns a copy of the allow-list this agent was built with.
func (a *Agent) Tables() []string {
	return append([]string(nil), a.tables...)
}

// Fingerprint identifies the configuration the agent was built from.
func (a *Agent) Fingerprint() string { return a.fingerprint }

// Run drives question through the state machine and returns the final
// state.
func (a *Agent) Run(ctx context.Context, question string) State {
	st := State{Query: question}
	for stage := StageGenerate; stage != StageDone; {
		switch stage {
		case StageGenerate:
			st, stage = a.gen.run(ctx, st), StageExecute
		case StageExecute:
			st, stage = a.exec.run(ctx, st), StageDone
		}
	}
	return st
}

// Close releases the agent's database connection.
func (a *Agent) Close() error {
	return a.conn.Close()
}
