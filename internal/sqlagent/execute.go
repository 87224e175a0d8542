package sqlagent

import (
	"context"
	"strings"
	"time"

	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/sqlconn"
)

// statementTimeout bounds each statement independently.
const statementTimeout = 30 * time.Second

// executor is the EXECUTE_SQL stage.
type executor struct {
	conn Connector
}

// run executes every statement in st.SQL in order. A failing statement
// contributes one error descriptor and execution moves on.
func (e *executor) run(ctx context.Context, st State) State {
	log := logging.FromContext(ctx).With("stage", StageExecute.String())

	if st.Failed {
		return st
	}
	if st.SQL == "" {
		st.Failed = true
		st.Results = []map[string]any{{"error": generationFailed + " No SQL to execute."}}
		return st
	}

	results := []map[string]any{}
	for i, stmt := range splitStatements(st.SQL) {
		rows, err := e.query(ctx, stmt)
		if err != nil {
			log.Warn("sqlagent: statement failed", "index", i, "error", err)
			st.Partial = true
			results = append(results, map[string]any{
				"error":   "Error running query: " + stmt,
				"details": err.Error(),
			})
			continue
		}
		for _, r := range rows {
			results = append(results, map[string]any(r))
		}
	}
	st.Results = results
	return st
}

func (e *executor) query(ctx context.Context, stmt string) ([]sqlconn.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	return e.conn.Execute(ctx, stmt)
}

// splitStatements splits sql on ';' and drops fragments that are blank or
// consist only of line comments.
func splitStatements(sql string) []string {
	var out []string
	for _, frag := range strings.Split(sql, ";") {
		frag = strings.TrimSpace(frag)
		if frag == "" || commentOnly(frag) {
			continue
		}
		out = append(out, frag)
	}
	return out
}

func commentOnly(frag string) bool {
	for _, line := range strings.Split(frag, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
