package sqlagent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/plugmind-go/internal/logging"
	"github.com/54b3r/plugmind-go/internal/provider"
)

// generationFailed prefixes every terminal generation failure.
const generationFailed = "Final Answer: SQL generation failed."

const sqlTemplate = `You are a powerful SQL assistant designed to interact with a MySQL database and answer questions using SELECT-only queries.

Instructions:
- ALWAYS start by inspecting the table names and schema provided.
- Use ONLY the tables and columns explicitly shown in the schema.
- NEVER use INSERT, UPDATE, DELETE, DROP, or any modification queries.
- Use LIKE '%value%' for fuzzy text searches.
- If the user asks about multiple things (e.g. hotels and activities), you can:
    • Either use JOINs if relational fields exist
    • Or run two separate SELECT queries and return results for both.
- Always LIMIT the results to 12 unless the user asks for a specific number.
- Choose meaningful columns, never SELECT *.
- Order results by the most relevant field if needed (e.g., rating, price, date).
- Double-check your SQL syntax.
- Separate multiple queries with ; and you can mark them with -- Query 1 / -- Query 2 for clarity.
- Return only SQL, no explanation.

{schema}

User question:
{question}

SQL:
`

var sqlPrompt = prompt.FromMessages(schema.FString, schema.UserMessage(sqlTemplate))

// generator is the GENERATE_SQL stage.
type generator struct {
	conn      Connector
	tables    []string
	completer provider.Completer
	params    provider.Params
}

// run fills st.SQL, or marks st failed with a terminal message.
func (g *generator) run(ctx context.Context, st State) State {
	log := logging.FromContext(ctx).With("stage", StageGenerate.String())

	fail := func(err error) State {
		log.Error("sqlagent: generation failed", "error", err)
		st.SQL = ""
		st.Failed = true
		st.Results = []map[string]any{{"error": generationFailed + " " + err.Error()}}
		return st
	}

	ddl, err := g.conn.TableSchemas(ctx, g.tables)
	if err != nil {
		return fail(err)
	}
	log.Debug("sqlagent: schema loaded", "tables", len(g.tables))

	msgs, err := sqlPrompt.Format(ctx, map[string]any{"schema": ddl, "question": st.Query})
	if err != nil {
		return fail(err)
	}

	out, err := g.completer.Complete(ctx, msgs, g.params)
	if err != nil {
		return fail(err)
	}

	st.SQL = stripMarkdownSQL(out)
	log.Info("sqlagent: sql generated", "sql", st.SQL)
	return st
}

// stripMarkdownSQL removes a surrounding ``` or ```sql fence.
func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```SQL")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}
