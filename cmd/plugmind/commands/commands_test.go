package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/ingestion"
)

func TestRowsTable(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"name": "Alice", "id": int64(1)},
		{"error": "Error running query: SELECT x", "details": "no such column: x"},
		{"name": "Bob", "id": int64(2), "city": nil},
	}
	table, errs := rowsTable(rows)

	wantHeader := []string{"city", "id", "name"}
	if strings.Join(table[0], ",") != strings.Join(wantHeader, ",") {
		t.Fatalf("header: got %v, want %v", table[0], wantHeader)
	}
	if len(table) != 3 {
		t.Fatalf("rows: got %d, want 2 data rows plus header", len(table)-1)
	}
	if got := strings.Join(table[1], ","); got != ",1,Alice" {
		t.Errorf("row 1: got %q", got)
	}
	if got := strings.Join(table[2], ","); got != ",2,Bob" {
		t.Errorf("row 2: got %q", got)
	}
	if len(errs) != 1 || errs[0] != "Error running query: SELECT x: no such column: x" {
		t.Errorf("errors: got %v", errs)
	}
}

func TestRowsTable_OnlyErrors(t *testing.T) {
	t.Parallel()

	table, errs := rowsTable([]map[string]any{{"error": "Failed to generate SQL."}})
	if table != nil {
		t.Errorf("table: got %v, want nil", table)
	}
	if len(errs) != 1 || errs[0] != "Failed to generate SQL." {
		t.Errorf("errors: got %v", errs)
	}
}

func TestReportTable(t *testing.T) {
	t.Parallel()

	table := reportTable(&ingestion.Report{Batches: []ingestion.BatchResult{
		{Index: 0, Size: 5},
		{Index: 1, Size: 2, Err: errors.New("upsert failed")},
	}})
	if len(table) != 3 {
		t.Fatalf("got %d lines, want 3", len(table))
	}
	if got := strings.Join(table[1], "|"); got != "1|5|ok" {
		t.Errorf("batch 1: got %q", got)
	}
	if got := strings.Join(table[2], "|"); got != "2|2|upsert failed" {
		t.Errorf("batch 2: got %q", got)
	}
}

func TestBotsTable(t *testing.T) {
	t.Parallel()

	table := botsTable([]*bot.Config{
		{ID: "42", Kind: bot.KindChatbot, ModelName: "m", WebsiteURL: "https://example.com"},
		{ID: "7", Kind: bot.KindSearchbot, ModelName: "m", AllowedTables: []string{"a", "b"}},
	})
	if got := table[1][4]; got != "-" {
		t.Errorf("chatbot tables column: got %q, want -", got)
	}
	if got := table[2][4]; got != "2" {
		t.Errorf("searchbot tables column: got %q, want 2", got)
	}
}

func TestDecodeBot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name: "searchbot",
			input: `id: "7"
kind: searchbot
allowed_tables: [orders, customers]
database:
  driver: postgres
  host: db
  name: shop
`,
		},
		{name: "missing id", input: "kind: chatbot\n", wantErr: true},
		{name: "unknown field", input: "id: \"1\"\ncolour: blue\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := decodeBot(strings.NewReader(tc.input))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if b.Kind != bot.KindSearchbot || len(b.AllowedTables) != 2 || b.Database.Driver != "postgres" {
				t.Errorf("decoded: %+v", b)
			}
		})
	}
}

func TestRedactBot(t *testing.T) {
	t.Parallel()

	orig := &bot.Config{ID: "7", AllowedTables: []string{"a"}, Database: bot.Database{Password: "s3cret"}}
	got := redactBot(orig)

	if got.Database.Password == "s3cret" {
		t.Error("password not redacted")
	}
	if orig.Database.Password != "s3cret" {
		t.Error("original config modified")
	}
	got.AllowedTables[0] = "z"
	if orig.AllowedTables[0] != "a" {
		t.Error("allow-list shares backing array with original")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	for _, name := range []string{"serve", "ask", "search", "ingest", "bot", "tables", "version"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestBotCmd_PutListGetDelete(t *testing.T) {
	t.Setenv("PLUGMIND_BOTS_DB", filepath.Join(t.TempDir(), "bots.db"))
	t.Setenv("PLUGMIND_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	run := func(stdin string, args ...string) (string, error) {
		root := NewRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetIn(strings.NewReader(stdin))
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}

	def := `id: "7"
kind: searchbot
allowed_tables: [orders]
database:
  driver: sqlite
  name: shop.db
  password: hunter2
`
	if _, err := run(def, "bot", "put", "-f", "-"); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := run("", "bot", "get", "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "kind: searchbot") || !strings.Contains(out, "- orders") {
		t.Errorf("get output missing fields:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("get output leaked the password:\n%s", out)
	}

	if _, err := run("", "bot", "delete", "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run("", "bot", "get", "7"); err == nil {
		t.Error("get after delete: want error")
	}
}
