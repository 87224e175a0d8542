// Command plugmind runs the per-tenant bot query engine: an HTTP API that
// answers chatbot questions from ingested documents and searchbot questions
// with generated SQL, plus CLI commands to manage bots and ingest sources.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/plugmind-go/cmd/plugmind/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
