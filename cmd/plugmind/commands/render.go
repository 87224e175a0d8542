package commands

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/ingestion"
)

// rowsTable lays out searchbot rows as a table. Columns are the union of
// the row keys in sorted order; error descriptors are left out and returned
// separately so they can be shown as warnings.
func rowsTable(rows []map[string]any) (pterm.TableData, []string) {
	var errs []string
	seen := map[string]bool{}
	var cols []string
	var data []map[string]any
	for _, r := range rows {
		if msg, ok := r["error"]; ok {
			line := fmt.Sprint(msg)
			if d, ok := r["details"]; ok {
				line += ": " + fmt.Sprint(d)
			}
			errs = append(errs, line)
			continue
		}
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
		data = append(data, r)
	}
	if len(cols) == 0 {
		return nil, errs
	}
	sort.Strings(cols)

	table := pterm.TableData{cols}
	for _, r := range data {
		line := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && v != nil {
				line[i] = fmt.Sprint(v)
			}
		}
		table = append(table, line)
	}
	return table, errs
}

// reportTable lays out an ingestion report, one line per batch.
func reportTable(r *ingestion.Report) pterm.TableData {
	table := pterm.TableData{{"Batch", "Documents", "Result"}}
	for _, b := range r.Batches {
		result := "ok"
		if b.Err != nil {
			result = b.Err.Error()
		}
		table = append(table, []string{fmt.Sprint(b.Index + 1), fmt.Sprint(b.Size), result})
	}
	return table
}

// botsTable lays out registry entries for `plugmind bot list`.
func botsTable(bots []*bot.Config) pterm.TableData {
	table := pterm.TableData{{"ID", "Kind", "Model", "Website", "Tables"}}
	for _, b := range bots {
		tables := "-"
		if b.Kind == bot.KindSearchbot {
			tables = fmt.Sprint(len(b.AllowedTables))
		}
		table = append(table, []string{b.ID, string(b.Kind), b.ModelName, b.WebsiteURL, tables})
	}
	return table
}
