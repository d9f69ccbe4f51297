// Package output renders extract/impact/diff results for the CLI, split
// into a JSON path and a human table renderer built on go-pretty/v6/table.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"smf/internal/core"
	"smf/internal/graph"
)

// Format selects which renderer a CLI subcommand uses.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Parse validates a --format flag value, defaulting to text.
func Parse(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s; use 'text' or 'json'", raw)
	}
}

// ExtractSummary is one line of the extract command's result table.
type ExtractSummary struct {
	Path       string
	Qualified  string
	ObjectType core.ObjectType
	IsFallback bool
	ReasonCode string
}

// WriteExtractSummary renders extract results either as a go-pretty table
// or as a JSON array.
func WriteExtractSummary(w io.Writer, format Format, rows []ExtractSummary) error {
	if format == FormatJSON {
		return json.NewEncoder(w).Encode(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Object", "Type", "Fallback", "Reason"})
	for _, r := range rows {
		fallback := ""
		if r.IsFallback {
			fallback = "yes"
		}
		t.AppendRow(table.Row{r.Path, r.Qualified, string(r.ObjectType), fallback, r.ReasonCode})
	}
	t.Render()
	return nil
}

// WriteImpact renders impact-analysis results.
func WriteImpact(w io.Writer, format Format, results []graph.ImpactResult) error {
	if format == FormatJSON {
		return json.NewEncoder(w).Encode(results)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Depth", "Namespace", "Table", "Column"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Depth, r.Column.Namespace, r.Column.TableName, r.Column.ColumnName})
	}
	t.Render()
	return nil
}

// WriteDiff renders schema diff results.
func WriteDiff(w io.Writer, format Format, changes []graph.Change) error {
	if format == FormatJSON {
		return json.NewEncoder(w).Encode(changes)
	}

	if len(changes) == 0 {
		fmt.Fprintln(w, "no schema changes detected")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Table", "Column", "Kind", "Detail"})
	for _, c := range changes {
		t.AppendRow(table.Row{string(c.Severity), c.Table, c.Column, c.Kind, c.Detail})
	}
	t.Render()
	return nil
}
