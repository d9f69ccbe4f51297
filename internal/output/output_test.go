package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/core"
	"smf/internal/graph"
)

func TestParse_DefaultsToText(t *testing.T) {
	f, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, FormatText, f)
}

func TestParse_RejectsUnknownFormat(t *testing.T) {
	_, err := Parse("xml")
	require.Error(t, err)
}

func TestWriteExtractSummary_JSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	rows := []ExtractSummary{{Path: "a.sql", Qualified: "dbo.A", ObjectType: core.ObjectView}}
	require.NoError(t, WriteExtractSummary(&buf, FormatJSON, rows))
	require.Contains(t, buf.String(), "dbo.A")
}

func TestWriteExtractSummary_TextRendersTable(t *testing.T) {
	var buf bytes.Buffer
	rows := []ExtractSummary{{Path: "a.sql", Qualified: "dbo.A", ObjectType: core.ObjectView, IsFallback: true, ReasonCode: "NO_AST_PARSE"}}
	require.NoError(t, WriteExtractSummary(&buf, FormatText, rows))
	require.Contains(t, buf.String(), "dbo.A")
	require.Contains(t, buf.String(), "NO_AST_PARSE")
}

func TestWriteDiff_ReportsNoChanges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDiff(&buf, FormatText, nil))
	require.Contains(t, buf.String(), "no schema changes")
}

func TestWriteImpact_TextRendersTable(t *testing.T) {
	var buf bytes.Buffer
	results := []graph.ImpactResult{{
		Column: core.NewColumnReference("mssql://localhost/InfoTrackerDW", "dbo.Orders", "OrderID"),
		Depth:  1,
	}}
	require.NoError(t, WriteImpact(&buf, FormatText, results))
	require.Contains(t, buf.String(), "OrderID")
}
