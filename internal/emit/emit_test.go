package emit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/core"
)

func sampleObject() *core.ObjectInfo {
	obj := core.NewObjectInfo("dbo.OrderSummary", core.ObjectView)
	obj.Schema = core.NewTableSchema("mssql://localhost/InfoTrackerDW", "dbo.OrderSummary",
		[]string{"Id", "Total"}, []string{"int", "decimal(10,2)"}, []bool{false, true})
	l1 := core.ColumnLineage{OutputColumn: "Id", Kind: core.Rename}
	l1.AddInput(core.NewColumnReference("mssql://localhost/InfoTrackerDW", "dbo.Orders", "OrderID"))
	l2 := core.ColumnLineage{OutputColumn: "Total", Kind: core.Identity}
	l2.AddInput(core.NewColumnReference("mssql://localhost/InfoTrackerDW", "dbo.Orders", "Amount"))
	obj.Lineage = []core.ColumnLineage{l1, l2}
	obj.AddDependency("dbo.Orders")
	return obj
}

func TestBuild_DeterministicRunID(t *testing.T) {
	obj := sampleObject()
	d1 := Build(obj, Options{EventTime: "2026-08-01T00:00:00Z"})
	d2 := Build(obj, Options{EventTime: "2026-08-01T00:00:00Z"})
	require.Equal(t, d1.Run.RunID, d2.Run.RunID)
}

func TestBuild_JobPathUsesOverrideHint(t *testing.T) {
	obj := sampleObject()
	obj.JobPathOverride = "dbo.Other"
	d := Build(obj, Options{})
	require.Equal(t, "warehouse/sql/dbo.Other.sql", d.Job.Path)
}

func TestBuild_DbtModePath(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{DbtMode: true})
	require.Equal(t, "dbt/models/dbo.OrderSummary.sql", d.Job.Path)
}

func TestBuild_OutputsColumnLineageAndQuality(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{})
	require.Len(t, d.Outputs, 1)
	out := d.Outputs[0]
	require.Len(t, out.Facets.Schema.Fields, 2)
	require.Contains(t, out.Facets.ColumnLineage.Fields, "Id")
	require.Equal(t, "RENAME", out.Facets.ColumnLineage.Fields["Id"].TransformationType)
	require.Equal(t, 1.0, out.Facets.Quality.LineageCoverage)
	require.False(t, out.Facets.Quality.IsFallback)
}

func TestBuild_InputsFromDependencies(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{})
	require.Len(t, d.Inputs, 1)
	require.Equal(t, "dbo.Orders", d.Inputs[0].Name)
}

func TestMarshal_ProducesValidJSON(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{EventTime: "2026-08-01T00:00:00Z"})
	raw, err := Marshal(d)
	require.NoError(t, err)
	require.Contains(t, string(raw), "\"eventType\": \"COMPLETE\"")
}

// TestBuild_LineagePerColumnMatchesSchemaOrdinals exercises P1: for a
// non-table object, the lineage entries and schema columns agree in count
// and ordinal position.
func TestBuild_LineagePerColumnMatchesSchemaOrdinals(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{})
	fields := d.Outputs[0].Facets.Schema.Fields
	require.Len(t, obj.Lineage, len(fields))
	for i, f := range fields {
		require.Equal(t, obj.Lineage[i].OutputColumn, f.Name)
	}
}

// TestMarshal_RoundTripIsByteIdentical exercises P6: emit, unmarshal back
// into a Document, and re-emit; the two marshaled byte slices must match.
func TestMarshal_RoundTripIsByteIdentical(t *testing.T) {
	obj := sampleObject()
	d := Build(obj, Options{EventTime: "2026-08-01T00:00:00Z"})
	first, err := Marshal(d)
	require.NoError(t, err)

	var roundTripped Document
	require.NoError(t, json.Unmarshal(first, &roundTripped))
	second, err := Marshal(&roundTripped)
	require.NoError(t, err)

	require.Equal(t, first, second)
}
