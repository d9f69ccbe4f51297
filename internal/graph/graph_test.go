package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/core"
)

const ns = "mssql://localhost/InfoTrackerDW"

func viewObject() *core.ObjectInfo {
	obj := core.NewObjectInfo("dbo.OrderSummary", core.ObjectView)
	obj.Schema = core.NewTableSchema(ns, "dbo.OrderSummary", []string{"Id"}, []string{"int"}, []bool{false})
	l := core.ColumnLineage{OutputColumn: "Id", Kind: core.Rename}
	l.AddInput(core.NewColumnReference(ns, "dbo.Orders", "OrderID"))
	obj.Lineage = []core.ColumnLineage{l}
	return obj
}

func downstreamObject() *core.ObjectInfo {
	obj := core.NewObjectInfo("dbo.Report", core.ObjectView)
	obj.Schema = core.NewTableSchema(ns, "dbo.Report", []string{"Id"}, []string{"int"}, []bool{false})
	l := core.ColumnLineage{OutputColumn: "Id", Kind: core.Identity}
	l.AddInput(core.NewColumnReference(ns, "dbo.OrderSummary", "Id"))
	obj.Lineage = []core.ColumnLineage{l}
	return obj
}

func TestGraph_AddObjectDeduplicatesEdges(t *testing.T) {
	g := New()
	g.AddObject(viewObject())
	g.AddObject(viewObject())
	require.Equal(t, 1, g.Len())
}

func TestImpact_UpstreamFindsSourceColumn(t *testing.T) {
	g := New()
	g.AddObject(viewObject())
	g.AddObject(downstreamObject())

	results := g.Impact(ParseSelector("dbo.Report.Id"), Upstream, 0)
	found := false
	for _, r := range results {
		if r.Column.TableName == "dbo.Orders" && r.Column.ColumnName == "OrderID" {
			found = true
		}
	}
	require.True(t, found)
}

func TestImpact_DownstreamFindsDependents(t *testing.T) {
	g := New()
	g.AddObject(viewObject())
	g.AddObject(downstreamObject())

	results := g.Impact(ParseSelector("dbo.Orders.OrderID"), Downstream, 0)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Column.TableName] = true
	}
	require.True(t, names["dbo.OrderSummary"])
	require.True(t, names["dbo.Report"])
}

func TestImpact_MaxDepthLimitsTraversal(t *testing.T) {
	g := New()
	g.AddObject(viewObject())
	g.AddObject(downstreamObject())

	results := g.Impact(ParseSelector("dbo.Orders.OrderID"), Downstream, 1)
	for _, r := range results {
		require.LessOrEqual(t, r.Depth, 1)
	}
	require.Len(t, results, 1)
}

func TestMarshalSnapshot_RoundTrips(t *testing.T) {
	g := New()
	g.AddObject(viewObject())
	raw, err := g.MarshalSnapshot()
	require.NoError(t, err)

	g2, err := UnmarshalSnapshot(raw)
	require.NoError(t, err)
	require.Equal(t, g.Len(), g2.Len())
}

func TestDiff_ClassifiesChanges(t *testing.T) {
	base := SchemaSnapshot{
		"dbo.Orders": core.NewTableSchema(ns, "dbo.Orders",
			[]string{"OrderID", "Notes"}, []string{"int", "nvarchar(50)"}, []bool{false, true}),
	}
	head := SchemaSnapshot{
		"dbo.Orders": core.NewTableSchema(ns, "dbo.Orders",
			[]string{"OrderID", "Notes", "Extra"}, []string{"int", "nvarchar(100)", "int"}, []bool{false, true, false}),
	}

	changes := Diff(base, head)
	var kinds []string
	for _, c := range changes {
		kinds = append(kinds, c.Kind)
	}
	require.Contains(t, kinds, "COLUMN_ADDED")
	require.Contains(t, kinds, "TYPE_WIDENED")
	require.Equal(t, 2, ExitCode(changes))
}

func TestDiff_DroppedColumnIsBreaking(t *testing.T) {
	base := SchemaSnapshot{
		"dbo.Orders": core.NewTableSchema(ns, "dbo.Orders", []string{"OrderID"}, []string{"int"}, []bool{false}),
	}
	head := SchemaSnapshot{
		"dbo.Orders": core.NewTableSchema(ns, "dbo.Orders", []string{}, []string{}, []bool{}),
	}
	changes := Diff(base, head)
	require.Len(t, changes, 1)
	require.Equal(t, Breaking, changes[0].Severity)
	require.Equal(t, 2, ExitCode(changes))
}

func TestExitCode_NonBreakingOnlyReturnsOne(t *testing.T) {
	changes := []Change{{Severity: NonBreaking}}
	require.Equal(t, 1, ExitCode(changes))
}

func TestExitCode_NoChangesReturnsZero(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
}

func TestAtOrAbove_DropsChangesBelowThreshold(t *testing.T) {
	changes := []Change{
		{Kind: "COLUMN_ADDED", Severity: NonBreaking},
		{Kind: "TYPE_WIDENED", Severity: PotentiallyBreaking},
		{Kind: "COLUMN_DROPPED", Severity: Breaking},
	}
	filtered := AtOrAbove(changes, Breaking)
	require.Len(t, filtered, 1)
	require.Equal(t, "COLUMN_DROPPED", filtered[0].Kind)
}
