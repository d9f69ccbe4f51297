package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/emit"
	"smf/internal/graph"
	"smf/internal/lineage"
	"smf/internal/registry"
)

func newTestRun(t *testing.T) *Run {
	t.Helper()
	return &Run{
		Cfg: &config.Config{
			DefaultAdapter:  "mssql",
			DefaultDatabase: "InfoTrackerDW",
			DefaultSchema:   "dbo",
		},
		Adapter:  config.NewMSSQLAdapter(""),
		Schemas:  registry.NewSchemaRegistry(),
		ObjectDB: registry.NewObjectDbRegistry(),
		Graph:    graph.New(),
		Renames:  lineage.NewRenameTable(),
		Workers:  2,
	}
}

func TestExtract_OrdersDependentFileAfterItsSource(t *testing.T) {
	run := newTestRun(t)
	files := []File{
		{Path: "order_summary.sql", Text: `CREATE VIEW dbo.OrderSummary AS SELECT OrderID AS Id, Amount FROM dbo.Orders`},
		{Path: "orders.sql", Text: `CREATE TABLE dbo.Orders (OrderID int PRIMARY KEY, Amount decimal(10,2))`},
	}

	results := run.Extract(context.Background(), files)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Document)
	}

	view := results[0]
	require.Equal(t, "dbo.OrderSummary", view.Object.QualifiedName)
	require.False(t, view.Object.IsFallback)
	require.Len(t, view.Object.Lineage, 2)
}

func TestExtract_UnparsableFileFallsBackWithReasonCode(t *testing.T) {
	run := newTestRun(t)
	files := []File{
		{Path: "weird.sql", Text: `EXEC sp_rename 'dbo.Orders.OldCol', 'NewCol', 'COLUMN'`},
	}

	results := run.Extract(context.Background(), files)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Object)
	require.True(t, results[0].Object.IsFallback)
	require.Equal(t, core.ReasonNoASTParse, results[0].Object.ReasonCode)
}

func TestExtract_ScriptWithBareSelectIntoTracksTarget(t *testing.T) {
	run := newTestRun(t)
	run.Schemas.Put(core.NewTableSchema(run.Adapter.NamespaceFor("InfoTrackerDW"), "dbo.Orders",
		[]string{"OrderID", "Amount"}, []string{"int", "decimal(10,2)"}, []bool{false, true}))

	files := []File{
		{Path: "stage_orders.sql", Text: `SELECT OrderID, Amount INTO dbo.StagedOrders FROM dbo.Orders`},
	}

	results := run.Extract(context.Background(), files)
	require.Len(t, results, 1)
	obj := results[0].Object
	require.NotNil(t, obj)
	require.False(t, obj.IsFallback)
	require.Equal(t, "dbo.StagedOrders", obj.JobPathOverride)
	require.Len(t, obj.Lineage, 2)
}

func TestExtract_ProcedureWithNoPersistentOutputIsFallback(t *testing.T) {
	run := newTestRun(t)
	files := []File{
		{Path: "tmp_only.sql", Text: `
CREATE PROCEDURE dbo.TempOnly AS
BEGIN
	SELECT OrderID INTO #tmp FROM dbo.Orders;
END`},
	}

	results := run.Extract(context.Background(), files)
	require.Len(t, results, 1)
	require.True(t, results[0].Object.IsFallback)
	require.Equal(t, core.ReasonNoPersistentOutput, results[0].Object.ReasonCode)
}

func TestBuildObjectGraph_LinksCreateToReference(t *testing.T) {
	files := []File{
		{Path: "a.sql", Text: `CREATE VIEW dbo.A AS SELECT Id FROM dbo.B`},
		{Path: "b.sql", Text: `CREATE TABLE dbo.B (Id int)`},
	}
	g, nameByPath := BuildObjectGraph(files)
	require.Equal(t, "dbo.A", nameByPath["a.sql"])
	require.Equal(t, "dbo.B", nameByPath["b.sql"])

	levels, err := g.Levels()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"dbo.B"}, {"dbo.A"}}, levels)
}

// TestExtract_IsIdempotentAcrossRuns exercises P7: running extract twice
// over the same corpus, starting from fresh identical registries each time,
// produces byte-identical emitted JSON for every file.
func TestExtract_IsIdempotentAcrossRuns(t *testing.T) {
	files := []File{
		{Path: "orders.sql", Text: `CREATE TABLE dbo.Orders (OrderID int PRIMARY KEY, Amount decimal(10,2))`},
		{Path: "order_summary.sql", Text: `CREATE VIEW dbo.OrderSummary AS SELECT OrderID AS Id, Amount FROM dbo.Orders`},
	}

	runOnce := func() map[string][]byte {
		run := newTestRun(t)
		results := run.Extract(context.Background(), files)
		out := make(map[string][]byte, len(results))
		for _, r := range results {
			require.NoError(t, r.Err)
			raw, err := emit.Marshal(r.Document)
			require.NoError(t, err)
			out[r.Path] = raw
		}
		return out
	}

	first := runOnce()
	second := runOnce()
	require.Equal(t, first, second)
}

// TestExtract_TempTableChainResolvesToBaseDependencies exercises P3 (via
// S3): a procedure that stages into #t and then inserts from #t into a
// persistent target must resolve its dependencies to the original sources,
// never to the temp table itself.
func TestExtract_TempTableChainResolvesToBaseDependencies(t *testing.T) {
	run := newTestRun(t)
	run.Schemas.Put(core.NewTableSchema(run.Adapter.NamespaceFor("InfoTrackerDW"), "dbo.A",
		[]string{"x"}, []string{"int"}, []bool{false}))
	run.Schemas.Put(core.NewTableSchema(run.Adapter.NamespaceFor("InfoTrackerDW"), "dbo.B",
		[]string{"y"}, []string{"int"}, []bool{false}))

	files := []File{
		{Path: "staged_insert.sql", Text: `
CREATE PROCEDURE dbo.StagedInsert AS
BEGIN
	SELECT a.x, b.y INTO #t FROM dbo.A a JOIN dbo.B b ON a.x = b.y;
	INSERT INTO dbo.Target (c1, c2) SELECT t.x, t.y FROM #t t;
END`},
	}

	results := run.Extract(context.Background(), files)
	require.Len(t, results, 1)
	obj := results[0].Object
	require.NotNil(t, obj)
	require.False(t, obj.IsFallback)
	deps := obj.DependencyList()
	require.Contains(t, deps, "dbo.A")
	require.Contains(t, deps, "dbo.B")
	require.NotContains(t, deps, "#t")
}

func TestSchemaSnapshotFromResults_SkipsFailedResults(t *testing.T) {
	run := newTestRun(t)
	files := []File{
		{Path: "orders.sql", Text: `CREATE TABLE dbo.Orders (OrderID int PRIMARY KEY)`},
	}
	results := run.Extract(context.Background(), files)
	snap := SchemaSnapshotFromResults(results)
	require.Contains(t, snap, "dbo.Orders")
}
