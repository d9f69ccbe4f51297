package lineage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/registry"
	"smf/internal/resolver"
	"smf/internal/sqlast"
)

func newTestContext(t *testing.T, schemas *registry.SchemaRegistry) *ParseContext {
	t.Helper()
	r := resolver.New(config.NewMSSQLAdapter(""), registry.NewObjectDbRegistry(), "dbo", "InfoTrackerDW", false)
	return NewParseContext(r, schemas, NewRenameTable(), "InfoTrackerDW")
}

func ordersSchema() *registry.SchemaRegistry {
	reg := registry.NewSchemaRegistry()
	ns := "mssql://localhost/InfoTrackerDW"
	reg.Put(core.NewTableSchema(ns, "dbo.Orders", []string{"OrderID", "CustomerID", "Amount", "OrderDate"},
		[]string{"int", "int", "decimal(10,2)", "date"}, []bool{false, false, true, true}))
	reg.Put(core.NewTableSchema(ns, "dbo.Customers", []string{"CustomerID", "CustomerName"},
		[]string{"int", "nvarchar(100)"}, []bool{false, true}))
	return reg
}

func parseUnion(t *testing.T, sql string) *sqlast.UnionStmt {
	t.Helper()
	stmts, err := sqlast.Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	u, ok := stmts[0].(*sqlast.UnionStmt)
	require.True(t, ok, "expected *sqlast.UnionStmt, got %T", stmts[0])
	return u
}

func TestSelectLineage_IdentityColumn(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT OrderID FROM dbo.Orders`)

	lineage, schema, deps := SelectLineage(u, ctx)
	require.Len(t, lineage, 1)
	require.Equal(t, core.Identity, lineage[0].Kind)
	require.Equal(t, "OrderID", lineage[0].OutputColumn)
	require.Len(t, lineage[0].Inputs, 1)
	require.Equal(t, "dbo.Orders", lineage[0].Inputs[0].TableName)
	require.Equal(t, "OrderID", schema[0].Name)
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Orders")
}

func TestSelectLineage_RenameColumn(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	ctx.Renames.pairs["orderid"] = "OrderKey" // curated rename, as loaded from renames.yml
	u := parseUnion(t, `SELECT OrderID AS OrderKey FROM dbo.Orders`)

	lineage, _, _ := SelectLineage(u, ctx)
	require.Equal(t, core.Rename, lineage[0].Kind)
	require.Equal(t, "OrderKey", lineage[0].OutputColumn)
}

func TestSelectLineage_CastColumn(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT CAST(Amount AS INT) AS AmountInt FROM dbo.Orders`)

	lineage, _, _ := SelectLineage(u, ctx)
	require.Equal(t, core.Cast, lineage[0].Kind)
	require.Len(t, lineage[0].Inputs, 1)
	require.Equal(t, "Amount", lineage[0].Inputs[0].ColumnName)
}

func TestSelectLineage_CastOfArithmeticColumn(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT CAST(Amount + OrderID AS INT) AS AmountInt FROM dbo.Orders`)

	lineage, _, _ := SelectLineage(u, ctx)
	require.Equal(t, core.Arithmetic, lineage[0].Kind)
	require.Len(t, lineage[0].Inputs, 2)
}

func TestSelectLineage_AggregationColumn(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT SUM(Amount) AS TotalAmount FROM dbo.Orders`)

	lineage, _, _ := SelectLineage(u, ctx)
	require.Equal(t, core.Aggregation, lineage[0].Kind)
}

func TestSelectLineage_JoinQualifiedColumns(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT o.OrderID, c.CustomerName FROM dbo.Orders o INNER JOIN dbo.Customers c ON o.CustomerID = c.CustomerID`)

	lineage, _, deps := SelectLineage(u, ctx)
	require.Len(t, lineage, 2)
	require.Equal(t, "dbo.Orders", lineage[0].Inputs[0].TableName)
	require.Equal(t, "dbo.Customers", lineage[1].Inputs[0].TableName)
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Orders")
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Customers")
}

func TestSelectLineage_StarExpansion(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT * FROM dbo.Customers`)

	lineage, schema, _ := SelectLineage(u, ctx)
	require.Len(t, lineage, 2)
	require.Equal(t, "CustomerID", schema[0].Name)
	require.Equal(t, "CustomerName", schema[1].Name)
	require.Equal(t, core.Identity, lineage[0].Kind)
}

func TestSelectLineage_CTEPassthrough(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `
		WITH recent AS (SELECT OrderID, Amount FROM dbo.Orders)
		SELECT OrderID, Amount FROM recent
	`)

	lineage, _, deps := SelectLineage(u, ctx)
	require.Len(t, lineage, 2)
	require.Equal(t, core.Identity, lineage[0].Kind)
	require.Equal(t, "dbo.Orders", lineage[0].Inputs[0].TableName)
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Orders")
}

func TestSelectLineage_UnionMergesBranches(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `
		SELECT OrderID AS ID FROM dbo.Orders
		UNION ALL
		SELECT CustomerID AS ID FROM dbo.Customers
	`)

	lineage, _, deps := SelectLineage(u, ctx)
	require.Len(t, lineage, 1)
	require.Equal(t, core.Union, lineage[0].Kind)
	require.Len(t, lineage[0].Inputs, 2)
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Orders")
	require.Contains(t, deps, "mssql://localhost/InfoTrackerDW.dbo.Customers")
}

func TestSelectLineage_CaseExpression(t *testing.T) {
	ctx := newTestContext(t, ordersSchema())
	u := parseUnion(t, `SELECT CASE WHEN Amount THEN 'big' ELSE 'small' END AS Bucket FROM dbo.Orders`)

	lineage, _, _ := SelectLineage(u, ctx)
	require.Equal(t, core.Case, lineage[0].Kind)
	require.Len(t, lineage[0].Inputs, 1)
	require.Equal(t, "Amount", lineage[0].Inputs[0].ColumnName)
}
