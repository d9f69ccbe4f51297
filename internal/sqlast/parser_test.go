package sqlast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_CreateTable(t *testing.T) {
	sql := `CREATE TABLE dbo.Customers (
		CustomerID INT NOT NULL PRIMARY KEY,
		Name NVARCHAR(100),
		Email NVARCHAR(255) NULL
	)`
	stmts, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ct, ok := stmts[0].(*CreateTableStmt)
	require.True(t, ok)
	require.Equal(t, "dbo.Customers", ct.Name)
	require.Len(t, ct.Columns, 3)
	require.False(t, ct.Columns[0].Nullable)
	require.True(t, ct.Columns[0].PrimaryKey)
	require.True(t, ct.Columns[1].Nullable)
	require.True(t, ct.Columns[2].Nullable)
}

func TestParse_CreateViewWithCaseAndCast(t *testing.T) {
	sql := `CREATE VIEW dbo.stg_orders AS
	SELECT o.OrderID, o.CustomerID, CAST(o.OrderDate AS DATE) AS OrderDate,
		CASE WHEN o.OrderStatus IN ('shipped','delivered') THEN 1 ELSE 0 END AS IsFulfilled
	FROM dbo.Orders AS o`
	stmts, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	cv, ok := stmts[0].(*CreateViewStmt)
	require.True(t, ok)
	require.Equal(t, "dbo.stg_orders", cv.Name)
	require.True(t, cv.Query.IsSingle())
	sel := cv.Query.Branches[0]
	require.Len(t, sel.Projections, 4)
	require.Equal(t, "OrderDate", sel.Projections[2].Alias)
	_, isCast := sel.Projections[2].Expr.(*CastExpr)
	require.True(t, isCast)
	require.Equal(t, "IsFulfilled", sel.Projections[3].Alias)
	_, isCase := sel.Projections[3].Expr.(*CaseExpr)
	require.True(t, isCase)
}

func TestParse_MergeStatement(t *testing.T) {
	sql := `MERGE INTO dbo.Dim USING dbo.Stage s ON Dim.k = s.k
	WHEN MATCHED THEN UPDATE SET Dim.c = s.c
	WHEN NOT MATCHED THEN INSERT (k, c) VALUES (s.k, s.c)`
	stmts, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	m, ok := stmts[0].(*MergeStmt)
	require.True(t, ok)
	require.Equal(t, "dbo.Dim", m.Target)
	require.Equal(t, "dbo.Stage", m.Source.Name)
	require.Equal(t, "s", m.Source.Alias)
	require.Len(t, m.Whens, 2)
	require.True(t, m.Whens[0].Matched)
	require.False(t, m.Whens[1].Matched)
}

func TestParse_UnionPositionalArity(t *testing.T) {
	sql := `SELECT a, b FROM t1 UNION ALL SELECT c, d FROM t2`
	stmts, err := Parse(sql)
	require.NoError(t, err)
	u, ok := stmts[0].(*UnionStmt)
	require.True(t, ok)
	require.Len(t, u.Branches, 2)
	require.Equal(t, []string{"UNION ALL"}, u.Ops)
}
