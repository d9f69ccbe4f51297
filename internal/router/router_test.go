package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/sqlast"
)

func mustParse(t *testing.T, sql string) []sqlast.Stmt {
	t.Helper()
	stmts, err := sqlast.Parse(sql)
	require.NoError(t, err)
	return stmts
}

func TestRoute_SingleCreateTable(t *testing.T) {
	stmts := mustParse(t, `CREATE TABLE dbo.T (a INT)`)
	d := Route(stmts, false, "", "t")
	require.Equal(t, KindTable, d.Kind)
}

func TestRoute_SingleCreateView(t *testing.T) {
	stmts := mustParse(t, `CREATE VIEW dbo.V AS SELECT a FROM dbo.T`)
	d := Route(stmts, false, "", "v")
	require.Equal(t, KindView, d.Kind)
}

func TestRoute_MultipleFunctionsPicksFirst(t *testing.T) {
	stmts := mustParse(t, `
		CREATE FUNCTION dbo.f1() RETURNS INT AS BEGIN RETURN 1 END
		CREATE FUNCTION dbo.f2() RETURNS INT AS BEGIN RETURN 2 END
	`)
	d := Route(stmts, false, "", "multi")
	require.Equal(t, KindFunction, d.Kind)
	fn, ok := d.Primary.(*sqlast.CreateFunctionStmt)
	require.True(t, ok)
	require.Equal(t, "dbo.f1", fn.Name)
}

func TestRoute_MixedStatementsIsScript(t *testing.T) {
	stmts := mustParse(t, `
		CREATE TABLE dbo.T1 (a INT)
		CREATE TABLE dbo.T2 (b INT)
	`)
	d := Route(stmts, false, "", "script")
	require.Equal(t, KindScript, d.Kind)
}

func TestRoute_DBTModeUsesHeaderCommentName(t *testing.T) {
	raw := "-- name: stg_orders\nSELECT a FROM dbo.T"
	d := Route(nil, true, raw, "fallback_stem")
	require.Equal(t, KindDBT, d.Kind)
	require.Equal(t, "stg_orders", d.DBTModelName)
}

func TestRoute_DBTModeFallsBackToFileStem(t *testing.T) {
	d := Route(nil, true, "SELECT a FROM dbo.T", "stg_customers")
	require.Equal(t, KindDBT, d.Kind)
	require.Equal(t, "stg_customers", d.DBTModelName)
}

func TestFileStem_StripsDirectoryAndExtension(t *testing.T) {
	require.Equal(t, "orders", FileStem("/sql/models/orders.sql"))
	require.Equal(t, "orders", FileStem(`C:\sql\orders.sql`))
}
