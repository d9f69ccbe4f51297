package dml

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/registry"
	"smf/internal/resolver"
	"smf/internal/sqlast"
)

func newTestContext(t *testing.T) *lineage.ParseContext {
	t.Helper()
	schemas := registry.NewSchemaRegistry()
	ns := "mssql://localhost/InfoTrackerDW"
	schemas.Put(core.NewTableSchema(ns, "dbo.Orders", []string{"OrderID", "CustomerID", "Amount"},
		[]string{"int", "int", "decimal(10,2)"}, []bool{false, false, true}))
	schemas.Put(core.NewTableSchema(ns, "dbo.Stage", []string{"StageID", "Amount"},
		[]string{"int", "decimal(10,2)"}, []bool{false, true}))
	r := resolver.New(config.NewMSSQLAdapter(""), registry.NewObjectDbRegistry(), "dbo", "InfoTrackerDW", false)
	return lineage.NewParseContext(r, schemas, lineage.NewRenameTable(), "InfoTrackerDW")
}

func parseOne(t *testing.T, sql string) sqlast.Stmt {
	t.Helper()
	stmts, err := sqlast.Parse(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func TestSelectInto_PersistentTarget(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `SELECT OrderID, Amount INTO dbo.Stage2 FROM dbo.Orders`).(*sqlast.UnionStmt).Branches[0]

	f := SelectInto(stmt, ctx)
	require.False(t, f.IsTemp)
	require.Equal(t, "dbo.Stage2", f.QualifiedName)
	require.Len(t, f.Lineage, 2)
	_, ok := ctx.Schemas.Get(f.Namespace, f.QualifiedName)
	require.True(t, ok)
}

func TestSelectInto_TempTableVersioning(t *testing.T) {
	ctx := newTestContext(t)
	first := parseOne(t, `SELECT OrderID FROM dbo.Orders INTO #tmp`)
	_ = first

	stmt1 := parseOne(t, `SELECT OrderID INTO #tmp FROM dbo.Orders`).(*sqlast.UnionStmt).Branches[0]
	f1 := SelectInto(stmt1, ctx)
	require.True(t, f1.IsTemp)
	ver, idx, ok := ctx.Temps.Latest("#tmp")
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, []string{"OrderID"}, ver.Columns)

	stmt2 := parseOne(t, `SELECT OrderID, Amount INTO #tmp FROM dbo.Orders`).(*sqlast.UnionStmt).Branches[0]
	f2 := SelectInto(stmt2, ctx)
	require.True(t, f2.IsTemp)
	ver2, idx2, ok := ctx.Temps.Latest("#tmp")
	require.True(t, ok)
	require.Equal(t, 1, idx2)
	require.Len(t, ver2.Columns, 2)
}

func TestInsertSelect_ColumnListOverridesNames(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `INSERT INTO dbo.Stage (StageID, Amount) SELECT OrderID, Amount FROM dbo.Orders`).(*sqlast.InsertStmt)

	f := InsertSelect(stmt, ctx)
	require.Equal(t, "StageID", f.Lineage[0].OutputColumn)
	require.Equal(t, "Amount", f.Lineage[1].OutputColumn)
}

func TestInsertExec_MarksFallback(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `INSERT INTO dbo.Stage EXEC dbo.usp_LoadStage`).(*sqlast.InsertStmt)

	f := InsertExec(stmt, ctx)
	require.True(t, f.IsFallback)
	require.Equal(t, core.ReasonInsertExecFallback, f.ReasonCode)
	require.Equal(t, "dbo.Stage", f.QualifiedName)
}

func TestMerge_AccumulatesAcrossBothBranches(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `MERGE INTO dbo.Stage USING dbo.Orders s ON Stage.StageID = s.OrderID
		WHEN MATCHED THEN UPDATE SET Amount = s.Amount
		WHEN NOT MATCHED THEN INSERT (StageID, Amount) VALUES (s.OrderID, s.Amount)`).(*sqlast.MergeStmt)

	f := Merge(stmt, ctx)
	require.Len(t, f.Lineage, 2)
	var amountCol *core.ColumnLineage
	for i := range f.Lineage {
		if f.Lineage[i].OutputColumn == "Amount" {
			amountCol = &f.Lineage[i]
		}
	}
	require.NotNil(t, amountCol)
	require.Equal(t, core.Identity, amountCol.Kind)
	require.Equal(t, "merged from multiple branches", amountCol.Description)
}

func TestUpdateFrom_NoOutputProducesNoFragment(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `UPDATE dbo.Stage SET Amount = o.Amount FROM dbo.Orders o`).(*sqlast.UpdateStmt)

	f := UpdateFrom(stmt, ctx)
	require.Nil(t, f)
}

func TestUpdateFrom_OutputAliasColumnResolvesToFromSource(t *testing.T) {
	ctx := newTestContext(t)
	stmt := parseOne(t, `UPDATE dbo.Stage SET Amount = o.Amount FROM dbo.Orders o
		OUTPUT o.OrderID, deleted.Amount AS OldAmount INTO dbo.Stage2`).(*sqlast.UpdateStmt)

	f := UpdateFrom(stmt, ctx)
	require.NotNil(t, f)
	require.Len(t, f.Lineage, 2)

	orderID := f.Lineage[0]
	require.Equal(t, "OrderID", orderID.OutputColumn)
	require.Len(t, orderID.Inputs, 1)
	require.Equal(t, "dbo.Orders", orderID.Inputs[0].TableName)

	oldAmount := f.Lineage[1]
	require.Equal(t, "OldAmount", oldAmount.OutputColumn)
	require.Len(t, oldAmount.Inputs, 1)
	require.Equal(t, "dbo.Stage", oldAmount.Inputs[0].TableName)
}
