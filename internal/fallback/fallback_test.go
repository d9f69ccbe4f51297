package fallback

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/core"
)

func TestLastSelect_SkipsInsertSubclauseSelect(t *testing.T) {
	body := `
		INSERT INTO dbo.Stage SELECT OrderID FROM dbo.Orders
		SELECT OrderID, Amount FROM dbo.Orders
	END`
	got := LastSelect(body)
	require.Contains(t, got, "SELECT OrderID, Amount FROM dbo.Orders")
	require.NotContains(t, got, "INSERT INTO")
}

func TestTVFReturnBody_ExtractsInnerSelect(t *testing.T) {
	body := `CREATE FUNCTION dbo.fn_x() RETURNS TABLE AS RETURN (SELECT OrderID FROM dbo.Orders)`
	got := TVFReturnBody(body)
	require.Equal(t, "SELECT OrderID FROM dbo.Orders", got)
}

func TestTableVarSchema_ParsesColumns(t *testing.T) {
	body := `DECLARE @t TABLE (OrderID INT, Total DECIMAL(10,2))`
	name, cols := TableVarSchema(body)
	require.Equal(t, "@t", name)
	require.Len(t, cols, 2)
	require.Equal(t, "OrderID", cols[0].Name)
	require.Equal(t, "int", cols[0].DataType)
	require.Equal(t, "decimal(10,2)", cols[1].DataType)
}

func TestInsertColumnList_CapturesColumns(t *testing.T) {
	body := `INSERT INTO dbo.Stage (StageID, Amount) SELECT OrderID, Amount FROM dbo.Orders`
	target, cols := InsertColumnList(body)
	require.Equal(t, "dbo.Stage", target)
	require.Equal(t, []string{"StageID", "Amount"}, cols)
}

func TestBasicSelectColumns_DetectsAliasAndSourceHint(t *testing.T) {
	cols := BasicSelectColumns(`SELECT o.OrderID AS Id, o.Amount FROM dbo.Orders o`)
	require.Len(t, cols, 2)
	require.Equal(t, "Id", cols[0].Alias)
	require.Equal(t, "o.OrderID", cols[0].SourceHint)
	require.Equal(t, "Amount", cols[1].Alias)
}

func TestTableAliases_MapsAliasToRawTable(t *testing.T) {
	aliases := TableAliases(`SELECT * FROM dbo.Orders o JOIN dbo.Customers c ON o.CustomerID = c.CustomerID`)
	require.Equal(t, "dbo.Orders", aliases["o"])
	require.Equal(t, "dbo.Customers", aliases["c"])
}

func TestBasicDependencies_DropsLocalTargetsAndReserved(t *testing.T) {
	body := `INSERT INTO dbo.Stage SELECT OrderID FROM dbo.Orders JOIN dbo.Customers ON 1`
	deps := BasicDependencies(body, map[string]struct{}{"dbo.stage": {}})
	require.Contains(t, deps, "dbo.Orders")
	require.Contains(t, deps, "dbo.Customers")
	require.NotContains(t, deps, "dbo.Stage")
}

func TestMergeOrUpdateTarget_PrefersOutputInto(t *testing.T) {
	body := `UPDATE dbo.Stage SET Amount = 1 OUTPUT inserted.Amount INTO dbo.Audit`
	require.Equal(t, "dbo.Audit", MergeOrUpdateTarget(body))
}

func TestBestEffortLineage_ClassifiesIdentityAndRename(t *testing.T) {
	cols := []BasicColumn{
		{Raw: "o.OrderID", Alias: "OrderID", SourceHint: "o.OrderID"},
		{Raw: "o.Amount AS Total", Alias: "Total", SourceHint: "o.Amount"},
	}
	aliases := map[string]string{"o": "dbo.Orders"}
	resolve := func(rawTable, column string) (core.ColumnReference, bool) {
		return core.NewColumnReference("mssql://localhost/InfoTrackerDW", rawTable, column), true
	}
	lineageList := BestEffortLineage(cols, aliases, resolve)
	require.Equal(t, core.Identity, lineageList[0].Kind)
	require.Equal(t, core.Rename, lineageList[1].Kind)
}
