package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectInfo_ValidateTableHasEmptyLineage(t *testing.T) {
	obj := NewObjectInfo("dbo.Customers", ObjectTable)
	obj.Schema = NewTableSchema("mssql://localhost/DW", "dbo.Customers", []string{"CustomerID"}, []string{"int"}, []bool{false})
	require.NoError(t, obj.Validate())

	obj.Lineage = append(obj.Lineage, ColumnLineage{OutputColumn: "CustomerID", Kind: Identity})
	assert.Error(t, obj.Validate())
}

func TestObjectInfo_ValidateLineageCountMatchesSchema(t *testing.T) {
	obj := NewObjectInfo("dbo.stg_orders", ObjectView)
	obj.Schema = NewTableSchema("mssql://localhost/DW", "dbo.stg_orders", []string{"OrderID", "CustomerID"}, []string{"int", "int"}, []bool{true, true})
	obj.Lineage = []ColumnLineage{
		{OutputColumn: "OrderID", Kind: Identity, Inputs: []ColumnReference{NewColumnReference("mssql://localhost/DW", "dbo.Orders", "OrderID")}},
	}
	err := obj.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lineage count")
}

func TestColumnLineage_IdentityRequiresSingleInput(t *testing.T) {
	l := ColumnLineage{OutputColumn: "x", Kind: Identity}
	assert.Error(t, l.Validate())

	l.AddInput(NewColumnReference("ns", "t", "a"))
	assert.NoError(t, l.Validate())

	l.AddInput(NewColumnReference("ns", "t", "b"))
	assert.Error(t, l.Validate())
}

func TestColumnReference_EqualIsCaseInsensitive(t *testing.T) {
	a := NewColumnReference("mssql://localhost/DW", "dbo.Orders", "OrderID")
	b := NewColumnReference("MSSQL://LOCALHOST/DW", "DBO.ORDERS", "orderid")
	assert.True(t, a.Equal(b))
}
