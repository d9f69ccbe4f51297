package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/config"
	"smf/internal/core"
	"smf/internal/registry"
)

func newTestResolver() *Resolver {
	return New(config.NewMSSQLAdapter(""), registry.NewObjectDbRegistry(), "dbo", "InfoTrackerDW", false)
}

func TestResolve_TempTableUsesTempNamespace(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve("#stage", "", "", nil)
	require.Equal(t, core.TempNamespace, got.Namespace)
	require.Equal(t, "#stage", got.QualifiedName)
}

func TestResolve_ThreePartNameUsesExplicitDatabase(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve("Sales.dbo.Orders", "table", "", nil)
	require.Equal(t, "mssql://localhost/Sales", got.Namespace)
	require.Equal(t, "dbo.Orders", got.QualifiedName)
	require.Equal(t, "Sales", got.Database)
}

func TestResolve_PseudoCatalogPrefixNeverBecomesDatabase(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve("View.vw_Sales", "view", "Analytics", nil)
	require.Equal(t, "mssql://localhost/Analytics", got.Namespace)
	require.Equal(t, "dbo.vw_Sales", got.QualifiedName)

	got2 := r.Resolve("StoredProcedure.usp_LoadOrders", "procedure", "Analytics", nil)
	require.Equal(t, "dbo.usp_LoadOrders", got2.QualifiedName)
}

func TestResolve_TwoPartNameConsultsObjectDbRegistryBeforeUse(t *testing.T) {
	objdb := registry.NewObjectDbRegistry()
	objdb.LearnFromCreate("table", "dbo.Orders", "Sales")
	r := New(config.NewMSSQLAdapter(""), objdb, "dbo", "InfoTrackerDW", false)

	got := r.Resolve("dbo.Orders", "table", "SomeOtherDb", nil)
	require.Equal(t, "mssql://localhost/Sales", got.Namespace)
}

func TestResolve_TwoPartNameFallsBackToBodyMajorityVote(t *testing.T) {
	r := newTestResolver()
	votes := map[string]int{"Analytics": 3, "Staging": 1}
	got := r.Resolve("dbo.Stage", "table", "", votes)
	require.Equal(t, "mssql://localhost/Analytics", got.Namespace)
}

func TestResolve_TwoPartNameFallsBackToUseThenDefault(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve("dbo.Stage", "table", "CurrentDb", nil)
	require.Equal(t, "mssql://localhost/CurrentDb", got.Namespace)

	got2 := r.Resolve("dbo.Stage", "table", "", nil)
	require.Equal(t, "mssql://localhost/InfoTrackerDW", got2.Namespace)
}

func TestResolve_OnePartNameUsesDefaultSchema(t *testing.T) {
	r := newTestResolver()
	got := r.Resolve("Orders", "table", "Analytics", nil)
	require.Equal(t, "dbo.Orders", got.QualifiedName)
	require.Equal(t, "mssql://localhost/Analytics", got.Namespace)
}

func TestResolve_DbtModeIgnoresExplicitDatabaseAndSchema(t *testing.T) {
	r := New(config.NewMSSQLAdapter(""), registry.NewObjectDbRegistry(), "analytics", "InfoTrackerDW", true)
	got := r.Resolve("Sales.dbo.stg_orders", "view", "", nil)
	require.Equal(t, "analytics.stg_orders", got.QualifiedName)
}

func TestResolve_SameInputsYieldSameOutput(t *testing.T) {
	r := newTestResolver()
	a := r.Resolve("Sales.dbo.Orders", "table", "", nil)
	b := r.Resolve("Sales.dbo.Orders", "table", "", nil)
	require.Equal(t, a, b)
}
