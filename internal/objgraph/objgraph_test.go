package objgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevels_OrdersDependenciesFirst(t *testing.T) {
	g := New()
	g.AddNode("dbo.Orders")
	g.AddDependency("dbo.OrderSummary", "dbo.Orders")
	g.AddDependency("dbo.Report", "dbo.OrderSummary")

	levels, err := g.Levels()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"dbo.Orders"}, {"dbo.OrderSummary"}, {"dbo.Report"}}, levels)
}

func TestLevels_IndependentNodesShareALevel(t *testing.T) {
	g := New()
	g.AddNode("dbo.A")
	g.AddNode("dbo.B")
	levels, err := g.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.ElementsMatch(t, []string{"dbo.A", "dbo.B"}, levels[0])
}

func TestLevels_DetectsCycle(t *testing.T) {
	g := New()
	g.AddNode("dbo.A")
	g.AddNode("dbo.B")
	g.AddDependency("dbo.A", "dbo.B")
	g.AddDependency("dbo.B", "dbo.A")

	_, err := g.Levels()
	require.Error(t, err)
}

func TestAddDependency_ExternalReferenceIsNoop(t *testing.T) {
	g := New()
	g.AddNode("dbo.OrderSummary")
	g.AddDependency("dbo.OrderSummary", "dbo.NotInThisRun")

	levels, err := g.Levels()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"dbo.OrderSummary"}}, levels)
}
