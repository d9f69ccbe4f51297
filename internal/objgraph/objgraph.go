// Package objgraph implements the object-level DAG used to schedule file
// processing: files must be processed in topological order (dependencies
// first) so that temp/schema registries see their callees' output before a
// dependent file is parsed.
package objgraph

import (
	"fmt"
	"sort"
)

// Graph is a directed dependency graph between file identifiers (typically
// the object's intended qualified name, known ahead of full parsing from a
// cheap name scan).
type Graph struct {
	nodes map[string]struct{}
	edges map[string]map[string]struct{} // node -> set of nodes it depends on
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: map[string]struct{}{}, edges: map[string]map[string]struct{}{}}
}

// AddNode registers a node with no dependencies if it isn't already present.
func (g *Graph) AddNode(name string) {
	g.nodes[name] = struct{}{}
	if g.edges[name] == nil {
		g.edges[name] = map[string]struct{}{}
	}
}

// AddDependency records that "name" depends on "dependsOn". Both nodes are
// registered if not already present; a dependency on a node outside the
// known set is a no-op external reference (cross-corpus dependencies that
// aren't part of this run don't gate scheduling).
func (g *Graph) AddDependency(name, dependsOn string) {
	g.AddNode(name)
	if _, known := g.nodes[dependsOn]; !known {
		return
	}
	g.edges[name][dependsOn] = struct{}{}
}

// Levels returns a topological ordering grouped into levels: all nodes in
// level i depend only on nodes in levels < i, so every level's nodes are
// mutually independent and can be processed in parallel. Returns an error
// if the graph contains a cycle.
func (g *Graph) Levels() ([][]string, error) {
	remaining := make(map[string]map[string]struct{}, len(g.edges))
	for n, deps := range g.edges {
		cp := make(map[string]struct{}, len(deps))
		for d := range deps {
			cp[d] = struct{}{}
		}
		remaining[n] = cp
	}

	var levels [][]string
	processed := 0
	for len(remaining) > 0 {
		var ready []string
		for n, deps := range remaining {
			if len(deps) == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("objgraph: dependency cycle detected among %d remaining nodes", len(remaining))
		}
		sort.Strings(ready)
		levels = append(levels, ready)
		for _, n := range ready {
			delete(remaining, n)
		}
		for _, deps := range remaining {
			for _, n := range ready {
				delete(deps, n)
			}
		}
		processed += len(ready)
	}
	return levels, nil
}

// Nodes returns every registered node name, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
