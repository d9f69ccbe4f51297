// Package graph implements the column-level dependency graph, impact
// analysis, and schema diff: a directed graph of core.ColumnReference
// edges aggregated from every extracted ObjectInfo, consumed by both
// "impact" and "diff" CLI subcommands.
package graph

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"smf/internal/core"
)

// Edge is one column-level dependency: Value flows from From to To.
type Edge struct {
	From        core.ColumnReference `json:"from"`
	To          core.ColumnReference `json:"to"`
	Kind        core.TransformationKind `json:"kind"`
	Description string                  `json:"description,omitempty"`
}

func edgeKey(e Edge) string {
	return e.From.Key() + ">" + e.To.Key()
}

// Graph is the shared, mutex-guarded column graph every file's extraction
// feeds edges into.
type Graph struct {
	mu      sync.RWMutex
	edges   map[string]Edge
	byFrom  map[string][]string // ColumnReference.Key() -> edge keys
	byTo    map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		edges:  map[string]Edge{},
		byFrom: map[string][]string{},
		byTo:   map[string][]string{},
	}
}

// AddObject aggregates every ColumnLineage edge of obj into the graph.
func (g *Graph) AddObject(obj *core.ObjectInfo) {
	if obj == nil {
		return
	}
	for i, l := range obj.Lineage {
		if i >= len(obj.Schema.Columns) {
			break
		}
		to := core.NewColumnReference(obj.Schema.Namespace, obj.Schema.QualifiedName, obj.Schema.Columns[i].Name)
		for _, from := range l.Inputs {
			g.addEdge(Edge{From: from, To: to, Kind: l.Kind, Description: l.Description})
		}
	}
}

func (g *Graph) addEdge(e Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := edgeKey(e)
	if _, exists := g.edges[key]; exists {
		return
	}
	g.edges[key] = e
	fromKey, toKey := e.From.Key(), e.To.Key()
	g.byFrom[fromKey] = append(g.byFrom[fromKey], key)
	g.byTo[toKey] = append(g.byTo[toKey], key)
}

// Len returns the number of distinct edges in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Edges returns every edge, sorted for deterministic iteration.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := edgeKey(out[i]), edgeKey(out[j])
		return ki < kj
	})
	return out
}

// Direction is the BFS traversal direction for Impact.
type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
	Both       Direction = "both"
)

// Selector is a parsed impact-analysis target column.
type Selector struct {
	QualifiedName string // "schema.table"; ParseSelector drops a leading db segment
	Column        string
	ForceUpstream bool
	ForceDownstream bool
}

// ParseSelector accepts "db.schema.table.col" or "schema.table.col", each
// optionally prefixed or suffixed with "+" to force a traversal direction.
func ParseSelector(raw string) Selector {
	s := Selector{}
	if strings.HasPrefix(raw, "+") {
		s.ForceUpstream = true
		raw = strings.TrimPrefix(raw, "+")
	}
	if strings.HasSuffix(raw, "+") {
		s.ForceDownstream = true
		raw = strings.TrimSuffix(raw, "+")
	}
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		s.Column = raw
		return s
	}
	s.Column = parts[len(parts)-1]
	tableParts := parts[:len(parts)-1]
	if len(tableParts) == 3 {
		// db.schema.table.col: ColumnReference.TableName is stored as
		// "schema.table", so the leading db segment is dropped; matching
		// uses schema.table and column only, in every namespace.
		tableParts = tableParts[1:]
	}
	s.QualifiedName = strings.Join(tableParts, ".")
	return s
}

// ImpactResult is one column reached during a BFS traversal, with the
// distance (hop count) from the selector's starting column.
type ImpactResult struct {
	Column core.ColumnReference
	Depth  int
}

// Impact performs a breadth-first traversal from every column matching sel,
// in the requested direction, up to maxDepth hops (maxDepth <= 0 means
// unbounded).
func (g *Graph) Impact(sel Selector, dir Direction, maxDepth int) []ImpactResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	starts := g.matchSelector(sel)
	visited := map[string]int{}
	var queue []core.ColumnReference
	for _, c := range starts {
		if _, seen := visited[c.Key()]; !seen {
			visited[c.Key()] = 0
			queue = append(queue, c)
		}
	}

	effectiveDir := dir
	if sel.ForceUpstream {
		effectiveDir = Upstream
	} else if sel.ForceDownstream {
		effectiveDir = Downstream
	}

	var results []ImpactResult
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := visited[cur.Key()]
		if cur.Key() != "" {
			results = append(results, ImpactResult{Column: cur, Depth: depth})
		}
		if maxDepth > 0 && depth >= maxDepth {
			continue
		}
		var neighbors []core.ColumnReference
		if effectiveDir == Upstream || effectiveDir == Both {
			neighbors = append(neighbors, g.neighbors(cur, g.byTo, true)...)
		}
		if effectiveDir == Downstream || effectiveDir == Both {
			neighbors = append(neighbors, g.neighbors(cur, g.byFrom, false)...)
		}
		for _, n := range neighbors {
			if _, seen := visited[n.Key()]; !seen {
				visited[n.Key()] = depth + 1
				queue = append(queue, n)
			}
		}
	}
	// drop the starting columns themselves from the reported result.
	out := make([]ImpactResult, 0, len(results))
	for _, r := range results {
		if r.Depth > 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Column.Key() < out[j].Column.Key()
	})
	return out
}

func (g *Graph) neighbors(c core.ColumnReference, idx map[string][]string, fromSide bool) []core.ColumnReference {
	var out []core.ColumnReference
	for _, key := range idx[c.Key()] {
		e := g.edges[key]
		if fromSide {
			out = append(out, e.From)
		} else {
			out = append(out, e.To)
		}
	}
	return out
}

func (g *Graph) matchSelector(sel Selector) []core.ColumnReference {
	var out []core.ColumnReference
	seen := map[string]struct{}{}
	consider := func(c core.ColumnReference) {
		if !strings.EqualFold(c.ColumnName, sel.Column) {
			return
		}
		if sel.QualifiedName != "" && !strings.HasSuffix(strings.ToLower(c.TableName), strings.ToLower(sel.QualifiedName)) {
			return
		}
		if _, dup := seen[c.Key()]; dup {
			return
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	for _, e := range g.edges {
		consider(e.From)
		consider(e.To)
	}
	return out
}

// Snapshot is the serializable form of a Graph, written to disk by extract
// and read back by impact/diff.
type Snapshot struct {
	Edges []Edge `json:"edges"`
}

// MarshalSnapshot renders the graph as deterministic JSON.
func (g *Graph) MarshalSnapshot() ([]byte, error) {
	return json.MarshalIndent(Snapshot{Edges: g.Edges()}, "", "  ")
}

// UnmarshalSnapshot rebuilds a Graph from a previously-written snapshot.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	g := New()
	for _, e := range snap.Edges {
		g.addEdge(e)
	}
	return g, nil
}
