package dml

import (
	"sort"
	"strings"

	"smf/internal/core"
)

// ColumnAccumulator merges the lineage a procedure body builds up for one
// target table: a mapping output_column -> set of ColumnReference inputs,
// fed by every branch/INSERT/UPDATE/OUTPUT pathway that writes to the same
// target. Finalizing collapses a column touched by more than one branch to
// IDENTITY with a sorted, deduplicated input list; a column touched by
// exactly one branch keeps that branch's own classification untouched.
type ColumnAccumulator struct {
	order   []string
	entries map[string]*accEntry
}

type accEntry struct {
	lineage       core.ColumnLineage
	contributions int
}

// NewColumnAccumulator returns an empty accumulator.
func NewColumnAccumulator() *ColumnAccumulator {
	return &ColumnAccumulator{entries: make(map[string]*accEntry)}
}

// Add records one branch's lineage for its output column.
func (a *ColumnAccumulator) Add(l core.ColumnLineage) {
	key := strings.ToLower(l.OutputColumn)
	e, ok := a.entries[key]
	if !ok {
		e = &accEntry{lineage: core.ColumnLineage{OutputColumn: l.OutputColumn}}
		a.entries[key] = e
		a.order = append(a.order, key)
	}
	for _, in := range l.Inputs {
		e.lineage.AddInput(in)
	}
	e.contributions++
	if e.contributions == 1 {
		e.lineage.Kind = l.Kind
		e.lineage.Description = l.Description
	}
}

// Finalize produces the ordered, per-column lineage list.
func (a *ColumnAccumulator) Finalize() []core.ColumnLineage {
	out := make([]core.ColumnLineage, 0, len(a.order))
	for _, key := range a.order {
		e := a.entries[key]
		l := e.lineage
		if e.contributions > 1 {
			l.Kind = core.Identity
			l.Description = "merged from multiple branches"
		}
		sort.Slice(l.Inputs, func(i, j int) bool { return l.Inputs[i].Key() < l.Inputs[j].Key() })
		out = append(out, l)
	}
	return out
}

// Len reports how many distinct output columns have been accumulated.
func (a *ColumnAccumulator) Len() int { return len(a.order) }
