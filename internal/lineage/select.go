package lineage

import (
	"fmt"
	"strings"

	"smf/internal/core"
	"smf/internal/sqlast"
)

// SelectLineage computes per-output-column lineage, the inferred output
// schema, and the dataset-level dependency set for a parsed SELECT/UNION
// tree. A plain SELECT is a UnionStmt with a single branch.
func SelectLineage(u *sqlast.UnionStmt, ctx *ParseContext) ([]core.ColumnLineage, []core.ColumnSchema, map[string]struct{}) {
	if u == nil || len(u.Branches) == 0 {
		return nil, nil, map[string]struct{}{}
	}
	if u.IsSingle() {
		return selectBranchLineage(u.Branches[0], ctx)
	}

	var branchLineages [][]core.ColumnLineage
	var branchSchemas [][]core.ColumnSchema
	deps := map[string]struct{}{}
	for _, branch := range u.Branches {
		l, s, d := selectBranchLineage(branch, ctx)
		branchLineages = append(branchLineages, l)
		branchSchemas = append(branchSchemas, s)
		for k := range d {
			deps[k] = struct{}{}
		}
	}
	return mergeUnionBranches(branchLineages, branchSchemas), branchSchemas[0], deps
}

// mergeUnionBranches combines UNION/UNION ALL/EXCEPT/INTERSECT branches
// positionally: the first branch names the output columns, and every
// branch's inputs for a position are unioned together.
func mergeUnionBranches(lineages [][]core.ColumnLineage, schemas [][]core.ColumnSchema) []core.ColumnLineage {
	width := len(lineages[0])
	for _, l := range lineages {
		if len(l) < width {
			width = len(l)
		}
	}
	out := make([]core.ColumnLineage, width)
	for i := 0; i < width; i++ {
		merged := core.ColumnLineage{OutputColumn: lineages[0][i].OutputColumn, Kind: core.Union}
		if len(lineages) > 1 {
			merged.Description = fmt.Sprintf("combined via UNION of %d branches", len(lineages))
		}
		for _, l := range lineages {
			addAll(&merged, l[i].Inputs)
		}
		out[i] = merged
	}
	return out
}

func selectBranchLineage(sel *sqlast.SelectStmt, ctx *ParseContext) ([]core.ColumnLineage, []core.ColumnSchema, map[string]struct{}) {
	processCTEs(sel.With, ctx)

	m := BuildAliasMap(sel.From, ctx)
	deps := map[string]struct{}{}
	for _, key := range m.order {
		t, ok := m.get(key)
		if ok && !t.IsDerived && t.QualifiedName != "" {
			deps[depKey(t.Namespace, t.QualifiedName)] = struct{}{}
		}
	}

	expanded := expandProjections(sel.Projections, m, ctx)

	lineages := make([]core.ColumnLineage, 0, len(expanded))
	schema := make([]core.ColumnSchema, 0, len(expanded))
	for i, p := range expanded {
		var l core.ColumnLineage
		if p.Lineage != nil {
			l = *p.Lineage
		} else {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("expr_%d", i+1)
			}
			l = ClassifyProjection(p.Expr, name, m, ctx)
		}
		for _, in := range l.Inputs {
			if !in.IsTemp() {
				deps[depKey(in.Namespace, in.TableName)] = struct{}{}
			}
		}
		lineages = append(lineages, l)
		schema = append(schema, core.ColumnSchema{Name: l.OutputColumn, DataType: "unknown", Nullable: true, Ordinal: i})
	}
	return lineages, schema, deps
}

// processCTEs computes and registers the lineage of every WITH-clause
// entry, in declaration order so later CTEs can reference earlier ones.
func processCTEs(ctes []sqlast.CTE, ctx *ParseContext) {
	for _, cte := range ctes {
		lineage, schema, _ := SelectLineage(cte.Query, ctx)
		names := cte.Columns
		if len(names) == 0 {
			names = make([]string, len(schema))
			for i, s := range schema {
				names[i] = s.Name
			}
		}
		dl := make(map[string]core.ColumnLineage, len(lineage))
		for i, l := range lineage {
			name := l.OutputColumn
			if i < len(names) {
				name = names[i]
			}
			renamed := l
			renamed.OutputColumn = name
			dl[strings.ToLower(name)] = renamed
		}
		ctx.CTELineage[strings.ToLower(cte.Name)] = AliasTarget{IsDerived: true, DerivedLineage: dl, DerivedOrder: names}
		ctx.CTEs.Define(cte.Name, names)
	}
}
