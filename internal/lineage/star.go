package lineage

import (
	"strings"

	"smf/internal/core"
	"smf/internal/sqlast"
)

// expandedProjection is one concrete (name, expr) pair after star expansion;
// Expr is nil for star-expanded columns, whose lineage is taken directly
// from Lineage instead of being classified from an expression tree.
type expandedProjection struct {
	Name    string
	Expr    sqlast.Expr
	Lineage *core.ColumnLineage // set only for star-expanded columns
}

// expandProjections resolves Star/Table.Star projections into concrete
// per-column entries, leaving ordinary projections untouched.
func expandProjections(projs []sqlast.Projection, m *AliasMap, ctx *ParseContext) []expandedProjection {
	var out []expandedProjection
	for _, p := range projs {
		switch e := p.Expr.(type) {
		case sqlast.Star:
			if e.Table != "" {
				out = append(out, expandTargetColumns(e.Table, m, ctx)...)
				continue
			}
			for _, key := range m.order {
				out = append(out, expandTargetColumns(key, m, ctx)...)
			}
		default:
			name := p.Alias
			if name == "" {
				name = projectionName(p.Expr)
			}
			out = append(out, expandedProjection{Name: name, Expr: p.Expr})
		}
	}
	return out
}

func expandTargetColumns(key string, m *AliasMap, ctx *ParseContext) []expandedProjection {
	t, ok := m.get(key)
	if !ok {
		ctx.Warnf("cannot expand * for unresolved source %q", key)
		return nil
	}
	if t.IsDerived {
		out := make([]expandedProjection, 0, len(t.DerivedOrder))
		for _, name := range t.DerivedOrder {
			l := t.DerivedLineage[strings.ToLower(name)]
			lineage := l
			out = append(out, expandedProjection{Name: name, Lineage: &lineage})
		}
		return out
	}
	if ctx.Schemas == nil {
		return nil
	}
	schema, ok := ctx.Schemas.Get(t.Namespace, t.QualifiedName)
	if !ok {
		ctx.Warnf("cannot expand * for %s: schema unknown", t.QualifiedName)
		return nil
	}
	out := make([]expandedProjection, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		l := core.ColumnLineage{
			OutputColumn: col.Name,
			Kind:         core.Identity,
			Inputs:       []core.ColumnReference{core.NewColumnReference(t.Namespace, t.QualifiedName, col.Name)},
		}
		out = append(out, expandedProjection{Name: col.Name, Lineage: &l})
	}
	return out
}

// projectionName derives a default output name for an unaliased
// expression: the bare column name for a ColumnRef, "expr_N" handled by
// the caller otherwise.
func projectionName(e sqlast.Expr) string {
	switch v := e.(type) {
	case sqlast.ColumnRef:
		return v.Column
	case *sqlast.FuncCall:
		return v.Name
	default:
		return ""
	}
}
