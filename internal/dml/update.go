package dml

import (
	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// UpdateFrom handles "UPDATE <target> SET col = expr ... FROM <source>
// [OUTPUT ... INTO <sink>]". The update itself mutates the target
// in-place (no lineage is emitted for it, matching a table's role as a
// source in the data model), but an OUTPUT INTO clause materializes a new
// dataset whose lineage is computed from the SET expressions.
func UpdateFrom(stmt *sqlast.UpdateStmt, ctx *lineage.ParseContext) *Fragment {
	m := lineage.BuildAliasMap(stmt.From, ctx)
	setLineage := make(map[string]core.ColumnLineage, len(stmt.SetColumns))
	deps := map[string]struct{}{}
	for i, col := range stmt.SetColumns {
		if i >= len(stmt.SetExprs) {
			break
		}
		l := lineage.ClassifyProjection(stmt.SetExprs[i], col, m, ctx)
		collectDeps(l, deps)
		setLineage[col] = l
	}

	if stmt.Output == nil || stmt.Output.Into == "" {
		return nil
	}
	lineageList := lineageFromOutput(stmt.Output, stmt.Target, setLineage, m, ctx)
	schema := schemaFromLineage(lineageList)
	for _, l := range lineageList {
		collectDeps(l, deps)
	}
	return resolveTarget(stmt.Output.Into, lineageList, schema, deps, ctx)
}

// DeleteWithOutput handles "DELETE FROM <target> [FROM ...] OUTPUT
// deleted.* INTO <sink>": every output column is an identity reference to
// the pre-image of the deleted row, since nothing is computed.
func DeleteWithOutput(stmt *sqlast.DeleteStmt, ctx *lineage.ParseContext) *Fragment {
	if stmt.Output == nil || stmt.Output.Into == "" {
		return nil
	}
	m := lineage.BuildAliasMap(stmt.From, ctx)
	lineageList := lineageFromOutput(stmt.Output, stmt.Target, nil, m, ctx)
	schema := schemaFromLineage(lineageList)
	deps := map[string]struct{}{}
	for _, l := range lineageList {
		collectDeps(l, deps)
	}
	return resolveTarget(stmt.Output.Into, lineageList, schema, deps, ctx)
}

// lineageFromOutput resolves an OUTPUT clause's column list into lineage:
// "inserted.col" reuses the SET expression's lineage when col was
// assigned; "alias.col" for a FROM-side alias resolves through the alias
// map to that source table; anything else (including "deleted.col") falls
// back to an identity passthrough of the target's own pre-image column.
func lineageFromOutput(out *sqlast.OutputClause, targetRaw string, setLineage map[string]core.ColumnLineage, m *lineage.AliasMap, ctx *lineage.ParseContext) []core.ColumnLineage {
	resolved := ctx.Resolver.Resolve(targetRaw, "table", ctx.CurrentDatabase, nil)
	result := make([]core.ColumnLineage, 0, len(out.Columns))
	for _, oc := range out.Columns {
		name := oc.Alias
		if name == "" {
			name = oc.Column
		}
		if setLineage != nil && oc.Source == "inserted" {
			if l, ok := setLineage[oc.Column]; ok {
				renamed := l
				renamed.OutputColumn = name
				result = append(result, renamed)
				continue
			}
		}
		if oc.Source != "" && oc.Source != "inserted" && oc.Source != "deleted" && m != nil && m.Has(oc.Source) {
			ref := sqlast.ColumnRef{Table: oc.Source, Column: oc.Column}
			l := lineage.ClassifyProjection(ref, name, m, ctx)
			result = append(result, l)
			continue
		}
		result = append(result, core.ColumnLineage{
			OutputColumn: name,
			Kind:         core.Identity,
			Inputs:       []core.ColumnReference{core.NewColumnReference(resolved.Namespace, resolved.QualifiedName, oc.Column)},
		})
	}
	return result
}
