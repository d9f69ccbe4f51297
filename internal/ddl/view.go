package ddl

import (
	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// ProcessCreateView runs the select-lineage engine over a view's body and
// applies a header column-list override when present.
func ProcessCreateView(stmt *sqlast.CreateViewStmt, ctx *lineage.ParseContext) *core.ObjectInfo {
	resolved := ctx.Resolver.Resolve(stmt.Name, "view", ctx.CurrentDatabase, nil)
	if resolved.Database != "" {
		ctx.Resolver.LearnFromCreate("view", resolved.QualifiedName, resolved.Database)
	}

	lineageList, schema, deps := lineage.SelectLineage(stmt.Query, ctx)
	applyHeaderOverride(stmt.Columns, lineageList, schema)

	obj := core.NewObjectInfo(resolved.QualifiedName, core.ObjectView)
	obj.Schema = core.TableSchema{Namespace: resolved.Namespace, QualifiedName: resolved.QualifiedName, Columns: schema}
	obj.Lineage = lineageList
	for d := range deps {
		obj.AddDependency(d)
	}
	ctx.Schemas.Put(obj.Schema)
	return obj
}

// applyHeaderOverride renames output columns positionally to match an
// explicit "CREATE VIEW v (c1, c2) AS ..." header list.
func applyHeaderOverride(header []string, lineageList []core.ColumnLineage, schema []core.ColumnSchema) {
	for i := 0; i < len(header) && i < len(lineageList); i++ {
		lineageList[i].OutputColumn = header[i]
		schema[i].Name = header[i]
	}
}
