package dml

import (
	"smf/internal/core"
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// InsertSelect handles "INSERT INTO <target> [(cols)] SELECT ...". When an
// explicit column list is given it overrides the select-lineage engine's
// inferred output names positionally.
func InsertSelect(stmt *sqlast.InsertStmt, ctx *lineage.ParseContext) *Fragment {
	lineageList, schema, deps := lineage.SelectLineage(stmt.Select, ctx)
	applyColumnOverride(stmt.Columns, lineageList, schema)
	return resolveTarget(stmt.Target, lineageList, schema, deps, ctx)
}

// InsertExec handles "INSERT INTO <target> EXEC <proc>": the target's
// shape is whatever the called procedure returns, which this extractor
// cannot see without cross-file procedure-result inference. It still
// registers the target as written so later references resolve, but marks
// the fragment as a fallback with no inferred schema.
func InsertExec(stmt *sqlast.InsertStmt, ctx *lineage.ParseContext) *Fragment {
	f := resolveTarget(stmt.Target, nil, nil, map[string]struct{}{}, ctx)
	f.IsFallback = true
	f.ReasonCode = core.ReasonInsertExecFallback
	return f
}

func applyColumnOverride(cols []string, lineageList []core.ColumnLineage, schema []core.ColumnSchema) {
	if len(cols) == 0 {
		return
	}
	for i := 0; i < len(cols) && i < len(lineageList); i++ {
		lineageList[i].OutputColumn = cols[i]
		schema[i].Name = cols[i]
	}
}
