package dml

import "smf/internal/core"

// collectDeps records l's non-temp input tables into deps.
func collectDeps(l core.ColumnLineage, deps map[string]struct{}) {
	for _, in := range l.Inputs {
		if !in.IsTemp() {
			deps[in.Namespace+"."+in.TableName] = struct{}{}
		}
	}
}

// schemaFromLineage builds a best-effort output schema from a finalized
// lineage list; types are unknown since DML handlers never see DDL.
func schemaFromLineage(lineageList []core.ColumnLineage) []core.ColumnSchema {
	schema := make([]core.ColumnSchema, len(lineageList))
	for i, l := range lineageList {
		schema[i] = core.ColumnSchema{Name: l.OutputColumn, DataType: "unknown", Nullable: true, Ordinal: i}
	}
	return schema
}
