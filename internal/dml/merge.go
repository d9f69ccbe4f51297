package dml

import (
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// Merge handles "MERGE INTO <target> USING <source> ON ... WHEN [NOT]
// MATCHED THEN ...". Every SET assignment and every INSERT value across
// every WHEN branch feeds the same accumulator, since all branches write
// the same target columns under different match conditions.
func Merge(stmt *sqlast.MergeStmt, ctx *lineage.ParseContext) *Fragment {
	m := lineage.BuildAliasMap(stmt.Source, ctx)
	acc := NewColumnAccumulator()
	deps := map[string]struct{}{}

	for _, when := range stmt.Whens {
		if when.Matched {
			for i, col := range when.SetColumns {
				if i >= len(when.SetExprs) {
					break
				}
				l := lineage.ClassifyProjection(when.SetExprs[i], col, m, ctx)
				collectDeps(l, deps)
				acc.Add(l)
			}
			continue
		}
		for i, col := range when.InsertCols {
			if i >= len(when.InsertVals) {
				break
			}
			l := lineage.ClassifyProjection(when.InsertVals[i], col, m, ctx)
			collectDeps(l, deps)
			acc.Add(l)
		}
	}

	lineageList := acc.Finalize()
	schema := schemaFromLineage(lineageList)
	return resolveTarget(stmt.Target, lineageList, schema, deps, ctx)
}
