package dml

import (
	"smf/internal/lineage"
	"smf/internal/sqlast"
)

// SelectInto handles "SELECT ... INTO <target> FROM ...". The target may
// be a persistent table or a #temp table; either way the select-lineage
// engine computes the output columns the same way.
func SelectInto(sel *sqlast.SelectStmt, ctx *lineage.ParseContext) *Fragment {
	body := &sqlast.SelectStmt{With: sel.With, Projections: sel.Projections, From: sel.From}
	lineageList, schema, deps := lineage.SelectLineage(&sqlast.UnionStmt{Branches: []*sqlast.SelectStmt{body}}, ctx)
	return resolveTarget(sel.Into, lineageList, schema, deps, ctx)
}
